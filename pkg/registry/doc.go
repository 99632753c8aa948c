// Package registry maps diagram cells to the backend resources they
// represent.
//
// [Entities] holds every loaded entity, grouped by entity source key, with a
// presence flag telling whether the entity is currently placed on the diagram.
// [Links] holds the loaded relations. Cells are correlated to resources by the
// backend id stored in their BackendModelParams, so a registry never keeps
// pointers to cells.
//
// Registries are plain state objects owned by one engine. They never talk to
// the backend and are not safe for concurrent use.
package registry
