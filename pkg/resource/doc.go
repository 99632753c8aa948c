// Package resource defines the backend resource model and the client contract
// the sync engine consumes.
//
// A [Resource] is one backend record: an Entity (shown as a diagram node) or a
// Relation (shown as a diagram link, with Source and Target entity ids). A
// [Container] is the record holding the serialized diagram layout.
//
// # Backends
//
// Three [Client] implementations are provided:
//   - [MemoryStore]: in-process maps, used by tests and the local CLI
//   - [RedisStore]: JSON documents under prefixed Redis keys
//   - [MongoStore]: one MongoDB collection per resource collection
//
// All clients are safe for concurrent use; the engine calls them from
// goroutines started by the task loop.
package resource
