// Package diagram defines the diagram surface contract consumed by the sync
// engine, the persisted layout format, and an in-memory surface.
//
// # Cells
//
// A [Cell] is either a chart node (IsChartNode set, correlated to a backend
// Entity through BackendModelParams) or a link (Source and Target set,
// correlated to a backend Relation). The persisted layout is a [Content]
// value serialized as JSON:
//
//	{"cells": [{"id": "...", "type": "chart.Node", "isChartNode": true, ...}]}
//
// The engine treats the layout as opaque except for the cells list, the
// isChartNode marker and the backend id correlation.
//
// # Surfaces
//
// [Surface] is what a rendering widget exposes. [Memory] implements it
// without rendering so the engine can run headless in the CLI, the HTTP
// server and tests. Surfaces are not safe for concurrent use; drive them from
// the task loop only.
package diagram
