// Package types defines the shared data model of the maestro resilience
// core: error categories, the tagged error taxonomy that crosses the
// Level-1/Level-2 boundary, execution statuses, result records, and the
// failure report attached to terminal errors.
//
// Everything in this package is pure data with no dependencies on the
// rest of the platform; result records are immutable once produced.
package types
