// Package attendance implements the attendance aggregation engine: parsing
// raw CSV sheet text, folding per-subject records into a unified per-student
// model keyed by roll number, and deriving summary and today-presence
// statistics.
//
// Everything in this package is a pure, synchronous transformation over the
// sheets of a single refresh cycle. Fetching sheets and serving results live
// in internal/sheets and internal/transport/http respectively.
package attendance
