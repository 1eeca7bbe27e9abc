// Package pipeline implements the CSV split pipeline: parse, group,
// serialize, archive.
//
// The package is pure with respect to its inputs: [Run] takes raw CSV bytes
// plus a [Config] and returns a finished ZIP archive, touching neither the
// filesystem nor the network. Orchestration concerns (upload handling,
// progress reporting, download-handle lifecycle) live in internal/core.
//
// # Stages
//
// Control flows linearly through four stages, none of which calls back into
// an earlier one:
//
//  1. [Parse] tokenizes the input into an immutable header list and rows.
//  2. [GroupRows] partitions rows into buckets keyed by one column's value,
//     ordered by first appearance.
//  3. [SerializeGroup] renders each bucket back to CSV under the original
//     header list; [PlanEntries] derives each bucket's archive filename.
//  4. [BuildArchive] packs the serialized buckets into a single ZIP.
//
// # Errors
//
// Every failure is terminal for the run and surfaces as exactly one of the
// taxonomy types, all matchable with errors.As:
//
//   - [ParseError]: malformed CSV structure, with line diagnostics
//   - [SchemaError]: the configured group-key column is missing
//   - [EmptyResultError]: no row carried a usable group-key value
//   - [ResourceError]: input acquisition or archive finalization failed
//
// Rows lacking a group-key value and groups whose sanitized name is empty
// are not errors; they are counted in [Stats] and logged at debug level.
package pipeline
