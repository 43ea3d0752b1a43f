// Package mzn decodes the textual result stream of the MiniZinc toolchain
// into typed Go values.
//
// A solver run prints one block of assignments per solution, each block
// terminated by a rule line:
//
//	x = 3;
//	q = array1d(1..4, [2, 4, 1, 3]);
//	grid = [| 1, 2 |
//	          3, 4 |];
//	----------
//
// # Data Model
//
// Scalars: bool, int, float, atom (any unrecognized token, e.g. an enum member)
// Containers: seq (unindexed array literal), indexed (arrayNd literal)
//
// # Value Grammar
//
// Indexed:    array2d(1..2, Color, [1, 2, 3, 4, 5, 6])
// Unindexed:  [1, 2, 3]
// 2-D rows:   [| 1, 2 | 3, 4 |]
// Bool:       true / false
// Int:        -42
// Float:      3.25
// Atom:       red
//
// Named index sets (Color above) are resolved through an IndexContext. The
// usual provider is ScanIndexSets, which reads enum declarations from the
// model source.
//
// # Streams
//
// Driver is the push-based stream state machine: feed it raw lines and it
// returns a Solution at every rule line. The stream package wraps it in a
// pull-based decoder over an io.Reader.
//
// # Error Tolerance
//
// Decoding never aborts a stream:
//   - a malformed assignment is reported and skipped, the rest of the block survives
//   - a malformed block is reported and the next block decodes normally
//   - tokens matching no production are kept verbatim as atoms
package mzn
