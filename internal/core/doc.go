// Package core provides the preview and validation pipeline for uploaded GWAS
// summary-statistics files.
//
// The package is independent of any transport. The web layer, the gwascheck
// CLI and tests all drive it through the same types.
//
// # Pipeline
//
// A file is never parsed in full. Only a bounded prefix (the preview window)
// is inspected:
//
//  1. [Reader] reads the first PreviewBytes of a [ByteSource], inflates it when
//     the file name carries a compressed extension, and splits it into lines.
//     The last line is dropped because the byte budget may have cut it short.
//  2. [Sniffer] finds where header and comment lines stop and data begins.
//  3. [ParseLine] turns each data line into a [Record] using [ParserOptions].
//  4. [CheckSorted] verifies that chromosomes are contiguous and positions do
//     not decrease within a chromosome.
//
// # Controller
//
// [Controller] runs the pipeline for one upload form. Every file selection
// starts a new generation; a result computed for an older generation is
// discarded so that a slow validation can never overwrite the outcome for a
// newer file. The controller publishes a [Validity] to subscribers.
//
// # Sessions
//
// [Service] keeps one controller per upload session, bounds the number of
// validations running at once, evicts idle sessions, and records accepted
// files through a [SubmissionStore].
//
// # Error Handling
//
// Pipeline failures are typed ([ReadError], [HeaderMismatchError],
// [ParseError], [SortOrderError], [SizeExceededError]) and never escape the
// controller: each becomes a rejection reason. [MapError] turns any error into
// a [UserMessage] with a support code:
//
//   - FILE001-FILE004: size, unreadable preview, no data, no file
//   - HDR001: header mismatch
//   - VAL001-VAL003: parse, sort order, parser options
//   - SES001-SES004: session lookup and state, submissions
//   - UPL001-UPL003: busy, cancelled, timed out
package core
