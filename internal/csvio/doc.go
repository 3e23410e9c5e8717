// Package csvio decodes transaction rows from CSV input and encodes final
// account states back to CSV.
//
// The input format is deliberately forgiving: a header row is required,
// rows may carry extra trailing fields (which are ignored), cells may be
// padded with whitespace, and type names are case-insensitive. Amounts are
// fixed-point decimals truncated to four fractional places at the parse
// boundary.
//
// A malformed row is a RowError: the caller reports it and skips to the
// next row. Only structural reader failures (I/O errors, unreadable CSV
// framing) abort the run.
package csvio
