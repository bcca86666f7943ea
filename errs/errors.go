// Package errs defines the sentinel errors shared across the DFLogTool
// packages.
//
// Callers should use errors.Is to test for these sentinels; most APIs wrap
// them with additional context via fmt.Errorf("%w: ...").
package errs

import "errors"

var (
	// ErrInvalidFormatRecord indicates a FMT record whose payload could not
	// be unpacked into a message descriptor.
	ErrInvalidFormatRecord = errors.New("invalid format record")

	// ErrInvalidFieldCode indicates a field-code character outside the
	// fixed DataFlash alphabet.
	ErrInvalidFieldCode = errors.New("invalid field code")

	// ErrColumnMismatch indicates a descriptor whose column list does not
	// match its field codes.
	ErrColumnMismatch = errors.New("column count does not match field codes")

	// ErrNoValidLines indicates an input that produced no decodable records.
	ErrNoValidLines = errors.New("no valid lines in file")

	// ErrUnknownMessageType indicates a record whose type-ID has no
	// registered descriptor.
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrTruncatedRecord indicates a record shorter than its descriptor's
	// declared length.
	ErrTruncatedRecord = errors.New("truncated record")

	// ErrTypeSpaceExhausted indicates that no free type-ID remains and no
	// droppable table can be evicted during a merge.
	ErrTypeSpaceExhausted = errors.New("message type space exhausted")

	// ErrMissingTable indicates an operation that requires a table the log
	// does not contain.
	ErrMissingTable = errors.New("missing table")

	// ErrMissingColumn indicates an operation that requires a column the
	// table does not declare.
	ErrMissingColumn = errors.New("missing column")

	// ErrInvalidCodec indicates an unsupported file compression codec.
	ErrInvalidCodec = errors.New("invalid compression codec")
)
