package bincodec

import (
	"errors"
	"fmt"
)

// Sentinel errors a caller can test for with errors.Is, mirroring the flat taxonomy
// described for the codec engine: buffer-level failures, structural compile-time
// failures, and the handful of outcomes the template parser can raise per message.
var (
	ErrUnderflow           = errors.New("bincodec: buffer underflow")
	ErrAlignment           = errors.New("bincodec: operation requires byte alignment")
	ErrValidation          = errors.New("bincodec: value failed validation")
	ErrMatchFailure        = errors.New("bincodec: value did not satisfy match pattern")
	ErrConversion          = errors.New("bincodec: converter failed")
	ErrEvaluation          = errors.New("bincodec: expression evaluation failed")
	ErrTemplateNotFound    = errors.New("bincodec: no template matches the buffer at the current position")
	ErrTerminatorMismatch  = errors.New("bincodec: header terminator did not match")
	ErrChecksumMismatch    = errors.New("bincodec: checksum verification failed")
	ErrTrailingBytes       = errors.New("bincodec: trailing bytes remained after parsing")
	ErrDuplicateChecksum   = errors.New("bincodec: template declares more than one checksum field")
	ErrDuplicateHeaderKey  = errors.New("bincodec: duplicate header start sequence in loader")
	ErrUnknownChecksummer  = errors.New("bincodec: no checksummer registered under this algorithm id")
	ErrUnknownConverter    = errors.New("bincodec: no converter registered under this id")
	ErrUnknownValidator    = errors.New("bincodec: no validator registered under this id")
	ErrNoAlternativeMatch  = errors.New("bincodec: no choices alternative matched during decode or encode")
	ErrCanBeCodedViolation = errors.New("bincodec: template has no header or no bounded fields and cannot be used as a top-level template")
)

// BufferError wraps ErrUnderflow/ErrAlignment with the bit position at which the
// failure occurred, the way the reader/writer report their own internal state.
type BufferError struct {
	Cause    error
	BitIndex uint64
}

func (e *BufferError) Error() string {
	return fmt.Sprintf("bincodec: buffer error at bit %d: %v", e.BitIndex, e.Cause)
}

func (e *BufferError) Unwrap() error { return e.Cause }

// AnnotationError is raised by the template compiler for any structural violation
// of the field-annotation rules (two bounding annotations on one field, duplicate
// checksum, wrong target type for a kind, and so on).
type AnnotationError struct {
	TypeName  string
	Field     string
	Kinds     []FieldKind
	Cause     error
	Structure string // human-readable description of what rule was violated
}

func (e *AnnotationError) Error() string {
	if len(e.Kinds) > 0 {
		return fmt.Sprintf("bincodec: %s.%s: %s (kinds: %v)", e.TypeName, e.Field, e.Structure, e.Kinds)
	}
	return fmt.Sprintf("bincodec: %s.%s: %s", e.TypeName, e.Field, e.Structure)
}

func (e *AnnotationError) Unwrap() error { return e.Cause }

// LoaderError is raised by the template dispatcher when two templates are
// registered under the same header start sequence.
type LoaderError struct {
	Key []byte
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("%v: %x", ErrDuplicateHeaderKey, e.Key)
}

func (e *LoaderError) Unwrap() error { return ErrDuplicateHeaderKey }

// FieldError wraps any cause arising while decoding or encoding a single field with
// the template and field name it occurred in, per the spec's FieldError contract.
type FieldError struct {
	Template string
	Field    string
	Cause    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("bincodec: %s.%s: %v", e.Template, e.Field, e.Cause)
}

func (e *FieldError) Unwrap() error { return e.Cause }

func newFieldError(template, field string, cause error) *FieldError {
	return &FieldError{Template: template, Field: field, Cause: cause}
}
