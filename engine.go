package bincodec

import (
	"context"
	"errors"
	"time"
)

// ParseError pairs a single message's failure cause with the byte offset in
// the input buffer at which it was detected.
type ParseError struct {
	Cause     error `json:"-"`
	Message   string `json:"message"`
	ByteIndex int    `json:"byte_index"`
}

func (e *ParseError) Error() string { return e.Message }
func (e *ParseError) Unwrap() error { return e.Cause }

// ParseResponse collects the outcome of one Engine.Parse call over a buffer
// that may hold a concatenation of zero or more messages.
type ParseResponse struct {
	Parsed []interface{} `json:"parsed,omitempty"`
	Errors []*ParseError `json:"errors,omitempty"`
}

// HasErrors reports whether any message in the buffer failed to parse.
func (r *ParseResponse) HasErrors() bool { return len(r.Errors) > 0 }

// Engine is the top-level parser facade: it owns a TemplateDispatcher and a
// Parser and drives the capture/decode/restore/re-sync loop of spec.md
// section 4.7 over an arbitrary byte buffer.
type Engine struct {
	Dispatcher *TemplateDispatcher
	Parser     *Parser
}

// NewEngine wires a dispatcher and parser into a ready-to-use Engine.
func NewEngine(dispatcher *TemplateDispatcher, parser *Parser) *Engine {
	return &Engine{Dispatcher: dispatcher, Parser: parser}
}

// Parse decodes every message it can find in buf, collecting successes and
// errors. Fallback discipline: exactly one CaptureFallback per loop
// iteration, consumed either by a successful decode or by RestoreFallback on
// failure. Re-sync only ever advances the reader, never retreats.
func (e *Engine) Parse(ctx context.Context, buf []byte) *ParseResponse {
	logger := FromContext(ctx)
	reader := NewBitReader(buf)
	resp := &ParseResponse{}

	for reader.HasRemaining() {
		reader.CaptureFallback()

		tmpl, err := e.Dispatcher.Pick(reader)
		if err == nil {
			decodeStart := time.Now()
			var rec interface{}
			rec, err = e.Parser.Decode(tmpl, reader)
			DecodeDurationMicroseconds.Observe(float64(time.Since(decodeStart).Microseconds()))
			if err == nil {
				resp.Parsed = append(resp.Parsed, rec)
				MessagesTotal.Add(1)
				continue
			}
		}

		cause := parseErrorCause(err)
		logger.Error(err, "failed to parse message, re-syncing", "byteIndex", reader.PositionBytes(), "cause", cause)
		ParseErrorsTotal.WithLabelValues(cause).Add(1)
		resp.Errors = append(resp.Errors, &ParseError{Cause: err, Message: err.Error(), ByteIndex: reader.PositionBytes()})
		reader.RestoreFallback()

		next := e.Dispatcher.NextMessageIndex(reader)
		if next < 0 {
			break
		}
		ResyncsTotal.Add(1)
		reader.SetPosition(next)
	}

	if !resp.HasErrors() && reader.HasRemaining() {
		TrailingBytesTotal.Add(1)
		ParseErrorsTotal.WithLabelValues("trailing_bytes").Add(1)
		resp.Errors = append(resp.Errors, &ParseError{
			Cause: ErrTrailingBytes, Message: ErrTrailingBytes.Error(), ByteIndex: reader.PositionBytes(),
		})
	}
	return resp
}

// parseErrorCause classifies err into one of the metrics label buckets
// initMetrics pre-registers, falling back to "field" for anything else.
func parseErrorCause(err error) string {
	var bufErr *BufferError
	var annErr *AnnotationError
	var loaderErr *LoaderError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &bufErr):
		if bufErr.Cause == ErrAlignment {
			return "alignment"
		}
		return "buffer_underflow"
	case errors.As(err, &annErr):
		return "annotation"
	case errors.As(err, &loaderErr):
		return "loader"
	case errors.Is(err, ErrTemplateNotFound):
		return "template_not_found"
	case errors.Is(err, ErrTerminatorMismatch):
		return "terminator_mismatch"
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum_mismatch"
	default:
		return "field"
	}
}
