package bincodec

import "reflect"

// FieldPlan is the immutable, order-preserving compiled description of one
// record type: the bounded fields walked on decode/encode, the evaluated
// fields processed in a post-pass, the at-most-one checksum field, and the
// message-header metadata. Nested (non-top-level) templates compile with a
// nil Header.
type FieldPlan struct {
	TypeName        string
	BoundedFields   []*Descriptor
	EvaluatedFields []*EvaluatedField
	ChecksumField   *Descriptor
	Header          *Header
}

// CanBeCoded reports whether this plan can drive a top-level decode: it needs
// a header and at least one bounded field.
func (p *FieldPlan) CanBeCoded() bool {
	return p.Header != nil && len(p.BoundedFields) > 0
}

// Template pairs a compiled FieldPlan with the Go type it was compiled from.
type Template struct {
	Type reflect.Type
	Plan *FieldPlan
}

// HeaderKeys returns the header's start sequences as the raw bytes of each
// start string (the header charset is not used for transcoding), the keys
// the dispatcher indexes templates by. Nested templates (Header == nil)
// return no keys.
func (t *Template) HeaderKeys() ([][]byte, error) {
	if t.Plan.Header == nil {
		return nil, nil
	}
	keys := make([][]byte, 0, len(t.Plan.Header.Start))
	for _, s := range t.Plan.Header.Start {
		keys = append(keys, []byte(s))
	}
	return keys, nil
}
