package bincodec

// checksumCodec implements the wire-level read/write of the at-most-one
// ChecksumField a template may declare. It only moves the raw integer to and
// from the record; actual verification (recomputing the algorithm over the
// covered byte range and comparing) is the template parser's job, since only
// the parser knows the message's start/end byte offsets (spec.md section 4.5).
type checksumCodec struct{}

var _ Codec = checksumCodec{}

func (checksumCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	raw, err := r.GetInteger(d.Width, d.ByteOrder, false)
	if err != nil {
		return nil, err
	}
	return p.finishDecode(d, ctx, raw)
}

// Encode writes a zero-valued placeholder of the declared width; Parser.Encode
// patches it in place with the real computed value once the full message
// byte range the checksum covers has been written.
func (checksumCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	return w.PutInteger(0, d.Width, d.ByteOrder)
}
