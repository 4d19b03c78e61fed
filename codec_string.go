package bincodec

// stringCodec implements StringField: a fixed byte-length string under a
// named charset. Per spec.md section 9 Open Question 3, encode truncates a
// too-long string to size bytes but never pads a short one.
type stringCodec struct{}

var _ Codec = stringCodec{}

func (stringCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	n, err := p.evalInt(d.SizeExpr, ctx)
	if err != nil {
		return nil, err
	}
	s, err := r.GetText(int(n), d.Charset)
	if err != nil {
		return nil, err
	}
	return p.finishDecode(d, ctx, s)
}

func (stringCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	raw, err := p.prepareEncode(d, ctx, value)
	if err != nil {
		return err
	}
	s, _ := raw.(string)
	n, err := p.evalInt(d.SizeExpr, ctx)
	if err != nil {
		return err
	}
	b := []byte(s)
	if int64(len(b)) > n {
		b = b[:n]
	}
	return w.PutBytes(b)
}

// stringTerminatedCodec implements StringTerminatedField: bytes read up to a
// terminator byte, optionally consuming it. Per spec.md section 9 Open
// Question 2, encode only emits the terminator when Consume is true.
type stringTerminatedCodec struct{}

var _ Codec = stringTerminatedCodec{}

func (stringTerminatedCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	s, err := r.GetTextUntil(d.Terminator, d.Consume, d.Charset)
	if err != nil {
		return nil, err
	}
	return p.finishDecode(d, ctx, s)
}

func (stringTerminatedCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	raw, err := p.prepareEncode(d, ctx, value)
	if err != nil {
		return err
	}
	s, _ := raw.(string)
	var term *byte
	if d.HasTerminator {
		t := d.Terminator
		term = &t
	}
	return w.PutText(s, term, d.Consume, d.Charset)
}
