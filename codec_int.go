package bincodec

// intCodec implements IntField: a fixed 8/16/32/64-bit integer, byte-aligned,
// byte-order swapped per the descriptor's ByteOrder.
type intCodec struct{}

var _ Codec = intCodec{}

func (intCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	raw, err := r.GetInteger(d.Width, d.ByteOrder, !d.Unsigned)
	if err != nil {
		return nil, err
	}
	return p.finishDecode(d, ctx, raw)
}

func (intCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	raw, err := p.prepareEncode(d, ctx, value)
	if err != nil {
		return err
	}
	v, ok := toInt64(raw)
	if !ok {
		u, ok2 := toUint64(raw)
		if !ok2 {
			return &FieldError{Field: d.FieldName, Cause: ErrConversion}
		}
		v = int64(u)
	}
	return w.PutInteger(v, d.Width, d.ByteOrder)
}
