package bincodec

// floatCodec implements FloatField: 32- or 64-bit IEEE-754, byte-order
// swapped the same way a fixed-width integer is.
type floatCodec struct{}

var _ Codec = floatCodec{}

func (floatCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	var raw interface{}
	if d.FloatWidth == 32 {
		v, err := r.GetFloat32(d.ByteOrder)
		if err != nil {
			return nil, err
		}
		raw = v
	} else {
		v, err := r.GetFloat64(d.ByteOrder)
		if err != nil {
			return nil, err
		}
		raw = v
	}
	return p.finishDecode(d, ctx, raw)
}

func (floatCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	raw, err := p.prepareEncode(d, ctx, value)
	if err != nil {
		return err
	}
	f, ok := toFloat64(raw)
	if !ok {
		return &FieldError{Field: d.FieldName, Cause: ErrConversion}
	}
	if d.FloatWidth == 32 {
		return w.PutFloat32(float32(f), d.ByteOrder)
	}
	return w.PutFloat64(f, d.ByteOrder)
}
