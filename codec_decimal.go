package bincodec

import "math/big"

// decimalCodec implements DecimalField: a 32- or 64-bit float widened to an
// arbitrary-precision decimal on the wire boundary, narrowed back to the
// record's float32/float64 target field after conversion/validation.
type decimalCodec struct{}

var _ Codec = decimalCodec{}

func (decimalCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	bf, err := r.GetDecimal(d.FloatWidth, d.ByteOrder)
	if err != nil {
		return nil, err
	}
	value, err := p.finishDecode(d, ctx, bf)
	if err != nil {
		return nil, err
	}
	if asBF, ok := value.(*big.Float); ok {
		f64, _ := asBF.Float64()
		if d.FloatWidth == 32 {
			return float32(f64), nil
		}
		return f64, nil
	}
	return value, nil
}

func (decimalCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	raw, err := p.prepareEncode(d, ctx, value)
	if err != nil {
		return err
	}
	var bf *big.Float
	switch v := raw.(type) {
	case *big.Float:
		bf = v
	case float64:
		bf = big.NewFloat(v)
	case float32:
		bf = big.NewFloat(float64(v))
	default:
		f, ok := toFloat64(raw)
		if !ok {
			return &FieldError{Field: d.FieldName, Cause: ErrConversion}
		}
		bf = big.NewFloat(f)
	}
	return w.PutDecimal(bf, d.FloatWidth, d.ByteOrder)
}
