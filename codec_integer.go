package bincodec

import "math/big"

// integerCodec implements IntegerField: an arbitrary bit-width integer whose
// width is itself an expression evaluated against the record. Widths under
// 64 bits read/write as a plain primitive when AllowPrimitive is set;
// anything else goes through the big.Int path.
//
// Per spec.md section 9 Open Question 1, the big.Int path does not apply
// two's-complement: a signed field stores the sign as the top bit of the
// k-bit field (bit k-1) with the remaining k-1 bits holding the unsigned
// magnitude. This is preserved faithfully rather than "fixed", as directed.
type integerCodec struct{}

var _ Codec = integerCodec{}

func (integerCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	k, err := p.evalInt(d.SizeExpr, ctx)
	if err != nil {
		return nil, err
	}
	width := int(k)
	if d.AllowPrimitive && width < 64 {
		raw, err := r.GetInteger(width, d.ByteOrder, d.Signed)
		if err != nil {
			return nil, err
		}
		return p.finishDecode(d, ctx, raw)
	}
	mag, err := r.GetBigInteger(width, d.ByteOrder)
	if err != nil {
		return nil, err
	}
	var raw interface{} = mag
	if d.Signed && width > 0 {
		signBit := width - 1
		if mag.Bit(signBit) == 1 {
			abs := new(big.Int).SetBit(mag, signBit, 0)
			raw = new(big.Int).Neg(abs)
		} else {
			raw = mag
		}
	}
	return p.finishDecode(d, ctx, raw)
}

func (integerCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	raw, err := p.prepareEncode(d, ctx, value)
	if err != nil {
		return err
	}
	k, err := p.evalInt(d.SizeExpr, ctx)
	if err != nil {
		return err
	}
	width := int(k)
	if d.AllowPrimitive && width < 64 {
		v, ok := toInt64(raw)
		if !ok {
			u, ok2 := toUint64(raw)
			if !ok2 {
				return &FieldError{Field: d.FieldName, Cause: ErrConversion}
			}
			v = int64(u)
		}
		return w.PutInteger(v, width, d.ByteOrder)
	}
	big1, err := toBigInt(raw)
	if err != nil {
		return err
	}
	if d.Signed && width > 0 && big1.Sign() < 0 {
		abs := new(big.Int).Neg(big1)
		abs.SetBit(abs, width-1, 1)
		return w.PutBigInteger(abs, width, d.ByteOrder)
	}
	return w.PutBigInteger(big1, width, d.ByteOrder)
}

// toBigInt coerces an int64/uint64/*big.Int raw value to a *big.Int.
func toBigInt(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case int64:
		return big.NewInt(n), nil
	case int:
		return big.NewInt(int64(n)), nil
	}
	if iv, ok := toInt64(v); ok {
		return big.NewInt(iv), nil
	}
	if uv, ok := toUint64(v); ok {
		return new(big.Int).SetUint64(uv), nil
	}
	return nil, ErrConversion
}
