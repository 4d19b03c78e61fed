package bincodec

// skipCodec implements the Skip field kind as a standalone bounded field (as
// distinct from the Skips list attached to another field, which the template
// parser applies directly in decodeFields/encodeFields). A standalone Skip
// field discards size-expr bits, or bytes up to a terminator, without
// producing a record value.
type skipCodec struct{}

var _ Codec = skipCodec{}

func (skipCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	if d.SizeExpr != "" {
		n, err := p.evalInt(d.SizeExpr, ctx)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, r.Skip(int(n))
		}
	}
	if d.HasTerminator {
		return nil, r.SkipUntil(d.Terminator, d.Consume)
	}
	return nil, nil
}

func (skipCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	if d.SizeExpr != "" {
		n, err := p.evalInt(d.SizeExpr, ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return w.PutBits(0, int(n))
		}
	}
	if d.HasTerminator && d.Consume {
		return w.PutBits(uint64(d.Terminator), 8)
	}
	return nil
}
