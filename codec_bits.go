package bincodec

// bitsCodec implements BitsField: an n-bit sequence (n <= 64, right-aligned
// into a uint64) with BIG_ENDIAN meaning the n-bit sequence is mirrored
// end-to-end, not byte-swapped.
type bitsCodec struct{}

var _ Codec = bitsCodec{}

func (bitsCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	n, err := p.evalInt(d.SizeExpr, ctx)
	if err != nil {
		return nil, err
	}
	raw, err := r.GetBits(int(n))
	if err != nil {
		return nil, err
	}
	if d.ByteOrder == BigEndian {
		raw = reverseBitSequence(raw, int(n))
	}
	return p.finishDecode(d, ctx, raw)
}

func (bitsCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	raw, err := p.prepareEncode(d, ctx, value)
	if err != nil {
		return err
	}
	n, err := p.evalInt(d.SizeExpr, ctx)
	if err != nil {
		return err
	}
	v, _ := toUint64(raw)
	if d.ByteOrder == BigEndian {
		v = reverseBitSequence(v, int(n))
	}
	return w.PutBits(v, int(n))
}
