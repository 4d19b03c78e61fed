package bincodec

import "reflect"

// objectCodec implements ObjectField: a single nested record, either of a
// statically declared concrete type or selected from a Choices alternative
// list by a decoded prefix and/or condition.
type objectCodec struct{}

var _ Codec = objectCodec{}

func (objectCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	elemType, err := decodeChoiceOrStatic(p, r, ctx, d.Choices, d.ElementType)
	if err != nil {
		return nil, err
	}
	return p.finishDecode(d, ctx, elemType)
}

func (objectCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	raw, err := p.prepareEncode(d, ctx, value)
	if err != nil {
		return err
	}
	return encodeChoiceOrStatic(p, w, d.Choices, d.ElementType, raw)
}

// decodeChoiceOrStatic decodes one nested record: if choices is non-nil, it
// reads the discriminating prefix, binds it under the "prefix" context
// variable, resolves the first matching alternative, and recurses into that
// type's template; otherwise it recurses into staticType directly.
func decodeChoiceOrStatic(p *Parser, r *BitReader, ctx *EvaluationContext, choices *Choices, staticType reflect.Type) (interface{}, error) {
	targetType := staticType
	if choices != nil {
		prefix, err := r.GetInteger(choices.PrefixSizeBits, choices.PrefixByteOrder, false)
		if err != nil {
			return nil, err
		}
		childCtx := ctx.clone()
		childCtx.Bind("prefix", prefix)
		idx, err := choices.resolveDecode(p.Evaluator, childCtx)
		if err != nil {
			return nil, err
		}
		targetType = choices.Alternatives[idx].Type
	}
	tmpl, err := p.Compiler.Compile(targetType)
	if err != nil {
		return nil, err
	}
	return p.DecodeNested(tmpl, r)
}

// encodeChoiceOrStatic mirrors decodeChoiceOrStatic: it finds the
// alternative whose concrete type matches value's runtime type, emits its
// declared prefix if the alternative's condition references "prefix", then
// recurses into that type's template.
func encodeChoiceOrStatic(p *Parser, w *BitWriter, choices *Choices, staticType reflect.Type, value interface{}) error {
	targetType := staticType
	if choices != nil {
		idx, err := choices.resolveEncode(value)
		if err != nil {
			return err
		}
		alt := choices.Alternatives[idx]
		targetType = alt.Type
		if referencesPrefix(alt.Condition) {
			if err := w.PutInteger(alt.PrefixValue, choices.PrefixSizeBits, choices.PrefixByteOrder); err != nil {
				return err
			}
		}
	}
	tmpl, err := p.Compiler.Compile(targetType)
	if err != nil {
		return err
	}
	return p.EncodeNested(tmpl, w, value)
}
