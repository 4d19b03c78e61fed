package bincodec

import (
	"fmt"
	"regexp"
)

// Codec is the per-kind decode/encode pair every FieldKind registers exactly
// one of. Decode reads the raw bit-level value for a field (int64, *big.Int,
// string, []byte, a nested record pointer, and so on) and passes it through
// Parser.finishDecode, so the value it returns has already been converted,
// validated and match-checked. Encode receives the record's field value and
// passes it through Parser.prepareEncode to obtain the raw value it writes.
type Codec interface {
	Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error)
	Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error
}

// CodecRegistry is the closed FieldKind -> Codec table.
type CodecRegistry struct {
	byKind map[FieldKind]Codec
}

// NewCodecRegistry builds the registry with every built-in codec wired in.
// Template compilation rejects any FieldKind absent from this table.
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{byKind: map[FieldKind]Codec{}}
	r.byKind[KindSkip] = skipCodec{}
	r.byKind[KindBits] = bitsCodec{}
	r.byKind[KindInt] = intCodec{}
	r.byKind[KindInteger] = integerCodec{}
	r.byKind[KindFloat] = floatCodec{}
	r.byKind[KindDecimal] = decimalCodec{}
	r.byKind[KindString] = stringCodec{}
	r.byKind[KindStringTerminated] = stringTerminatedCodec{}
	r.byKind[KindArrayPrim] = arrayPrimCodec{}
	r.byKind[KindArrayObj] = arrayObjCodec{}
	r.byKind[KindObject] = objectCodec{}
	r.byKind[KindChecksum] = checksumCodec{}
	return r
}

// Resolve returns the codec registered for kind.
func (r *CodecRegistry) Resolve(kind FieldKind) (Codec, error) {
	if c, ok := r.byKind[kind]; ok {
		return c, nil
	}
	return nil, &AnnotationError{Structure: "no codec registered for field kind", Kinds: []FieldKind{kind}}
}

// finishDecode runs the shared post-decode pipeline every codec relies on:
// converter.decode, then validator.validate, then an optional match check.
func (p *Parser) finishDecode(d *Descriptor, ctx *EvaluationContext, raw interface{}) (interface{}, error) {
	conv, err := p.resolveConverter(d, ctx)
	if err != nil {
		return nil, err
	}
	value, err := conv.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	if err := p.validate(d, value); err != nil {
		return nil, err
	}
	if d.Match != "" {
		if err := p.checkMatch(d, ctx, value); err != nil {
			return nil, err
		}
	}
	return value, nil
}

// prepareEncode runs the shared pre-encode pipeline: validate the field
// value, check match, then converter.encode to obtain the raw value a codec
// writes to the wire.
func (p *Parser) prepareEncode(d *Descriptor, ctx *EvaluationContext, value interface{}) (interface{}, error) {
	if err := p.validate(d, value); err != nil {
		return nil, err
	}
	if d.Match != "" {
		if err := p.checkMatch(d, ctx, value); err != nil {
			return nil, err
		}
	}
	conv, err := p.resolveConverter(d, ctx)
	if err != nil {
		return nil, err
	}
	raw, err := conv.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return raw, nil
}

func (p *Parser) resolveConverter(d *Descriptor, ctx *EvaluationContext) (Converter, error) {
	if len(d.SelectConverterFrom) > 0 {
		return selectConverterFrom(p.Converters, p.Evaluator, ctx, d.SelectConverterFrom, d.Converter)
	}
	return p.Converters.Resolve(d.Converter)
}

func (p *Parser) validate(d *Descriptor, value interface{}) error {
	v, err := p.Validators.Resolve(d.Validator)
	if err != nil {
		return err
	}
	ok, err := v.Validate(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !ok {
		return ErrValidation
	}
	return nil
}

func (p *Parser) checkMatch(d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	re, err := resolveMatchPattern(p.Evaluator, ctx, d.Match)
	if err != nil || re == nil {
		return nil
	}
	if !re.MatchString(fmt.Sprintf("%v", value)) {
		return ErrMatchFailure
	}
	return nil
}

// resolveMatchPattern implements the three-step match resolution: try
// evaluating matchExpr as an expression yielding a string, then compiling
// that (or, failing evaluation, matchExpr itself) as a regular expression,
// and finally falling back to an exact anchored literal.
func resolveMatchPattern(ev Evaluator, ctx *EvaluationContext, matchExpr string) (*regexp.Regexp, error) {
	if matchExpr == "" {
		return nil, nil
	}
	candidate := matchExpr
	if ev != nil {
		if v, err := ev.Evaluate(matchExpr, ctx, stringType); err == nil {
			if s, ok := v.(string); ok {
				candidate = s
			}
		}
	}
	if re, err := regexp.Compile(candidate); err == nil {
		return re, nil
	}
	return regexp.Compile("^" + regexp.QuoteMeta(candidate) + "$")
}
