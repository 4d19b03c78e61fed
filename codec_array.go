package bincodec

import "reflect"

// arrayPrimCodec implements ArrayPrimField: a fixed-count array of primitive
// integers, each read/written at the descriptor's component width and byte
// order.
type arrayPrimCodec struct{}

var _ Codec = arrayPrimCodec{}

func (arrayPrimCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	n, err := p.evalInt(d.SizeExpr, ctx)
	if err != nil {
		return nil, err
	}
	count := int(n)
	elemType := d.GoType.Elem()
	signed := isSignedKind(elemType.Kind())
	out := reflect.MakeSlice(d.GoType, count, count)
	for i := 0; i < count; i++ {
		v, err := r.GetInteger(d.ComponentWidth, d.ByteOrder, signed)
		if err != nil {
			return nil, err
		}
		out.Index(i).Set(reflect.ValueOf(v).Convert(elemType))
	}
	return p.finishDecode(d, ctx, out.Interface())
}

func (arrayPrimCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	raw, err := p.prepareEncode(d, ctx, value)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(raw)
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		var v int64
		if elem.Kind() >= reflect.Uint && elem.Kind() <= reflect.Uint64 {
			v = int64(elem.Uint())
		} else {
			v = elem.Int()
		}
		if err := w.PutInteger(v, d.ComponentWidth, d.ByteOrder); err != nil {
			return err
		}
	}
	return nil
}

// arrayObjCodec implements ArrayObjField: a fixed-count array whose elements
// are each decoded as their own nested template, optionally discriminated
// per-element by a Choices prefix (scenario S3: a per-element 8-bit prefix
// selecting between alternative element types).
type arrayObjCodec struct{}

var _ Codec = arrayObjCodec{}

func (arrayObjCodec) Decode(p *Parser, r *BitReader, d *Descriptor, ctx *EvaluationContext) (interface{}, error) {
	n, err := p.evalInt(d.SizeExpr, ctx)
	if err != nil {
		return nil, err
	}
	count := int(n)
	elemGoType := d.GoType.Elem()
	out := reflect.MakeSlice(d.GoType, 0, count)
	for i := 0; i < count; i++ {
		val, err := decodeChoiceOrStatic(p, r, ctx, d.Choices, d.ElementType)
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, adaptElemForSlice(elemGoType, val))
	}
	return p.finishDecode(d, ctx, out.Interface())
}

func (arrayObjCodec) Encode(p *Parser, w *BitWriter, d *Descriptor, ctx *EvaluationContext, value interface{}) error {
	raw, err := p.prepareEncode(d, ctx, value)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(raw)
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if err := encodeChoiceOrStatic(p, w, d.Choices, d.ElementType, elem); err != nil {
			return err
		}
	}
	return nil
}

// adaptElemForSlice converts a *T value returned from DecodeNested (always a
// pointer) into whatever shape the target slice's element type expects: the
// pointer itself, or the dereferenced struct value.
func adaptElemForSlice(elemType reflect.Type, val interface{}) reflect.Value {
	rv := reflect.ValueOf(val)
	if elemType.Kind() == reflect.Ptr {
		if rv.Type().AssignableTo(elemType) {
			return rv
		}
		return rv.Convert(elemType)
	}
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	return rv
}
