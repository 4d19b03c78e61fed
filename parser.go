package bincodec

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Parser drives a compiled Template against a BitReader/BitWriter: the
// decode/encode loop over bounded fields, the evaluated-field post-pass, and
// header/checksum verification. It owns the registries every codec needs to
// resolve converters, validators, the checksummer, and the expression
// evaluator, plus the Compiler used to recursively compile nested object
// types reached through ObjectField/ArrayObjField.
type Parser struct {
	Compiler   *Compiler
	Codecs     *CodecRegistry
	Converters *ConverterRegistry
	Validators *ValidatorRegistry
	Checksums  *ChecksumRegistry
	Evaluator  Evaluator
}

// NewParser wires together a Parser with sensible defaults: an empty
// Compiler, the built-in CodecRegistry, identity-only converter/validator
// registries, an empty checksum registry, and the given Evaluator (which may
// be nil if no template uses Condition/Evaluate/Skip-by-expression).
func NewParser(ev Evaluator) *Parser {
	return &Parser{
		Compiler:   NewCompiler(),
		Codecs:     NewCodecRegistry(),
		Converters: NewConverterRegistry(),
		Validators: NewValidatorRegistry(),
		Checksums:  NewChecksumRegistry(),
		Evaluator:  ev,
	}
}

// Decode runs a full top-level decode of tmpl against reader: bounded fields,
// evaluated fields, header terminator verification, and checksum
// verification. The returned value is a pointer to a freshly constructed
// instance of tmpl.Type.
func (p *Parser) Decode(tmpl *Template, reader *BitReader) (interface{}, error) {
	start := reader.PositionBytes()
	recordPtr := reflect.New(tmpl.Type)
	ctx := NewEvaluationContext(recordPtr.Interface())

	if err := p.decodeFields(tmpl.Plan, reader, recordPtr, ctx); err != nil {
		return nil, err
	}

	if tmpl.Plan.Header != nil && tmpl.Plan.Header.End != "" {
		end := []byte(tmpl.Plan.Header.End)
		got, err := reader.GetBytes(len(end))
		if err != nil {
			return nil, err
		}
		if string(got) != string(end) {
			return nil, ErrTerminatorMismatch
		}
	}

	if tmpl.Plan.ChecksumField != nil {
		if err := p.verifyChecksum(tmpl.Plan, reader, recordPtr, start); err != nil {
			return nil, err
		}
	}

	return recordPtr.Interface(), nil
}

// decodeFields walks the bounded fields of plan in order (applying attached
// skips and conditions), then runs the evaluated-field post-pass. It does not
// check header/checksum — that only applies at the top level, never to a
// nested object/array-element template.
func (p *Parser) decodeFields(plan *FieldPlan, reader *BitReader, recordPtr reflect.Value, ctx *EvaluationContext) error {
	for _, d := range plan.BoundedFields {
		for _, skip := range d.Skips {
			if err := p.applySkipDecode(skip, reader, ctx); err != nil {
				return newFieldError(plan.TypeName, d.FieldName, err)
			}
		}
		if d.HasCondition() {
			ok, err := p.evalBool(d.Condition, ctx)
			if err != nil {
				return newFieldError(plan.TypeName, d.FieldName, err)
			}
			if !ok {
				continue
			}
		}
		codec, err := p.Codecs.Resolve(d.Kind)
		if err != nil {
			return err
		}
		before := reader.PositionBits()
		value, err := codec.Decode(p, reader, d, ctx)
		if err != nil {
			return newFieldError(plan.TypeName, d.FieldName, err)
		}
		if d.Kind != KindSkip && reader.PositionBits() == before {
			return newFieldError(plan.TypeName, d.FieldName, fmt.Errorf("codec consumed no bits"))
		}
		setFieldValue(recordPtr, d.FieldIndex, value)
	}
	for _, ef := range plan.EvaluatedFields {
		value, err := p.Evaluator.Evaluate(ef.Expr, ctx, ef.GoType)
		if err != nil {
			return newFieldError(plan.TypeName, ef.FieldName, fmt.Errorf("%w: %v", ErrEvaluation, err))
		}
		setFieldValue(recordPtr, ef.FieldIndex, value)
	}
	return nil
}

// Encode runs a full top-level encode of record against writer, mirroring
// Decode: bounded fields, header end sequence, checksum, then flush.
func (p *Parser) Encode(tmpl *Template, writer *BitWriter, record interface{}) error {
	startByte := len(writer.Array())
	recordVal := reflect.ValueOf(record)
	if recordVal.Kind() != reflect.Ptr {
		v := reflect.New(tmpl.Type)
		v.Elem().Set(reflect.ValueOf(record))
		recordVal = v
	}
	ctx := NewEvaluationContext(recordVal.Interface())

	checksumOffset, err := p.encodeFields(tmpl.Plan, writer, recordVal, ctx)
	if err != nil {
		return err
	}

	if tmpl.Plan.Header != nil && tmpl.Plan.Header.End != "" {
		if err := writer.PutBytes([]byte(tmpl.Plan.Header.End)); err != nil {
			return err
		}
	}

	if tmpl.Plan.ChecksumField != nil {
		if err := p.writeChecksum(tmpl.Plan, writer, startByte, checksumOffset); err != nil {
			return err
		}
	}

	writer.Flush()
	return nil
}

// encodeFields walks the bounded fields of plan, returning the byte offset at
// which the checksum field's placeholder bytes were written (-1 if the
// template has none), so Encode can patch them once the full message is
// known.
func (p *Parser) encodeFields(plan *FieldPlan, writer *BitWriter, recordVal reflect.Value, ctx *EvaluationContext) (int, error) {
	checksumOffset := -1
	for _, d := range plan.BoundedFields {
		for _, skip := range d.Skips {
			if err := p.applySkipEncode(skip, writer, ctx); err != nil {
				return -1, newFieldError(plan.TypeName, d.FieldName, err)
			}
		}
		if d.HasCondition() {
			ok, err := p.evalBool(d.Condition, ctx)
			if err != nil {
				return -1, newFieldError(plan.TypeName, d.FieldName, err)
			}
			if !ok {
				continue
			}
		}
		codec, err := p.Codecs.Resolve(d.Kind)
		if err != nil {
			return -1, err
		}
		isChecksum := d == plan.ChecksumField
		offsetBefore := len(writer.Array())
		value := fieldValue(recordVal, d.FieldIndex)
		if err := codec.Encode(p, writer, d, ctx, value); err != nil {
			return -1, newFieldError(plan.TypeName, d.FieldName, err)
		}
		if isChecksum {
			checksumOffset = offsetBefore
		}
	}
	return checksumOffset, nil
}

// DecodeNested decodes tmpl against reader without touching header
// terminator or checksum verification, used by ArrayObjField/ObjectField to
// recurse into an element or nested object's own template.
func (p *Parser) DecodeNested(tmpl *Template, reader *BitReader) (interface{}, error) {
	recordPtr := reflect.New(tmpl.Type)
	ctx := NewEvaluationContext(recordPtr.Interface())
	if err := p.decodeFields(tmpl.Plan, reader, recordPtr, ctx); err != nil {
		return nil, err
	}
	return recordPtr.Interface(), nil
}

// EncodeNested encodes record against writer using tmpl's bounded fields
// only, the mirror of DecodeNested.
func (p *Parser) EncodeNested(tmpl *Template, writer *BitWriter, record interface{}) error {
	recordVal := reflect.ValueOf(record)
	if recordVal.Kind() != reflect.Ptr {
		v := reflect.New(tmpl.Type)
		v.Elem().Set(reflect.ValueOf(record))
		recordVal = v
	}
	ctx := NewEvaluationContext(recordVal.Interface())
	_, err := p.encodeFields(tmpl.Plan, writer, recordVal, ctx)
	return err
}

func (p *Parser) applySkipDecode(skip SkipSpec, reader *BitReader, ctx *EvaluationContext) error {
	if skip.SizeExpr != "" {
		n, err := p.evalInt(skip.SizeExpr, ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return reader.Skip(int(n))
		}
		if skip.HasTerminator {
			return reader.SkipUntil(skip.Terminator, skip.Consume)
		}
		return nil
	}
	if skip.HasTerminator {
		return reader.SkipUntil(skip.Terminator, skip.Consume)
	}
	return nil
}

// applySkipEncode mirrors applySkipDecode: a size-based skip is written as
// that many zero bits; otherwise a consumed terminator is written back.
func (p *Parser) applySkipEncode(skip SkipSpec, writer *BitWriter, ctx *EvaluationContext) error {
	if skip.SizeExpr != "" {
		n, err := p.evalInt(skip.SizeExpr, ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return writer.PutBits(0, int(n))
		}
	}
	if skip.HasTerminator && skip.Consume {
		return writer.PutBits(uint64(skip.Terminator), 8)
	}
	return nil
}

func (p *Parser) evalBool(expr string, ctx *EvaluationContext) (bool, error) {
	if p.Evaluator == nil {
		return true, nil
	}
	v, err := p.Evaluator.Evaluate(expr, ctx, boolType)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}
	b, _ := v.(bool)
	return b, nil
}

var intType = reflect.TypeOf(int64(0))

// evalInt resolves a size/width expression to an integer. A plain integer
// literal (the common case for a fixed-size field such as "size=64") never
// needs an Evaluator at all; only an expression referencing the record or a
// bound variable is dispatched to one.
func (p *Parser) evalInt(expr string, ctx *EvaluationContext) (int64, error) {
	if n, err := strconv.ParseInt(strings.TrimSpace(expr), 0, 64); err == nil {
		return n, nil
	}
	if p.Evaluator == nil {
		return 0, fmt.Errorf("%w: no evaluator configured for expression %q", ErrEvaluation, expr)
	}
	v, err := p.Evaluator.Evaluate(expr, ctx, intType)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: expression %q did not return an integer", ErrEvaluation, expr)
	}
}

func (p *Parser) verifyChecksum(plan *FieldPlan, reader *BitReader, recordPtr reflect.Value, start int) error {
	d := plan.ChecksumField
	algo, err := p.Checksums.Resolve(d.ChecksumAlgorithm)
	if err != nil {
		return err
	}
	end := reader.PositionBytes()
	expected, err := algo.Calculate(reader.buf, start+d.SkipStart, end-d.SkipEnd, d.StartValue)
	if err != nil {
		return err
	}
	// Compare only the declared width, the same truncation writeChecksum
	// applies when it patches the value into the message.
	mask := maskForWidth(d.Width)
	actual := fieldValue(recordPtr, d.FieldIndex)
	actualInt, ok := toInt64(actual)
	if !ok || uint64(actualInt)&mask != uint64(expected)&mask {
		ChecksumMismatchesTotal.Add(1)
		return ErrChecksumMismatch
	}
	return nil
}

func (p *Parser) writeChecksum(plan *FieldPlan, writer *BitWriter, start int, placeholderOffset int) error {
	d := plan.ChecksumField
	algo, err := p.Checksums.Resolve(d.ChecksumAlgorithm)
	if err != nil {
		return err
	}
	writer.Flush()
	buf := writer.Array()
	end := len(buf)
	value, err := algo.Calculate(buf, start+d.SkipStart, end-d.SkipEnd, d.StartValue)
	if err != nil {
		return err
	}
	writer.overwriteBytes(placeholderOffset, intToBytes(value, d.Width, d.ByteOrder))
	return nil
}

func toInt64(v interface{}) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	default:
		return 0, false
	}
}

// setFieldValue assigns value (which may need numeric conversion) into the
// field reached by index on the struct recordPtr points to.
func setFieldValue(recordPtr reflect.Value, index []int, value interface{}) {
	field := recordPtr.Elem().FieldByIndex(index)
	if value == nil {
		return
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return
	}
	if rv.Type().ConvertibleTo(field.Type()) {
		field.Set(rv.Convert(field.Type()))
	}
}

// fieldValue reads the field reached by index off record (a struct or
// pointer-to-struct reflect.Value).
func fieldValue(record reflect.Value, index []int) interface{} {
	v := record
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return v.FieldByIndex(index).Interface()
}
