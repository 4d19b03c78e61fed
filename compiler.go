package bincodec

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
)

const (
	tagKey     = "bincodec"
	skipTagKey = "bincodec_skip"
)

var (
	headerType   = reflect.TypeOf(Header{})
	float32Type  = reflect.TypeOf(float32(0))
	float64Type  = reflect.TypeOf(float64(0))
	errorIfcType = reflect.TypeOf((*error)(nil)).Elem()
)

// ChoicesProvider is implemented by a record type that has at least one
// polymorphic (choices-bearing) array or object field. The compiler calls
// BincodecChoices(fieldName) to obtain the compiled alternative list; the
// prefix_size/prefix_byte_order tag attributes on the field itself may still
// override what the provider returns.
type ChoicesProvider interface {
	BincodecChoices(field string) *Choices
}

// Compiler walks a record type's struct tags once and caches the resulting
// Template, keyed by reflect.Type so self-referential / nested template
// lookups (an object field whose type is itself, or shared by siblings) never
// recompile.
type Compiler struct {
	mu    sync.RWMutex
	cache map[reflect.Type]*Template
}

// NewCompiler returns an empty compiler.
func NewCompiler() *Compiler {
	return &Compiler{cache: map[reflect.Type]*Template{}}
}

// Compile returns the cached Template for t (a struct or pointer-to-struct
// type), compiling it on first use.
func (c *Compiler) Compile(t reflect.Type) (*Template, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	c.mu.RLock()
	tmpl, ok := c.cache[t]
	c.mu.RUnlock()
	if ok {
		return tmpl, nil
	}
	tmpl, err := c.compileType(t)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[t] = tmpl
	c.mu.Unlock()
	return tmpl, nil
}

func (c *Compiler) compileType(t reflect.Type) (*Template, error) {
	if t.Kind() != reflect.Struct {
		return nil, &AnnotationError{TypeName: t.String(), Structure: "target type must be a struct"}
	}
	plan := &FieldPlan{}
	var header *Header
	var walkErr error

	var walk func(t reflect.Type, prefix []int)
	walk = func(t reflect.Type, prefix []int) {
		if walkErr != nil {
			return
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			idx := append(append([]int{}, prefix...), i)

			if f.Type == headerType {
				h, err := parseHeaderTag(f.Tag.Get(tagKey))
				if err != nil {
					walkErr = err
					return
				}
				header = h
				continue
			}
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				walk(f.Type, idx)
				continue
			}

			tagStr, ok := f.Tag.Lookup(tagKey)
			if !ok || tagStr == "" {
				continue
			}
			attrs := parseTag(tagStr)

			hasChecksum := attrs.has("checksum")
			hasEvaluate := attrs.has("evaluate")
			hasBind := attrs.has("bind")
			count := 0
			for _, b := range []bool{hasChecksum, hasEvaluate, hasBind} {
				if b {
					count++
				}
			}
			if count > 1 {
				walkErr = &AnnotationError{TypeName: t.String(), Field: f.Name,
					Structure: "at most one bounding annotation (bind/checksum/evaluate) is allowed per field"}
				return
			}

			switch {
			case hasChecksum:
				if plan.ChecksumField != nil {
					walkErr = &AnnotationError{TypeName: t.String(), Field: f.Name, Structure: "duplicate checksum annotation"}
					return
				}
				d, err := compileChecksumField(t, f, idx, attrs)
				if err != nil {
					walkErr = err
					return
				}
				plan.ChecksumField = d
				plan.BoundedFields = append(plan.BoundedFields, d)
			case hasEvaluate:
				plan.EvaluatedFields = append(plan.EvaluatedFields, &EvaluatedField{
					FieldName: f.Name, FieldIndex: idx, GoType: f.Type, Expr: attrs.get("evaluate", ""),
				})
			case hasBind:
				d, err := compileBoundField(t, f, idx, attrs)
				if err != nil {
					walkErr = err
					return
				}
				plan.BoundedFields = append(plan.BoundedFields, d)
			default:
				// Unrecognized or purely structural (condition-only,
				// documentation-only) annotation: ignored.
			}
		}
	}
	walk(t, nil)
	if walkErr != nil {
		return nil, walkErr
	}
	plan.Header = header
	plan.TypeName = t.Name()
	return &Template{Type: t, Plan: plan}, nil
}

func compileBoundField(t reflect.Type, f reflect.StructField, idx []int, attrs tagAttrs) (*Descriptor, error) {
	d := &Descriptor{
		FieldName: f.Name,
		FieldIndex: idx,
		GoType:    f.Type,
		Condition: attrs.get("condition", ""),
		Match:     attrs.get("match", ""),
		Converter: attrs.get("converter", ""),
		Validator: attrs.get("validator", ""),
		ByteOrder: attrs.byteOrder("byte_order", LittleEndian),
		Unsigned:  attrs.bool("unsigned", false),
	}
	if sc := attrs.get("select_converter_from", ""); sc != "" {
		d.SelectConverterFrom = parseSelectConverterFrom(sc)
	}
	if skipTag, ok := f.Tag.Lookup(skipTagKey); ok && skipTag != "" {
		specs, err := parseSkipSpecs(skipTag)
		if err != nil {
			return nil, err
		}
		d.Skips = specs
	}

	bind := attrs.get("bind", "")
	switch bind {
	case "skip":
		d.Kind = KindSkip
		d.SizeExpr = attrs.get("size", "")
		if t, ok := attrs["terminator"]; ok {
			d.HasTerminator = true
			d.Terminator = parseByteLiteral(t)
		}
		d.Consume = attrs.bool("consume", true)
	case "bits":
		d.Kind = KindBits
		d.SizeExpr = attrs.get("size", "")
	case "byte":
		d.Kind, d.Width = KindInt, 8
	case "short":
		d.Kind, d.Width = KindInt, 16
	case "int":
		d.Kind, d.Width = KindInt, 32
	case "long":
		d.Kind, d.Width = KindInt, 64
	case "integer":
		d.Kind = KindInteger
		d.SizeExpr = attrs.get("size", "")
		d.AllowPrimitive = attrs.bool("allow_primitive", true)
		d.Signed = !d.Unsigned
	case "float":
		d.Kind, d.FloatWidth = KindFloat, 32
	case "double":
		d.Kind, d.FloatWidth = KindFloat, 64
	case "decimal":
		if f.Type != float32Type && f.Type != float64Type {
			return nil, &AnnotationError{TypeName: t.String(), Field: f.Name, Kinds: []FieldKind{KindDecimal},
				Structure: "BindDecimal requires a float32 or float64 target"}
		}
		d.Kind = KindDecimal
		if f.Type == float32Type {
			d.FloatWidth = 32
		} else {
			d.FloatWidth = 64
		}
	case "string":
		d.Kind = KindString
		d.SizeExpr = attrs.get("size", "")
		d.Charset = attrs.get("charset", "UTF-8")
	case "string_terminated":
		d.Kind = KindStringTerminated
		d.Charset = attrs.get("charset", "UTF-8")
		d.HasTerminator = true
		d.Terminator = attrs.byteVal("terminator", 0)
		d.Consume = attrs.bool("consume", true)
	case "array_primitive":
		if f.Type.Kind() != reflect.Slice || !isPrimitiveKind(f.Type.Elem().Kind()) {
			return nil, &AnnotationError{TypeName: t.String(), Field: f.Name, Kinds: []FieldKind{KindArrayPrim},
				Structure: "BindArrayPrimitive requires a primitive-element slice target"}
		}
		d.Kind = KindArrayPrim
		d.SizeExpr = attrs.get("size", "")
		d.ComponentWidth = attrs.int("component_width", elemWidth(f.Type.Elem()))
	case "array":
		if f.Type.Kind() != reflect.Slice {
			return nil, &AnnotationError{TypeName: t.String(), Field: f.Name, Kinds: []FieldKind{KindArrayObj},
				Structure: "BindArray requires a slice target"}
		}
		if isPrimitiveKind(f.Type.Elem().Kind()) {
			return nil, &AnnotationError{TypeName: t.String(), Field: f.Name, Kinds: []FieldKind{KindArrayObj},
				Structure: "BindArray requires a non-primitive element type; use BindArrayPrimitive instead"}
		}
		d.Kind = KindArrayObj
		d.SizeExpr = attrs.get("size", "")
		d.ElementType = f.Type.Elem()
		if attrs.bool("choices", false) {
			choices, err := resolveChoices(t, f.Name, attrs)
			if err != nil {
				return nil, err
			}
			d.Choices = choices
		} else if elemStructType(d.ElementType) == nil {
			return nil, &AnnotationError{TypeName: t.String(), Field: f.Name, Kinds: []FieldKind{KindArrayObj},
				Structure: "BindArray without choices requires a concrete struct element type"}
		}
	case "object":
		d.Kind = KindObject
		d.ElementType = f.Type
		if attrs.bool("choices", false) {
			choices, err := resolveChoices(t, f.Name, attrs)
			if err != nil {
				return nil, err
			}
			d.Choices = choices
		} else if elemStructType(f.Type) == nil {
			return nil, &AnnotationError{TypeName: t.String(), Field: f.Name, Kinds: []FieldKind{KindObject},
				Structure: "BindObject without choices requires a concrete struct target"}
		}
	default:
		return nil, &AnnotationError{TypeName: t.String(), Field: f.Name, Structure: "unrecognized bind kind: " + bind}
	}
	return d, nil
}

func compileChecksumField(t reflect.Type, f reflect.StructField, idx []int, attrs tagAttrs) (*Descriptor, error) {
	if !isNumericKind(f.Type.Kind()) {
		return nil, &AnnotationError{TypeName: t.String(), Field: f.Name, Kinds: []FieldKind{KindChecksum},
			Structure: "BindChecksum requires a numeric target"}
	}
	return &Descriptor{
		Kind:              KindChecksum,
		FieldName:         f.Name,
		FieldIndex:        idx,
		GoType:            f.Type,
		Width:             attrs.int("width", 16),
		ByteOrder:         attrs.byteOrder("byte_order", BigEndian),
		ChecksumAlgorithm: attrs.get("algorithm", ""),
		SkipStart:         attrs.int("skip_start", 0),
		SkipEnd:           attrs.int("skip_end", 0),
		StartValue:        attrs.int64("start_value", 0),
	}, nil
}

func resolveChoices(t reflect.Type, fieldName string, attrs tagAttrs) (*Choices, error) {
	providerVal := reflect.New(t).Interface()
	provider, ok := providerVal.(ChoicesProvider)
	if !ok {
		return nil, &AnnotationError{TypeName: t.String(), Field: fieldName,
			Structure: "choices requested but type does not implement ChoicesProvider"}
	}
	choices := provider.BincodecChoices(fieldName)
	if choices == nil {
		return nil, &AnnotationError{TypeName: t.String(), Field: fieldName,
			Structure: "ChoicesProvider returned no alternatives for this field"}
	}
	if v := attrs.int("prefix_size", -1); v >= 0 {
		choices.PrefixSizeBits = v
	}
	if choices.PrefixSizeBits > 32 {
		return nil, &AnnotationError{TypeName: t.String(), Field: fieldName,
			Structure: "choices.prefix_size_bits must be <= 32"}
	}
	if po := attrs.get("prefix_byte_order", ""); po != "" {
		if po == "BE" {
			choices.PrefixByteOrder = BigEndian
		} else {
			choices.PrefixByteOrder = LittleEndian
		}
	}
	return choices, nil
}

func parseHeaderTag(tag string) (*Header, error) {
	attrs := parseTag(tag)
	var starts []string
	if s := attrs.get("start", ""); s != "" {
		for _, part := range strings.Split(s, "|") {
			starts = append(starts, unescapeHexBytes(part))
		}
	}
	return &Header{Start: starts, End: unescapeHexBytes(attrs.get("end", "")), Charset: attrs.get("charset", "UTF-8")}, nil
}

// unescapeHexBytes interprets "\xHH" escape sequences still present within s.
// reflect.StructTag.Get already unquotes a tag value, so `end=\x0d\x0a` in a
// tag arrives here as CR LF; a sequence that survives unquoting as the literal
// characters `\xHH` (written `\\xHH` in the tag) is decoded here to its byte.
func unescapeHexBytes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+4 <= len(s) && (s[i+1] == 'x' || s[i+1] == 'X') {
			if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 4
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func parseSkipSpecs(tag string) ([]SkipSpec, error) {
	var specs []SkipSpec
	for _, entry := range strings.Split(tag, "|") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		attrs := parseTag(entry)
		spec := SkipSpec{
			SizeExpr: attrs.get("size", ""),
			Consume:  attrs.bool("consume", true),
		}
		if t, ok := attrs["terminator"]; ok {
			spec.HasTerminator = true
			spec.Terminator = parseByteLiteral(t)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseSelectConverterFrom(s string) []ConverterChoice {
	var choices []ConverterChoice
	for _, entry := range strings.Split(s, "|") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=>", 2)
		if len(parts) != 2 {
			continue
		}
		choices = append(choices, ConverterChoice{Condition: strings.TrimSpace(parts[0]), Converter: strings.TrimSpace(parts[1])})
	}
	return choices
}

// tagAttrs is a parsed "key=value" (or bare "key" meaning key=true),
// semicolon-separated struct tag body.
type tagAttrs map[string]string

func parseTag(tag string) tagAttrs {
	attrs := tagAttrs{}
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 {
			attrs[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		} else {
			attrs[strings.TrimSpace(kv[0])] = "true"
		}
	}
	return attrs
}

func (a tagAttrs) has(key string) bool { _, ok := a[key]; return ok }

func (a tagAttrs) get(key, def string) string {
	if v, ok := a[key]; ok {
		return v
	}
	return def
}

func (a tagAttrs) bool(key string, def bool) bool {
	v, ok := a[key]
	if !ok {
		return def
	}
	return v == "true" || v == "1"
}

func (a tagAttrs) int(key string, def int) int {
	v, ok := a[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (a tagAttrs) int64(key string, def int64) int64 {
	v, ok := a[key]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return def
	}
	return n
}

func (a tagAttrs) byteOrder(key string, def ByteOrder) ByteOrder {
	switch a.get(key, "") {
	case "BE":
		return BigEndian
	case "LE":
		return LittleEndian
	default:
		return def
	}
}

func (a tagAttrs) byteVal(key string, def byte) byte {
	v, ok := a[key]
	if !ok {
		return def
	}
	return parseByteLiteral(v)
}

func parseByteLiteral(s string) byte {
	n, err := strconv.ParseInt(s, 0, 16)
	if err != nil {
		return 0
	}
	return byte(n)
}

func isPrimitiveKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return true
	default:
		return false
	}
}

func isNumericKind(k reflect.Kind) bool {
	if isPrimitiveKind(k) {
		return true
	}
	return k == reflect.Float32 || k == reflect.Float64
}

func elemWidth(t reflect.Type) int {
	switch t.Kind() {
	case reflect.Int8, reflect.Uint8:
		return 8
	case reflect.Int16, reflect.Uint16:
		return 16
	case reflect.Int64, reflect.Uint64:
		return 64
	default:
		return 32
	}
}

// elemStructType returns the underlying struct type of t (itself, or the
// struct it points to), or nil if t is not concrete enough to compile a
// nested template from.
func elemStructType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		return t
	}
	return nil
}
