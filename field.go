package bincodec

import "reflect"

// FieldKind is the closed set of bounding annotations the codec registry knows
// how to dispatch on. Every value here has exactly one Codec implementation
// registered against it in codec.go.
type FieldKind uint8

const (
	KindSkip FieldKind = iota
	KindBits
	KindInt
	KindInteger
	KindFloat
	KindDecimal
	KindString
	KindStringTerminated
	KindArrayPrim
	KindArrayObj
	KindObject
	KindChecksum
)

func (k FieldKind) String() string {
	switch k {
	case KindSkip:
		return "Skip"
	case KindBits:
		return "BitsField"
	case KindInt:
		return "IntField"
	case KindInteger:
		return "IntegerField"
	case KindFloat:
		return "FloatField"
	case KindDecimal:
		return "DecimalField"
	case KindString:
		return "StringField"
	case KindStringTerminated:
		return "StringTerminatedField"
	case KindArrayPrim:
		return "ArrayPrimField"
	case KindArrayObj:
		return "ArrayObjField"
	case KindObject:
		return "ObjectField"
	case KindChecksum:
		return "ChecksumField"
	default:
		return "Unknown"
	}
}

// SkipSpec is one attached Skip annotation. A field may carry more than one;
// the compiler preserves declaration order and the parser runs them in order
// before the field itself is processed.
type SkipSpec struct {
	SizeExpr      string
	HasTerminator bool
	Terminator    byte
	Consume       bool
}

// ConverterChoice is one entry of a selectConverterFrom list: the first entry
// whose Condition evaluates true against the record-so-far supplies the
// converter id to use for that decode/encode.
type ConverterChoice struct {
	Condition string
	Converter string
}

// Descriptor is the tagged-variant field descriptor: a single flat struct
// carrying every parameter any FieldKind might need, with Kind selecting which
// of them the registered Codec actually reads. This mirrors the closed
// enum-plus-table shape described for dynamic dispatch by annotation kind.
type Descriptor struct {
	Kind FieldKind

	// Target record field.
	FieldName  string
	FieldIndex []int
	GoType     reflect.Type

	// Shared across most bounded kinds.
	ByteOrder ByteOrder
	Unsigned  bool
	Signed    bool
	SizeExpr  string // bits for Bits/Integer, elements for arrays, bytes for String

	// IntField.
	Width int // 8, 16, 32, or 64

	// IntegerField.
	AllowPrimitive bool

	// FloatField / DecimalField.
	FloatWidth int // 32 or 64

	// StringField / StringTerminatedField / Header.
	Charset       string
	HasTerminator bool
	Terminator    byte
	Consume       bool

	// ArrayPrimField.
	ComponentWidth int // 8, 16, 32, or 64

	// ArrayObjField / ObjectField.
	ElementType reflect.Type
	Choices     *Choices

	// ChecksumField.
	ChecksumAlgorithm string
	SkipStart         int
	SkipEnd           int
	StartValue        int64

	// Common to every bound kind.
	Condition           string
	Match               string
	Converter           string
	Validator           string
	SelectConverterFrom []ConverterChoice

	// Attached Skip annotations, applied in order before this field decodes.
	Skips []SkipSpec
}

// HasCondition reports whether this field is guarded by a Condition annotation.
func (d *Descriptor) HasCondition() bool { return d.Condition != "" }

// EvaluatedField is a field whose value comes from an Evaluate annotation,
// computed in a post-pass once every bounded field has been decoded.
type EvaluatedField struct {
	FieldName  string
	FieldIndex []int
	GoType     reflect.Type
	Expr       string
}

// Header holds the message-header metadata compiled from a record's Header
// annotation: the set of byte sequences that may open a message, the optional
// closing sequence, and the charset both are encoded/decoded under.
type Header struct {
	Start   []string
	End     string
	Charset string
}
