package bincodec

import (
	"bytes"
	"reflect"
	"testing"
)

// S1: 3-byte ASCII header text plus one signed byte.
type scenarioS1Message struct {
	Header     Header `bincodec:"start=tc4"`
	HeaderText string `bincodec:"bind=string;size=3;charset=ASCII"`
	Value      int8   `bincodec:"bind=byte"`
}

func TestScenarioS1(t *testing.T) {
	p := NewParser(nil)
	tmpl, err := p.Compiler.Compile(reflect.TypeOf(scenarioS1Message{}))
	if err != nil {
		t.Fatal(err)
	}

	in := []byte{0x74, 0x63, 0x34, 0x01}
	rec, err := p.Decode(tmpl, NewBitReader(in))
	if err != nil {
		t.Fatal(err)
	}
	msg := rec.(*scenarioS1Message)
	if msg.HeaderText != "tc4" || msg.Value != 1 {
		t.Fatalf("unexpected record: %+v", msg)
	}

	w := NewBitWriter()
	if err := p.Encode(tmpl, w, msg); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(w.Array(), in) {
		t.Fatalf("encode got % x, want % x", w.Array(), in)
	}
}

type scenarioS3Elem1 struct {
	Value uint16 `bincodec:"bind=short;unsigned=true;byte_order=BE"`
}

type scenarioS3Elem2 struct {
	Value uint32 `bincodec:"bind=int;unsigned=true;byte_order=BE"`
}

// S3: choices-discriminated array by an 8-bit prefix.
type scenarioS3Message struct {
	Header     Header        `bincodec:"start=tc4"`
	HeaderText string        `bincodec:"bind=string;size=3;charset=ASCII"`
	Items      []interface{} `bincodec:"bind=array;choices=true;size=3"`
}

var _ ChoicesProvider = (*scenarioS3Message)(nil)

func (m *scenarioS3Message) BincodecChoices(field string) *Choices {
	if field != "Items" {
		return nil
	}
	return &Choices{
		PrefixSizeBits:  8,
		PrefixByteOrder: BigEndian,
		Alternatives: []ChoiceAlternative{
			{Condition: "prefix == 1", PrefixValue: 1, Type: reflect.TypeOf(scenarioS3Elem1{})},
			{Condition: "prefix == 2", PrefixValue: 2, Type: reflect.TypeOf(scenarioS3Elem2{})},
		},
	}
}

func TestScenarioS3(t *testing.T) {
	p := NewParser(&fixedEvaluator{})
	tmpl, err := p.Compiler.Compile(reflect.TypeOf(scenarioS3Message{}))
	if err != nil {
		t.Fatal(err)
	}

	in := []byte{
		0x74, 0x63, 0x34, // "tc4"
		0x01, 0x12, 0x34, // prefix 1, Elem1(0x1234)
		0x02, 0x11, 0x22, 0x33, 0x44, // prefix 2, Elem2(0x11223344)
		0x01, 0x06, 0x66, // prefix 1, Elem1(0x0666)
	}
	rec, err := p.Decode(tmpl, NewBitReader(in))
	if err != nil {
		t.Fatal(err)
	}
	msg := rec.(*scenarioS3Message)
	if len(msg.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(msg.Items))
	}
	e1, ok := msg.Items[0].(scenarioS3Elem1)
	if !ok || e1.Value != 0x1234 {
		t.Fatalf("item 0 mismatch: %#v", msg.Items[0])
	}
	e2, ok := msg.Items[1].(scenarioS3Elem2)
	if !ok || e2.Value != 0x11223344 {
		t.Fatalf("item 1 mismatch: %#v", msg.Items[1])
	}
	e3, ok := msg.Items[2].(scenarioS3Elem1)
	if !ok || e3.Value != 0x0666 {
		t.Fatalf("item 2 mismatch: %#v", msg.Items[2])
	}

	w := NewBitWriter()
	if err := p.Encode(tmpl, w, msg); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(w.Array(), in) {
		t.Fatalf("re-encode got % x, want % x", w.Array(), in)
	}
}

// S6: CRC-16-CCITT checksum with skip_start/skip_end.
type scenarioS6Message struct {
	Header  Header `bincodec:"start=+ACK;end=\x0d\x0a;charset=ASCII"`
	Payload []byte `bincodec:"bind=array_primitive;component_width=8;size=64"`
	Sum     uint16 `bincodec:"checksum;width=16;algorithm=crc16;skip_start=4;skip_end=4;start_value=0xFFFF;byte_order=BE"`
}

func TestScenarioS6(t *testing.T) {
	p := NewParser(nil)
	p.Checksums.Register("crc16", testCRC16{})
	tmpl, err := p.Compiler.Compile(reflect.TypeOf(scenarioS6Message{}))
	if err != nil {
		t.Fatal(err)
	}

	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i)
	}
	msg := &scenarioS6Message{Payload: payload}
	w := NewBitWriter()
	if err := p.Encode(tmpl, w, msg); err != nil {
		t.Fatal(err)
	}
	wire := w.Array()

	if _, err := p.Decode(tmpl, NewBitReader(wire)); err != nil {
		t.Fatalf("decode of an untouched wire must succeed: %v", err)
	}

	corrupt := append([]byte(nil), wire...)
	corrupt[20] ^= 0xFF // a middle byte, inside the checksummed range
	if _, err := p.Decode(tmpl, NewBitReader(corrupt)); err == nil {
		t.Fatal("expected checksum mismatch on corrupted payload")
	}
}

// testCRC16 is a minimal CRC-16-CCITT stand-in so the core's own tests don't
// import the checksum/crc reference package (which itself imports core).
type testCRC16 struct{}

func (testCRC16) Calculate(buf []byte, start, end int, startValue int64) (int64, error) {
	crc := uint16(startValue)
	for _, b := range buf[start:end] {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return int64(crc), nil
}

// fixedEvaluator is a tiny Evaluator stand-in recognizing only the two
// literal conditions scenarioS3Message's choices use, avoiding a dependency
// on evaluator/exprlang from the core package's own tests.
type fixedEvaluator struct{}

func (fixedEvaluator) SetContext(string, interface{}) {}

func (fixedEvaluator) Evaluate(expr string, ctx *EvaluationContext, returnType reflect.Type) (interface{}, error) {
	prefix, _ := ctx.Bound["prefix"].(int64)
	switch expr {
	case "prefix == 1":
		return prefix == 1, nil
	case "prefix == 2":
		return prefix == 2, nil
	default:
		return false, nil
	}
}
