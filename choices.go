package bincodec

import (
	"reflect"
	"strings"
)

// ChoiceAlternative is one entry of a polymorphic object's alternative list: a
// concrete type selected either by a boolean condition, by the decoded prefix
// value, or both.
type ChoiceAlternative struct {
	Condition   string
	PrefixValue int64
	Type        reflect.Type
}

// Choices is the compiled ObjectChoices: an ordered alternative list plus the
// width and byte order of the discriminating prefix that precedes the chosen
// alternative on the wire.
type Choices struct {
	Alternatives    []ChoiceAlternative
	PrefixSizeBits  int
	PrefixByteOrder ByteOrder
}

// resolveDecode returns the index of the first alternative whose condition
// evaluates true against ctx, which must already have "prefix" bound to the
// decoded discriminator value. An empty condition alternative always matches,
// acting as a default case.
func (c *Choices) resolveDecode(ev Evaluator, ctx *EvaluationContext) (int, error) {
	for i, alt := range c.Alternatives {
		if alt.Condition == "" {
			return i, nil
		}
		v, err := ev.Evaluate(alt.Condition, ctx, reflect.TypeOf(false))
		if err != nil {
			return -1, &FieldError{Cause: err}
		}
		if b, ok := v.(bool); ok && b {
			return i, nil
		}
	}
	return -1, ErrNoAlternativeMatch
}

// resolveEncode returns the index of the alternative whose concrete type
// equals the runtime type of value.
func (c *Choices) resolveEncode(value interface{}) (int, error) {
	if value == nil {
		return -1, ErrNoAlternativeMatch
	}
	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i, alt := range c.Alternatives {
		at := alt.Type
		if at.Kind() == reflect.Ptr {
			at = at.Elem()
		}
		if at == t {
			return i, nil
		}
	}
	return -1, ErrNoAlternativeMatch
}

// referencesPrefix reports whether expr mentions the bound "prefix" context
// variable, used on encode to decide whether the alternative's declared
// prefix value must be written back onto the wire.
func referencesPrefix(expr string) bool {
	return containsWord(expr, "prefix")
}

// containsWord reports whether word occurs in s as a standalone identifier,
// not merely as a substring of a longer one.
func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isIdentByte(s[start-1])
		afterOK := end == len(s) || !isIdentByte(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(s) {
			return false
		}
	}
}

func isIdentByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
