package bincodec

import (
	"reflect"
	"sync"
)

var boolType = reflect.TypeOf(false)
var stringType = reflect.TypeOf("")

// EvaluationContext is the explicit value threaded through every decode/encode
// entry point that needs to evaluate an expression: the record under
// construction (or already built, for encode) plus any locally bound
// variables such as "prefix" for a choices discriminator.
type EvaluationContext struct {
	Record interface{}
	Bound  map[string]interface{}
}

// NewEvaluationContext returns a context over record with no bound variables.
func NewEvaluationContext(record interface{}) *EvaluationContext {
	return &EvaluationContext{Record: record, Bound: map[string]interface{}{}}
}

// Bind sets a local variable (e.g. "prefix") and returns the context for
// chaining.
func (c *EvaluationContext) Bind(key string, value interface{}) *EvaluationContext {
	if c.Bound == nil {
		c.Bound = map[string]interface{}{}
	}
	c.Bound[key] = value
	return c
}

func (c *EvaluationContext) clone() *EvaluationContext {
	out := &EvaluationContext{Record: c.Record, Bound: map[string]interface{}{}}
	for k, v := range c.Bound {
		out.Bound[k] = v
	}
	return out
}

// Evaluator is the expression-evaluation collaborator the core consumes but
// never implements: given a textual expression, the current record context,
// and the expected return type, it produces a typed value. The core never
// parses expressions itself; see evaluator/exprlang for a concrete adapter.
type Evaluator interface {
	Evaluate(expr string, ctx *EvaluationContext, returnType reflect.Type) (interface{}, error)
	SetContext(key string, value interface{})
}

// DefaultEvaluator is the thin process-wide wrapper described for the
// evaluator context: a shared key/value map mutated by SetContext (and
// visible to every Evaluate call unless a context already binds the same
// key), delegating actual expression evaluation to impl.
type DefaultEvaluator struct {
	impl   Evaluator
	mu     sync.RWMutex
	shared map[string]interface{}
}

var _ Evaluator = (*DefaultEvaluator)(nil)

// NewDefaultEvaluator wraps impl with a process-wide shared context.
func NewDefaultEvaluator(impl Evaluator) *DefaultEvaluator {
	return &DefaultEvaluator{impl: impl, shared: map[string]interface{}{}}
}

// SetContext mutates the shared, process-wide variable map. Per the
// concurrency model, callers must only do this between parses or under
// external synchronization.
func (d *DefaultEvaluator) SetContext(key string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shared[key] = value
}

// Evaluate merges the shared context under ctx's locally bound variables
// (locals win on key collision) and delegates to the wrapped implementation.
func (d *DefaultEvaluator) Evaluate(expr string, ctx *EvaluationContext, returnType reflect.Type) (interface{}, error) {
	d.mu.RLock()
	merged := ctx.clone()
	for k, v := range d.shared {
		if _, exists := merged.Bound[k]; !exists {
			merged.Bound[k] = v
		}
	}
	d.mu.RUnlock()
	return d.impl.Evaluate(expr, merged, returnType)
}
