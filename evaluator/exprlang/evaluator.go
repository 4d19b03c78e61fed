// Package exprlang is a reference github.com/expr-lang/expr-backed
// implementation of the bincodec.Evaluator interface the core engine
// consumes but never implements. It lets Condition, Evaluate, and Skip.size
// expressions run end to end; the core package itself never imports it, and
// the core package's own tests use a small stand-in evaluator instead.
package exprlang

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tmplcodec/bincodec"
)

// Evaluator evaluates field expressions against the record under
// construction, a process-wide shared context (set via SetContext) and a
// per-call set of locally bound variables (e.g. a Choices "prefix"), with
// locals taking precedence over shared context and both taking precedence
// over the record's own exported fields.
type Evaluator struct {
	mu     sync.RWMutex
	shared map[string]interface{}
	cache  sync.Map // expression text -> *vm.Program
}

var _ bincodec.Evaluator = (*Evaluator)(nil)

// New returns an Evaluator with an empty shared context.
func New() *Evaluator {
	return &Evaluator{shared: map[string]interface{}{}}
}

// SetContext mutates the shared, process-wide variable map. Per the
// concurrency model the core documents, callers must only do this between
// parses or under external synchronization.
func (e *Evaluator) SetContext(key string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shared == nil {
		e.shared = map[string]interface{}{}
	}
	e.shared[key] = value
}

// Evaluate compiles (and caches) expr, runs it against an environment built
// from ctx, and coerces the result toward returnType when that's a simple
// numeric/string widening.
func (e *Evaluator) Evaluate(exprText string, ctx *bincodec.EvaluationContext, returnType reflect.Type) (interface{}, error) {
	env := e.buildEnv(ctx)
	program, err := e.compile(exprText, env)
	if err != nil {
		return nil, fmt.Errorf("exprlang: compile %q: %w", exprText, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("exprlang: run %q: %w", exprText, err)
	}
	return coerce(out, returnType), nil
}

func (e *Evaluator) compile(exprText string, env map[string]interface{}) (*vm.Program, error) {
	if v, ok := e.cache.Load(exprText); ok {
		return v.(*vm.Program), nil
	}
	program, err := expr.Compile(exprText, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.cache.Store(exprText, program)
	return program, nil
}

// buildEnv flattens the record's exported fields, then the shared context,
// then ctx's locally bound variables (each layer overriding the one
// before), into a single map expr evaluates field/variable references
// against directly by name.
func (e *Evaluator) buildEnv(ctx *bincodec.EvaluationContext) map[string]interface{} {
	env := map[string]interface{}{}
	flattenStruct(ctx.Record, env)
	e.mu.RLock()
	for k, v := range e.shared {
		env[k] = v
	}
	e.mu.RUnlock()
	for k, v := range ctx.Bound {
		env[k] = v
	}
	return env
}

func flattenStruct(v interface{}, out map[string]interface{}) {
	if v == nil {
		return
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		out[f.Name] = rv.Field(i).Interface()
	}
}

// coerce narrows/widens a successful expression result to returnType when
// that's a direct numeric or convertible type; otherwise the raw result is
// returned unchanged and left to the caller's own conversion step.
func coerce(v interface{}, returnType reflect.Type) interface{} {
	if v == nil || returnType == nil {
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == returnType {
		return v
	}
	if rv.Type().ConvertibleTo(returnType) {
		return rv.Convert(returnType).Interface()
	}
	return v
}
