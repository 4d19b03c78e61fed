package bincodec

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sync"

	"gopkg.in/yaml.v3"
)

// templateSnapshot is the YAML/JSON-serializable shape of one registered
// template: a type name (resolved back to a reflect.Type through the
// PersistentDispatcher's type registry on Restore) and the header start
// sequences it was registered under, recorded as hex so arbitrary binary
// prefixes round-trip through a human-editable file.
type templateSnapshot struct {
	TypeName string   `yaml:"type" json:"type"`
	Keys     []string `yaml:"keys" json:"keys"`
}

type dispatcherSnapshot struct {
	Templates []templateSnapshot `yaml:"templates" json:"templates"`
}

// PersistentDispatcher decorates a TemplateDispatcher with a JSON/YAML
// snapshot of its registered templates, grounded on the teacher's
// PersistentCache (persistent.go). It holds no file of its own: snapshots are
// written to an io.Writer (YAML) or returned as bytes (JSON), and a type
// registry is kept to reconstruct compiled templates from a snapshot, since a
// reflect.Type itself cannot be serialized.
type PersistentDispatcher struct {
	mu         sync.RWMutex
	dispatcher *TemplateDispatcher
	compiler   *Compiler
	types      map[string]reflect.Type
}

// NewPersistentDispatcher wraps dispatcher with a snapshotting decorator
// that compiles restored template type names through compiler.
func NewPersistentDispatcher(dispatcher *TemplateDispatcher, compiler *Compiler) *PersistentDispatcher {
	return &PersistentDispatcher{
		dispatcher: dispatcher,
		compiler:   compiler,
		types:      map[string]reflect.Type{},
	}
}

// RegisterType makes t resolvable by name during RestoreYAML/RestoreJSON.
// Callers must register every record type they intend to restore (unless it
// was already added through Add) before calling either of them.
func (p *PersistentDispatcher) RegisterType(name string, t reflect.Type) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types[name] = t
}

// Add registers t's header keys with the underlying dispatcher and records
// it for the next DumpYAML/DumpJSON.
func (p *PersistentDispatcher) Add(t reflect.Type) error {
	tmpl, err := p.compiler.Compile(t)
	if err != nil {
		return err
	}
	if err := p.dispatcher.Add(tmpl); err != nil {
		return err
	}
	p.mu.Lock()
	if _, ok := p.types[tmpl.Plan.TypeName]; !ok {
		p.types[tmpl.Plan.TypeName] = t
	}
	p.mu.Unlock()
	return nil
}

// Dispatcher returns the underlying TemplateDispatcher for use by an Engine.
func (p *PersistentDispatcher) Dispatcher() *TemplateDispatcher { return p.dispatcher }

// snapshot builds the serializable view of every currently registered
// template.
func (p *PersistentDispatcher) snapshot() (*dispatcherSnapshot, error) {
	p.dispatcher.mu.RLock()
	defer p.dispatcher.mu.RUnlock()

	byType := map[string][]string{}
	var order []string
	for _, e := range p.dispatcher.entries {
		name := e.tmpl.Plan.TypeName
		if _, seen := byType[name]; !seen {
			order = append(order, name)
		}
		byType[name] = append(byType[name], hexString(e.key))
	}
	snap := &dispatcherSnapshot{}
	for _, name := range order {
		snap.Templates = append(snap.Templates, templateSnapshot{TypeName: name, Keys: byType[name]})
	}
	return snap, nil
}

// DumpYAML writes a human-editable YAML snapshot of every registered
// template's type name and header keys to w.
func (p *PersistentDispatcher) DumpYAML(w io.Writer) error {
	snap, err := p.snapshot()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(snap)
}

// DumpJSON renders the same snapshot as DumpYAML, as JSON.
func (p *PersistentDispatcher) DumpJSON() ([]byte, error) {
	snap, err := p.snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(snap)
}

// RestoreYAML reads a snapshot previously written by DumpYAML and
// re-registers every template it names, resolving type names through the
// types registered via RegisterType/Add.
func (p *PersistentDispatcher) RestoreYAML(r io.Reader) error {
	var snap dispatcherSnapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return err
	}
	return p.restore(&snap)
}

// RestoreJSON mirrors RestoreYAML for a JSON-encoded snapshot.
func (p *PersistentDispatcher) RestoreJSON(data []byte) error {
	var snap dispatcherSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	return p.restore(&snap)
}

func (p *PersistentDispatcher) restore(snap *dispatcherSnapshot) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ts := range snap.Templates {
		t, ok := p.types[ts.TypeName]
		if !ok {
			return fmt.Errorf("bincodec: snapshot names unregistered type %q", ts.TypeName)
		}
		tmpl, err := p.compiler.Compile(t)
		if err != nil {
			return err
		}
		if err := p.dispatcher.Add(tmpl); err != nil {
			return err
		}
	}
	return nil
}
