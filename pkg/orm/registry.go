package orm

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/mapping"
)

// Request is the input of a conversion function. Column is nil for
// relationships. Args is owned by the call and may be mutated.
type Request struct {
	Model    any
	Mapper   mapping.Mapper
	Property mapping.Property
	Column   *mapping.Column
	Args     forms.Args
}

// ConvertFunc produces the field spec for a property. A nil spec with a nil
// error skips the property.
type ConvertFunc func(req Request) (*forms.FieldSpec, error)

// Predicate selects properties for a matcher rule.
type Predicate func(prop mapping.Property, column *mapping.Column) bool

type rule struct {
	name     string
	priority int
	tags     map[string]struct{}
	match    Predicate
	convert  ConvertFunc
	order    int
}

// Registry maps type tags to conversion functions. Rules are checked by
// priority; among equal priorities the most recent registration wins, so
// entries registered after the built-ins override them.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register serves tags with convert. Tags are qualified ("sql.sqltypes.String")
// or bare ("String") type names, or relationship directions ("MANYTOONE").
func (r *Registry) Register(name string, priority int, convert ConvertFunc, tags ...string) {
	if r == nil || convert == nil || len(tags) == 0 {
		return
	}
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	r.add(rule{name: strings.TrimSpace(name), priority: priority, tags: set, convert: convert})
}

// RegisterMatcher serves every column property accepted by match. Matchers are
// consulted before the type-tag walk.
func (r *Registry) RegisterMatcher(name string, priority int, match Predicate, convert ConvertFunc) {
	if r == nil || match == nil || convert == nil {
		return
	}
	r.add(rule{name: strings.TrimSpace(name), priority: priority, match: match, convert: convert})
}

func (r *Registry) add(entry rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.order = len(r.rules)
	r.rules = append(r.rules, entry)
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry{rules: append([]rule(nil), r.rules...)}
}

// Names lists the rule names in resolution order.
func (r *Registry) Names() []string {
	rules := r.sorted()
	out := make([]string, len(rules))
	for i, entry := range rules {
		out[i] = entry.name
	}
	return out
}

// Lookup returns the conversion function serving tag.
func (r *Registry) Lookup(tag string) (ConvertFunc, bool) {
	for _, entry := range r.sorted() {
		if _, ok := entry.tags[tag]; ok {
			return entry.convert, true
		}
	}
	return nil, false
}

// Match returns the first matcher rule accepting the property.
func (r *Registry) Match(prop mapping.Property, column *mapping.Column) (ConvertFunc, bool) {
	for _, entry := range r.sorted() {
		if entry.match != nil && entry.match(prop, column) {
			return entry.convert, true
		}
	}
	return nil, false
}

// Resolve finds the conversion function for a column type. When hierarchy is
// set, ancestors are tried after the exact type; each candidate is tried by
// qualified then bare name. tried lists every tag consulted.
func (r *Registry) Resolve(typ mapping.ColumnType, hierarchy bool) (convert ConvertFunc, tried []string) {
	candidates := []mapping.TypeName{typ.TypeName}
	if hierarchy {
		candidates = typ.Hierarchy()
	}
	for _, candidate := range candidates {
		tags := []string{candidate.Qualified()}
		if candidate.Package != "" {
			tags = append(tags, candidate.Name)
		}
		for _, tag := range tags {
			tried = append(tried, tag)
			if fn, ok := r.Lookup(tag); ok {
				return fn, tried
			}
		}
	}
	return nil, tried
}

func (r *Registry) sorted() []rule {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order > rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	return rules
}
