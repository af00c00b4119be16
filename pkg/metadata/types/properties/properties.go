package properties

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"
)

// InstanceProperties is an ordered collection of named property values with
// an optional window of effectivity. Names keep the position of their first
// insertion. A nil *InstanceProperties behaves as an empty collection for
// all read operations.
type InstanceProperties struct {
	names  []string
	values map[string]Value

	EffectiveFromTime *time.Time
	EffectiveToTime   *time.Time
}

type PropertyDecoratorFunc func(*InstanceProperties)

func NewInstanceProperties(decorators ...PropertyDecoratorFunc) *InstanceProperties {
	p := &InstanceProperties{}

	for _, decorate := range decorators {
		decorate(p)
	}

	return p
}

// P adds a named value to the collection under construction
func P(name string, value Value) PropertyDecoratorFunc {
	return func(p *InstanceProperties) {
		p.SetProperty(name, value)
	}
}

// EffectiveBetween sets the window of effectivity. A nil bound is open.
func EffectiveBetween(from, to *time.Time) PropertyDecoratorFunc {
	return func(p *InstanceProperties) {
		p.EffectiveFromTime = copyTime(from)
		p.EffectiveToTime = copyTime(to)
	}
}

// SetProperty stores value under name. A name that is already present keeps
// its position and has its value replaced. A nil value removes the property.
func (p *InstanceProperties) SetProperty(name string, value Value) {
	if value == nil {
		p.RemoveProperty(name)
		return
	}

	if p.values == nil {
		p.values = map[string]Value{}
	}

	if _, exists := p.values[name]; !exists {
		p.names = append(p.names, name)
	}

	p.values[name] = value
}

func (p *InstanceProperties) RemoveProperty(name string) {
	if p == nil {
		return
	}

	if _, exists := p.values[name]; !exists {
		return
	}

	delete(p.values, name)
	p.names = slices.DeleteFunc(p.names, func(n string) bool { return n == name })

	if len(p.names) == 0 {
		p.names = nil
		p.values = nil
	}
}

// Get returns the named value or nil if there is none
func (p *InstanceProperties) Get(name string) Value {
	v, _ := p.Lookup(name)
	return v
}

func (p *InstanceProperties) Lookup(name string) (Value, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[name]
	return v, ok
}

func (p *InstanceProperties) Has(name string) bool {
	_, ok := p.Lookup(name)
	return ok
}

func (p *InstanceProperties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

func (p *InstanceProperties) IsEmpty() bool {
	return p.Len() == 0
}

// PropertyNames yields the property names in insertion order
func (p *InstanceProperties) PropertyNames() iter.Seq[string] {
	return func(yield func(string) bool) {
		if p == nil {
			return
		}
		for _, n := range p.names {
			if !yield(n) {
				return
			}
		}
	}
}

// All yields the properties in insertion order
func (p *InstanceProperties) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if p == nil {
			return
		}
		for _, n := range p.names {
			if !yield(n, p.values[n]) {
				return
			}
		}
	}
}

// Names returns a copy of the property names in insertion order
func (p *InstanceProperties) Names() []string {
	return slices.Collect(p.PropertyNames())
}

// Subset returns a new collection holding the named properties that are
// present, in the order of this collection. The window of effectivity is
// copied. Values are shared, not cloned.
func (p *InstanceProperties) Subset(names ...string) *InstanceProperties {
	sub := NewInstanceProperties(EffectiveBetween(p.effectiveFrom(), p.effectiveTo()))

	for name, value := range p.All() {
		if slices.Contains(names, name) {
			sub.SetProperty(name, value)
		}
	}

	return sub
}

func (p *InstanceProperties) effectiveFrom() *time.Time {
	if p == nil {
		return nil
	}
	return p.EffectiveFromTime
}

func (p *InstanceProperties) effectiveTo() *time.Time {
	if p == nil {
		return nil
	}
	return p.EffectiveToTime
}

var ErrEffectiveWindow = fmt.Errorf("effective from time is after effective to time")

func (p *InstanceProperties) checkWindow() error {
	from, to := p.effectiveFrom(), p.effectiveTo()
	if from != nil && to != nil && from.After(*to) {
		return fmt.Errorf("%w: %s > %s", ErrEffectiveWindow, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return nil
}

// SetEffectiveTimes replaces the window of effectivity. Either bound may be
// nil to leave that side open.
func (p *InstanceProperties) SetEffectiveTimes(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return fmt.Errorf("%w: %s > %s", ErrEffectiveWindow, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	p.EffectiveFromTime = copyTime(from)
	p.EffectiveToTime = copyTime(to)

	return nil
}

// IsEffectiveAt reports if t falls within [from, to)
func (p *InstanceProperties) IsEffectiveAt(t time.Time) bool {
	if from := p.effectiveFrom(); from != nil && t.Before(*from) {
		return false
	}
	if to := p.effectiveTo(); to != nil && !t.Before(*to) {
		return false
	}
	return true
}

// MergeEffectiveTime narrows the window of effectivity of this collection and
// of every nested map or struct to the intersection with [from, to).
func (p *InstanceProperties) MergeEffectiveTime(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return fmt.Errorf("effective from time %s is after effective to time %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	containers := []*InstanceProperties{p}

	err := WalkProperties(p, func(_ string, v Value) error {
		switch c := v.(type) {
		case *Map:
			if c.Entries != nil {
				containers = append(containers, c.Entries)
			}
		case *Struct:
			if c.Attributes != nil {
				containers = append(containers, c.Attributes)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, c := range containers {
		mergedFrom := later(c.EffectiveFromTime, from)
		mergedTo := earlier(c.EffectiveToTime, to)

		if mergedFrom != nil && mergedTo != nil && mergedFrom.After(*mergedTo) {
			return fmt.Errorf("effective windows do not overlap")
		}

		c.EffectiveFromTime = copyTime(mergedFrom)
		c.EffectiveToTime = copyTime(mergedTo)
	}

	return nil
}

func later(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.After(*b) {
		return a
	}
	return b
}

func earlier(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.Before(*b) {
		return a
	}
	return b
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
