package properties

import (
	"fmt"
	"math/big"
	"slices"
	"strconv"
)

// MaxDepth is the deepest nesting of maps, arrays and structs that will be
// traversed before a value is rejected
const MaxDepth int = 512

var ErrCycle = fmt.Errorf("property value contains a cycle")
var ErrTooDeep = fmt.Errorf("property value is nested too deep")

// VisitFunc is called for every value in a tree, parents before children.
// Returning an error stops the walk and the error is returned from Walk.
type VisitFunc func(path string, v Value) error

type frame struct {
	path  string
	value Value
	depth int
	exit  any
}

// Walk visits v and everything nested within it in depth first order. It
// uses an explicit stack so that hostile nesting cannot exhaust the
// goroutine stack, and fails with ErrCycle if a container is reachable from
// itself.
func Walk(v Value, visit VisitFunc) error {
	if v == nil {
		return nil
	}
	return walk([]frame{{path: "", value: v}}, nil, visit)
}

// WalkProperties visits every value held by p, in property order
func WalkProperties(p *InstanceProperties, visit VisitFunc) error {
	if p == nil {
		return nil
	}
	root := map[any]struct{}{p: {}}
	return walk(propertyFrames("", p, 1), root, visit)
}

func walk(stack []frame, onPath map[any]struct{}, visit VisitFunc) error {
	if onPath == nil {
		onPath = map[any]struct{}{}
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.exit != nil {
			delete(onPath, f.exit)
			continue
		}

		if f.depth > MaxDepth {
			return fmt.Errorf("%w: %s", ErrTooDeep, f.path)
		}

		if err := visit(f.path, f.value); err != nil {
			return err
		}

		key := containerKey(f.value)
		if key == nil {
			continue
		}

		if _, seen := onPath[key]; seen {
			return fmt.Errorf("%w: %s", ErrCycle, f.path)
		}
		onPath[key] = struct{}{}

		stack = append(stack, frame{exit: key})
		stack = append(stack, children(f)...)
	}

	return nil
}

// containerKey identifies the storage of a composite value. Maps and
// structs are keyed on their property collection so that two wrappers
// sharing the same entries are recognised as the same container.
func containerKey(v Value) any {
	switch c := v.(type) {
	case *Map:
		if c.Entries == nil {
			return nil
		}
		return c.Entries
	case *Struct:
		if c.Attributes == nil {
			return nil
		}
		return c.Attributes
	case *Array:
		return c
	default:
		return nil
	}
}

// children returns the frames of the values nested in f, reversed so that
// they are popped in natural order
func children(f frame) []frame {
	var frames []frame

	switch c := f.value.(type) {
	case *Map:
		frames = propertyFrames(f.path, c.Entries, f.depth+1)
	case *Struct:
		frames = propertyFrames(f.path, c.Attributes, f.depth+1)
	case *Array:
		for idx, e := range c.Elements {
			if e == nil {
				continue
			}
			frames = append(frames, frame{
				path:  f.path + "[" + strconv.Itoa(idx) + "]",
				value: e,
				depth: f.depth + 1,
			})
		}
	}

	slices.Reverse(frames)
	return frames
}

func propertyFrames(prefix string, p *InstanceProperties, depth int) []frame {
	frames := make([]frame, 0, p.Len())

	for name, value := range p.All() {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		frames = append(frames, frame{path: path, value: value, depth: depth})
	}

	slices.Reverse(frames)
	return frames
}

// Validate checks that v is a finite tree within the nesting limit
func Validate(v Value) error {
	return Walk(v, checkNestedWindow)
}

// Validate checks the nesting of every value and that no window of
// effectivity ends before it starts
func (p *InstanceProperties) Validate() error {
	if err := p.checkWindow(); err != nil {
		return err
	}
	return WalkProperties(p, checkNestedWindow)
}

func checkNestedWindow(path string, v Value) error {
	var err error

	switch c := v.(type) {
	case *Map:
		err = c.Entries.checkWindow()
	case *Struct:
		err = c.Attributes.checkWindow()
	}

	if err != nil && path != "" {
		return fmt.Errorf("%s: %w", path, err)
	}
	return err
}

// Clone returns a deep copy of v. Values that fail validation are not copied.
func Clone(v Value) (Value, error) {
	if v == nil {
		return nil, nil
	}

	if err := Validate(v); err != nil {
		return nil, err
	}

	return cloneValue(v), nil
}

// Clone returns a deep copy of the collection, including its window of
// effectivity
func (p *InstanceProperties) Clone() (*InstanceProperties, error) {
	if p == nil {
		return nil, nil
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return cloneProperties(p), nil
}

// cloneValue must only be called on validated values. Recursion is bounded
// by MaxDepth.
func cloneValue(v Value) Value {
	switch c := v.(type) {
	case *Primitive:
		return &Primitive{Type: c.Type, Kind: c.Kind, Val: clonePrimitive(c.Val)}
	case *Enum:
		e := *c
		return &e
	case *Map:
		return &Map{Type: c.Type, Entries: cloneProperties(c.Entries)}
	case *Struct:
		return &Struct{Type: c.Type, Attributes: cloneProperties(c.Attributes)}
	case *Array:
		a := &Array{Type: c.Type}
		if c.Elements != nil {
			a.Elements = make([]Value, len(c.Elements))
			for idx, e := range c.Elements {
				if e != nil {
					a.Elements[idx] = cloneValue(e)
				}
			}
		}
		return a
	case *Unknown:
		return &Unknown{Type: c.Type, Raw: slices.Clone(c.Raw)}
	default:
		return v
	}
}

func clonePrimitive(val any) any {
	switch n := val.(type) {
	case *big.Int:
		if n == nil {
			return n
		}
		return new(big.Int).Set(n)
	default:
		return val
	}
}

func cloneProperties(p *InstanceProperties) *InstanceProperties {
	if p == nil {
		return nil
	}

	c := NewInstanceProperties(EffectiveBetween(p.EffectiveFromTime, p.EffectiveToTime))
	for name, value := range p.All() {
		c.SetProperty(name, cloneValue(value))
	}

	return c
}
