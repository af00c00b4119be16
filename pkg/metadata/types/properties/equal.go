package properties

import (
	"bytes"
	"encoding/json"
	"math/big"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// Equal reports if a and b hold the same data. Property collections are
// compared by name, so their order does not matter. Array elements are
// compared by position.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if a.Category() != b.Category() || a.TypeName() != b.TypeName() {
		return false
	}

	switch x := a.(type) {
	case *Primitive:
		y := b.(*Primitive)
		return x.Kind == y.Kind && samePrimitive(x.Val, y.Val)
	case *Enum:
		y := b.(*Enum)
		return x.Ordinal == y.Ordinal && x.Symbol == y.Symbol
	case *Map:
		return b.(*Map).Entries.Equal(x.Entries)
	case *Struct:
		return b.(*Struct).Attributes.Equal(x.Attributes)
	case *Array:
		y := b.(*Array)
		if len(x.Elements) != len(y.Elements) {
			return false
		}
		for idx := range x.Elements {
			if !Equal(x.Elements[idx], y.Elements[idx]) {
				return false
			}
		}
		return true
	case *Unknown:
		return sameRaw(x.Raw, b.(*Unknown).Raw)
	default:
		return false
	}
}

// Equal reports if p and other hold equal values under the same names and
// have the same window of effectivity. A nil collection equals an empty one.
func (p *InstanceProperties) Equal(other *InstanceProperties) bool {
	if p.Len() != other.Len() {
		return false
	}

	if !sameTime(p.effectiveFrom(), other.effectiveFrom()) || !sameTime(p.effectiveTo(), other.effectiveTo()) {
		return false
	}

	for name, value := range p.All() {
		ov, ok := other.Lookup(name)
		if !ok || !Equal(value, ov) {
			return false
		}
	}

	return true
}

func samePrimitive(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case *big.Int:
		y, ok := b.(*big.Int)
		if !ok || x == nil || y == nil {
			return ok && x == nil && y == nil
		}
		return x.Cmp(y) == 0
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	default:
		return reflect.DeepEqual(a, b)
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameRaw(a, b json.RawMessage) bool {
	ca, cb := &bytes.Buffer{}, &bytes.Buffer{}
	if json.Compact(ca, a) != nil || json.Compact(cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
