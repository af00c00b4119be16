package beans

import (
	"fmt"
	"time"

	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/properties"
)

// Attribute binds a primitive property name to a field of a bean
type Attribute struct {
	Name string
	Kind properties.PrimitiveKind

	// Get returns the value of the field or false if the field is unset
	Get func(b Bean) (*properties.Primitive, bool)
	// Set assigns the primitive to the field
	Set func(b Bean, v *properties.Primitive) error
}

// EnumAttribute binds an enum property name to a field of a bean
type EnumAttribute struct {
	Name     string
	TypeName string

	Get func(b Bean) (*properties.Enum, bool)
	Set func(b Bean, v *properties.Enum) error
}

// MapAttribute binds a map<string,string> property name to a field of a bean
type MapAttribute struct {
	Name string

	Get func(b Bean) (*properties.Map, bool)
	Set func(b Bean, v *properties.Map) error
}

func String[B Bean](name string, field func(B) *string) Attribute {
	return primitive(name, properties.PrimitiveString, field, properties.NewStringProperty, isZero[string])
}

func Int[B Bean](name string, field func(B) *int32) Attribute {
	return primitive(name, properties.PrimitiveInt, field, properties.NewIntProperty, isZero[int32])
}

func Long[B Bean](name string, field func(B) *int64) Attribute {
	return primitive(name, properties.PrimitiveLong, field, properties.NewLongProperty, isZero[int64])
}

func Double[B Bean](name string, field func(B) *float64) Attribute {
	return primitive(name, properties.PrimitiveDouble, field, properties.NewDoubleProperty, isZero[float64])
}

func Boolean[B Bean](name string, field func(B) *bool) Attribute {
	return primitive(name, properties.PrimitiveBoolean, field, properties.NewBooleanProperty, isZero[bool])
}

func Date[B Bean](name string, field func(B) *time.Time) Attribute {
	return primitive(name, properties.PrimitiveDate, field, properties.NewDateProperty, time.Time.IsZero)
}

func isZero[T comparable](v T) bool {
	var zero T
	return v == zero
}

func primitive[B Bean, T any](name string, kind properties.PrimitiveKind, field func(B) *T, wrap func(T) *properties.Primitive, zero func(T) bool) Attribute {
	return Attribute{
		Name: name,
		Kind: kind,
		Get: func(b Bean) (*properties.Primitive, bool) {
			bean, ok := b.(B)
			if !ok {
				return nil, false
			}

			v := *field(bean)
			if zero(v) {
				return nil, false
			}

			return wrap(v), true
		},
		Set: func(b Bean, p *properties.Primitive) error {
			bean, ok := b.(B)
			if !ok {
				return fmt.Errorf("attribute %s cannot be assigned to a %T", name, b)
			}

			v, ok := p.Val.(T)
			if !ok {
				return errors.NewUnmappableValueError(name, p.Val)
			}

			*field(bean) = v
			return nil
		},
	}
}

// EnumValue pairs a Go enum constant with its ordinal and symbolic name
type EnumValue[E ~int] struct {
	Value   E
	Ordinal int
	Symbol  string
}

// EnumDef describes how the values of a Go enum are stored as properties.
// The zero value of E means unset and must not be part of Values.
type EnumDef[E ~int] struct {
	TypeName string
	Values   []EnumValue[E]
}

func (d EnumDef[E]) bySymbol(symbol string) (EnumValue[E], bool) {
	for _, ev := range d.Values {
		if ev.Symbol == symbol {
			return ev, true
		}
	}
	return EnumValue[E]{}, false
}

func (d EnumDef[E]) byValue(v E) (EnumValue[E], bool) {
	for _, ev := range d.Values {
		if ev.Value == v {
			return ev, true
		}
	}
	return EnumValue[E]{}, false
}

// Symbol returns the symbolic name of v, or an empty string
func (d EnumDef[E]) Symbol(v E) string {
	ev, _ := d.byValue(v)
	return ev.Symbol
}

func EnumOf[B Bean, E ~int](name string, def EnumDef[E], field func(B) *E) EnumAttribute {
	return EnumAttribute{
		Name:     name,
		TypeName: def.TypeName,
		Get: func(b Bean) (*properties.Enum, bool) {
			bean, ok := b.(B)
			if !ok {
				return nil, false
			}

			ev, ok := def.byValue(*field(bean))
			if !ok {
				return nil, false
			}

			return properties.NewEnumProperty(def.TypeName, ev.Ordinal, ev.Symbol), true
		},
		Set: func(b Bean, e *properties.Enum) error {
			bean, ok := b.(B)
			if !ok {
				return fmt.Errorf("enum %s cannot be assigned to a %T", name, b)
			}

			ev, ok := def.bySymbol(e.Symbol)
			if !ok || ev.Ordinal != e.Ordinal {
				return errors.NewUnmappableEnumValueError(name, e.Symbol)
			}

			*field(bean) = ev.Value
			return nil
		},
	}
}

// StringMap binds a map of string values. Maps holding anything other than
// string primitives cannot be assigned and are left to the caller to keep.
func StringMap[B Bean](name string, field func(B) *map[string]string) MapAttribute {
	return MapAttribute{
		Name: name,
		Get: func(b Bean) (*properties.Map, bool) {
			bean, ok := b.(B)
			if !ok {
				return nil, false
			}

			m := *field(bean)
			if len(m) == 0 {
				return nil, false
			}

			return properties.NewStringMapProperty(m), true
		},
		Set: func(b Bean, m *properties.Map) error {
			bean, ok := b.(B)
			if !ok {
				return fmt.Errorf("map %s cannot be assigned to a %T", name, b)
			}

			values := make(map[string]string, m.Entries.Len())

			for key, v := range m.Entries.All() {
				s, ok := properties.PrimitiveAs[string](v)
				if !ok {
					return errors.NewUnmappableMapValueError(name, key)
				}
				values[key] = s
			}

			*field(bean) = values
			return nil
		},
	}
}
