package properties

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the variant tag of a property value
type Category int

const (
	CategoryUnknown Category = iota
	CategoryPrimitive
	CategoryEnum
	CategoryMap
	CategoryArray
	CategoryStruct
)

func (c Category) String() string {
	switch c {
	case CategoryPrimitive:
		return "PRIMITIVE"
	case CategoryEnum:
		return "ENUM"
	case CategoryMap:
		return "MAP"
	case CategoryArray:
		return "ARRAY"
	case CategoryStruct:
		return "STRUCT"
	default:
		return "UNKNOWN"
	}
}

// Value is a typed property value. The set of implementations is closed:
// *Primitive, *Enum, *Map, *Array, *Struct and *Unknown.
type Value interface {
	Category() Category
	TypeName() string
	MarshalJSON() ([]byte, error)

	sealed()
}

// PrimitiveKind identifies the Go type stored in a Primitive
type PrimitiveKind int

const (
	PrimitiveUnknown PrimitiveKind = iota
	PrimitiveBoolean
	PrimitiveByte
	PrimitiveChar
	PrimitiveShort
	PrimitiveInt
	PrimitiveLong
	PrimitiveFloat
	PrimitiveDouble
	PrimitiveBigInteger
	PrimitiveBigDecimal
	PrimitiveString
	PrimitiveDate
)

var primitiveKinds = []struct {
	typeName string
	wireName string
}{
	PrimitiveUnknown:    {"object", "OM_PRIMITIVE_TYPE_UNKNOWN"},
	PrimitiveBoolean:    {"boolean", "OM_PRIMITIVE_TYPE_BOOLEAN"},
	PrimitiveByte:       {"byte", "OM_PRIMITIVE_TYPE_BYTE"},
	PrimitiveChar:       {"char", "OM_PRIMITIVE_TYPE_CHAR"},
	PrimitiveShort:      {"short", "OM_PRIMITIVE_TYPE_SHORT"},
	PrimitiveInt:        {"int", "OM_PRIMITIVE_TYPE_INT"},
	PrimitiveLong:       {"long", "OM_PRIMITIVE_TYPE_LONG"},
	PrimitiveFloat:      {"float", "OM_PRIMITIVE_TYPE_FLOAT"},
	PrimitiveDouble:     {"double", "OM_PRIMITIVE_TYPE_DOUBLE"},
	PrimitiveBigInteger: {"biginteger", "OM_PRIMITIVE_TYPE_BIGINTEGER"},
	PrimitiveBigDecimal: {"bigdecimal", "OM_PRIMITIVE_TYPE_BIGDECIMAL"},
	PrimitiveString:     {"string", "OM_PRIMITIVE_TYPE_STRING"},
	PrimitiveDate:       {"date", "OM_PRIMITIVE_TYPE_DATE"},
}

// TypeName returns the default type name for values of this kind
func (k PrimitiveKind) TypeName() string {
	if k < 0 || int(k) >= len(primitiveKinds) {
		return primitiveKinds[PrimitiveUnknown].typeName
	}
	return primitiveKinds[k].typeName
}

func (k PrimitiveKind) String() string {
	if k < 0 || int(k) >= len(primitiveKinds) {
		return primitiveKinds[PrimitiveUnknown].wireName
	}
	return primitiveKinds[k].wireName
}

func primitiveKindFromWireName(name string) (PrimitiveKind, bool) {
	for k, pk := range primitiveKinds {
		if pk.wireName == name {
			return PrimitiveKind(k), true
		}
	}
	return PrimitiveUnknown, false
}

// Primitive holds a scalar. Val is always the most specific Go type for the
// kind (int32 for PrimitiveInt, int64 for PrimitiveLong, and so on) or nil.
type Primitive struct {
	Type string
	Kind PrimitiveKind
	Val  any
}

func (p *Primitive) Category() Category { return CategoryPrimitive }
func (p *Primitive) TypeName() string   { return p.Type }
func (p *Primitive) sealed()            {}

// IsNull reports if the primitive carries a type but no value
func (p *Primitive) IsNull() bool {
	return p.Val == nil
}

// IsZero reports if the primitive holds the zero value of its Go type
func (p *Primitive) IsZero() bool {
	switch v := p.Val.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case int8:
		return v == 0
	case int16:
		return v == 0
	case int32:
		return v == 0
	case int64:
		return v == 0
	case float32:
		return v == 0
	case float64:
		return v == 0
	case time.Time:
		return v.IsZero()
	case *big.Int:
		return v == nil || v.Sign() == 0
	case decimal.Decimal:
		return v.IsZero()
	default:
		return false
	}
}

// NewPrimitiveProperty creates a primitive after checking that val has the
// Go type expected for kind. An empty typeName defaults to the kind's name.
func NewPrimitiveProperty(kind PrimitiveKind, typeName string, val any) (*Primitive, error) {
	if typeName == "" {
		typeName = kind.TypeName()
	}

	if val != nil && !kindAccepts(kind, val) {
		return nil, fmt.Errorf("a value of type %T cannot be stored as %s", val, kind)
	}

	return &Primitive{Type: typeName, Kind: kind, Val: val}, nil
}

func kindAccepts(kind PrimitiveKind, val any) bool {
	switch val.(type) {
	case bool:
		return kind == PrimitiveBoolean
	case int8:
		return kind == PrimitiveByte
	case rune:
		return kind == PrimitiveChar || kind == PrimitiveInt
	case int16:
		return kind == PrimitiveShort
	case int64:
		return kind == PrimitiveLong
	case float32:
		return kind == PrimitiveFloat
	case float64:
		return kind == PrimitiveDouble
	case *big.Int:
		return kind == PrimitiveBigInteger
	case decimal.Decimal:
		return kind == PrimitiveBigDecimal
	case string:
		return kind == PrimitiveString
	case time.Time:
		return kind == PrimitiveDate
	default:
		return kind == PrimitiveUnknown
	}
}

// NewNullProperty creates a primitive that has a declared type but no value
func NewNullProperty(kind PrimitiveKind) *Primitive {
	return &Primitive{Type: kind.TypeName(), Kind: kind}
}

func NewStringProperty(value string) *Primitive {
	return &Primitive{Type: PrimitiveString.TypeName(), Kind: PrimitiveString, Val: value}
}

func NewBooleanProperty(value bool) *Primitive {
	return &Primitive{Type: PrimitiveBoolean.TypeName(), Kind: PrimitiveBoolean, Val: value}
}

func NewByteProperty(value int8) *Primitive {
	return &Primitive{Type: PrimitiveByte.TypeName(), Kind: PrimitiveByte, Val: value}
}

func NewCharProperty(value rune) *Primitive {
	return &Primitive{Type: PrimitiveChar.TypeName(), Kind: PrimitiveChar, Val: value}
}

func NewShortProperty(value int16) *Primitive {
	return &Primitive{Type: PrimitiveShort.TypeName(), Kind: PrimitiveShort, Val: value}
}

func NewIntProperty(value int32) *Primitive {
	return &Primitive{Type: PrimitiveInt.TypeName(), Kind: PrimitiveInt, Val: value}
}

func NewLongProperty(value int64) *Primitive {
	return &Primitive{Type: PrimitiveLong.TypeName(), Kind: PrimitiveLong, Val: value}
}

func NewFloatProperty(value float32) *Primitive {
	return &Primitive{Type: PrimitiveFloat.TypeName(), Kind: PrimitiveFloat, Val: value}
}

func NewDoubleProperty(value float64) *Primitive {
	return &Primitive{Type: PrimitiveDouble.TypeName(), Kind: PrimitiveDouble, Val: value}
}

func NewBigIntegerProperty(value *big.Int) *Primitive {
	return &Primitive{Type: PrimitiveBigInteger.TypeName(), Kind: PrimitiveBigInteger, Val: value}
}

// NewBigDecimalProperty stores an exact decimal, keeping its scale
func NewBigDecimalProperty(value decimal.Decimal) *Primitive {
	return &Primitive{Type: PrimitiveBigDecimal.TypeName(), Kind: PrimitiveBigDecimal, Val: value}
}

// NewDateProperty stores a point in time with millisecond precision, which
// is the precision of the wire format
func NewDateProperty(value time.Time) *Primitive {
	return &Primitive{Type: PrimitiveDate.TypeName(), Kind: PrimitiveDate, Val: value.Truncate(time.Millisecond).UTC()}
}

// PrimitiveAs returns the value of a primitive if it holds a T
func PrimitiveAs[T any](v Value) (T, bool) {
	var zero T

	p, ok := v.(*Primitive)
	if !ok || p == nil {
		return zero, false
	}

	t, ok := p.Val.(T)
	return t, ok
}

// Enum holds one value of an enumeration. Symbols that are not part of the
// enum's declared values are kept as they are.
type Enum struct {
	Type    string
	Ordinal int
	Symbol  string
}

func (e *Enum) Category() Category { return CategoryEnum }
func (e *Enum) TypeName() string   { return e.Type }
func (e *Enum) sealed()            {}

func NewEnumProperty(typeName string, ordinal int, symbol string) *Enum {
	return &Enum{Type: typeName, Ordinal: ordinal, Symbol: symbol}
}

// Map holds named entries, each being a property value in its own right
type Map struct {
	Type    string
	Entries *InstanceProperties
}

func (m *Map) Category() Category { return CategoryMap }
func (m *Map) TypeName() string   { return m.Type }
func (m *Map) sealed()            {}

func NewMapProperty(typeName string, entries *InstanceProperties) *Map {
	return &Map{Type: typeName, Entries: entries}
}

const StringMapTypeName string = "map<string,string>"

// NewStringMapProperty builds a map<string,string> property with entries in key order
func NewStringMapProperty(values map[string]string) *Map {
	entries := NewInstanceProperties()
	for _, k := range sortedKeys(values) {
		entries.SetProperty(k, NewStringProperty(values[k]))
	}
	return &Map{Type: StringMapTypeName, Entries: entries}
}

type Array struct {
	Type     string
	Elements []Value
}

func (a *Array) Category() Category { return CategoryArray }
func (a *Array) TypeName() string   { return a.Type }
func (a *Array) sealed()            {}

func (a *Array) Count() int {
	return len(a.Elements)
}

func NewArrayProperty(typeName string, elements ...Value) *Array {
	return &Array{Type: typeName, Elements: elements}
}

// Struct holds the attributes of a structured value
type Struct struct {
	Type       string
	Attributes *InstanceProperties
}

func (s *Struct) Category() Category { return CategoryStruct }
func (s *Struct) TypeName() string   { return s.Type }
func (s *Struct) sealed()            {}

func NewStructProperty(typeName string, attributes *InstanceProperties) *Struct {
	return &Struct{Type: typeName, Attributes: attributes}
}

// Unknown keeps a value of a category this version does not understand.
// The raw encoding is written back unchanged.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (u *Unknown) Category() Category { return CategoryUnknown }
func (u *Unknown) TypeName() string   { return u.Type }
func (u *Unknown) sealed()            {}

// UnknownTypeName is given to opaque values that did not carry a type name
const UnknownTypeName string = "unknown"

// NewUnknownProperty keeps raw as is. An empty typeName becomes UnknownTypeName.
func NewUnknownProperty(typeName string, raw json.RawMessage) *Unknown {
	if typeName == "" {
		typeName = UnknownTypeName
	}
	return &Unknown{Type: typeName, Raw: raw}
}
