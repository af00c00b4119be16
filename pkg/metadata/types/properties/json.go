package properties

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	classPrimitive  string = "PrimitivePropertyValue"
	classEnum       string = "EnumPropertyValue"
	classMap        string = "MapPropertyValue"
	classArray      string = "ArrayPropertyValue"
	classStruct     string = "StructPropertyValue"
	classProperties string = "InstanceProperties"
)

func (p *Primitive) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	err := writeValue(buf, p)
	return buf.Bytes(), err
}

func (e *Enum) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	err := writeValue(buf, e)
	return buf.Bytes(), err
}

func (m *Map) MarshalJSON() ([]byte, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	err := writeValue(buf, m)
	return buf.Bytes(), err
}

func (a *Array) MarshalJSON() ([]byte, error) {
	if err := Validate(a); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	err := writeValue(buf, a)
	return buf.Bytes(), err
}

func (s *Struct) MarshalJSON() ([]byte, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	err := writeValue(buf, s)
	return buf.Bytes(), err
}

func (u *Unknown) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return []byte("null"), nil
	}
	return u.Raw, nil
}

// MarshalJSON writes the properties in insertion order
func (p *InstanceProperties) MarshalJSON() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	err := writeProperties(buf, p)
	return buf.Bytes(), err
}

func writeProperties(buf *bytes.Buffer, p *InstanceProperties) error {
	if p == nil {
		buf.WriteString("null")
		return nil
	}

	buf.WriteString(`{"class":"` + classProperties + `","instanceProperties":{`)

	first := true
	for name, value := range p.All() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		writeString(buf, name)
		buf.WriteByte(':')

		if err := writeValue(buf, value); err != nil {
			return fmt.Errorf("failed to marshal property %s: %w", name, err)
		}
	}

	buf.WriteString(`},"propertyCount":`)
	buf.WriteString(strconv.Itoa(p.Len()))

	if p.EffectiveFromTime != nil {
		buf.WriteString(`,"effectiveFromTime":`)
		buf.WriteString(strconv.FormatInt(p.EffectiveFromTime.UnixMilli(), 10))
	}
	if p.EffectiveToTime != nil {
		buf.WriteString(`,"effectiveToTime":`)
		buf.WriteString(strconv.FormatInt(p.EffectiveToTime.UnixMilli(), 10))
	}

	buf.WriteByte('}')
	return nil
}

func writeHeader(buf *bytes.Buffer, class string, category Category, typeName string) {
	buf.WriteString(`{"class":"` + class + `","instancePropertyCategory":"` + category.String() + `","typeName":`)
	writeString(buf, typeName)
}

func writeValue(buf *bytes.Buffer, v Value) error {
	switch c := v.(type) {
	case nil:
		buf.WriteString("null")
	case *Primitive:
		writeHeader(buf, classPrimitive, CategoryPrimitive, c.Type)
		buf.WriteString(`,"primitiveDefCategory":"` + c.Kind.String() + `","primitiveValue":`)
		if err := writePrimitive(buf, c); err != nil {
			return err
		}
		buf.WriteByte('}')
	case *Enum:
		writeHeader(buf, classEnum, CategoryEnum, c.Type)
		buf.WriteString(`,"ordinal":` + strconv.Itoa(c.Ordinal) + `,"symbolicName":`)
		writeString(buf, c.Symbol)
		buf.WriteByte('}')
	case *Map:
		writeHeader(buf, classMap, CategoryMap, c.Type)
		buf.WriteString(`,"mapValues":`)
		if err := writeProperties(buf, c.Entries); err != nil {
			return err
		}
		buf.WriteByte('}')
	case *Struct:
		writeHeader(buf, classStruct, CategoryStruct, c.Type)
		buf.WriteString(`,"attributes":`)
		if err := writeProperties(buf, c.Attributes); err != nil {
			return err
		}
		buf.WriteByte('}')
	case *Array:
		writeHeader(buf, classArray, CategoryArray, c.Type)
		buf.WriteString(`,"arrayCount":` + strconv.Itoa(c.Count()) + `,"arrayValues":[`)
		for idx, e := range c.Elements {
			if idx > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, e); err != nil {
				return fmt.Errorf("failed to marshal array element %d: %w", idx, err)
			}
		}
		buf.WriteString("]}")
	case *Unknown:
		raw, _ := c.MarshalJSON()
		buf.Write(raw)
	default:
		return fmt.Errorf("unsupported property value %T", v)
	}

	return nil
}

func writePrimitive(buf *bytes.Buffer, p *Primitive) error {
	var raw any

	switch v := p.Val.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case int32:
		if p.Kind == PrimitiveChar {
			raw = string(v)
		} else {
			raw = v
		}
	case time.Time:
		raw = v.UnixMilli()
	case *big.Int:
		if v == nil {
			buf.WriteString("null")
			return nil
		}
		raw = v.String()
	case decimal.Decimal:
		raw = decimalText(v)
	default:
		raw = v
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	buf.Write(b)
	return nil
}

// decimalText keeps the scale of d so that "1.50" is not shortened to "1.5"
func decimalText(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

type wireValue struct {
	Class                string            `json:"class"`
	TypeName             string            `json:"typeName"`
	PrimitiveDefCategory string            `json:"primitiveDefCategory"`
	PrimitiveValue       json.RawMessage   `json:"primitiveValue"`
	Ordinal              int               `json:"ordinal"`
	SymbolicName         string            `json:"symbolicName"`
	MapValues            json.RawMessage   `json:"mapValues"`
	Attributes           json.RawMessage   `json:"attributes"`
	ArrayValues          []json.RawMessage `json:"arrayValues"`
}

// UnmarshalValue decodes a single property value. Values of an unrecognised
// class are kept as *Unknown with their encoding intact.
func UnmarshalValue(data []byte) (Value, error) {
	return unmarshalValue(data, 0)
}

func unmarshalValue(data []byte, depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	w := wireValue{}
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal property value: %w", err)
	}

	switch w.Class {
	case classPrimitive:
		kind, ok := primitiveKindFromWireName(w.PrimitiveDefCategory)
		if !ok {
			return NewUnknownProperty(w.TypeName, bytes.Clone(trimmed)), nil
		}
		val, err := decodePrimitive(kind, w.PrimitiveValue)
		if err != nil {
			return nil, err
		}
		return &Primitive{Type: w.TypeName, Kind: kind, Val: val}, nil
	case classEnum:
		return NewEnumProperty(w.TypeName, w.Ordinal, w.SymbolicName), nil
	case classMap:
		entries, err := unmarshalProperties(w.MapValues, depth+1)
		if err != nil {
			return nil, err
		}
		return NewMapProperty(w.TypeName, entries), nil
	case classStruct:
		attrs, err := unmarshalProperties(w.Attributes, depth+1)
		if err != nil {
			return nil, err
		}
		return NewStructProperty(w.TypeName, attrs), nil
	case classArray:
		arr := &Array{Type: w.TypeName}
		if w.ArrayValues != nil {
			arr.Elements = make([]Value, 0, len(w.ArrayValues))
		}
		for _, raw := range w.ArrayValues {
			e, err := unmarshalValue(raw, depth+1)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, e)
		}
		return arr, nil
	default:
		return NewUnknownProperty(w.TypeName, bytes.Clone(trimmed)), nil
	}
}

func decodePrimitive(kind PrimitiveKind, raw json.RawMessage) (any, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	var err error

	switch kind {
	case PrimitiveBoolean:
		var b bool
		err = json.Unmarshal(raw, &b)
		return b, err
	case PrimitiveByte:
		var n int8
		err = json.Unmarshal(raw, &n)
		return n, err
	case PrimitiveShort:
		var n int16
		err = json.Unmarshal(raw, &n)
		return n, err
	case PrimitiveInt:
		var n int32
		err = json.Unmarshal(raw, &n)
		return n, err
	case PrimitiveLong:
		var n int64
		err = json.Unmarshal(raw, &n)
		return n, err
	case PrimitiveFloat:
		var f float32
		err = json.Unmarshal(raw, &f)
		return f, err
	case PrimitiveDouble:
		var f float64
		err = json.Unmarshal(raw, &f)
		return f, err
	case PrimitiveString:
		var s string
		err = json.Unmarshal(raw, &s)
		return s, err
	case PrimitiveChar:
		var s string
		if err = json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 || size != len(s) {
			return nil, fmt.Errorf("%q is not a single character", s)
		}
		return r, nil
	case PrimitiveDate:
		var ms int64
		if err = json.Unmarshal(raw, &ms); err != nil {
			return nil, err
		}
		return time.UnixMilli(ms).UTC(), nil
	case PrimitiveBigInteger:
		var s string
		if err = json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("%q is not a valid big integer", s)
		}
		return n, nil
	case PrimitiveBigDecimal:
		var s string
		if err = json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid big decimal: %w", s, err)
		}
		return d, nil
	default:
		var v any
		err = json.Unmarshal(raw, &v)
		return v, err
	}
}

type wireProperties struct {
	InstanceProperties json.RawMessage `json:"instanceProperties"`
	EffectiveFromTime  *int64          `json:"effectiveFromTime"`
	EffectiveToTime    *int64          `json:"effectiveToTime"`
}

// UnmarshalJSON restores the properties in the order they were encoded
func (p *InstanceProperties) UnmarshalJSON(data []byte) error {
	decoded, err := unmarshalProperties(data, 0)
	if err != nil {
		return err
	}
	if decoded == nil {
		decoded = NewInstanceProperties()
	}

	*p = *decoded
	return nil
}

func unmarshalProperties(data []byte, depth int) (*InstanceProperties, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}

	w := wireProperties{}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance properties: %w", err)
	}

	p := NewInstanceProperties()

	if w.EffectiveFromTime != nil {
		t := time.UnixMilli(*w.EffectiveFromTime).UTC()
		p.EffectiveFromTime = &t
	}
	if w.EffectiveToTime != nil {
		t := time.UnixMilli(*w.EffectiveToTime).UTC()
		p.EffectiveToTime = &t
	}

	if err := p.checkWindow(); err != nil {
		return nil, err
	}

	if len(w.InstanceProperties) == 0 || bytes.Equal(bytes.TrimSpace(w.InstanceProperties), []byte("null")) {
		return p, nil
	}

	dec := json.NewDecoder(bytes.NewReader(w.InstanceProperties))

	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("instance properties must be an object")
	}

	for dec.More() {
		t, err = dec.Token()
		if err != nil {
			return nil, err
		}

		name, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in instance properties", t)
		}

		var raw json.RawMessage
		if err = dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to read property %s: %w", name, err)
		}

		value, err := unmarshalValue(raw, depth+1)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal property %s: %w", name, err)
		}

		if value == nil {
			value = NewUnknownProperty(UnknownTypeName, json.RawMessage("null"))
		}

		p.SetProperty(name, value)
	}

	return p, nil
}
