package beans

import (
	"errors"
	"testing"
	"time"

	mderrors "github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/instances"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/properties"
	"github.com/matryer/is"
)

func TestPrimitiveAccessors(t *testing.T) {
	is, m := setupMapperTest(t)
	b := m.New().(*gadget)

	name, _ := m.Attribute("name")
	is.NoErr(name.Set(b, properties.NewStringProperty("sprocket")))
	is.Equal(b.Name, "sprocket")

	v, ok := name.Get(b)
	is.True(ok)
	is.Equal(v, properties.NewStringProperty("sprocket"))

	weight, _ := m.Attribute("weight")
	_, ok = weight.Get(b)
	is.True(!ok) // zero values are reported as unset

	err := weight.Set(b, properties.NewStringProperty("heavy"))
	is.True(errors.Is(err, mderrors.ErrUnmappableValue)) // a string cannot be stored in a long field
}

func TestDateAccessor(t *testing.T) {
	is, m := setupMapperTest(t)
	b := m.New().(*gadget)

	built := time.Date(2024, 2, 29, 10, 30, 0, 0, time.UTC)
	attr, _ := m.Attribute("builtOn")

	is.NoErr(attr.Set(b, properties.NewDateProperty(built)))
	is.Equal(b.BuiltOn, built)
}

func TestEnumAccessor(t *testing.T) {
	is, m := setupMapperTest(t)
	b := m.New().(*gadget)

	colour, _ := m.Enum("colour")
	is.NoErr(colour.Set(b, properties.NewEnumProperty("Colour", 1, "Blue")))
	is.Equal(b.Colour, Blue)

	v, ok := colour.Get(b)
	is.True(ok)
	is.Equal(v, properties.NewEnumProperty("Colour", 1, "Blue"))

	err := colour.Set(b, properties.NewEnumProperty("Colour", 7, "Ultraviolet"))
	is.True(errors.Is(err, mderrors.ErrUnmappableEnumValue))

	err = colour.Set(b, properties.NewEnumProperty("Colour", 4, "Blue"))
	is.True(errors.Is(err, mderrors.ErrUnmappableEnumValue)) // ordinal must match the symbol
}

func TestStringMapAccessor(t *testing.T) {
	is, m := setupMapperTest(t)
	b := m.New().(*gadget)

	labels, _ := m.Map("labels")
	is.NoErr(labels.Set(b, properties.NewStringMapProperty(map[string]string{"a": "1", "b": "2"})))
	is.Equal(b.Labels, map[string]string{"a": "1", "b": "2"})

	mixed := properties.NewMapProperty("map<string,object>", properties.NewInstanceProperties(
		properties.P("a", properties.NewStringProperty("1")),
		properties.P("b", properties.NewIntProperty(2)),
	))
	err := labels.Set(b, mixed)
	is.True(errors.Is(err, mderrors.ErrUnmappableMapValue))
}

func TestNameSets(t *testing.T) {
	is, m := setupMapperTest(t)

	is.True(m.AttributeNames().Contains("name"))
	is.True(!m.AttributeNames().Contains("colour"))
	is.True(m.EnumNames().Contains("colour"))
	is.True(m.MapNames().Contains("labels"))
}

func TestMapperSet(t *testing.T) {
	is, m := setupMapperTest(t)

	_, err := NewMapperSet(m, m)
	is.True(err != nil) // duplicate names are rejected

	broken := m
	broken.Name = "Broken"
	broken.Enums = append(broken.Enums, EnumOf("name", colourDef, func(g *gadget) *Colour { return &g.Colour }))
	_, err = NewMapperSet(broken)
	is.True(err != nil) // a property can only be bound once

	ms, err := NewMapperSet(m)
	is.NoErr(err)

	found, ok := ms.Lookup("Gadget")
	is.True(ok)
	is.Equal(found.TypeName, "Gadget")
	is.Equal(ms.Names(), []string{"Gadget"})
}

func TestElementHeaderRoundTrip(t *testing.T) {
	is := is.New(t)

	h := instances.InstanceAuditHeader{
		CreatedBy:    "alice",
		MaintainedBy: []string{"alice", "bob"},
		Version:      4,
		Status:       instances.StatusActive,
	}

	eh := NewElementHeader("g1", h)
	is.Equal(eh.GUID, "g1")
	is.Equal(eh.AuditHeader(), h)
}

type Colour int

const (
	Red Colour = iota + 1
	Blue
)

var colourDef = EnumDef[Colour]{
	TypeName: "Colour",
	Values: []EnumValue[Colour]{
		{Value: Red, Ordinal: 0, Symbol: "Red"},
		{Value: Blue, Ordinal: 1, Symbol: "Blue"},
	},
}

type gadget struct {
	EntityBase

	Name    string
	Weight  int64
	BuiltOn time.Time
	Colour  Colour
	Labels  map[string]string
}

func (g *gadget) TypeName() string { return "Gadget" }

func setupMapperTest(t *testing.T) (*is.I, Mapper) {
	is := is.New(t)

	m := Mapper{
		Name:     "Gadget",
		Kind:     KindEntity,
		TypeName: "Gadget",
		New:      func() Bean { return &gadget{} },
		Attributes: []Attribute{
			String("name", func(g *gadget) *string { return &g.Name }),
			Long("weight", func(g *gadget) *int64 { return &g.Weight }),
			Date("builtOn", func(g *gadget) *time.Time { return &g.BuiltOn }),
		},
		Enums: []EnumAttribute{
			EnumOf("colour", colourDef, func(g *gadget) *Colour { return &g.Colour }),
		},
		Maps: []MapAttribute{
			StringMap("labels", func(g *gadget) *map[string]string { return &g.Labels }),
		},
	}

	return is, m
}
