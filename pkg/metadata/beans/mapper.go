package beans

import (
	"fmt"
	"maps"
	"slices"
)

type Kind int

const (
	KindEntity Kind = iota
	KindClassification
	KindRelationship
	KindRelated
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindClassification:
		return "classification"
	case KindRelationship:
		return "relationship"
	case KindRelated:
		return "related"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// NameSet is a set of property names
type NameSet map[string]struct{}

func (s NameSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Mapper is the table that drives the conversion of one bean type. Name is
// the key of the bean in a MapperSet and TypeName is the name of the
// instance type it is built from.
type Mapper struct {
	Name     string
	Kind     Kind
	TypeName string
	New      func() Bean

	Attributes []Attribute
	Enums      []EnumAttribute
	Maps       []MapAttribute
}

func (m Mapper) AttributeNames() NameSet {
	s := NameSet{}
	for _, a := range m.Attributes {
		s[a.Name] = struct{}{}
	}
	return s
}

func (m Mapper) EnumNames() NameSet {
	s := NameSet{}
	for _, e := range m.Enums {
		s[e.Name] = struct{}{}
	}
	return s
}

func (m Mapper) MapNames() NameSet {
	s := NameSet{}
	for _, mp := range m.Maps {
		s[mp.Name] = struct{}{}
	}
	return s
}

func (m Mapper) Attribute(name string) (Attribute, bool) {
	idx := slices.IndexFunc(m.Attributes, func(a Attribute) bool { return a.Name == name })
	if idx < 0 {
		return Attribute{}, false
	}
	return m.Attributes[idx], true
}

func (m Mapper) Enum(name string) (EnumAttribute, bool) {
	idx := slices.IndexFunc(m.Enums, func(e EnumAttribute) bool { return e.Name == name })
	if idx < 0 {
		return EnumAttribute{}, false
	}
	return m.Enums[idx], true
}

func (m Mapper) Map(name string) (MapAttribute, bool) {
	idx := slices.IndexFunc(m.Maps, func(mp MapAttribute) bool { return mp.Name == name })
	if idx < 0 {
		return MapAttribute{}, false
	}
	return m.Maps[idx], true
}

// Validate checks that the mapper can be used by a converter
func (m Mapper) Validate() error {
	if m.Name == "" || m.TypeName == "" {
		return fmt.Errorf("mapper must have both a name and a type name")
	}

	if m.New == nil {
		return fmt.Errorf("mapper %s has no constructor", m.Name)
	}

	seen := map[string]struct{}{}
	names := []string{}
	for _, a := range m.Attributes {
		names = append(names, a.Name)
	}
	for _, e := range m.Enums {
		names = append(names, e.Name)
	}
	for _, mp := range m.Maps {
		names = append(names, mp.Name)
	}

	for _, n := range names {
		if _, dup := seen[n]; dup {
			return fmt.Errorf("mapper %s binds property %s more than once", m.Name, n)
		}
		seen[n] = struct{}{}
	}

	return nil
}

// MapperSet is the registry of bean mappers known to a converter
type MapperSet struct {
	byName           map[string]Mapper
	byClassification map[string]Mapper
}

func NewMapperSet(mappers ...Mapper) (*MapperSet, error) {
	ms := &MapperSet{
		byName:           map[string]Mapper{},
		byClassification: map[string]Mapper{},
	}

	for _, m := range mappers {
		if err := m.Validate(); err != nil {
			return nil, err
		}

		if _, exists := ms.byName[m.Name]; exists {
			return nil, fmt.Errorf("duplicate mapper %s", m.Name)
		}
		ms.byName[m.Name] = m

		if m.Kind == KindClassification {
			ms.byClassification[m.TypeName] = m
		}
	}

	return ms, nil
}

func (ms *MapperSet) Lookup(name string) (Mapper, bool) {
	m, ok := ms.byName[name]
	return m, ok
}

// ForClassification returns the mapper for the named classification type
func (ms *MapperSet) ForClassification(name string) (Mapper, bool) {
	m, ok := ms.byClassification[name]
	return m, ok
}

func (ms *MapperSet) Names() []string {
	return slices.Sorted(maps.Keys(ms.byName))
}
