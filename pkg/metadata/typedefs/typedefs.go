package typedefs

import (
	"fmt"
	"io"
	"slices"

	yaml "gopkg.in/yaml.v2"
)

// TypeReference identifies the declared type of an instance
type TypeReference struct {
	GUID    string `json:"typeDefGUID" yaml:"guid"`
	Name    string `json:"typeDefName" yaml:"name"`
	Version int64  `json:"typeDefVersion" yaml:"version"`
}

func (r TypeReference) IsZero() bool {
	return r.GUID == "" && r.Name == ""
}

type Category string

const (
	EntityDef         Category = "EntityDef"
	RelationshipDef   Category = "RelationshipDef"
	ClassificationDef Category = "ClassificationDef"
)

type AttributeCategory string

const (
	AttributePrimitive AttributeCategory = "primitive"
	AttributeEnum      AttributeCategory = "enum"
	AttributeMap       AttributeCategory = "map"
	AttributeArray     AttributeCategory = "array"
	AttributeStruct    AttributeCategory = "struct"
)

type AttributeDef struct {
	Name     string            `yaml:"name"`
	TypeName string            `yaml:"type"`
	Category AttributeCategory `yaml:"category"`
	Unique   bool              `yaml:"unique"`
	Required bool              `yaml:"required"`
}

// EndDef describes one end of a relationship type
type EndDef struct {
	EntityType    string `yaml:"entityType"`
	AttributeName string `yaml:"attributeName"`
	Cardinality   string `yaml:"cardinality"`
}

type TypeDefinition struct {
	GUID            string         `yaml:"guid"`
	Name            string         `yaml:"name"`
	Version         int64          `yaml:"version"`
	Category        Category       `yaml:"category"`
	SuperType       string         `yaml:"superType"`
	Description     string         `yaml:"description"`
	Attributes      []AttributeDef `yaml:"attributes"`
	EndDefs         []EndDef       `yaml:"ends"`
	ValidEntityDefs []string       `yaml:"validEntityDefs"`
	ValidStatuses   []string       `yaml:"validStatuses"`
}

func (td TypeDefinition) Reference() TypeReference {
	return TypeReference{
		GUID:    td.GUID,
		Name:    td.Name,
		Version: td.Version,
	}
}

// Attribute returns the locally declared attribute with the given name
func (td TypeDefinition) Attribute(name string) (AttributeDef, bool) {
	for _, a := range td.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeDef{}, false
}

func (td TypeDefinition) Validate() error {
	if td.Name == "" {
		return fmt.Errorf("type definition without a name")
	}

	if td.GUID == "" {
		return fmt.Errorf("type definition %s has no guid", td.Name)
	}

	switch td.Category {
	case EntityDef, ClassificationDef:
	case RelationshipDef:
		if len(td.EndDefs) != 2 || td.EndDefs[0].EntityType == "" || td.EndDefs[1].EntityType == "" {
			return fmt.Errorf("relationship type %s must declare both end types", td.Name)
		}
	default:
		return fmt.Errorf("type definition %s has unsupported category %q", td.Name, td.Category)
	}

	seen := map[string]struct{}{}
	for _, a := range td.Attributes {
		if a.Name == "" {
			return fmt.Errorf("type definition %s has an attribute without a name", td.Name)
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("type definition %s declares attribute %s more than once", td.Name, a.Name)
		}
		seen[a.Name] = struct{}{}
	}

	return nil
}

type EnumElement struct {
	Ordinal int    `yaml:"ordinal"`
	Value   string `yaml:"value"`
}

type EnumDefinition struct {
	GUID    string        `yaml:"guid"`
	Name    string        `yaml:"name"`
	Version int64         `yaml:"version"`
	Values  []EnumElement `yaml:"values"`
}

// Resolve looks up the ordinal for a symbolic name
func (ed EnumDefinition) Resolve(symbol string) (int, bool) {
	idx := slices.IndexFunc(ed.Values, func(e EnumElement) bool { return e.Value == symbol })
	if idx < 0 {
		return 0, false
	}
	return ed.Values[idx].Ordinal, true
}

// Catalog is the content of a type archive
type Catalog struct {
	Enums []EnumDefinition `yaml:"enums"`
	Types []TypeDefinition `yaml:"types"`
}

func LoadCatalog(data io.Reader) (*Catalog, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{}
	err = yaml.Unmarshal(buf, &cat)
	if err != nil {
		return nil, fmt.Errorf("failed to parse type catalog: %w", err)
	}

	return cat, nil
}
