package typedefs

import (
	"bytes"
	"testing"

	"github.com/matryer/is"
)

func TestLoadCatalog(t *testing.T) {
	is, catalog := setupCatalogTest(t)

	is.Equal(len(catalog.Types), 3) // should have three type definitions
	is.Equal(len(catalog.Enums), 1) // should have a single enum definition
}

func TestLoadEntityDef(t *testing.T) {
	is, catalog := setupCatalogTest(t)
	person := catalog.Types[1]

	is.Equal(person.Name, "Person")
	is.Equal(person.Category, EntityDef)
	is.Equal(person.SuperType, "Referenceable")
	is.NoErr(person.Validate())

	attr, ok := person.Attribute("jobTitle")
	is.True(ok)
	is.Equal(attr.TypeName, "string")
	is.Equal(attr.Category, AttributePrimitive)
}

func TestLoadRelationshipDef(t *testing.T) {
	is, catalog := setupCatalogTest(t)
	fk := catalog.Types[2]

	is.Equal(fk.Category, RelationshipDef)
	is.Equal(len(fk.EndDefs), 2)
	is.Equal(fk.EndDefs[0].EntityType, "Referenceable")
	is.NoErr(fk.Validate())
}

func TestRelationshipDefWithoutEndsIsInvalid(t *testing.T) {
	is := is.New(t)

	td := TypeDefinition{GUID: "g", Name: "Broken", Category: RelationshipDef}
	is.True(td.Validate() != nil) // should complain about the missing ends
}

func TestDuplicateAttributeIsInvalid(t *testing.T) {
	is := is.New(t)

	td := TypeDefinition{GUID: "g", Name: "Broken", Category: EntityDef, Attributes: []AttributeDef{
		{Name: "name", TypeName: "string"},
		{Name: "name", TypeName: "string"},
	}}
	is.True(td.Validate() != nil) // should complain about the duplicate attribute
}

func TestResolveEnum(t *testing.T) {
	is, catalog := setupCatalogTest(t)
	enum := catalog.Enums[0]

	ordinal, ok := enum.Resolve("Phone")
	is.True(ok)
	is.Equal(ordinal, 1)

	_, ok = enum.Resolve("Pigeon")
	is.True(!ok) // should not resolve an undeclared symbol
}

func setupCatalogTest(t *testing.T) (*is.I, *Catalog) {
	is := is.New(t)
	catalog, err := LoadCatalog(bytes.NewBufferString(catalogFile))
	is.NoErr(err)

	return is, catalog
}

var catalogFile string = `
enums:
  - guid: 6dbd0c8e-5d1c-4b3d-a3e4-2f1c1d6a1b01
    name: ContactMethodType
    version: 1
    values:
      - ordinal: 0
        value: Email
      - ordinal: 1
        value: Phone
types:
  - guid: a32316b8-dc8c-48c5-b12b-71c1b2a080bf
    name: Referenceable
    version: 1
    category: EntityDef
    attributes:
      - name: qualifiedName
        type: string
        category: primitive
        unique: true
  - guid: ac406bf8-e53e-49f1-9088-2af28bbbd285
    name: Person
    version: 2
    category: EntityDef
    superType: Referenceable
    attributes:
      - name: jobTitle
        type: string
        category: primitive
  - guid: 3cd4e0e7-fdbf-47a6-ae88-d4b3205e0c07
    name: ForeignKey
    version: 1
    category: RelationshipDef
    ends:
      - entityType: Referenceable
        attributeName: primaryKey
      - entityType: Referenceable
        attributeName: foreignKey
`
