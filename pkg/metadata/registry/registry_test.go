package registry

import (
	"errors"
	"sync"
	"testing"

	mderrors "github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
	"github.com/matryer/is"
)

func TestRegisterAndLookupType(t *testing.T) {
	is, reg := setupRegistryTest(t)

	td, ok := reg.LookupType("Person")
	is.True(ok)
	is.Equal(td.GUID, personGUID)

	ref, err := reg.TypeReference("Person")
	is.NoErr(err)
	is.Equal(ref, typedefs.TypeReference{GUID: personGUID, Name: "Person", Version: 1})

	byGUID, ok := reg.LookupTypeByGUID(personGUID)
	is.True(ok)
	is.Equal(byGUID.Name, "Person")
}

func TestUnknownTypeReference(t *testing.T) {
	is, reg := setupRegistryTest(t)

	_, err := reg.TypeReference("Nobody")
	is.True(errors.Is(err, mderrors.ErrUnknownType))
}

func TestSupertypeChain(t *testing.T) {
	is, reg := setupRegistryTest(t)

	is.Equal(reg.SuperTypes("Person"), []string{"Actor", "Referenceable"})
	is.True(reg.IsTypeOf("Person", "Referenceable"))
	is.True(reg.IsTypeOf("Person", "Person"))
	is.True(!reg.IsTypeOf("Referenceable", "Person")) // supertypes are not subtypes
}

func TestInheritedAttributesAndUniqueNames(t *testing.T) {
	is, reg := setupRegistryTest(t)

	attrs := reg.AllAttributes("Person")
	is.Equal(len(attrs), 3)
	is.Equal(attrs[0].Name, "qualifiedName") // inherited attributes come first
	is.Equal(attrs[2].Name, "jobTitle")

	is.Equal(reg.UniquePropertyNames("Person"), []string{"qualifiedName"})
}

func TestThatGUIDsAreImmutable(t *testing.T) {
	is, reg := setupRegistryTest(t)

	err := reg.RegisterType(typedefs.TypeDefinition{
		GUID: "some-other-guid", Name: "Person", Version: 2, Category: typedefs.EntityDef,
	})
	is.True(errors.Is(err, mderrors.ErrAlreadyExists))
}

func TestThatNewerVersionReplacesType(t *testing.T) {
	is, reg := setupRegistryTest(t)

	err := reg.RegisterType(typedefs.TypeDefinition{
		GUID: personGUID, Name: "Person", Version: 2, Category: typedefs.EntityDef, SuperType: "Actor",
	})
	is.NoErr(err)

	td, _ := reg.LookupType("Person")
	is.Equal(td.Version, int64(2))
}

func TestThatUnknownSupertypeIsRejected(t *testing.T) {
	is, reg := setupRegistryTest(t)

	err := reg.RegisterType(typedefs.TypeDefinition{
		GUID: "g", Name: "Orphan", Version: 1, Category: typedefs.EntityDef, SuperType: "Missing",
	})
	is.True(errors.Is(err, mderrors.ErrUnknownType))
}

func TestThatFailedCatalogLeavesRegistryUntouched(t *testing.T) {
	is, reg := setupRegistryTest(t)
	before := reg.TypeNames()

	err := reg.RegisterCatalog(&typedefs.Catalog{Types: []typedefs.TypeDefinition{
		{GUID: "g1", Name: "Fine", Version: 1, Category: typedefs.EntityDef},
		{GUID: "g2", Name: "Broken", Version: 1, Category: typedefs.EntityDef, SuperType: "Missing"},
	}})

	is.True(err != nil) // should fail on the broken definition
	is.Equal(reg.TypeNames(), before)
}

func TestValidateRelationshipEnds(t *testing.T) {
	is, reg := setupRegistryTest(t)

	is.NoErr(reg.ValidateRelationshipEnds("ForeignKey", "Person", "Referenceable"))

	err := reg.ValidateRelationshipEnds("ForeignKey", "Person", "Unrelated")
	is.True(errors.Is(err, mderrors.ErrInvalidInstance))

	err = reg.ValidateRelationshipEnds("Person", "Person", "Person")
	is.True(errors.Is(err, mderrors.ErrTypeMismatch))
}

func TestConcurrentReadersDuringRegistration(t *testing.T) {
	is, reg := setupRegistryTest(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, ok := reg.LookupType("Person")
				is.True(ok)
			}
		}()
	}

	for i := int64(2); i < 20; i++ {
		is.NoErr(reg.RegisterType(typedefs.TypeDefinition{
			GUID: "unrelated-guid", Name: "Unrelated", Version: i, Category: typedefs.EntityDef,
		}))
	}

	wg.Wait()
}

const personGUID string = "ac406bf8-e53e-49f1-9088-2af28bbbd285"

func setupRegistryTest(t *testing.T) (*is.I, *Registry) {
	is := is.New(t)

	// listed out of dependency order on purpose
	reg, err := New(WithCatalog(&typedefs.Catalog{
		Types: []typedefs.TypeDefinition{
			{
				GUID: "3cd4e0e7-fdbf-47a6-ae88-d4b3205e0c07", Name: "ForeignKey", Version: 1,
				Category: typedefs.RelationshipDef,
				EndDefs:  []typedefs.EndDef{{EntityType: "Referenceable"}, {EntityType: "Referenceable"}},
			},
			{
				GUID: personGUID, Name: "Person", Version: 1, Category: typedefs.EntityDef, SuperType: "Actor",
				Attributes: []typedefs.AttributeDef{{Name: "jobTitle", TypeName: "string"}},
			},
			{
				GUID: "e4d8b1a2-0a55-4cb0-b6b4-0b2c59dd3a1a", Name: "Actor", Version: 1, Category: typedefs.EntityDef,
				SuperType:  "Referenceable",
				Attributes: []typedefs.AttributeDef{{Name: "name", TypeName: "string"}},
			},
			{
				GUID: "a32316b8-dc8c-48c5-b12b-71c1b2a080bf", Name: "Referenceable", Version: 1, Category: typedefs.EntityDef,
				Attributes: []typedefs.AttributeDef{{Name: "qualifiedName", TypeName: "string", Unique: true}},
			},
			{
				GUID: "unrelated-guid", Name: "Unrelated", Version: 1, Category: typedefs.EntityDef,
			},
		},
	}))
	is.NoErr(err)

	return is, reg
}
