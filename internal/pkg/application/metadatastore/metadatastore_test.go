package metadatastore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/diwise/metadata-instance-store/internal/pkg/infrastructure/repository"
	"github.com/diwise/metadata-instance-store/pkg/datamodels/governance"
	"github.com/diwise/metadata-instance-store/pkg/metadata/beans"
	"github.com/diwise/metadata-instance-store/pkg/metadata/converter"
	mderrors "github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/registry"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/instances"
	"github.com/matryer/is"
)

func TestSaveNewBean(t *testing.T) {
	is, ctx, store, _ := setupStoreTest(t, withTestConfig())

	alice := governance.NewPerson("alice", "Alice")
	alice.JobTitle = "Engineer"

	b, err := store.SaveBean(ctx, "admin", alice)
	is.NoErr(err)

	saved := b.(*governance.Person)
	is.True(saved.Header.GUID != "") // a guid should have been assigned
	is.Equal(saved.Header.Version, int64(1))
	is.Equal(saved.Header.CreatedBy, "admin")
	is.Equal(saved.Header.MetadataCollectionID, "5f1d0f43-5c4b-4a2e-9ed0-0ad6a4c3b1e2")

	b, err = store.GetBean(ctx, saved.Header.GUID, governance.PersonTypeName)
	is.NoErr(err)
	is.Equal(b.(*governance.Person).JobTitle, "Engineer")
}

func TestThatUpdatesKeepUnknownProperties(t *testing.T) {
	is, ctx, store, repo := setupStoreTest(t, withTestConfig())

	e, err := instances.NewEntity("g1", typeRef(t, governance.PersonTypeName),
		instances.QualifiedName("alice"),
		instances.Text("customField123", "xyz"),
	)
	is.NoErr(err)
	_, err = repo.AddEntity(ctx, "import", e)
	is.NoErr(err)

	b, err := store.GetBean(ctx, "g1", governance.PersonTypeName)
	is.NoErr(err)

	alice := b.(*governance.Person)
	alice.JobTitle = "Engineer"

	b, err = store.SaveBean(ctx, "bob", alice)
	is.NoErr(err)
	is.Equal(b.Base().Header.Version, int64(2))
	is.Equal(b.Base().Header.UpdatedBy, "bob")

	stored, err := repo.GetEntity(ctx, "g1")
	is.NoErr(err)
	is.True(stored.Properties.Has("customField123")) // unknown properties must survive an update
	is.True(stored.Properties.Has("jobTitle"))
	is.Equal(stored.CreatedBy, "import")
}

func TestThatStaleBeansCannotBeSaved(t *testing.T) {
	is, ctx, store, _ := setupStoreTest(t, withTestConfig())

	b, err := store.SaveBean(ctx, "admin", governance.NewPerson("alice", "Alice"))
	is.NoErr(err)
	guid := b.Base().Header.GUID

	first, _ := store.GetBean(ctx, guid, governance.PersonTypeName)
	second, _ := store.GetBean(ctx, guid, governance.PersonTypeName)

	first.(*governance.Person).JobTitle = "Engineer"
	_, err = store.SaveBean(ctx, "bob", first)
	is.NoErr(err)

	second.(*governance.Person).JobTitle = "Manager"
	_, err = store.SaveBean(ctx, "carol", second)
	is.True(errors.Is(err, mderrors.ErrInvalidInstance)) // second was read before the first update
}

func TestRelateAndGetRelatedBeans(t *testing.T) {
	is, ctx, store, _ := setupStoreTest(t, withTestConfig())

	orders := saveAsset(t, store, "db.orders")
	customers := saveAsset(t, store, "db.customers")

	s1, err := store.ElementStub(ctx, orders)
	is.NoErr(err)
	s2, err := store.ElementStub(ctx, customers)
	is.NoErr(err)

	b, err := store.Relate(ctx, "admin", governance.NewForeignKey("fk_orders_customer", s1, s2))
	is.NoErr(err)

	fk := b.(*governance.ForeignKey)
	is.True(fk.Header.GUID != "")
	is.Equal(fk.Name, "fk_orders_customer")
	is.Equal(fk.End2.UniqueName(), "db.customers")

	related, err := store.GetRelatedBeans(ctx, orders, governance.ForeignKeyTypeName, governance.RelatedAssetBeanName)
	is.NoErr(err)
	is.Equal(len(related), 1)

	ra := related[0].(*governance.RelatedAsset)
	is.Equal(ra.QualifiedName, "db.customers")
	is.Equal(ra.Relationship.Related.GUID(), orders)
	is.True(!ra.Relationship.ElementAtEnd1) // customers is at the second end

	related, err = store.GetRelatedBeans(ctx, orders, "SomeOtherRelationship", governance.RelatedAssetBeanName)
	is.NoErr(err)
	is.Equal(len(related), 0)
}

func TestRelateWithRelatedBean(t *testing.T) {
	is, ctx, store, _ := setupStoreTest(t, withTestConfig())

	orders := saveAsset(t, store, "db.orders")
	invoices := saveAsset(t, store, "db.invoices")

	b, err := store.GetBean(ctx, orders, governance.AssetTypeName)
	is.NoErr(err)

	target, err := store.ElementStub(ctx, invoices)
	is.NoErr(err)

	ra := &governance.RelatedAsset{Asset: *b.(*governance.Asset)}
	ra.Relationship = beans.RelationshipLink{
		TypeName:      governance.ForeignKeyTypeName,
		ElementAtEnd1: true,
		Related:       target,
	}

	b, err = store.Relate(ctx, "admin", ra)
	is.NoErr(err)

	saved := b.(*governance.RelatedAsset)
	is.True(saved.Relationship.Header.GUID != "")
	is.True(saved.Relationship.ElementAtEnd1)
	is.Equal(saved.Relationship.Related.GUID(), invoices)

	_, err = store.Relate(ctx, "admin", &governance.RelatedAsset{})
	is.True(errors.Is(err, mderrors.ErrInvalidParameter)) // the entity must be saved first
}

func TestDeletedBeansAreNotFound(t *testing.T) {
	is, ctx, store, _ := setupStoreTest(t, withTestConfig())

	orders := saveAsset(t, store, "db.orders")
	customers := saveAsset(t, store, "db.customers")

	s1, _ := store.ElementStub(ctx, orders)
	s2, _ := store.ElementStub(ctx, customers)
	_, err := store.Relate(ctx, "admin", governance.NewForeignKey("fk", s1, s2))
	is.NoErr(err)

	is.NoErr(store.DeleteBean(ctx, "admin", orders))

	_, err = store.GetBean(ctx, orders, governance.AssetTypeName)
	is.True(errors.Is(err, mderrors.ErrNotFound))

	found, err := store.FindBeans(ctx, governance.AssetTypeName)
	is.NoErr(err)
	is.Equal(len(found), 1)

	related, err := store.GetRelatedBeans(ctx, customers, "", governance.RelatedAssetBeanName)
	is.NoErr(err)
	is.Equal(len(related), 0) // deleted entities are skipped
}

func TestThatReadonlyBeansCannotBeSaved(t *testing.T) {
	cfg := withTestConfig()
	cfg.Beans = []BeanInfo{{Name: governance.PersonTypeName, Readonly: true}}

	is, ctx, store, _ := setupStoreTest(t, cfg)

	_, err := store.SaveBean(ctx, "admin", governance.NewPerson("alice", "Alice"))
	is.True(errors.Is(err, mderrors.ErrInvalidParameter))
}

func TestThatUnknownBeansInConfigAreRejected(t *testing.T) {
	is := is.New(t)

	cfg := withTestConfig()
	cfg.Beans = []BeanInfo{{Name: "Robot"}}

	reg := newRegistry(t)
	_, err := New(context.Background(), cfg, reg, repository.NewMemoryConnector(), newConverter(t, reg))
	is.True(errors.Is(err, mderrors.ErrUnknownType))
}

func TestThatConfiguredCatalogsAreRegistered(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	is.NoErr(os.WriteFile(path, []byte(dataSetCatalog), 0o600))

	cfg := withTestConfig()
	cfg.Catalogs = []string{path}

	reg := newRegistry(t)
	_, err := New(context.Background(), cfg, reg, repository.NewMemoryConnector(), newConverter(t, reg))
	is.NoErr(err)

	is.True(reg.IsTypeOf("DataSet", governance.ReferenceableTypeName)) // the catalog should have been registered
}

func TestThatAMissingCatalogIsAnError(t *testing.T) {
	is := is.New(t)

	cfg := withTestConfig()
	cfg.Catalogs = []string{filepath.Join(t.TempDir(), "missing.yaml")}

	reg := newRegistry(t)
	_, err := New(context.Background(), cfg, reg, repository.NewMemoryConnector(), newConverter(t, reg))
	is.True(err != nil)
}

func saveAsset(t *testing.T, store MetadataStore, qualifiedName string) string {
	b, err := store.SaveBean(context.Background(), "admin", governance.NewAsset(qualifiedName, ""))
	if err != nil {
		t.Fatal(err)
	}
	return b.Base().Header.GUID
}

func typeRef(t *testing.T, name string) typedefs.TypeReference {
	ref, err := newRegistry(t).TypeReference(name)
	if err != nil {
		t.Fatal(err)
	}
	return ref
}

func withTestConfig() Config {
	return Config{
		Collection: CollectionInfo{ID: "5f1d0f43-5c4b-4a2e-9ed0-0ad6a4c3b1e2", Name: "Kommunen"},
	}
}

func newRegistry(t *testing.T) *registry.Registry {
	cat, err := governance.Catalog()
	if err != nil {
		t.Fatal(err)
	}

	reg, err := registry.New(registry.WithCatalog(cat))
	if err != nil {
		t.Fatal(err)
	}

	return reg
}

func newConverter(t *testing.T, reg *registry.Registry) *converter.Converter {
	mappers, err := governance.Mappers()
	if err != nil {
		t.Fatal(err)
	}

	conv, err := converter.New(reg, mappers)
	if err != nil {
		t.Fatal(err)
	}

	return conv
}

func setupStoreTest(t *testing.T, cfg Config) (*is.I, context.Context, MetadataStore, repository.Connector) {
	is := is.New(t)
	ctx := context.Background()

	repo := repository.NewMemoryConnector()

	reg := newRegistry(t)
	store, err := New(ctx, cfg, reg, repo, newConverter(t, reg))
	is.NoErr(err)

	return is, ctx, store, repo
}

const dataSetCatalog string = `
types:
  - guid: f1b3c2a4-0c47-4a84-a1d6-8e8f7f9b2a11
    name: DataSet
    version: 1
    category: EntityDef
    superType: Referenceable
`
