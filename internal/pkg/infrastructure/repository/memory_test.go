package repository

import (
	"context"
	"errors"
	"testing"

	mderrors "github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/instances"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/properties"
	"github.com/matryer/is"
)

func TestAddEntityAssignsGUID(t *testing.T) {
	is, ctx, repo := setupRepositoryTest(t)

	e, err := repo.AddEntity(ctx, "alice", newAsset(t, "", "db.orders"))
	is.NoErr(err)
	is.True(e.GUID != "") // a guid should have been assigned
	is.Equal(e.CreatedBy, "alice")
	is.Equal(e.Version, int64(1))

	stored, err := repo.GetEntity(ctx, e.GUID)
	is.NoErr(err)
	is.Equal(stored.GUID, e.GUID)
}

func TestThatDuplicateGUIDIsRejected(t *testing.T) {
	is, ctx, repo := setupRepositoryTest(t)

	_, err := repo.AddEntity(ctx, "alice", newAsset(t, "G1", "db.orders"))
	is.NoErr(err)

	_, err = repo.AddEntity(ctx, "alice", newAsset(t, "G1", "db.orders"))
	is.True(errors.Is(err, mderrors.ErrAlreadyExists))
}

func TestThatStoredEntitiesAreCopies(t *testing.T) {
	is, ctx, repo := setupRepositoryTest(t)

	e, _ := repo.AddEntity(ctx, "alice", newAsset(t, "G1", "db.orders"))
	e.Properties.SetProperty("qualifiedName", properties.NewStringProperty("changed"))

	stored, _ := repo.GetEntity(ctx, "G1")
	v, _ := properties.PrimitiveAs[string](stored.Properties.Get("qualifiedName"))
	is.Equal(v, "db.orders") // changing a returned entity must not change the stored one
}

func TestUpdateEntity(t *testing.T) {
	is, ctx, repo := setupRepositoryTest(t)

	e, _ := repo.AddEntity(ctx, "alice", newAsset(t, "G1", "db.orders"))
	e.Properties.SetProperty("displayName", properties.NewStringProperty("Orders"))

	updated, err := repo.UpdateEntity(ctx, "bob", e)
	is.NoErr(err)
	is.Equal(updated.Version, int64(2))
	is.Equal(updated.CreatedBy, "alice")
	is.Equal(updated.UpdatedBy, "bob")
	is.Equal(updated.MaintainedBy, []string{"bob"})
	is.True(updated.Properties.Has("displayName"))

	_, err = repo.UpdateEntity(ctx, "carol", e)
	is.True(errors.Is(err, mderrors.ErrInvalidInstance)) // e is still at version 1
}

func TestThatUpdateOfUnknownEntityFails(t *testing.T) {
	is, ctx, repo := setupRepositoryTest(t)

	_, err := repo.UpdateEntity(ctx, "bob", newAsset(t, "G9", "db.nothing"))
	is.True(errors.Is(err, mderrors.ErrNotFound))
}

func TestFindEntitiesByType(t *testing.T) {
	is, ctx, repo := setupRepositoryTest(t)

	repo.AddEntity(ctx, "alice", newAsset(t, "G2", "db.customers"))
	repo.AddEntity(ctx, "alice", newAsset(t, "G1", "db.orders"))
	repo.AddEntity(ctx, "alice", newAsset(t, "G3", "db.invoices"))
	is.NoErr(repo.DeleteEntity(ctx, "alice", "G3"))

	found, err := repo.FindEntitiesByType(ctx, "Asset")
	is.NoErr(err)
	is.Equal(len(found), 2) // deleted entities should not be found
	is.Equal(found[0].GUID, "G1")
	is.Equal(found[1].GUID, "G2")

	found, err = repo.FindEntitiesByType(ctx, "Person")
	is.NoErr(err)
	is.Equal(len(found), 0)
}

func TestRelationships(t *testing.T) {
	is, ctx, repo := setupRepositoryTest(t)

	g1, _ := repo.AddEntity(ctx, "alice", newAsset(t, "G1", "db.orders"))
	g2, _ := repo.AddEntity(ctx, "alice", newAsset(t, "G2", "db.customers"))
	g3, _ := repo.AddEntity(ctx, "alice", newAsset(t, "G3", "db.invoices"))

	r1, err := repo.AddRelationship(ctx, "alice", newForeignKey(t, "", g1, g2))
	is.NoErr(err)
	is.True(r1.GUID != "")

	_, err = repo.AddRelationship(ctx, "alice", newForeignKey(t, "R2", g3, g1))
	is.NoErr(err)

	found, err := repo.GetRelationships(ctx, "G1")
	is.NoErr(err)
	is.Equal(len(found), 2)

	found, err = repo.GetRelationships(ctx, "G2")
	is.NoErr(err)
	is.Equal(len(found), 1)
	is.Equal(found[0].GUID, r1.GUID)

	r2, err := repo.GetRelationship(ctx, "R2")
	is.NoErr(err)
	is.Equal(r2.EntityOneProxy.GUID, "G3")
}

func TestThatRelationshipEndsMustExist(t *testing.T) {
	is, ctx, repo := setupRepositoryTest(t)

	g1, _ := repo.AddEntity(ctx, "alice", newAsset(t, "G1", "db.orders"))
	ghost := newAsset(t, "G9", "db.ghost")

	_, err := repo.AddRelationship(ctx, "alice", newForeignKey(t, "R1", g1, ghost))
	is.True(errors.Is(err, mderrors.ErrNotFound))
}

func TestPurgeEntity(t *testing.T) {
	is, ctx, repo := setupRepositoryTest(t)

	g1, _ := repo.AddEntity(ctx, "alice", newAsset(t, "G1", "db.orders"))
	g2, _ := repo.AddEntity(ctx, "alice", newAsset(t, "G2", "db.customers"))
	repo.AddRelationship(ctx, "alice", newForeignKey(t, "R1", g1, g2))

	err := repo.PurgeEntity(ctx, "G1")
	is.True(errors.Is(err, mderrors.ErrInvalidInstance)) // must be soft deleted first

	is.NoErr(repo.DeleteEntity(ctx, "bob", "G1"))

	deleted, err := repo.GetEntity(ctx, "G1")
	is.NoErr(err)
	is.Equal(deleted.Status, instances.StatusDeleted)
	is.Equal(deleted.StatusOnDelete, instances.StatusActive)

	is.NoErr(repo.PurgeEntity(ctx, "G1"))

	_, err = repo.GetEntity(ctx, "G1")
	is.True(errors.Is(err, mderrors.ErrNotFound))

	found, _ := repo.GetRelationships(ctx, "G2")
	is.Equal(len(found), 0) // relationships of a purged entity are purged too
}

var assetType = typedefs.TypeReference{GUID: "896d14c2-7522-4f6c-8519-757711943fe6", Name: "Asset", Version: 1}
var foreignKeyType = typedefs.TypeReference{GUID: "3cd4e0e7-fdbf-47a6-ae88-d4b3205e0c07", Name: "ForeignKey", Version: 1}

func newAsset(t *testing.T, guid, qualifiedName string) *instances.Entity {
	e, err := instances.NewEntity(guid, assetType, instances.QualifiedName(qualifiedName))
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func newForeignKey(t *testing.T, guid string, end1, end2 *instances.Entity) *instances.Relationship {
	p1, err := instances.NewProxy(end1, []string{"qualifiedName"})
	if err != nil {
		t.Fatal(err)
	}
	p2, err := instances.NewProxy(end2, []string{"qualifiedName"})
	if err != nil {
		t.Fatal(err)
	}

	r, err := instances.NewRelationship(guid, foreignKeyType, p1, p2)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func setupRepositoryTest(t *testing.T) (*is.I, context.Context, Connector) {
	return is.New(t), context.Background(), NewMemoryConnector()
}
