package repository

import (
	"context"
	"fmt"

	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/instances"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("metadata-instance-store/repository")

// Connector stores entities and relationships. Every returned instance is a
// copy that shares no memory with what is stored.
type Connector interface {
	// AddEntity stores a new entity, assigning a guid if it has none
	AddEntity(ctx context.Context, userID string, entity *instances.Entity) (*instances.Entity, error)
	// UpdateEntity replaces a stored entity with a new version. The version
	// of entity must match the stored version.
	UpdateEntity(ctx context.Context, userID string, entity *instances.Entity) (*instances.Entity, error)
	GetEntity(ctx context.Context, guid string) (*instances.Entity, error)
	FindEntitiesByType(ctx context.Context, typeName string) ([]*instances.Entity, error)
	DeleteEntity(ctx context.Context, userID, guid string) error
	// PurgeEntity removes a deleted entity and every relationship it takes part in
	PurgeEntity(ctx context.Context, guid string) error

	AddRelationship(ctx context.Context, userID string, relationship *instances.Relationship) (*instances.Relationship, error)
	GetRelationship(ctx context.Context, guid string) (*instances.Relationship, error)
	GetRelationships(ctx context.Context, entityGUID string) ([]*instances.Relationship, error)
}

func prepareNewEntity(userID string, entity *instances.Entity) (*instances.Entity, error) {
	if entity == nil {
		return nil, errors.NewInvalidParameterError("no entity to add")
	}

	e, err := entity.Clone()
	if err != nil {
		return nil, err
	}

	if e.GUID == "" {
		e.GUID = uuid.NewString()
	}

	if e.CreatedBy == "" {
		e.CreatedBy = userID
	}

	return e, e.Validate()
}

func prepareUpdatedEntity(userID string, stored, entity *instances.Entity) (*instances.Entity, error) {
	if stored.IsDeleted() {
		return nil, errors.NewInvalidInstanceError(fmt.Sprintf("entity %s is deleted", stored.GUID))
	}

	if entity.Version != stored.Version {
		return nil, errors.NewInvalidInstanceError(
			fmt.Sprintf("entity %s has been updated since version %d", stored.GUID, entity.Version),
		)
	}

	e, err := entity.Clone()
	if err != nil {
		return nil, err
	}

	e.Supersede(stored.InstanceAuditHeader, userID)

	return e, e.Validate()
}

func prepareNewRelationship(userID string, relationship *instances.Relationship) (*instances.Relationship, error) {
	if relationship == nil {
		return nil, errors.NewInvalidParameterError("no relationship to add")
	}

	if err := relationship.Validate(); err != nil {
		return nil, err
	}

	r, err := relationship.Clone()
	if err != nil {
		return nil, err
	}

	if r.GUID == "" {
		r.GUID = uuid.NewString()
	}

	if r.CreatedBy == "" {
		r.CreatedBy = userID
	}

	return r, r.Validate()
}

func checkEnd(end *instances.Entity, guid string) error {
	if end == nil {
		return errors.NewNotFoundError(fmt.Sprintf("no entity with guid %s", guid))
	}
	if end.IsDeleted() {
		return errors.NewInvalidInstanceError(fmt.Sprintf("entity %s is deleted", guid))
	}
	return nil
}
