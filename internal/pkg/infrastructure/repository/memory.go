package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/instances"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

type memoryConnector struct {
	mu            sync.RWMutex
	entities      map[string]*instances.Entity
	relationships map[string]*instances.Relationship
}

// NewMemoryConnector returns a connector that keeps everything in memory
func NewMemoryConnector() Connector {
	return &memoryConnector{
		entities:      map[string]*instances.Entity{},
		relationships: map[string]*instances.Relationship{},
	}
}

func (m *memoryConnector) AddEntity(ctx context.Context, userID string, entity *instances.Entity) (*instances.Entity, error) {
	e, err := prepareNewEntity(userID, entity)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entities[e.GUID]; exists {
		return nil, errors.NewAlreadyExistsError(fmt.Sprintf("entity %s already exists", e.GUID))
	}

	m.entities[e.GUID] = e

	logging.GetFromContext(ctx).Debug("entity added", "guid", e.GUID, "type", e.Type.Name)

	return e.Clone()
}

func (m *memoryConnector) UpdateEntity(ctx context.Context, userID string, entity *instances.Entity) (*instances.Entity, error) {
	if entity == nil {
		return nil, errors.NewInvalidParameterError("no entity to update")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.entities[entity.GUID]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no entity with guid %s", entity.GUID))
	}

	e, err := prepareUpdatedEntity(userID, stored, entity)
	if err != nil {
		return nil, err
	}

	m.entities[e.GUID] = e

	return e.Clone()
}

func (m *memoryConnector) GetEntity(ctx context.Context, guid string) (*instances.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[guid]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no entity with guid %s", guid))
	}

	return e.Clone()
}

func (m *memoryConnector) FindEntitiesByType(ctx context.Context, typeName string) ([]*instances.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*instances.Entity{}

	for _, guid := range slices.Sorted(maps.Keys(m.entities)) {
		e := m.entities[guid]
		if e.Type.Name != typeName || e.IsDeleted() {
			continue
		}

		c, err := e.Clone()
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, nil
}

func (m *memoryConnector) DeleteEntity(ctx context.Context, userID, guid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[guid]
	if !ok {
		return errors.NewNotFoundError(fmt.Sprintf("no entity with guid %s", guid))
	}

	return e.Delete(userID)
}

func (m *memoryConnector) PurgeEntity(ctx context.Context, guid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[guid]
	if !ok {
		return errors.NewNotFoundError(fmt.Sprintf("no entity with guid %s", guid))
	}

	if !e.IsDeleted() {
		return errors.NewInvalidInstanceError(fmt.Sprintf("entity %s must be deleted before it is purged", guid))
	}

	for rguid, r := range m.relationships {
		if r.EntityOneProxy.GUID == guid || r.EntityTwoProxy.GUID == guid {
			delete(m.relationships, rguid)
		}
	}

	delete(m.entities, guid)

	logging.GetFromContext(ctx).Debug("entity purged", "guid", guid)

	return nil
}

func (m *memoryConnector) AddRelationship(ctx context.Context, userID string, relationship *instances.Relationship) (*instances.Relationship, error) {
	r, err := prepareNewRelationship(userID, relationship)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, guid := range []string{r.EntityOneProxy.GUID, r.EntityTwoProxy.GUID} {
		if err := checkEnd(m.entities[guid], guid); err != nil {
			return nil, err
		}
	}

	if _, exists := m.relationships[r.GUID]; exists {
		return nil, errors.NewAlreadyExistsError(fmt.Sprintf("relationship %s already exists", r.GUID))
	}

	m.relationships[r.GUID] = r

	return r.Clone()
}

func (m *memoryConnector) GetRelationship(ctx context.Context, guid string) (*instances.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.relationships[guid]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no relationship with guid %s", guid))
	}

	return r.Clone()
}

func (m *memoryConnector) GetRelationships(ctx context.Context, entityGUID string) ([]*instances.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*instances.Relationship{}

	for _, guid := range slices.Sorted(maps.Keys(m.relationships)) {
		r := m.relationships[guid]
		if r.EntityOneProxy.GUID != entityGUID && r.EntityTwoProxy.GUID != entityGUID {
			continue
		}

		c, err := r.Clone()
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, nil
}
