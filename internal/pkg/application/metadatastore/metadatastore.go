package metadatastore

import (
	"context"
	"fmt"
	"os"

	"github.com/diwise/metadata-instance-store/internal/pkg/infrastructure/repository"
	"github.com/diwise/metadata-instance-store/pkg/metadata/beans"
	"github.com/diwise/metadata-instance-store/pkg/metadata/converter"
	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/instances"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("metadata-instance-store/metadatastore")

// MetadataStore reads and writes metadata instances as beans
type MetadataStore interface {
	GetBean(ctx context.Context, guid, beanName string) (beans.Bean, error)
	FindBeans(ctx context.Context, beanName string) ([]beans.Bean, error)
	// SaveBean adds a new entity bean or updates an existing one
	SaveBean(ctx context.Context, userID string, bean beans.Bean) (beans.Bean, error)
	DeleteBean(ctx context.Context, userID, guid string) error

	// GetRelatedBeans returns the elements related to the entity with the
	// given guid, each as a related bean. An empty relationshipType matches
	// every relationship.
	GetRelatedBeans(ctx context.Context, guid, relationshipType, beanName string) ([]beans.Bean, error)
	// Relate adds the relationship described by a relationship bean or by a
	// related bean of an entity that has already been saved
	Relate(ctx context.Context, userID string, bean beans.Bean) (beans.Bean, error)
	// ElementStub returns the stub to use as the end of a new relationship bean
	ElementStub(ctx context.Context, guid string) (beans.ElementStub, error)
}

type metadataStoreApp struct {
	cfg  Config
	repo repository.Connector
	conv *converter.Converter
}

// CatalogRegistry receives the type catalogs named in the configuration
type CatalogRegistry interface {
	RegisterCatalog(cat *typedefs.Catalog) error
}

// New registers the configured catalogs with reg, which should be the
// registry that conv was created with, before the store is returned
func New(ctx context.Context, cfg Config, reg CatalogRegistry, repo repository.Connector, conv *converter.Converter) (MetadataStore, error) {
	if reg == nil || repo == nil || conv == nil {
		return nil, errors.NewInvalidParameterError("a metadata store needs a registry, a repository and a converter")
	}

	for _, path := range cfg.Catalogs {
		if err := registerCatalog(reg, path); err != nil {
			return nil, err
		}
		logging.GetFromContext(ctx).Debug("registered type catalog", "path", path)
	}

	for _, b := range cfg.Beans {
		if _, ok := conv.Mapper(b.Name); !ok {
			return nil, errors.NewUnknownTypeError(b.Name)
		}
	}

	return &metadataStoreApp{
		cfg:  cfg,
		repo: repo,
		conv: conv,
	}, nil
}

func registerCatalog(reg CatalogRegistry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open type catalog %s: %w", path, err)
	}
	defer f.Close()

	cat, err := typedefs.LoadCatalog(f)
	if err != nil {
		return fmt.Errorf("failed to load type catalog %s: %w", path, err)
	}

	return reg.RegisterCatalog(cat)
}

func (app *metadataStoreApp) GetBean(ctx context.Context, guid, beanName string) (bean beans.Bean, err error) {
	ctx, span := tracer.Start(ctx, "get-bean", trace.WithAttributes(attribute.String("guid", guid), attribute.String("bean", beanName)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	entity, err := app.getEntity(ctx, guid)
	if err != nil {
		return nil, err
	}

	return app.conv.Convert(ctx, entity, nil, beanName)
}

func (app *metadataStoreApp) FindBeans(ctx context.Context, beanName string) (result []beans.Bean, err error) {
	ctx, span := tracer.Start(ctx, "find-beans", trace.WithAttributes(attribute.String("bean", beanName)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	m, ok := app.conv.Mapper(beanName)
	if !ok {
		return nil, errors.NewUnknownTypeError(beanName)
	}

	entities, err := app.repo.FindEntitiesByType(ctx, m.TypeName)
	if err != nil {
		return nil, err
	}

	result = make([]beans.Bean, 0, len(entities))

	for _, e := range entities {
		b, err := app.conv.Convert(ctx, e, nil, beanName)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}

	return result, nil
}

func (app *metadataStoreApp) SaveBean(ctx context.Context, userID string, bean beans.Bean) (result beans.Bean, err error) {
	ctx, span := tracer.Start(ctx, "save-bean")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if err = app.checkWritable(bean); err != nil {
		return nil, err
	}

	entity, err := app.conv.Reverse(ctx, bean)
	if err != nil {
		return nil, err
	}

	var stored *instances.Entity

	if bean.Base().Header.IsNew() {
		if entity.MetadataCollectionID == "" {
			entity.MetadataCollectionID = app.cfg.Collection.ID
			entity.MetadataCollectionName = app.cfg.Collection.Name
		}
		stored, err = app.repo.AddEntity(ctx, userID, entity)
	} else {
		stored, err = app.repo.UpdateEntity(ctx, userID, entity)
	}

	if err != nil {
		return nil, err
	}

	logging.GetFromContext(ctx).Info("bean saved", "guid", stored.GUID, "bean", bean.TypeName(), "version", stored.Version)

	return app.conv.Convert(ctx, stored, nil, app.entityBeanName(bean))
}

func (app *metadataStoreApp) DeleteBean(ctx context.Context, userID, guid string) (err error) {
	ctx, span := tracer.Start(ctx, "delete-bean", trace.WithAttributes(attribute.String("guid", guid)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	return app.repo.DeleteEntity(ctx, userID, guid)
}

func (app *metadataStoreApp) GetRelatedBeans(ctx context.Context, guid, relationshipType, beanName string) (result []beans.Bean, err error) {
	ctx, span := tracer.Start(ctx, "get-related-beans", trace.WithAttributes(attribute.String("guid", guid), attribute.String("bean", beanName)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if _, err = app.getEntity(ctx, guid); err != nil {
		return nil, err
	}

	relationships, err := app.repo.GetRelationships(ctx, guid)
	if err != nil {
		return nil, err
	}

	m, ok := app.conv.Mapper(beanName)
	if !ok {
		return nil, errors.NewUnknownTypeError(beanName)
	}

	result = []beans.Bean{}
	log := logging.GetFromContext(ctx)

	for _, r := range relationships {
		if relationshipType != "" && r.Type.Name != relationshipType {
			continue
		}

		proxy, _, err := r.OtherEnd(guid)
		if err != nil {
			return nil, err
		}

		if proxy.Type.Name != m.TypeName {
			continue
		}

		other, err := app.repo.GetEntity(ctx, proxy.GUID)
		if err != nil {
			return nil, err
		}

		if other.IsDeleted() {
			log.Debug("skipping deleted related entity", "guid", other.GUID, "relationship", r.GUID)
			continue
		}

		b, err := app.conv.Convert(ctx, other, r, beanName)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}

	return result, nil
}

func (app *metadataStoreApp) Relate(ctx context.Context, userID string, bean beans.Bean) (result beans.Bean, err error) {
	ctx, span := tracer.Start(ctx, "relate")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if err = app.checkWritable(bean); err != nil {
		return nil, err
	}

	switch b := bean.(type) {
	case beans.RelatedBean:
		if b.Base().Header.IsNew() {
			return nil, errors.NewInvalidParameterError("the entity of a related bean must be saved before it is related")
		}

		_, relationship, err := app.conv.ReverseRelated(ctx, b)
		if err != nil {
			return nil, err
		}

		stored, err := app.addRelationship(ctx, userID, relationship)
		if err != nil {
			return nil, err
		}

		entity, err := app.getEntity(ctx, b.Base().Header.GUID)
		if err != nil {
			return nil, err
		}

		return app.conv.Convert(ctx, entity, stored, bean.TypeName())

	case beans.RelationshipBean:
		relationship, err := app.conv.ReverseRelationship(ctx, b)
		if err != nil {
			return nil, err
		}

		stored, err := app.addRelationship(ctx, userID, relationship)
		if err != nil {
			return nil, err
		}

		return app.conv.ConvertRelationship(ctx, stored, bean.TypeName())
	}

	return nil, errors.NewInvalidParameterError(fmt.Sprintf("%s does not describe a relationship", bean.TypeName()))
}

func (app *metadataStoreApp) ElementStub(ctx context.Context, guid string) (beans.ElementStub, error) {
	entity, err := app.getEntity(ctx, guid)
	if err != nil {
		return beans.ElementStub{}, err
	}

	return app.conv.Stub(entity)
}

func (app *metadataStoreApp) addRelationship(ctx context.Context, userID string, relationship *instances.Relationship) (*instances.Relationship, error) {
	stored, err := app.repo.AddRelationship(ctx, userID, relationship)
	if err != nil {
		return nil, err
	}

	logging.GetFromContext(ctx).Info("relationship added", "guid", stored.GUID, "type", stored.Type.Name)

	return stored, nil
}

// getEntity treats soft deleted entities as missing
func (app *metadataStoreApp) getEntity(ctx context.Context, guid string) (*instances.Entity, error) {
	entity, err := app.repo.GetEntity(ctx, guid)
	if err != nil {
		return nil, err
	}

	if entity.IsDeleted() {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no entity with guid %s", guid))
	}

	return entity, nil
}

// entityBeanName is the name of the bean to return after saving. A related
// bean is saved without its relationship, so the plain entity bean of the
// same type is returned.
func (app *metadataStoreApp) entityBeanName(bean beans.Bean) string {
	m, ok := app.conv.Mapper(bean.TypeName())
	if !ok || m.Kind != beans.KindRelated {
		return bean.TypeName()
	}
	return m.TypeName
}

func (app *metadataStoreApp) checkWritable(bean beans.Bean) error {
	if bean == nil {
		return errors.NewInvalidParameterError("no bean to save")
	}

	if app.cfg.isReadonly(bean.TypeName()) {
		return errors.NewInvalidParameterError(fmt.Sprintf("bean %s is read only", bean.TypeName()))
	}

	return nil
}
