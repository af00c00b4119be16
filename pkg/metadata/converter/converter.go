package converter

import (
	"context"
	"fmt"
	"slices"

	"github.com/diwise/metadata-instance-store/pkg/metadata/beans"
	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/instances"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("metadata-instance-store/converter")

// TypeRegistry is the part of the type registry the converter depends on
type TypeRegistry interface {
	TypeReference(name string) (typedefs.TypeReference, error)
	UniquePropertyNames(name string) []string
	ValidateRelationshipEnds(relationshipType, end1Type, end2Type string) error
}

// Converter maps instances to beans and back, driven by a set of mappers
type Converter struct {
	registry  TypeRegistry
	mappers   *beans.MapperSet
	onAnomaly func(Anomaly)
}

type ConverterOption func(*Converter)

// WithAnomalyHandler registers a func that receives every anomaly the
// converter recovers from
func WithAnomalyHandler(handler func(Anomaly)) ConverterOption {
	return func(c *Converter) {
		c.onAnomaly = handler
	}
}

func New(registry TypeRegistry, mappers *beans.MapperSet, options ...ConverterOption) (*Converter, error) {
	if registry == nil || mappers == nil {
		return nil, errors.NewInvalidParameterError("a converter needs both a type registry and mappers")
	}

	c := &Converter{
		registry: registry,
		mappers:  mappers,
	}

	for _, option := range options {
		option(c)
	}

	return c, nil
}

// Convert builds the named bean from an entity. If relationship is not nil
// the bean must be a related bean and entity must be at one of its ends.
func (c *Converter) Convert(ctx context.Context, entity *instances.Entity, relationship *instances.Relationship, beanName string) (bean beans.Bean, err error) {
	ctx, span := tracer.Start(ctx, "convert-entity", trace.WithAttributes(attribute.String("bean", beanName)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if entity == nil {
		return nil, errors.NewInvalidParameterError("no entity to convert")
	}

	m, err := c.mapper(beanName, beans.KindEntity, beans.KindRelated)
	if err != nil {
		return nil, err
	}

	if entity.Type.Name != m.TypeName {
		return nil, errors.NewTypeMismatchError(m.TypeName, entity.Type.Name)
	}

	if relationship == nil && m.Kind == beans.KindRelated {
		return nil, errors.NewInvalidParameterError(fmt.Sprintf("bean %s needs a relationship", beanName))
	}

	if relationship != nil && m.Kind != beans.KindRelated {
		return nil, errors.NewInvalidParameterError(fmt.Sprintf("bean %s cannot describe a relationship", beanName))
	}

	b, err := c.newBean(m, "Convert")
	if err != nil {
		return nil, err
	}

	eb, ok := b.(beans.EntityBean)
	if !ok {
		return nil, errors.NewBeanConstructionError(className(b), "Convert", fmt.Errorf("not an entity bean"))
	}

	var rb beans.RelatedBean
	if relationship != nil {
		if rb, ok = b.(beans.RelatedBean); !ok {
			return nil, errors.NewBeanConstructionError(className(b), "Convert", fmt.Errorf("not a related element bean"))
		}
	}

	base := eb.Base()
	base.Header = beans.NewElementHeader(entity.GUID, entity.InstanceAuditHeader)
	c.mapProperties(ctx, m, b, entity.GUID, entity.Properties)

	if err = c.mapClassifications(ctx, eb, entity); err != nil {
		return nil, err
	}

	if rb != nil {
		if err = mapLink(rb.Link(), entity, relationship); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// ConvertRelationship builds the named relationship bean
func (c *Converter) ConvertRelationship(ctx context.Context, relationship *instances.Relationship, beanName string) (bean beans.Bean, err error) {
	ctx, span := tracer.Start(ctx, "convert-relationship", trace.WithAttributes(attribute.String("bean", beanName)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if relationship == nil {
		return nil, errors.NewInvalidParameterError("no relationship to convert")
	}

	if err = relationship.Validate(); err != nil {
		return nil, errors.NewInvalidParameterError(err.Error())
	}

	m, err := c.mapper(beanName, beans.KindRelationship)
	if err != nil {
		return nil, err
	}

	if relationship.Type.Name != m.TypeName {
		return nil, errors.NewTypeMismatchError(m.TypeName, relationship.Type.Name)
	}

	b, err := c.newBean(m, "ConvertRelationship")
	if err != nil {
		return nil, err
	}

	rb, ok := b.(beans.RelationshipBean)
	if !ok {
		return nil, errors.NewBeanConstructionError(className(b), "ConvertRelationship", fmt.Errorf("not a relationship bean"))
	}

	rb.Base().Header = beans.NewElementHeader(relationship.GUID, relationship.InstanceAuditHeader)
	c.mapProperties(ctx, m, b, relationship.GUID, relationship.Properties)

	ends := rb.Ends()
	ends.End1 = stubFromProxy(relationship.EntityOneProxy)
	ends.End2 = stubFromProxy(relationship.EntityTwoProxy)

	return b, nil
}

// Reverse builds an entity from an entity bean. A related bean is reversed
// into the entity it describes, without its relationship.
func (c *Converter) Reverse(ctx context.Context, bean beans.Bean) (entity *instances.Entity, err error) {
	ctx, span := tracer.Start(ctx, "reverse-entity")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if bean == nil {
		return nil, errors.NewInvalidParameterError("no bean to reverse")
	}

	m, err := c.mapper(bean.TypeName(), beans.KindEntity, beans.KindRelated)
	if err != nil {
		return nil, err
	}

	eb, ok := bean.(beans.EntityBean)
	if !ok {
		return nil, errors.NewInvalidParameterError(fmt.Sprintf("%s is not an entity bean", className(bean)))
	}

	ref, err := c.registry.TypeReference(m.TypeName)
	if err != nil {
		return nil, err
	}

	base := eb.Base()
	decorators := []instances.EntityDecoratorFunc{
		instances.Properties(synthesize(m, bean)),
	}

	for _, cb := range eb.Entity().Classifications {
		cl, err := c.reverseClassification(ctx, cb)
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, instances.Classified(cl))
	}

	extras := eb.Entity().ExtraClassifications
	for _, name := range sortedNames(extras) {
		decorators = append(decorators, instances.Classified(extras[name]))
	}

	entity, err = instances.NewEntity(base.Header.GUID, ref, decorators...)
	if err != nil {
		return nil, err
	}

	if !base.Header.IsNew() {
		entity.InstanceAuditHeader = auditHeader(base.Header, ref)
	}

	return entity, nil
}

// ReverseRelationship builds a relationship from a relationship bean after
// checking that the element types at the ends are valid for the type
func (c *Converter) ReverseRelationship(ctx context.Context, bean beans.Bean) (relationship *instances.Relationship, err error) {
	ctx, span := tracer.Start(ctx, "reverse-relationship")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if bean == nil {
		return nil, errors.NewInvalidParameterError("no bean to reverse")
	}

	m, err := c.mapper(bean.TypeName(), beans.KindRelationship)
	if err != nil {
		return nil, err
	}

	rb, ok := bean.(beans.RelationshipBean)
	if !ok {
		return nil, errors.NewInvalidParameterError(fmt.Sprintf("%s is not a relationship bean", className(bean)))
	}

	ref, err := c.registry.TypeReference(m.TypeName)
	if err != nil {
		return nil, err
	}

	ends := rb.Ends()
	if err = c.registry.ValidateRelationshipEnds(m.TypeName, ends.End1.Header.Type.Name, ends.End2.Header.Type.Name); err != nil {
		return nil, err
	}

	end1, err := proxyFromStub(ends.End1)
	if err != nil {
		return nil, err
	}

	end2, err := proxyFromStub(ends.End2)
	if err != nil {
		return nil, err
	}

	base := rb.Base()

	relationship, err = instances.NewRelationship(base.Header.GUID, ref, end1, end2,
		instances.RelationshipProperties(synthesize(m, bean)),
	)
	if err != nil {
		return nil, err
	}

	if !base.Header.IsNew() {
		relationship.InstanceAuditHeader = auditHeader(base.Header, ref)
	}

	logging.GetFromContext(ctx).Debug("reversed relationship bean", "bean", m.Name, "guid", relationship.GUID)

	return relationship, nil
}

// ReverseRelated builds both the entity and the relationship described by a
// related element bean
func (c *Converter) ReverseRelated(ctx context.Context, bean beans.RelatedBean) (*instances.Entity, *instances.Relationship, error) {
	if bean == nil {
		return nil, nil, errors.NewInvalidParameterError("no bean to reverse")
	}

	entity, err := c.Reverse(ctx, bean)
	if err != nil {
		return nil, nil, err
	}

	link := bean.Link()

	ref, err := c.registry.TypeReference(link.TypeName)
	if err != nil {
		return nil, nil, err
	}

	self, err := c.BuildProxy(entity)
	if err != nil {
		return nil, nil, err
	}

	related, err := proxyFromStub(link.Related)
	if err != nil {
		return nil, nil, err
	}

	end1, end2 := self, related
	if !link.ElementAtEnd1 {
		end1, end2 = related, self
	}

	if err = c.registry.ValidateRelationshipEnds(link.TypeName, end1.Type.Name, end2.Type.Name); err != nil {
		return nil, nil, err
	}

	relationship, err := instances.NewRelationship(link.Header.GUID, ref, end1, end2,
		instances.RelationshipProperties(link.Properties),
	)
	if err != nil {
		return nil, nil, err
	}

	if !link.Header.IsNew() {
		relationship.InstanceAuditHeader = auditHeader(link.Header, ref)
	}

	return entity, relationship, nil
}

// BuildProxy builds the proxy of an entity holding the unique properties of
// its type, including the inherited ones
func (c *Converter) BuildProxy(entity *instances.Entity) (*instances.EntityProxy, error) {
	if entity == nil {
		return nil, errors.NewInvalidParameterError("cannot build a proxy for a nil entity")
	}

	if _, err := c.registry.TypeReference(entity.Type.Name); err != nil {
		return nil, err
	}

	return instances.NewProxy(entity, c.registry.UniquePropertyNames(entity.Type.Name))
}

// Stub builds the element stub used to refer to entity from the end of a
// relationship bean
func (c *Converter) Stub(entity *instances.Entity) (beans.ElementStub, error) {
	proxy, err := c.BuildProxy(entity)
	if err != nil {
		return beans.ElementStub{}, err
	}
	return stubFromProxy(proxy), nil
}

// Mapper returns the mapper registered for the named bean
func (c *Converter) Mapper(beanName string) (beans.Mapper, bool) {
	return c.mappers.Lookup(beanName)
}

func (c *Converter) mapper(name string, kinds ...beans.Kind) (beans.Mapper, error) {
	m, ok := c.mappers.Lookup(name)
	if !ok {
		return beans.Mapper{}, errors.NewUnknownTypeError(name)
	}

	if !slices.Contains(kinds, m.Kind) {
		return beans.Mapper{}, errors.NewInvalidParameterError(fmt.Sprintf("bean %s is a %s bean", name, m.Kind))
	}

	return m, nil
}

func (c *Converter) newBean(m beans.Mapper, method string) (beans.Bean, error) {
	b := m.New()
	if b == nil || b.Base() == nil {
		return nil, errors.NewBeanConstructionError(m.Name, method, fmt.Errorf("constructor returned nil"))
	}
	return b, nil
}

func (c *Converter) mapClassifications(ctx context.Context, eb beans.EntityBean, entity *instances.Entity) error {
	e := eb.Entity()

	for _, cl := range entity.Classifications {
		cm, ok := c.mappers.ForClassification(cl.Name)
		if !ok {
			if e.ExtraClassifications == nil {
				e.ExtraClassifications = map[string]*instances.Classification{}
			}
			e.ExtraClassifications[cl.Name] = cl

			c.report(ctx, Anomaly{
				Kind:         UnknownClassification,
				InstanceGUID: entity.GUID,
				Bean:         eb.TypeName(),
				Name:         cl.Name,
			})
			continue
		}

		b, err := c.newBean(cm, "Convert")
		if err != nil {
			return err
		}

		cb, ok := b.(beans.ClassificationBean)
		if !ok {
			return errors.NewBeanConstructionError(className(b), "Convert", fmt.Errorf("not a classification bean"))
		}

		cb.Base().Header = beans.NewElementHeader("", cl.InstanceAuditHeader)
		cb.Classification().Origin = cl.Origin
		cb.Classification().OriginGUID = cl.OriginGUID

		c.mapProperties(ctx, cm, b, entity.GUID, cl.Properties)

		e.Classifications = append(e.Classifications, b)
	}

	return nil
}

func (c *Converter) reverseClassification(ctx context.Context, bean beans.Bean) (*instances.Classification, error) {
	if bean == nil {
		return nil, errors.NewInvalidParameterError("nil classification bean")
	}

	m, err := c.mapper(bean.TypeName(), beans.KindClassification)
	if err != nil {
		return nil, err
	}

	ref, err := c.registry.TypeReference(m.TypeName)
	if err != nil {
		return nil, err
	}

	cl, err := instances.NewClassification(ref, instances.ClassificationProperties(synthesize(m, bean)))
	if err != nil {
		return nil, err
	}

	if cb, ok := bean.(beans.ClassificationBean); ok {
		cl.Origin = cb.Classification().Origin
		cl.OriginGUID = cb.Classification().OriginGUID
	}

	if header := bean.Base().Header; !header.IsNew() {
		cl.InstanceAuditHeader = auditHeader(header, ref)
	}

	logging.GetFromContext(ctx).Debug("reversed classification bean", "bean", m.Name)

	return cl, nil
}

func mapLink(link *beans.RelationshipLink, entity *instances.Entity, relationship *instances.Relationship) error {
	if err := relationship.Validate(); err != nil {
		return errors.NewInvalidParameterError(err.Error())
	}

	other, atEndOne, err := relationship.OtherEnd(entity.GUID)
	if err != nil {
		return err
	}

	link.Header = beans.NewElementHeader(relationship.GUID, relationship.InstanceAuditHeader)
	link.TypeName = relationship.Type.Name
	link.Properties = relationship.Properties
	link.ElementAtEnd1 = atEndOne
	link.Related = stubFromProxy(other)

	return nil
}

func stubFromProxy(p *instances.EntityProxy) beans.ElementStub {
	return beans.ElementStub{
		Header:           beans.NewElementHeader(p.GUID, p.InstanceAuditHeader),
		UniqueProperties: p.UniqueProperties,
		Classifications:  p.Classifications,
	}
}

// proxyFromStub never invents a guid for an element that lacks one
func proxyFromStub(stub beans.ElementStub) (*instances.EntityProxy, error) {
	if stub.GUID() == "" {
		return nil, errors.NewInvalidParameterError("relationship end has no guid")
	}

	return &instances.EntityProxy{
		InstanceAuditHeader: stub.Header.AuditHeader(),
		GUID:                stub.GUID(),
		UniqueProperties:    stub.UniqueProperties,
		Classifications:     stub.Classifications,
	}, nil
}

func auditHeader(h beans.ElementHeader, ref typedefs.TypeReference) instances.InstanceAuditHeader {
	ah := h.AuditHeader()
	ah.Type = ref
	return ah
}

func className(b beans.Bean) string {
	return fmt.Sprintf("%T", b)
}

func sortedNames(m map[string]*instances.Classification) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

