package beans

import (
	"slices"
	"time"

	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/instances"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/properties"
)

// Bean is a strongly typed view of an instance. TypeName returns the name
// the bean is registered under in a MapperSet.
type Bean interface {
	TypeName() string
	Base() *ElementBase
}

// EntityBean is a bean built from an entity and its classifications
type EntityBean interface {
	Bean
	Entity() *EntityBase
}

type ClassificationBean interface {
	Bean
	Classification() *ClassificationBase
}

type RelationshipBean interface {
	Bean
	Ends() *RelationshipEnds
}

// RelatedBean is an entity bean that also describes one relationship of
// the entity and the element at the other end of it
type RelatedBean interface {
	EntityBean
	Link() *RelationshipLink
}

// ElementHeader is a verbatim copy of an instance audit header and guid
type ElementHeader struct {
	GUID                   string
	Type                   typedefs.TypeReference
	InstanceProvenanceType instances.Provenance
	MetadataCollectionID   string
	MetadataCollectionName string
	InstanceLicense        string
	CreatedBy              string
	UpdatedBy              string
	MaintainedBy           []string
	CreateTime             time.Time
	UpdateTime             time.Time
	Version                int64
	Status                 instances.Status
	StatusOnDelete         instances.Status
}

func NewElementHeader(guid string, h instances.InstanceAuditHeader) ElementHeader {
	return ElementHeader{
		GUID:                   guid,
		Type:                   h.Type,
		InstanceProvenanceType: h.InstanceProvenanceType,
		MetadataCollectionID:   h.MetadataCollectionID,
		MetadataCollectionName: h.MetadataCollectionName,
		InstanceLicense:        h.InstanceLicense,
		CreatedBy:              h.CreatedBy,
		UpdatedBy:              h.UpdatedBy,
		MaintainedBy:           slices.Clone(h.MaintainedBy),
		CreateTime:             h.CreateTime,
		UpdateTime:             h.UpdateTime,
		Version:                h.Version,
		Status:                 h.Status,
		StatusOnDelete:         h.StatusOnDelete,
	}
}

// AuditHeader converts the element header back into an instance audit header
func (h ElementHeader) AuditHeader() instances.InstanceAuditHeader {
	return instances.InstanceAuditHeader{
		Type:                   h.Type,
		InstanceProvenanceType: h.InstanceProvenanceType,
		MetadataCollectionID:   h.MetadataCollectionID,
		MetadataCollectionName: h.MetadataCollectionName,
		InstanceLicense:        h.InstanceLicense,
		CreatedBy:              h.CreatedBy,
		UpdatedBy:              h.UpdatedBy,
		MaintainedBy:           slices.Clone(h.MaintainedBy),
		CreateTime:             h.CreateTime,
		UpdateTime:             h.UpdateTime,
		Version:                h.Version,
		Status:                 h.Status,
		StatusOnDelete:         h.StatusOnDelete,
	}
}

// IsNew reports if the header has never been stamped by a repository
func (h ElementHeader) IsNew() bool {
	return h.Version == 0
}

// ElementBase is embedded by every bean. ExtraAttributes holds the
// properties that have no named field on the bean and is nil when there
// are none.
type ElementBase struct {
	Header          ElementHeader
	ExtraAttributes *properties.InstanceProperties

	EffectiveFromTime *time.Time
	EffectiveToTime   *time.Time
}

func (b *ElementBase) Base() *ElementBase {
	return b
}

type EntityBase struct {
	ElementBase

	Classifications      []Bean
	ExtraClassifications map[string]*instances.Classification
}

func (e *EntityBase) Entity() *EntityBase {
	return e
}

// ClassificationOf returns the first attached classification bean of type C
func ClassificationOf[C ClassificationBean](e EntityBean) (C, bool) {
	for _, c := range e.Entity().Classifications {
		if cb, ok := c.(C); ok {
			return cb, true
		}
	}

	var zero C
	return zero, false
}

type ClassificationBase struct {
	ElementBase

	Origin     instances.ClassificationOrigin
	OriginGUID string
}

func (c *ClassificationBase) Classification() *ClassificationBase {
	return c
}

// ElementStub identifies the entity at one end of a relationship
type ElementStub struct {
	Header           ElementHeader
	UniqueProperties *properties.InstanceProperties
	Classifications  []*instances.Classification
}

func (s ElementStub) GUID() string {
	return s.Header.GUID
}

// UniqueName returns the qualified name of the element, if known
func (s ElementStub) UniqueName() string {
	name, _ := properties.PrimitiveAs[string](s.UniqueProperties.Get("qualifiedName"))
	return name
}

type RelationshipEnds struct {
	End1 ElementStub
	End2 ElementStub
}

type RelationshipBase struct {
	ElementBase
	RelationshipEnds
}

func (r *RelationshipBase) Ends() *RelationshipEnds {
	return &r.RelationshipEnds
}

type RelationshipLink struct {
	Header        ElementHeader
	TypeName      string
	Properties    *properties.InstanceProperties
	ElementAtEnd1 bool
	Related       ElementStub
}

type RelatedBase struct {
	Relationship RelationshipLink
}

func (r *RelatedBase) Link() *RelationshipLink {
	return &r.Relationship
}
