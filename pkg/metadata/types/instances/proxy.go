package instances

import (
	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/properties"
)

// EntityProxy is a lightweight stand in for an entity at the end of a
// relationship. It carries the entity header, the unique properties and the
// classifications.
type EntityProxy struct {
	InstanceAuditHeader

	GUID             string                         `json:"guid"`
	UniqueProperties *properties.InstanceProperties `json:"uniqueProperties,omitempty"`
	Classifications  []*Classification              `json:"classifications,omitempty"`
}

// NewProxy builds the proxy of an entity, keeping only the named properties.
// The entity must already have a guid.
func NewProxy(entity *Entity, uniqueNames []string) (*EntityProxy, error) {
	if entity == nil {
		return nil, errors.NewInvalidParameterError("cannot build a proxy for a nil entity")
	}

	if entity.GUID == "" {
		return nil, errors.NewInvalidInstanceError("cannot build a proxy for an entity without a guid")
	}

	var unique *properties.InstanceProperties

	if len(uniqueNames) > 0 && !entity.Properties.IsEmpty() {
		subset := entity.Properties.Subset(uniqueNames...)
		if !subset.IsEmpty() {
			var err error
			if unique, err = subset.Clone(); err != nil {
				return nil, errors.NewInvalidInstanceError(err.Error())
			}
		}
	}

	classifications, err := cloneClassifications(entity.Classifications)
	if err != nil {
		return nil, errors.NewInvalidInstanceError(err.Error())
	}

	return &EntityProxy{
		InstanceAuditHeader: entity.Header(),
		GUID:                entity.GUID,
		UniqueProperties:    unique,
		Classifications:     classifications,
	}, nil
}

func (p *EntityProxy) Clone() (*EntityProxy, error) {
	props, err := p.UniqueProperties.Clone()
	if err != nil {
		return nil, err
	}

	classifications, err := cloneClassifications(p.Classifications)
	if err != nil {
		return nil, err
	}

	return &EntityProxy{
		InstanceAuditHeader: p.Header(),
		GUID:                p.GUID,
		UniqueProperties:    props,
		Classifications:     classifications,
	}, nil
}
