package instances

import (
	"encoding/json"
	"fmt"

	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/properties"
)

// Relationship links two entities, each represented by a proxy
type Relationship struct {
	InstanceAuditHeader

	GUID           string                         `json:"guid"`
	Properties     *properties.InstanceProperties `json:"properties,omitempty"`
	EntityOneProxy *EntityProxy                   `json:"entityOneProxy"`
	EntityTwoProxy *EntityProxy                   `json:"entityTwoProxy"`
}

type RelationshipDecoratorFunc func(r *Relationship)

func NewRelationship(guid string, typ typedefs.TypeReference, end1, end2 *EntityProxy, decorators ...RelationshipDecoratorFunc) (*Relationship, error) {
	if typ.IsZero() {
		return nil, errors.NewInvalidParameterError("a relationship must have a type")
	}

	if end1 == nil || end2 == nil {
		return nil, errors.NewInvalidParameterError("a relationship must have a proxy at both ends")
	}

	r := &Relationship{
		InstanceAuditHeader: newHeader(typ),
		GUID:                guid,
		EntityOneProxy:      end1,
		EntityTwoProxy:      end2,
	}

	for _, decorator := range decorators {
		decorator(r)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

func NewRelationshipFromJSON(body []byte) (*Relationship, error) {
	r := &Relationship{}
	err := json.Unmarshal(body, r)

	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal relationship: %w", err)
	}

	if r.GUID == "" || r.Type.Name == "" {
		return nil, errors.NewInvalidInstanceError("failed to parse relationship")
	}

	return r, r.Validate()
}

func (r *Relationship) Validate() error {
	if r.Type.IsZero() {
		return errors.NewInvalidInstanceError(fmt.Sprintf("relationship %s has no type", r.GUID))
	}

	if r.EntityOneProxy == nil || r.EntityTwoProxy == nil {
		return errors.NewInvalidInstanceError(fmt.Sprintf("relationship %s is missing an end", r.GUID))
	}

	if r.EntityOneProxy.GUID == "" || r.EntityTwoProxy.GUID == "" {
		return errors.NewInvalidInstanceError(fmt.Sprintf("relationship %s has an end without a guid", r.GUID))
	}

	if err := r.Properties.Validate(); err != nil {
		return errors.NewInvalidInstanceError(fmt.Sprintf("relationship %s: %s", r.GUID, err.Error()))
	}

	return nil
}

// OtherEnd returns the proxy at the opposite end from the entity with the
// given guid, and whether that entity was found at end one
func (r *Relationship) OtherEnd(entityGUID string) (other *EntityProxy, atEndOne bool, err error) {
	switch entityGUID {
	case r.EntityOneProxy.GUID:
		return r.EntityTwoProxy, true, nil
	case r.EntityTwoProxy.GUID:
		return r.EntityOneProxy, false, nil
	default:
		return nil, false, errors.NewInvalidParameterError(
			fmt.Sprintf("entity %s is not at either end of relationship %s", entityGUID, r.GUID),
		)
	}
}

func (r *Relationship) SetProperty(userID, name string, value properties.Value) error {
	if err := r.checkNotDeleted(r.GUID); err != nil {
		return err
	}

	if err := setProperty(&r.Properties, name, value); err != nil {
		return err
	}

	r.touch(userID)
	return nil
}

func (r *Relationship) RemoveProperty(userID, name string) error {
	if err := r.checkNotDeleted(r.GUID); err != nil {
		return err
	}

	if err := removeProperty(r.Properties, name); err != nil {
		return err
	}

	r.touch(userID)
	return nil
}

func (r *Relationship) Clone() (*Relationship, error) {
	props, err := r.Properties.Clone()
	if err != nil {
		return nil, err
	}

	end1, err := r.EntityOneProxy.Clone()
	if err != nil {
		return nil, err
	}

	end2, err := r.EntityTwoProxy.Clone()
	if err != nil {
		return nil, err
	}

	return &Relationship{
		InstanceAuditHeader: r.Header(),
		GUID:                r.GUID,
		Properties:          props,
		EntityOneProxy:      end1,
		EntityTwoProxy:      end2,
	}, nil
}
