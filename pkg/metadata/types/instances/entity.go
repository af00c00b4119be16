package instances

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/properties"
)

// Entity is a metadata element with its properties and the classifications
// attached to it
type Entity struct {
	InstanceAuditHeader

	GUID            string                         `json:"guid"`
	Properties      *properties.InstanceProperties `json:"properties,omitempty"`
	Classifications []*Classification              `json:"classifications,omitempty"`
}

type EntityDecoratorFunc func(e *Entity)

// NewEntity creates an active entity at version 1. The guid may be left
// empty for a repository to assign on creation.
func NewEntity(guid string, typ typedefs.TypeReference, decorators ...EntityDecoratorFunc) (*Entity, error) {
	if typ.IsZero() {
		return nil, errors.NewInvalidParameterError("an entity must have a type")
	}

	e := &Entity{
		InstanceAuditHeader: newHeader(typ),
		GUID:                guid,
	}

	for _, decorator := range decorators {
		decorator(e)
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

func NewEntityFromJSON(body []byte) (*Entity, error) {
	e := &Entity{}
	err := json.Unmarshal(body, e)

	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}

	if e.GUID == "" || e.Type.Name == "" {
		return nil, errors.NewInvalidInstanceError("failed to parse entity")
	}

	return e, e.Validate()
}

func NewEntitiesFromSlice(body []byte) ([]*Entity, error) {
	arr := []*Entity{}
	err := json.Unmarshal(body, &arr)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal entities: %w", err)
	}

	for _, e := range arr {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	return arr, nil
}

// Validate checks the structural rules that every entity must follow
func (e *Entity) Validate() error {
	if e.Type.IsZero() {
		return errors.NewInvalidInstanceError(fmt.Sprintf("entity %s has no type", e.GUID))
	}

	if e.Version < 1 {
		return errors.NewInvalidInstanceError(fmt.Sprintf("entity %s has invalid version %d", e.GUID, e.Version))
	}

	seen := map[string]struct{}{}
	for _, c := range e.Classifications {
		if c == nil {
			return errors.NewInvalidInstanceError(fmt.Sprintf("entity %s has a nil classification", e.GUID))
		}
		if _, dup := seen[c.Name]; dup {
			return errors.NewClassificationExistsError(c.Name, e.GUID)
		}
		seen[c.Name] = struct{}{}
	}

	if err := e.Properties.Validate(); err != nil {
		return errors.NewInvalidInstanceError(fmt.Sprintf("entity %s: %s", e.GUID, err.Error()))
	}

	return nil
}

func (e *Entity) SetProperty(userID, name string, value properties.Value) error {
	if err := e.checkNotDeleted(e.GUID); err != nil {
		return err
	}

	if err := setProperty(&e.Properties, name, value); err != nil {
		return err
	}

	e.touch(userID)
	return nil
}

func (e *Entity) RemoveProperty(userID, name string) error {
	if err := e.checkNotDeleted(e.GUID); err != nil {
		return err
	}

	if err := removeProperty(e.Properties, name); err != nil {
		return err
	}

	e.touch(userID)
	return nil
}

// Classification returns the attached classification with the given name
func (e *Entity) Classification(name string) (*Classification, bool) {
	idx := e.classificationIndex(name)
	if idx < 0 {
		return nil, false
	}
	return e.Classifications[idx], true
}

func (e *Entity) classificationIndex(name string) int {
	return slices.IndexFunc(e.Classifications, func(c *Classification) bool { return c.Name == name })
}

// Classify attaches a new classification. Each classification name may only
// be attached once.
func (e *Entity) Classify(userID string, c *Classification) error {
	if c == nil {
		return errors.NewInvalidParameterError("cannot classify with a nil classification")
	}

	if err := e.checkNotDeleted(e.GUID); err != nil {
		return err
	}

	if e.classificationIndex(c.Name) >= 0 {
		return errors.NewClassificationExistsError(c.Name, e.GUID)
	}

	e.Classifications = append(e.Classifications, c)
	e.touch(userID)

	return nil
}

// Reclassify replaces the properties of an attached classification
func (e *Entity) Reclassify(userID, name string, props *properties.InstanceProperties) error {
	if err := e.checkNotDeleted(e.GUID); err != nil {
		return err
	}

	c, ok := e.Classification(name)
	if !ok {
		return errors.NewNotFoundError(fmt.Sprintf("classification %s is not attached to %s", name, e.GUID))
	}

	if err := props.Validate(); err != nil {
		return errors.NewInvalidParameterError(err.Error())
	}

	c.Properties = props
	c.touch(userID)
	e.touch(userID)

	return nil
}

func (e *Entity) Declassify(userID, name string) error {
	if err := e.checkNotDeleted(e.GUID); err != nil {
		return err
	}

	idx := e.classificationIndex(name)
	if idx < 0 {
		return errors.NewNotFoundError(fmt.Sprintf("classification %s is not attached to %s", name, e.GUID))
	}

	e.Classifications = slices.Delete(e.Classifications, idx, idx+1)
	if len(e.Classifications) == 0 {
		e.Classifications = nil
	}
	e.touch(userID)

	return nil
}

// Clone returns a deep copy of the entity
func (e *Entity) Clone() (*Entity, error) {
	props, err := e.Properties.Clone()
	if err != nil {
		return nil, err
	}

	classifications, err := cloneClassifications(e.Classifications)
	if err != nil {
		return nil, err
	}

	return &Entity{
		InstanceAuditHeader: e.Header(),
		GUID:                e.GUID,
		Properties:          props,
		Classifications:     classifications,
	}, nil
}

func setProperty(props **properties.InstanceProperties, name string, value properties.Value) error {
	if name == "" {
		return errors.NewInvalidParameterError("property name must not be empty")
	}

	if value == nil {
		return errors.NewInvalidParameterError(fmt.Sprintf("no value supplied for property %s", name))
	}

	if err := properties.Validate(value); err != nil {
		return errors.NewInvalidParameterError(fmt.Sprintf("property %s: %s", name, err.Error()))
	}

	if *props == nil {
		*props = properties.NewInstanceProperties()
	}

	(*props).SetProperty(name, value)
	return nil
}

func removeProperty(props *properties.InstanceProperties, name string) error {
	if !props.Has(name) {
		return errors.NewNotFoundError(fmt.Sprintf("property %s is not set", name))
	}

	props.RemoveProperty(name)
	return nil
}
