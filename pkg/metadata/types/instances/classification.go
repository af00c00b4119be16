package instances

import (
	"fmt"
	"strings"

	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/properties"
)

type ClassificationOrigin int

const (
	OriginAssigned ClassificationOrigin = iota
	OriginPropagated
)

func (o ClassificationOrigin) String() string {
	if o == OriginPropagated {
		return "PROPAGATED"
	}
	return "ASSIGNED"
}

func (o ClassificationOrigin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *ClassificationOrigin) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "ASSIGNED":
		*o = OriginAssigned
	case "PROPAGATED":
		*o = OriginPropagated
	default:
		return fmt.Errorf("unknown classification origin %q", string(text))
	}
	return nil
}

// Classification is a named set of properties attached to an entity. The
// name is the name of the classification type.
type Classification struct {
	InstanceAuditHeader

	Name       string                         `json:"name"`
	Origin     ClassificationOrigin           `json:"classificationOrigin"`
	OriginGUID string                         `json:"classificationOriginGUID,omitempty"`
	Properties *properties.InstanceProperties `json:"properties,omitempty"`
}

type ClassificationDecoratorFunc func(c *Classification)

func NewClassification(typ typedefs.TypeReference, decorators ...ClassificationDecoratorFunc) (*Classification, error) {
	if typ.Name == "" {
		return nil, errors.NewInvalidParameterError("a classification must have a named type")
	}

	c := &Classification{
		InstanceAuditHeader: newHeader(typ),
		Name:                typ.Name,
	}

	for _, decorator := range decorators {
		decorator(c)
	}

	if err := c.Properties.Validate(); err != nil {
		return nil, errors.NewInvalidParameterError(err.Error())
	}

	return c, nil
}

func (c *Classification) SetProperty(userID, name string, value properties.Value) error {
	if err := c.checkNotDeleted(c.Name); err != nil {
		return err
	}

	if err := setProperty(&c.Properties, name, value); err != nil {
		return err
	}

	c.touch(userID)
	return nil
}

func (c *Classification) RemoveProperty(userID, name string) error {
	if err := c.checkNotDeleted(c.Name); err != nil {
		return err
	}

	if err := removeProperty(c.Properties, name); err != nil {
		return err
	}

	c.touch(userID)
	return nil
}

func (c *Classification) Clone() (*Classification, error) {
	props, err := c.Properties.Clone()
	if err != nil {
		return nil, err
	}

	return &Classification{
		InstanceAuditHeader: c.Header(),
		Name:                c.Name,
		Origin:              c.Origin,
		OriginGUID:          c.OriginGUID,
		Properties:          props,
	}, nil
}

func cloneClassifications(src []*Classification) ([]*Classification, error) {
	if src == nil {
		return nil, nil
	}

	dst := make([]*Classification, 0, len(src))
	for _, c := range src {
		clone, err := c.Clone()
		if err != nil {
			return nil, err
		}
		dst = append(dst, clone)
	}

	return dst, nil
}
