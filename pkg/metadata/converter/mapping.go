package converter

import (
	"context"

	"github.com/diwise/metadata-instance-store/pkg/metadata/beans"
	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/properties"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

type AnomalyKind string

const (
	UnknownProperty       AnomalyKind = "UnknownProperty"
	UnknownClassification AnomalyKind = "UnknownClassification"
	UnmappableValue       AnomalyKind = "UnmappableValue"
	UnmappableEnumValue   AnomalyKind = "UnmappableEnumValue"
	UnmappableMapValue    AnomalyKind = "UnmappableMapValue"
)

// Anomaly describes a property or classification that could not be mapped
// to a named bean field and was kept in one of the extra bags instead
type Anomaly struct {
	Kind         AnomalyKind
	InstanceGUID string
	Bean         string
	Name         string
	Err          error
}

func (c *Converter) report(ctx context.Context, a Anomaly) {
	args := []any{"kind", a.Kind, "guid", a.InstanceGUID, "bean", a.Bean, "name", a.Name}
	if a.Err != nil {
		args = append(args, "err", a.Err.Error())
	}

	logging.GetFromContext(ctx).Debug("conversion anomaly recovered", args...)

	if c.onAnomaly != nil {
		c.onAnomaly(a)
	}
}

// mapProperties routes every property to a named field of the bean or to
// its extra attributes. Nothing is dropped.
func (c *Converter) mapProperties(ctx context.Context, m beans.Mapper, b beans.Bean, guid string, props *properties.InstanceProperties) {
	base := b.Base()

	if props != nil {
		base.EffectiveFromTime = props.EffectiveFromTime
		base.EffectiveToTime = props.EffectiveToTime
	}

	for name, value := range props.All() {
		assigned, kind, err := assign(m, b, name, value)
		if assigned {
			continue
		}

		if kind != "" {
			c.report(ctx, Anomaly{Kind: kind, InstanceGUID: guid, Bean: m.Name, Name: name, Err: err})
		}

		if base.ExtraAttributes == nil {
			base.ExtraAttributes = properties.NewInstanceProperties()
		}
		base.ExtraAttributes.SetProperty(name, value)
	}
}

// assign stores value in the named field it is bound to. Zero values and
// empty maps are not assigned so that they are kept as extra attributes and
// survive a round trip. A non empty kind reports why a value was refused.
func assign(m beans.Mapper, b beans.Bean, name string, value properties.Value) (bool, AnomalyKind, error) {
	if a, ok := m.Attribute(name); ok {
		p, ok := value.(*properties.Primitive)
		if !ok {
			return false, UnmappableValue, errors.NewUnmappableValueError(name, value)
		}
		if p.Kind != a.Kind || p.Type != a.Kind.TypeName() {
			return false, UnmappableValue, errors.NewUnmappableValueError(name, p.Val)
		}
		if p.IsZero() {
			return false, "", nil
		}
		if err := a.Set(b, p); err != nil {
			return false, UnmappableValue, err
		}
		return true, "", nil
	}

	if e, ok := m.Enum(name); ok {
		ev, ok := value.(*properties.Enum)
		if !ok || ev.Type != e.TypeName {
			return false, UnmappableEnumValue, errors.NewUnmappableValueError(name, value)
		}
		if err := e.Set(b, ev); err != nil {
			return false, UnmappableEnumValue, err
		}
		return true, "", nil
	}

	if mp, ok := m.Map(name); ok {
		mv, ok := value.(*properties.Map)
		if !ok || mv.Type != properties.StringMapTypeName {
			return false, UnmappableMapValue, errors.NewUnmappableValueError(name, value)
		}
		if mv.Entries.IsEmpty() {
			return false, "", nil
		}
		if err := mp.Set(b, mv); err != nil {
			return false, UnmappableMapValue, err
		}
		return true, "", nil
	}

	return false, UnknownProperty, nil
}

// synthesize builds the properties of an instance from the named fields of
// a bean followed by its extra attributes. A named field wins over an extra
// attribute with the same name.
func synthesize(m beans.Mapper, b beans.Bean) *properties.InstanceProperties {
	base := b.Base()
	props := properties.NewInstanceProperties(
		properties.EffectiveBetween(base.EffectiveFromTime, base.EffectiveToTime),
	)

	for _, a := range m.Attributes {
		if v, ok := a.Get(b); ok {
			props.SetProperty(a.Name, v)
		}
	}

	for _, e := range m.Enums {
		if v, ok := e.Get(b); ok {
			props.SetProperty(e.Name, v)
		}
	}

	for _, mp := range m.Maps {
		if v, ok := mp.Get(b); ok {
			props.SetProperty(mp.Name, v)
		}
	}

	for name, v := range base.ExtraAttributes.All() {
		if !props.Has(name) {
			props.SetProperty(name, v)
		}
	}

	if props.IsEmpty() && props.EffectiveFromTime == nil && props.EffectiveToTime == nil {
		return nil
	}

	return props
}
