package instances

import (
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/properties"
)

// P sets a property on the entity under construction without bumping its version
func P(name string, value properties.Value) EntityDecoratorFunc {
	return func(e *Entity) {
		if e.Properties == nil {
			e.Properties = properties.NewInstanceProperties()
		}
		e.Properties.SetProperty(name, value)
	}
}

func Text(name, value string) EntityDecoratorFunc {
	return P(name, properties.NewStringProperty(value))
}

func QualifiedName(value string) EntityDecoratorFunc {
	return Text("qualifiedName", value)
}

func Properties(props *properties.InstanceProperties) EntityDecoratorFunc {
	return func(e *Entity) {
		e.Properties = props
	}
}

func Classified(c *Classification) EntityDecoratorFunc {
	return func(e *Entity) {
		e.Classifications = append(e.Classifications, c)
	}
}

func CreatedBy(userID string) EntityDecoratorFunc {
	return func(e *Entity) {
		e.CreatedBy = userID
	}
}

// InCollection sets the home metadata collection of the entity
func InCollection(id, name string) EntityDecoratorFunc {
	return func(e *Entity) {
		e.MetadataCollectionID = id
		e.MetadataCollectionName = name
	}
}

func WithProvenance(p Provenance) EntityDecoratorFunc {
	return func(e *Entity) {
		e.InstanceProvenanceType = p
	}
}

func WithStatus(s Status) EntityDecoratorFunc {
	return func(e *Entity) {
		e.Status = s
	}
}

func CP(name string, value properties.Value) ClassificationDecoratorFunc {
	return func(c *Classification) {
		if c.Properties == nil {
			c.Properties = properties.NewInstanceProperties()
		}
		c.Properties.SetProperty(name, value)
	}
}

func ClassificationProperties(props *properties.InstanceProperties) ClassificationDecoratorFunc {
	return func(c *Classification) {
		c.Properties = props
	}
}

// PropagatedFrom marks the classification as propagated from another entity
func PropagatedFrom(guid string) ClassificationDecoratorFunc {
	return func(c *Classification) {
		c.Origin = OriginPropagated
		c.OriginGUID = guid
	}
}

func RP(name string, value properties.Value) RelationshipDecoratorFunc {
	return func(r *Relationship) {
		if r.Properties == nil {
			r.Properties = properties.NewInstanceProperties()
		}
		r.Properties.SetProperty(name, value)
	}
}

func RelationshipProperties(props *properties.InstanceProperties) RelationshipDecoratorFunc {
	return func(r *Relationship) {
		r.Properties = props
	}
}
