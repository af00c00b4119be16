package governance

import (
	"github.com/diwise/metadata-instance-store/pkg/metadata/beans"
)

// ForeignKey is the bean view of a ForeignKey relationship
type ForeignKey struct {
	beans.RelationshipBase

	Name        string
	Description string
	Confidence  int32
	Steward     string
	Source      string
}

//NewForeignKey creates a new, not yet stored, ForeignKey between two existing elements
func NewForeignKey(name string, primaryKey, foreignKey beans.ElementStub) *ForeignKey {
	fk := &ForeignKey{Name: name}
	fk.End1 = primaryKey
	fk.End2 = foreignKey
	return fk
}

func (fk *ForeignKey) TypeName() string {
	return ForeignKeyTypeName
}

func foreignKeyMapper() beans.Mapper {
	return beans.Mapper{
		Name:     ForeignKeyTypeName,
		Kind:     beans.KindRelationship,
		TypeName: ForeignKeyTypeName,
		New:      func() beans.Bean { return &ForeignKey{} },
		Attributes: []beans.Attribute{
			beans.String("name", func(fk *ForeignKey) *string { return &fk.Name }),
			beans.String("description", func(fk *ForeignKey) *string { return &fk.Description }),
			beans.Int("confidence", func(fk *ForeignKey) *int32 { return &fk.Confidence }),
			beans.String("steward", func(fk *ForeignKey) *string { return &fk.Steward }),
			beans.String("source", func(fk *ForeignKey) *string { return &fk.Source }),
		},
	}
}
