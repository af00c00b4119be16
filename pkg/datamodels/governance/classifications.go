package governance

import (
	"github.com/diwise/metadata-instance-store/pkg/metadata/beans"
)

type ClassificationStatus int

const (
	StatusDiscovered ClassificationStatus = iota + 1
	StatusProposed
	StatusImported
	StatusValidated
	StatusDeprecated
	StatusOther
)

var classificationStatuses = beans.EnumDef[ClassificationStatus]{
	TypeName: ClassificationStatusTypeName,
	Values: []beans.EnumValue[ClassificationStatus]{
		{Value: StatusDiscovered, Ordinal: 0, Symbol: "Discovered"},
		{Value: StatusProposed, Ordinal: 1, Symbol: "Proposed"},
		{Value: StatusImported, Ordinal: 2, Symbol: "Imported"},
		{Value: StatusValidated, Ordinal: 3, Symbol: "Validated"},
		{Value: StatusDeprecated, Ordinal: 4, Symbol: "Deprecated"},
		{Value: StatusOther, Ordinal: 99, Symbol: "Other"},
	},
}

func (s ClassificationStatus) String() string {
	return classificationStatuses.Symbol(s)
}

// Confidentiality describes how confidential the content of an element is
type Confidentiality struct {
	beans.ClassificationBase

	Level      int32
	Confidence int32
	Steward    string
	Status     ClassificationStatus
}

func (c *Confidentiality) TypeName() string {
	return ConfidentialityTypeName
}

// Ownership names the actor accountable for an element
type Ownership struct {
	beans.ClassificationBase

	Owner         string
	OwnerTypeName string
}

func (o *Ownership) TypeName() string {
	return OwnershipTypeName
}

func confidentialityMapper() beans.Mapper {
	return beans.Mapper{
		Name:     ConfidentialityTypeName,
		Kind:     beans.KindClassification,
		TypeName: ConfidentialityTypeName,
		New:      func() beans.Bean { return &Confidentiality{} },
		Attributes: []beans.Attribute{
			beans.Int("level", func(c *Confidentiality) *int32 { return &c.Level }),
			beans.Int("confidence", func(c *Confidentiality) *int32 { return &c.Confidence }),
			beans.String("steward", func(c *Confidentiality) *string { return &c.Steward }),
		},
		Enums: []beans.EnumAttribute{
			beans.EnumOf("status", classificationStatuses, func(c *Confidentiality) *ClassificationStatus { return &c.Status }),
		},
	}
}

func ownershipMapper() beans.Mapper {
	return beans.Mapper{
		Name:     OwnershipTypeName,
		Kind:     beans.KindClassification,
		TypeName: OwnershipTypeName,
		New:      func() beans.Bean { return &Ownership{} },
		Attributes: []beans.Attribute{
			beans.String("owner", func(o *Ownership) *string { return &o.Owner }),
			beans.String("ownerTypeName", func(o *Ownership) *string { return &o.OwnerTypeName }),
		},
	}
}
