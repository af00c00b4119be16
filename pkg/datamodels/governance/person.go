package governance

import (
	"github.com/diwise/metadata-instance-store/pkg/metadata/beans"
)

type ContactMethod int

const (
	ContactByEmail ContactMethod = iota + 1
	ContactByPhone
	ContactByChat
	ContactByProfile
	ContactByOther
)

var contactMethods = beans.EnumDef[ContactMethod]{
	TypeName: ContactMethodTypeName,
	Values: []beans.EnumValue[ContactMethod]{
		{Value: ContactByEmail, Ordinal: 0, Symbol: "Email"},
		{Value: ContactByPhone, Ordinal: 1, Symbol: "Phone"},
		{Value: ContactByChat, Ordinal: 2, Symbol: "Chat"},
		{Value: ContactByProfile, Ordinal: 3, Symbol: "Profile"},
		{Value: ContactByOther, Ordinal: 99, Symbol: "Other"},
	},
}

func (c ContactMethod) String() string {
	return contactMethods.Symbol(c)
}

// Person is the bean view of a Person entity
type Person struct {
	beans.EntityBase

	QualifiedName        string
	Name                 string
	JobTitle             string
	EmployeeNumber       string
	IsPublic             bool
	ContactMethod        ContactMethod
	AdditionalProperties map[string]string
}

//NewPerson creates a new, not yet stored, Person bean
func NewPerson(qualifiedName, name string) *Person {
	return &Person{
		QualifiedName: qualifiedName,
		Name:          name,
	}
}

func (p *Person) TypeName() string {
	return PersonTypeName
}

func personMapper() beans.Mapper {
	return beans.Mapper{
		Name:     PersonTypeName,
		Kind:     beans.KindEntity,
		TypeName: PersonTypeName,
		New:      func() beans.Bean { return &Person{} },
		Attributes: []beans.Attribute{
			beans.String("qualifiedName", func(p *Person) *string { return &p.QualifiedName }),
			beans.String("name", func(p *Person) *string { return &p.Name }),
			beans.String("jobTitle", func(p *Person) *string { return &p.JobTitle }),
			beans.String("employeeNumber", func(p *Person) *string { return &p.EmployeeNumber }),
			beans.Boolean("isPublic", func(p *Person) *bool { return &p.IsPublic }),
		},
		Enums: []beans.EnumAttribute{
			beans.EnumOf("contactMethod", contactMethods, func(p *Person) *ContactMethod { return &p.ContactMethod }),
		},
		Maps: []beans.MapAttribute{
			beans.StringMap("additionalProperties", func(p *Person) *map[string]string { return &p.AdditionalProperties }),
		},
	}
}
