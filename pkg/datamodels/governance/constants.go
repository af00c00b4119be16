package governance

const (
	//ReferenceableTypeName is the common supertype of all governed elements
	ReferenceableTypeName string = "Referenceable"
	//PersonTypeName is a type name constant for Person
	PersonTypeName string = "Person"
	//AssetTypeName is a type name constant for Asset
	AssetTypeName string = "Asset"
	//ConfidentialityTypeName is a type name constant for the Confidentiality classification
	ConfidentialityTypeName string = "Confidentiality"
	//OwnershipTypeName is a type name constant for the Ownership classification
	OwnershipTypeName string = "Ownership"
	//ForeignKeyTypeName is a type name constant for the ForeignKey relationship
	ForeignKeyTypeName string = "ForeignKey"

	//RelatedAssetBeanName is the bean name of an Asset seen through one of its relationships
	RelatedAssetBeanName string = "RelatedAsset"
)

const (
	ContactMethodTypeName        string = "ContactMethodType"
	ClassificationStatusTypeName string = "GovernanceClassificationStatus"
)
