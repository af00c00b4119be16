package governance

import (
	"time"

	"github.com/diwise/metadata-instance-store/pkg/metadata/beans"
)

// Asset is the bean view of an Asset entity
type Asset struct {
	beans.EntityBase

	QualifiedName        string
	DisplayName          string
	Description          string
	Owner                string
	CreatedOn            time.Time
	RowCount             int64
	AdditionalProperties map[string]string
}

//NewAsset creates a new, not yet stored, Asset bean
func NewAsset(qualifiedName, displayName string) *Asset {
	return &Asset{
		QualifiedName: qualifiedName,
		DisplayName:   displayName,
	}
}

func (a *Asset) TypeName() string {
	return AssetTypeName
}

func (a *Asset) asset() *Asset {
	return a
}

// RelatedAsset is an Asset together with one of its relationships and the
// element at the other end of it
type RelatedAsset struct {
	Asset
	beans.RelatedBase
}

func (r *RelatedAsset) TypeName() string {
	return RelatedAssetBeanName
}

type assetBean interface {
	beans.EntityBean
	asset() *Asset
}

func assetMapper(name string, kind beans.Kind, ctor func() beans.Bean) beans.Mapper {
	return beans.Mapper{
		Name:     name,
		Kind:     kind,
		TypeName: AssetTypeName,
		New:      ctor,
		Attributes: []beans.Attribute{
			beans.String("qualifiedName", func(a assetBean) *string { return &a.asset().QualifiedName }),
			beans.String("displayName", func(a assetBean) *string { return &a.asset().DisplayName }),
			beans.String("description", func(a assetBean) *string { return &a.asset().Description }),
			beans.String("owner", func(a assetBean) *string { return &a.asset().Owner }),
			beans.Date("createdOn", func(a assetBean) *time.Time { return &a.asset().CreatedOn }),
			beans.Long("rowCount", func(a assetBean) *int64 { return &a.asset().RowCount }),
		},
		Maps: []beans.MapAttribute{
			beans.StringMap("additionalProperties", func(a assetBean) *map[string]string { return &a.asset().AdditionalProperties }),
		},
	}
}
