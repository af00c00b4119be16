package governance

import (
	"bytes"
	_ "embed"

	"github.com/diwise/metadata-instance-store/pkg/metadata/beans"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
)

//go:embed assets/catalog.yaml
var catalogFile []byte

// Catalog returns the type definitions of the governance model
func Catalog() (*typedefs.Catalog, error) {
	return typedefs.LoadCatalog(bytes.NewReader(catalogFile))
}

// Mappers returns the mappers of every bean in the governance model
func Mappers() (*beans.MapperSet, error) {
	return beans.NewMapperSet(
		personMapper(),
		assetMapper(AssetTypeName, beans.KindEntity, func() beans.Bean { return &Asset{} }),
		assetMapper(RelatedAssetBeanName, beans.KindRelated, func() beans.Bean { return &RelatedAsset{} }),
		confidentialityMapper(),
		ownershipMapper(),
		foreignKeyMapper(),
	)
}
