package metadatastore

import (
	"bytes"
	"testing"

	"github.com/matryer/is"
)

func TestLoadConfig(t *testing.T) {
	is, config := setupConfigTest(t)

	is.Equal(config.Collection.ID, "5f1d0f43-5c4b-4a2e-9ed0-0ad6a4c3b1e2")
	is.Equal(config.Collection.Name, "Kommunen")
	is.Equal(config.Catalogs, []string{"/opt/diwise/config/catalog.yaml"})
}

func TestLoadBeans(t *testing.T) {
	is, config := setupConfigTest(t)

	is.Equal(len(config.Beans), 2) // should find two bean infos
	is.True(config.isReadonly("Person"))
	is.True(!config.isReadonly("Asset"))
	is.True(!config.isReadonly("Unknown")) // beans are writable by default
}

func setupConfigTest(t *testing.T) (*is.I, *Config) {
	is := is.New(t)
	cfgData := bytes.NewBuffer([]byte(configFile))
	config, err := LoadConfiguration(cfgData)
	is.NoErr(err)

	return is, config
}

var configFile string = `
collection:
  id: 5f1d0f43-5c4b-4a2e-9ed0-0ad6a4c3b1e2
  name: Kommunen
catalogs:
  - /opt/diwise/config/catalog.yaml
beans:
  - name: Person
    readonly: true
  - name: Asset
`
