package metadatastore

import (
	"io"

	yaml "gopkg.in/yaml.v2"
)

type CollectionInfo struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type BeanInfo struct {
	Name string `yaml:"name"`
	// Readonly beans can be read but not saved or related
	Readonly bool `yaml:"readonly"`
}

type Config struct {
	Collection CollectionInfo `yaml:"collection"`
	Catalogs   []string       `yaml:"catalogs"`
	Beans      []BeanInfo     `yaml:"beans"`
}

func (cfg *Config) isReadonly(beanName string) bool {
	for _, b := range cfg.Beans {
		if b.Name == beanName {
			return b.Readonly
		}
	}
	return false
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)

	return cfg, err
}
