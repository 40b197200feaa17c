package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileLayout is the optional CONFIG_FILE format:
//
//	shared:
//	  PORT: "8080"
//	dev:
//	  DB_TYPE: memory
//	prod:
//	  DB_TYPE: supa
//
// Keys under dev and prod are flattened to DEV_<KEY> and PROD_<KEY>.
type fileLayout struct {
	Shared map[string]string `yaml:"shared"`
	Dev    map[string]string `yaml:"dev"`
	Prod   map[string]string `yaml:"prod"`
}

// LoadFile reads a YAML config file into a flat key map.
func LoadFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseFile(raw)
}

func ParseFile(raw []byte) (map[string]string, error) {
	var layout fileLayout
	if err := yaml.Unmarshal(raw, &layout); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	out := make(map[string]string)
	for k, v := range layout.Shared {
		out[strings.ToUpper(k)] = v
	}
	for k, v := range layout.Dev {
		out[Dev.prefix()+strings.ToUpper(k)] = v
	}
	for k, v := range layout.Prod {
		out[Prod.prefix()+strings.ToUpper(k)] = v
	}
	return out, nil
}
