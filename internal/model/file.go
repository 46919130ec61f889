package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a declared schema from a YAML file. Used by the CLI, which has
// no access to the host application's model structs.
func Load(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read models %s: %w", path, err)
	}
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return Schema{}, fmt.Errorf("parse models %s: %w", path, err)
	}
	schema.sortTables()
	if err := schema.Validate(); err != nil {
		return Schema{}, err
	}
	return schema, nil
}
