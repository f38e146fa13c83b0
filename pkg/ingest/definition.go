package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/GoliasVictor/grpg/pkg/table"
	"gopkg.in/yaml.v3"
)

// LoadDefinition reads a table definition written in YAML or JSON, using
// the same field names as the HTTP API (node_id, predicate, predicate_id).
func LoadDefinition(r io.Reader) (table.TableDefinition, error) {
	var def table.TableDefinition

	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return def, fmt.Errorf("decode definition: %w", err)
	}
	if doc == nil {
		return def, nil
	}

	// Direction parsing and optional ids live in the JSON decoders.
	raw, err := json.Marshal(doc)
	if err != nil {
		return def, fmt.Errorf("decode definition: %w", err)
	}
	if err := json.Unmarshal(raw, &def); err != nil {
		return def, fmt.Errorf("decode definition: %w", err)
	}
	return def, nil
}

// LoadDefinitionFile reads a table definition from path.
func LoadDefinitionFile(path string) (table.TableDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return table.TableDefinition{}, err
	}
	defer f.Close()
	return LoadDefinition(f)
}
