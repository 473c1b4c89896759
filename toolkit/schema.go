package toolkit

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compileSchema compiles a tool's derived parameter schema once at
// registration time so invocation never re-parses it.
func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	url := "mem://toolkit/" + name + ".json"
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("toolkit: compile schema for %q: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("toolkit: compile schema for %q: %w", name, err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("toolkit: compile schema for %q: %w", name, err)
	}
	return schema, nil
}

// validateArguments checks raw arguments against the tool's compiled
// schema. A nil schema (should not occur in practice) is treated as
// permissive.
func validateArguments(schema *jsonschema.Schema, raw []byte) error {
	if schema == nil {
		return nil
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}
