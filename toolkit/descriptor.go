package toolkit

import "encoding/json"

// Descriptor is the cached, immutable advertisement of a registered tool:
// everything the model port and the JSON-Schema validator need, computed
// once at registration time and never recomputed on lookup.
type Descriptor struct {
	Name        string
	Description string
	Parameters  []Param
	// Schema is the derived JSON-Schema parameter object, pre-marshalled so
	// repeated lookups never pay encoding cost.
	Schema json.RawMessage
	// Strict mirrors the Chat-Completions "strict" function flag.
	Strict bool
	// SchemaOnly marks a tool registered by descriptor alone (§4.3
	// schema-only tools): invoking it yields a "suspended" terminal chunk
	// rather than running a body.
	SchemaOnly bool
}

func newDescriptor(name, description string, params []Param, strict, schemaOnly bool) (Descriptor, error) {
	schema := ParametersSchema(params)
	raw, err := json.Marshal(schema)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Name:        name,
		Description: description,
		Parameters:  params,
		Schema:      raw,
		Strict:      strict,
		SchemaOnly:  schemaOnly,
	}, nil
}
