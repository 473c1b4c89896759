package toolkit

// ParamType enumerates the scalar and compound JSON-Schema shapes a tool
// parameter may take. The toolkit never infers these from reflection — every
// parameter is declared explicitly at registration.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

// Param describes one named argument of a tool. Name and Description are
// always explicit; the toolkit does not rely on preserved Go parameter names.
type Param struct {
	Name        string
	Description string
	Type        ParamType
	Required    bool
	// Enum restricts the parameter to a fixed set of values, when non-empty.
	Enum []string
	// Items describes the element type for Type == ParamArray.
	Items *Param
	// Properties describes nested fields for Type == ParamObject.
	Properties []Param
}

// schema renders p as a JSON-Schema fragment (without the enclosing
// "required" marker, which is attached by the parent object schema).
func (p Param) schema() map[string]any {
	s := map[string]any{}
	if p.Description != "" {
		s["description"] = p.Description
	}
	switch p.Type {
	case ParamArray:
		s["type"] = "array"
		if p.Items != nil {
			s["items"] = p.Items.schema()
		} else {
			s["items"] = map[string]any{}
		}
	case ParamObject:
		s["type"] = "object"
		props := map[string]any{}
		var required []string
		for _, f := range p.Properties {
			props[f.Name] = f.schema()
			if f.Required {
				required = append(required, f.Name)
			}
		}
		s["properties"] = props
		if len(required) > 0 {
			s["required"] = required
		}
	default:
		s["type"] = string(p.Type)
	}
	if len(p.Enum) > 0 {
		vals := make([]any, len(p.Enum))
		for i, v := range p.Enum {
			vals[i] = v
		}
		s["enum"] = vals
	}
	return s
}

// ParametersSchema derives the JSON-Schema object for a tool's full
// parameter list: every required parameter is marked, and every array
// parameter carries an "items" subschema — mandatory per the derivation
// contract, never left implicit.
func ParametersSchema(params []Param) map[string]any {
	props := map[string]any{}
	var required []string
	for _, p := range params {
		props[p.Name] = p.schema()
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
