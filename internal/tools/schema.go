package tools

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// GenerateParameterSchema reflects a Go struct type into the JSON Schema
// map a Tool's ParamSchema().Parameters expects, so tool authors can
// define their arguments as a typed struct instead of hand-writing the
// schema map. The reflected schema is round-tripped through JSON so the
// result holds only plain maps and slices, interchangeable with a
// hand-written Parameters map.
func GenerateParameterSchema(argStruct any) map[string]any {
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.ReflectFromType(reflect.TypeOf(argStruct))

	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	out["type"] = "object"
	delete(out, "$schema")
	return out
}
