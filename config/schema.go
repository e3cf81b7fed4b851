package config

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

// durationPattern matches the strings accepted by time.ParseDuration.
const durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// Reflect builds the JSON Schema for nudge.yml from the Config struct. Unknown
// top-level keys are allowed so tools can carry their own sections (such as
// `logging`); unknown keys inside the typed sections are rejected.
func Reflect() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
		// Use YAML field names for property names
		FieldNameTag: "yaml",
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     durationPattern,
					Description: "Go duration string such as 500ms, 12s or 1m30s",
				}
			}
			return nil
		},
	}

	schema := r.Reflect(&Config{})
	schema.Title = "nudge Configuration"
	schema.Description = "Schema for nudge.yml and nudge.toml."
	schema.AdditionalProperties = jsonschema.TrueSchema
	return schema
}

// GenerateSchema renders the schema as indented JSON.
func GenerateSchema() ([]byte, error) {
	return json.MarshalIndent(Reflect(), "", "  ")
}
