package config

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

// GenerateSchema returns the JSON schema of Config with every definition
// inlined. Durations are described as Go duration strings.
func GenerateSchema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	r.Mapper = func(t reflect.Type) *jsonschema.Schema {
		if t == reflect.TypeOf(time.Duration(0)) {
			return &jsonschema.Schema{
				Type:        "string",
				Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
				Description: "Go duration, e.g. 30s or 1m30s",
			}
		}

		return nil
	}

	//nolint:exhaustruct // empty struct is intentional for schema generation
	schema := r.Reflect(Config{})

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(out), nil
}
