package artifact

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://schemas.mindcare.ai/v1/"

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	names := []string{"model", "encoders", "info"}

	for _, name := range names {
		data, err := schemaFS.ReadFile("schemas/" + name + ".schema.json")
		if err != nil {
			compileErr = fmt.Errorf("failed to read %s schema: %w", name, err)
			return
		}
		if err := compiler.AddResource(schemaBaseURL+name+".json", bytes.NewReader(data)); err != nil {
			compileErr = fmt.Errorf("failed to add %s schema resource: %w", name, err)
			return
		}
	}

	compiled = make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		s, err := compiler.Compile(schemaBaseURL + name + ".json")
		if err != nil {
			compileErr = fmt.Errorf("failed to compile %s schema: %w", name, err)
			return
		}
		compiled[name] = s
	}
}

func validateWith(name string) func([]byte) error {
	return func(data []byte) error {
		compileOnce.Do(compileSchemas)
		if compileErr != nil {
			return compileErr
		}

		var doc interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		if err := compiled[name].Validate(doc); err != nil {
			if verr, ok := err.(*jsonschema.ValidationError); ok {
				return fmt.Errorf("schema validation failed: %s", strings.Join(flatten(verr), "; "))
			}
			return err
		}
		return nil
	}
}

var (
	modelSchema    = validateWith("model")
	encodersSchema = validateWith("encoders")
	infoSchema     = validateWith("info")
)

// flatten collects the leaf causes of a validation error.
func flatten(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{loc + ": " + err.Message}
	}
	var out []string
	for _, c := range err.Causes {
		out = append(out, flatten(c)...)
	}
	return out
}
