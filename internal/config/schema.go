package config

import (
	"bytes"
	"encoding/json"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	schemareflector "github.com/swaggest/jsonschema-go"

	ext_config "github.com/requirehit/package/config"
)

var manifestSchema *jsonschema.Schema

func init() {
	js, err := jsonschema.UnmarshalJSON(bytes.NewReader(ext_config.Schema()))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	if err := compiler.AddResource("schema.json", js); err != nil {
		panic(err)
	}

	manifestSchema, err = compiler.Compile("schema.json")
	if err != nil {
		panic(err)
	}
}

// Validate checks manifest bytes against the embedded manifest schema.
func Validate(data []byte) error {
	var manifest any
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return err
	}
	return manifestSchema.Validate(manifest)
}

// ReflectSchema regenerates the manifest schema from the Manifest struct; see
// build/gen-manifest-schema.go.
func ReflectSchema() ([]byte, error) {
	reflector := schemareflector.Reflector{}

	s, err := reflector.Reflect(Manifest{})
	if err != nil {
		return nil, err
	}

	return json.MarshalIndent(s, "", "  ")
}

// Pipelining accepts both an ordered mapping and a sequence of mappings, so
// the reflected array type is widened here.
func (Pipelining) PrepareJSONSchema(schema *schemareflector.Schema) error {
	obj := schemareflector.Object.ToSchemaOrBool()
	arr := schemareflector.Array.ToSchemaOrBool()

	schema.Type = nil
	schema.Items = nil
	schema.AnyOf = []schemareflector.SchemaOrBool{obj, arr}
	return nil
}
