package codec

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "https://pan-pacific.example/schemas/shipments.json"

//go:embed schema/shipments.json
var shipmentSchema []byte

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func importSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(shipmentSchema))
		if err != nil {
			compileErr = fmt.Errorf("failed to parse import schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("failed to add import schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

// validateShape checks a JSON payload against the import schema before it
// is decoded into records.
func validateShape(data []byte) error {
	schema, err := importSchema()
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	if err != nil {
		return fmt.Errorf("malformed json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("payload does not match shipment schema: %w", err)
	}
	return nil
}
