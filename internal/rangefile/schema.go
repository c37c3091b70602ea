package rangefile

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Key and value types are left open; only the document shape is checked.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["ranges"],
  "properties": {
    "version": {"type": "integer", "minimum": 0},
    "ranges": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["start", "end", "data"],
        "properties": {
          "data": {"type": "array", "minItems": 1}
        }
      }
    },
    "intervals": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["range", "value"],
        "properties": {
          "range": {
            "type": "object",
            "required": ["start", "end"],
            "properties": {
              "start_open": {"type": "boolean"},
              "end_open": {"type": "boolean"}
            }
          }
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("rangefile.json", strings.NewReader(documentSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("rangefile.json")
	})
	return schema, schemaErr
}

func validateDocument(raw []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return sch.Validate(v)
}
