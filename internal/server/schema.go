package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

const searchRequestSchema = `{
  "type": "object",
  "required": ["keywords"],
  "properties": {
    "documentId": {"type": "string", "maxLength": 1024},
    "keywords": {"type": "string", "minLength": 1},
    "returnOnlyMatchedPages": {"type": "boolean"},
    "inlineDocument": {"type": "string"}
  }
}`

const fieldQuerySchema = `{
  "type": "object",
  "properties": {
    "dealer": {"type": "string", "maxLength": 256},
    "vin": {"type": "string", "maxLength": 256},
    "contract": {"type": "string", "maxLength": 256},
    "claim": {"type": "string", "maxLength": 256},
    "invoiceDate": {"type": "string", "maxLength": 256},
    "freeText": {"type": "string", "maxLength": 256}
  }
}`

func compileSchema(name, src string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

// decodeValidated checks data against schema, then decodes it into out.
func decodeValidated(schema *jsonschema.Schema, data []byte, out any) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return common.NewAppError("INVALID_QUERY", "request body is not valid JSON", common.ErrInvalidQuery)
	}
	if err := schema.Validate(v); err != nil {
		return common.NewAppError("INVALID_QUERY", "request does not match schema: "+err.Error(), common.ErrInvalidQuery)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return common.NewAppError("INVALID_QUERY", "decode request: "+err.Error(), common.ErrInvalidQuery)
	}
	return nil
}
