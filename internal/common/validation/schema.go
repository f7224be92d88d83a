package validation

import (
	"fmt"
	"strings"

	"quote-vehicle-reconciler/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// AssetSchema describes a legacy asset descriptor that can be sent to the
// catalog resolver. Legacy codes are integers or non-empty strings.
const AssetSchema = `{
  "type": "object",
  "required": ["year", "make", "model", "bodyStyle"],
  "properties": {
    "year": {"type": "integer", "minimum": 1900, "maximum": 2100},
    "make": {"$ref": "#/definitions/code"},
    "model": {"$ref": "#/definitions/code"},
    "bodyStyle": {"$ref": "#/definitions/code"}
  },
  "definitions": {
    "code": {
      "anyOf": [
        {"type": "integer"},
        {"type": "string", "minLength": 1}
      ]
    }
  }
}`

// ReconcileInputSchema describes the variables of a reconciliation job.
const ReconcileInputSchema = `{
  "type": "object",
  "properties": {
    "targetState": {"type": "string", "pattern": "^[A-Z]{2}$"},
    "dryRun": {"type": "boolean"},
    "apply": {"type": "boolean"}
  },
  "not": {
    "required": ["dryRun", "apply"],
    "properties": {"dryRun": {"const": true}, "apply": {"const": true}}
  }
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator validates documents against a compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles schemaJSON once.
func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

func NewAssetValidator() (*Validator, error) {
	return NewValidator(AssetSchema)
}

func NewReconcileInputValidator() (*Validator, error) {
	return NewValidator(ReconcileInputSchema)
}

// Validate checks doc, which must be JSON-marshalable.
func (v *Validator) Validate(doc interface{}) (*ValidationResult, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		field := e.Field()
		if e.Type() == "required" {
			if p, ok := e.Details()["property"].(string); ok {
				field = p
			}
		}
		errs = append(errs, ValidationError{
			Field:   field,
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}

	return &ValidationResult{Valid: result.Valid(), Errors: errs}, nil
}

// ValidateAsset checks the descriptor fields of a legacy asset. Missing
// descriptor fields are reported as required.
func (v *Validator) ValidateAsset(a models.Asset) (*ValidationResult, error) {
	doc := map[string]interface{}{}
	for name, val := range map[string]interface{}{
		"year":      a.Year,
		"make":      a.Make,
		"model":     a.Model,
		"bodyStyle": a.BodyStyle,
	} {
		if val != nil {
			doc[name] = val
		}
	}
	return v.Validate(doc)
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}
