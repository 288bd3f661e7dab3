package validation

import (
	"fmt"
	"strings"

	apperrors "notification-gateway/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// NotificationRequestSchema describes POST /api/notifications/send bodies.
const NotificationRequestSchema = `{
	"type": "object",
	"properties": {
		"tags": {"type": ["array", "null"], "items": {"type": "string", "minLength": 1}},
		"title": {"type": ["string", "null"]},
		"body": {"type": ["string", "null"]},
		"json": {"type": ["string", "null"]},
		"sound": {"type": ["string", "null"]},
		"isCritical": {"type": "boolean"}
	}
}`

// RegistrationRequestSchema describes POST /api/notifications/register bodies.
const RegistrationRequestSchema = `{
	"type": "object",
	"required": ["userId", "os", "token"],
	"properties": {
		"clientId": {"type": "integer"},
		"buildingId": {"type": "integer"},
		"userId": {"type": "string", "minLength": 1},
		"os": {"type": "string", "minLength": 1},
		"token": {"type": "string", "minLength": 1}
	}
}`

// Validator checks raw JSON documents against a compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// MustValidator panics on an invalid schema; used for the package constants.
func MustValidator(schemaJSON string) *Validator {
	v, err := NewValidator(schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate returns a VALIDATION_FAILED StandardError listing every violation.
func (v *Validator) Validate(document []byte) error {
	if len(strings.TrimSpace(string(document))) == 0 {
		return apperrors.NewValidationError("request body is required")
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("malformed JSON: %v", err))
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		stdErr := apperrors.NewValidationError(strings.Join(errs, "; "))
		stdErr.Metadata = map[string]interface{}{"violations": errs}
		return stdErr
	}

	return nil
}
