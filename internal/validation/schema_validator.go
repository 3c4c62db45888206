package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaValidator validates decoded JSON values against registered schemas
type SchemaValidator interface {
	// Register compiles a schema document under id
	Register(id string, schema map[string]interface{}) error
	// Validate checks a decoded JSON value (maps, slices, json.Number, ...)
	Validate(id string, value interface{}) error
	// ValidateBytes decodes data and validates it
	ValidateBytes(id string, data []byte) error
}

type validator struct {
	mu       sync.RWMutex
	compiler *jsonschema.Compiler
	schemas  map[string]*jsonschema.Schema
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() SchemaValidator {
	return &validator{
		compiler: jsonschema.NewCompiler(),
		schemas:  make(map[string]*jsonschema.Schema),
	}
}

func (v *validator) Register(id string, schema map[string]interface{}) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.schemas[id]; ok {
		return fmt.Errorf("schema %s already registered", id)
	}

	// The compiler only understands the JSON value model, so round-trip
	// through encoding/json to normalise Go slices and ints.
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to encode schema %s: %w", id, err)
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return fmt.Errorf("failed to parse schema %s: %w", id, err)
	}

	if err := v.compiler.AddResource(id, doc); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := v.compiler.Compile(id)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	v.schemas[id] = compiled
	return nil
}

func (v *validator) Validate(id string, value interface{}) error {
	v.mu.RLock()
	schema, ok := v.schemas[id]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("schema %s not registered", id)
	}

	if err := schema.Validate(value); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func (v *validator) ValidateBytes(id string, data []byte) error {
	value, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("failed to parse JSON data: %w", err)
	}
	return v.Validate(id, value)
}

// formatValidationError formats validation errors to be user-friendly
func formatValidationError(err error) error {
	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		var errors []string
		collectErrors(validationErr, &errors)
		return fmt.Errorf("schema validation failed: %s", strings.Join(errors, "; "))
	}
	return fmt.Errorf("validation error: %w", err)
}

// collectErrors walks the cause tree, keeping leaf messages only
func collectErrors(err *jsonschema.ValidationError, errors *[]string) {
	if len(err.Causes) == 0 {
		if msg := formatError(err); msg != "" {
			*errors = append(*errors, msg)
		}
		return
	}
	for _, cause := range err.Causes {
		collectErrors(cause, errors)
	}
}

func formatError(err *jsonschema.ValidationError) string {
	location := strings.Join(err.InstanceLocation, "/")
	if location == "" {
		location = "(root)"
	} else {
		location = "/" + location
	}

	keywords := ""
	if err.ErrorKind != nil {
		if keywordPath := err.ErrorKind.KeywordPath(); len(keywordPath) > 0 {
			keywords = strings.Join(keywordPath, ".")
		}
	}

	if keywords != "" {
		return fmt.Sprintf("at %s: %s validation failed", location, keywords)
	}
	return fmt.Sprintf("at %s: validation failed", location)
}
