package reconciler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/validation"
)

const (
	integerPattern = `^-?[0-9]+$`
	uuidPattern    = `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`
)

// recordSchema renders the JSON schema a record of the table must satisfy.
// Integers may arrive as digit strings; Postgres casts them.
func recordSchema(spec TableSpec) map[string]interface{} {
	props := make(map[string]interface{}, len(spec.Columns))
	for _, col := range spec.Columns {
		props[col.Name] = columnSchema(col.Type)
	}
	return map[string]interface{}{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"minProperties":        1,
		"additionalProperties": false,
		"properties":           props,
	}
}

func columnSchema(colType string) map[string]interface{} {
	switch colType {
	case TypeInteger:
		return map[string]interface{}{"type": []string{"integer", "string", "null"}, "pattern": integerPattern}
	case TypeDouble:
		return map[string]interface{}{"type": []string{"number", "null"}}
	case TypeUUID:
		return map[string]interface{}{"type": []string{"string", "null"}, "pattern": uuidPattern}
	case TypeJSONB:
		return map[string]interface{}{}
	default:
		return map[string]interface{}{"type": []string{"string", "null"}}
	}
}

// registerSchemas compiles one schema per allow-listed table
func registerSchemas(v validation.SchemaValidator) error {
	for _, spec := range Tables() {
		if err := v.Register(spec.Name, recordSchema(spec)); err != nil {
			return fmt.Errorf("%s %s: %w", ErrMsgSchemaRegisterFailed, spec.Name, err)
		}
	}
	return nil
}

// jsonValue converts a record into the plain JSON value model (maps of
// interface{}, json.Number) the schema validator walks
func jsonValue(record domain.Record) (map[string]interface{}, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
