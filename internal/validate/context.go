package validate

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/groveworld/guardian/internal/actions"
	"github.com/groveworld/guardian/internal/catalog"
	"github.com/groveworld/guardian/internal/violation"
)

// Per-kind payload schemas. These guard request SHAPE only — required
// fields and basic types. Domain rules proper (ownership, maturity,
// affordability) belong to the gameplay collaborator.
var kindSchemas = map[actions.Kind]string{
	actions.KindPlant: `{
		"type": "object",
		"required": ["target_id", "crop_id"],
		"properties": {
			"target_id": {"type": "string", "minLength": 1},
			"crop_id":   {"type": "string", "minLength": 1}
		}
	}`,
	actions.KindHarvest: `{
		"type": "object",
		"required": ["target_id"],
		"properties": {
			"target_id": {"type": "string", "minLength": 1}
		}
	}`,
	actions.KindWater: `{
		"type": "object",
		"required": ["target_id"],
		"properties": {
			"target_id": {"type": "string", "minLength": 1}
		}
	}`,
	actions.KindPurchase: `{
		"type": "object",
		"required": ["item_id", "quantity"],
		"properties": {
			"item_id":  {"type": "string", "minLength": 1},
			"quantity": {"type": "integer", "minimum": 1}
		}
	}`,
	actions.KindSell: `{
		"type": "object",
		"required": ["item_id", "quantity"],
		"properties": {
			"item_id":  {"type": "string", "minLength": 1},
			"quantity": {"type": "integer", "minimum": 1}
		}
	}`,
}

// referencedEntities lists, per kind, which payload field must reference
// which catalog category.
var referencedEntities = map[actions.Kind]map[string]catalog.Category{
	actions.KindPlant:    {"crop_id": catalog.CategoryCrop},
	actions.KindPurchase: {"item_id": catalog.CategoryItem},
	actions.KindSell:     {"item_id": catalog.CategoryItem},
}

// ContextValidator rejects malformed or spoofed request shapes: unknown
// kinds, schema failures, and referenced ids of the wrong category.
type ContextValidator struct {
	schemas map[actions.Kind]*jsonschema.Schema
	catalog *catalog.Catalog
}

// NewContextValidator compiles the per-kind schemas. Compilation failure
// is a programming error, so it panics at startup rather than limping.
func NewContextValidator(cat *catalog.Catalog) *ContextValidator {
	compiled := make(map[actions.Kind]*jsonschema.Schema, len(kindSchemas))
	for kind, src := range kindSchemas {
		s, err := jsonschema.CompileString(fmt.Sprintf("%s.schema.json", kind), src)
		if err != nil {
			panic(fmt.Sprintf("compile schema for %s: %v", kind, err))
		}
		compiled[kind] = s
	}
	return &ContextValidator{
		schemas: compiled,
		catalog: cat,
	}
}

// Check validates the payload shape and referenced entity categories.
func (cv *ContextValidator) Check(kind actions.Kind, payload json.RawMessage) *violation.Fault {
	schema, ok := cv.schemas[kind]
	if !ok {
		return &violation.Fault{
			Kind:   violation.KindContextInvalid,
			Detail: violation.Detail{"known_kind": 0},
		}
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return &violation.Fault{
			Kind:   violation.KindContextInvalid,
			Detail: violation.Detail{"parseable": 0},
		}
	}
	if err := schema.Validate(decoded); err != nil {
		return &violation.Fault{
			Kind:   violation.KindContextInvalid,
			Detail: violation.Detail{"parseable": 1, "schema_valid": 0},
		}
	}

	refs, ok := referencedEntities[kind]
	if !ok || cv.catalog == nil {
		return nil
	}
	fields, _ := decoded.(map[string]any)
	for field, category := range refs {
		id, _ := fields[field].(string)
		if !cv.catalog.Has(id, category) {
			return &violation.Fault{
				Kind:   violation.KindContextInvalid,
				Detail: violation.Detail{"schema_valid": 1, "entity_known": 0},
			}
		}
	}
	return nil
}
