package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groveworld/guardian/internal/actions"
	"github.com/groveworld/guardian/internal/catalog"
	"github.com/groveworld/guardian/internal/violation"
)

func testCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.Register(catalog.CategoryCrop, "crop-wheat", "crop-corn")
	cat.Register(catalog.CategoryItem, "item-seed-wheat", "item-watering-can")
	return cat
}

func TestValidPayloadsPass(t *testing.T) {
	cv := NewContextValidator(testCatalog())

	cases := map[actions.Kind]string{
		actions.KindPlant:    `{"target_id":"plot-1","crop_id":"crop-wheat"}`,
		actions.KindHarvest:  `{"target_id":"plot-1"}`,
		actions.KindWater:    `{"target_id":"plot-1"}`,
		actions.KindPurchase: `{"item_id":"item-seed-wheat","quantity":3}`,
		actions.KindSell:     `{"item_id":"item-watering-can","quantity":1}`,
	}
	for kind, payload := range cases {
		assert.Nil(t, cv.Check(kind, json.RawMessage(payload)), "kind %s", kind)
	}
}

func TestUnknownKindDenied(t *testing.T) {
	cv := NewContextValidator(testCatalog())

	fault := cv.Check(actions.Kind("teleport"), json.RawMessage(`{}`))
	require.NotNil(t, fault)
	assert.Equal(t, violation.KindContextInvalid, fault.Kind)
	assert.Equal(t, float64(0), fault.Detail["known_kind"])
}

func TestUnparseablePayloadDenied(t *testing.T) {
	cv := NewContextValidator(testCatalog())

	fault := cv.Check(actions.KindHarvest, json.RawMessage(`{"target_id":`))
	require.NotNil(t, fault)
	assert.Equal(t, violation.KindContextInvalid, fault.Kind)
	assert.Equal(t, float64(0), fault.Detail["parseable"])
}

func TestSchemaViolationsDenied(t *testing.T) {
	cv := NewContextValidator(testCatalog())

	cases := map[string]struct {
		kind    actions.Kind
		payload string
	}{
		"missing required field": {actions.KindPlant, `{"target_id":"plot-1"}`},
		"empty target":           {actions.KindHarvest, `{"target_id":""}`},
		"zero quantity":          {actions.KindPurchase, `{"item_id":"item-seed-wheat","quantity":0}`},
		"negative quantity":      {actions.KindSell, `{"item_id":"item-seed-wheat","quantity":-2}`},
		"fractional quantity":    {actions.KindPurchase, `{"item_id":"item-seed-wheat","quantity":1.5}`},
		"wrong type":             {actions.KindPurchase, `{"item_id":42,"quantity":1}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			fault := cv.Check(tc.kind, json.RawMessage(tc.payload))
			require.NotNil(t, fault)
			assert.Equal(t, violation.KindContextInvalid, fault.Kind)
			assert.Equal(t, float64(0), fault.Detail["schema_valid"])
		})
	}
}

func TestUnknownEntityDenied(t *testing.T) {
	cv := NewContextValidator(testCatalog())

	fault := cv.Check(actions.KindPlant, json.RawMessage(`{"target_id":"plot-1","crop_id":"crop-moon"}`))
	require.NotNil(t, fault)
	assert.Equal(t, violation.KindContextInvalid, fault.Kind)
	assert.Equal(t, float64(0), fault.Detail["entity_known"])
}

func TestWrongCategoryDenied(t *testing.T) {
	// An item id where a crop id belongs is spoofing, not a typo.
	cv := NewContextValidator(testCatalog())

	fault := cv.Check(actions.KindPlant, json.RawMessage(`{"target_id":"plot-1","crop_id":"item-seed-wheat"}`))
	require.NotNil(t, fault)
	assert.Equal(t, violation.KindContextInvalid, fault.Kind)
	assert.Equal(t, float64(0), fault.Detail["entity_known"])
}

func TestNilCatalogSkipsEntityCheck(t *testing.T) {
	cv := NewContextValidator(nil)

	assert.Nil(t, cv.Check(actions.KindPlant, json.RawMessage(`{"target_id":"plot-1","crop_id":"anything"}`)))
}
