package toolset

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edderleonardo/adk-agui-tutorial/internal/catalog"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/tools"
)

func newToolset(t *testing.T) *tools.Dispatcher {
	t.Helper()
	products, err := catalog.Open(catalog.Config{Driver: catalog.DriverSQLite}, logr.Discard())
	require.NoError(t, err)
	reg := tools.NewRegistry()
	require.NoError(t, Register(reg, products))
	assert.Equal(t, []string{"get_weather", "search_products", "get_product_details", "generate_poem"}, reg.Names())
	return tools.NewDispatcher(reg)
}

// asJSON round-trips a payload through JSON so assertions see the same shapes
// a client would.
func asJSON(t *testing.T, payload any) map[string]any {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestGetWeather(t *testing.T) {
	disp := newToolset(t)

	res := disp.Invoke(context.Background(), tools.Invocation{
		ID:   "inv-1",
		Tool: "get_weather",
		Args: map[string]any{"location": "Paris"},
	})
	require.Equal(t, tools.OutcomeSuccess, res.Outcome, res.Err)

	report := res.Payload.(map[string]any)
	assert.Equal(t, "Paris", report["location"])
	assert.Equal(t, "Celsius", report["unit"])

	temp := report["temperature"].(int)
	assert.GreaterOrEqual(t, temp, 15)
	assert.LessOrEqual(t, temp, 35)
	humidity := report["humidity"].(int)
	assert.GreaterOrEqual(t, humidity, 30)
	assert.LessOrEqual(t, humidity, 90)
	wind := report["wind_speed"].(int)
	assert.GreaterOrEqual(t, wind, 5)
	assert.LessOrEqual(t, wind, 30)
	assert.Contains(t, weatherConditions, report["condition"])
}

func TestSearchProductsWithFilters(t *testing.T) {
	disp := newToolset(t)

	res := disp.Invoke(context.Background(), tools.Invocation{
		ID:   "inv-1",
		Tool: "search_products",
		Args: map[string]any{
			"query":         "keyboard",
			"max_price":     100.0,
			"in_stock_only": true,
		},
	})
	require.Equal(t, tools.OutcomeSuccess, res.Outcome, res.Err)

	body := asJSON(t, res.Payload)
	assert.Equal(t, "keyboard", body["query"])
	assert.Equal(t, float64(1), body["total_results"])

	products := body["products"].([]any)
	require.Len(t, products, 1)
	assert.Equal(t, "prod_002", products[0].(map[string]any)["id"])

	applied := body["filters_applied"].(map[string]any)
	assert.Nil(t, applied["category"])
	assert.Equal(t, float64(100), applied["max_price"])
	assert.Equal(t, true, applied["in_stock_only"])
}

func TestSearchProductsNoMatches(t *testing.T) {
	disp := newToolset(t)

	res := disp.Invoke(context.Background(), tools.Invocation{
		ID:   "inv-1",
		Tool: "search_products",
		Args: map[string]any{"query": "teapot"},
	})
	require.Equal(t, tools.OutcomeSuccess, res.Outcome, res.Err)

	body := asJSON(t, res.Payload)
	assert.Equal(t, float64(0), body["total_results"])
	assert.Equal(t, []any{}, body["products"], "empty results serialize as an array, not null")

	applied := body["filters_applied"].(map[string]any)
	assert.Nil(t, applied["category"])
	assert.Nil(t, applied["max_price"])
	assert.Equal(t, false, applied["in_stock_only"])
}

func TestGetProductDetails(t *testing.T) {
	disp := newToolset(t)

	res := disp.Invoke(context.Background(), tools.Invocation{
		ID:   "inv-1",
		Tool: "get_product_details",
		Args: map[string]any{"product_id": "prod_001"},
	})
	require.Equal(t, tools.OutcomeSuccess, res.Outcome, res.Err)

	body := asJSON(t, res.Payload)
	assert.Equal(t, "prod_001", body["id"])
	assert.Equal(t, "Wireless Headphones Pro", body["name"])
	assert.Equal(t, float64(150), body["reviews_count"])
	assert.Equal(t, "2 years", body["warranty"])
	assert.Equal(t, "Free shipping on orders over $50", body["shipping"])
}

func TestGetProductDetailsUnknownID(t *testing.T) {
	disp := newToolset(t)

	res := disp.Invoke(context.Background(), tools.Invocation{
		ID:   "inv-1",
		Tool: "get_product_details",
		Args: map[string]any{"product_id": "prod_999"},
	})
	// An unknown id is a domain answer, not an execution failure.
	require.Equal(t, tools.OutcomeSuccess, res.Outcome, res.Err)

	body := asJSON(t, res.Payload)
	assert.Equal(t, "Product not found: prod_999", body["error"])
	assert.Equal(t,
		[]any{"prod_001", "prod_002", "prod_003", "prod_004", "prod_005"},
		body["available_ids"])
}

func TestGeneratePoemPassthrough(t *testing.T) {
	disp := newToolset(t)

	res := disp.Invoke(context.Background(), tools.Invocation{
		ID:   "inv-1",
		Tool: "generate_poem",
		Args: map[string]any{
			"topic": "the sea",
			"style": "haiku",
			"poem":  "waves fold into foam",
		},
	})
	require.Equal(t, tools.OutcomeSuccess, res.Outcome, res.Err)

	body := res.Payload.(map[string]any)
	assert.Equal(t, "the sea", body["topic"])
	assert.Equal(t, "haiku", body["style"])
	assert.Equal(t, "waves fold into foam", body["poem"])
}

func TestGeneratePoemRequiresAllParams(t *testing.T) {
	disp := newToolset(t)

	res := disp.Invoke(context.Background(), tools.Invocation{
		ID:   "inv-1",
		Tool: "generate_poem",
		Args: map[string]any{"topic": "the sea"},
	})
	assert.Equal(t, tools.OutcomeInvalidArguments, res.Outcome)
	assert.Contains(t, res.Err, `"poem"`)
	assert.Contains(t, res.Err, `"style"`)
}
