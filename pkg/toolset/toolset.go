// Package toolset contains the reference tools exposed to the agent: weather
// lookup, product search and detail over the catalog, and poem formatting.
// Each tool is a pure function over validated arguments; errors surface
// through the dispatcher's result envelope.
package toolset

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/edderleonardo/adk-agui-tutorial/internal/catalog"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/tools"
)

// Register adds the reference tools to the registry.
func Register(reg *tools.Registry, products *catalog.Store) error {
	for _, t := range []tools.Tool{
		weatherTool(),
		searchProductsTool(products),
		productDetailsTool(products),
		generatePoemTool(),
	} {
		if err := reg.Register(t.Schema, t.Fn); err != nil {
			return err
		}
	}
	return nil
}

var weatherConditions = []string{"sunny", "cloudy", "rainy", "partly cloudy", "windy", "stormy"}

func weatherTool() tools.Tool {
	return tools.Tool{
		Schema: tools.Schema{
			Name:        "get_weather",
			Description: "Get current weather for a specified location.",
			Params: []tools.Param{
				{Name: "location", Type: tools.TypeString, Description: "The city to get the weather for", Required: true},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{
				"location":    args["location"].(string),
				"temperature": 15 + rand.IntN(21),
				"condition":   weatherConditions[rand.IntN(len(weatherConditions))],
				"humidity":    30 + rand.IntN(61),
				"wind_speed":  5 + rand.IntN(26),
				"unit":        "Celsius",
			}, nil
		},
	}
}

type searchResult struct {
	Query          string            `json:"query"`
	FiltersApplied map[string]any    `json:"filters_applied"`
	TotalResults   int               `json:"total_results"`
	Products       []catalog.Product `json:"products"`
}

func searchProductsTool(products *catalog.Store) tools.Tool {
	return tools.Tool{
		Schema: tools.Schema{
			Name:        "search_products",
			Description: "Search products in the database with optional filters.",
			Params: []tools.Param{
				{Name: "query", Type: tools.TypeString, Description: "Search query for products", Required: true},
				{Name: "category", Type: tools.TypeString, Description: "Filter by category"},
				{Name: "max_price", Type: tools.TypeNumber, Description: "Maximum price filter"},
				{Name: "in_stock_only", Type: tools.TypeBoolean, Description: "Only show in-stock items", Default: false},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			query := args["query"].(string)

			var filters catalog.Filters
			applied := map[string]any{
				"category":      nil,
				"max_price":     nil,
				"in_stock_only": false,
			}
			if v, ok := args["category"].(string); ok {
				filters.Category = &v
				applied["category"] = v
			}
			if v, ok := args["max_price"].(float64); ok {
				filters.MaxPrice = &v
				applied["max_price"] = v
			}
			if v, ok := args["in_stock_only"].(bool); ok {
				filters.InStockOnly = v
				applied["in_stock_only"] = v
			}

			matches, err := products.Search(ctx, query, filters)
			if err != nil {
				return nil, err
			}
			if matches == nil {
				matches = []catalog.Product{}
			}
			return searchResult{
				Query:          query,
				FiltersApplied: applied,
				TotalResults:   len(matches),
				Products:       matches,
			}, nil
		},
	}
}

type productDetails struct {
	catalog.Product
	ReviewsCount int    `json:"reviews_count"`
	Warranty     string `json:"warranty"`
	Shipping     string `json:"shipping"`
}

func productDetailsTool(products *catalog.Store) tools.Tool {
	return tools.Tool{
		Schema: tools.Schema{
			Name:        "get_product_details",
			Description: "Get detailed information about a specific product.",
			Params: []tools.Param{
				{Name: "product_id", Type: tools.TypeString, Description: "The product ID to get details for", Required: true},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			id := args["product_id"].(string)

			p, err := products.Get(ctx, id)
			if errors.Is(err, catalog.ErrNotFound) {
				// Unknown ids are a domain answer, not an execution failure:
				// the agent is told which ids exist and can recover.
				ids, idsErr := products.IDs(ctx)
				if idsErr != nil {
					return nil, idsErr
				}
				return map[string]any{
					"error":         fmt.Sprintf("Product not found: %s", id),
					"available_ids": ids,
				}, nil
			}
			if err != nil {
				return nil, err
			}
			return productDetails{
				Product:      *p,
				ReviewsCount: 150,
				Warranty:     "2 years",
				Shipping:     "Free shipping on orders over $50",
			}, nil
		},
	}
}

func generatePoemTool() tools.Tool {
	return tools.Tool{
		Schema: tools.Schema{
			Name:        "generate_poem",
			Description: "Return a structured poem for frontend rendering. The agent generates the poem and passes it here.",
			Params: []tools.Param{
				{Name: "topic", Type: tools.TypeString, Description: "The topic or theme of the poem", Required: true},
				{Name: "poem", Type: tools.TypeString, Description: "The generated poem as a string", Required: true},
				{Name: "style", Type: tools.TypeString, Description: "The style of the poem, e.g., haiku, sonnet, free verse", Required: true},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{
				"topic": args["topic"],
				"style": args["style"],
				"poem":  args["poem"],
			}, nil
		},
	}
}
