package tools

import (
	"github.com/cloudwego/eino/schema"
)

// The seven commerce operations exposed to the model. The dispatcher switches
// over these names; anything else is an unknown operation.
const (
	ToolSearchProducts    = "search_products"
	ToolGetProductDetails = "get_product_details"
	ToolAddToCart         = "add_to_cart"
	ToolViewCart          = "view_cart"
	ToolApplyDiscount     = "apply_discount"
	ToolCreateCheckout    = "create_checkout"
	ToolCompleteCheckout  = "complete_checkout"
)

// Infos returns the fixed tool-schema catalog bound to the chat model.
func Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolSearchProducts,
			Desc: "Search for products by query string or category. Use this when the user wants to find products.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type: "string",
					Desc: "Search query to find products (e.g., 'laptop', 'headphones', 'coffee maker')",
				},
				"category": {
					Type: "string",
					Desc: "Product category filter (e.g., 'Electronics', 'Home & Kitchen', 'Sports & Fitness')",
				},
			}),
		},
		{
			Name: ToolGetProductDetails,
			Desc: "Get detailed information about a specific product including description, technical specs and ratings.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_id": {
					Type:     "string",
					Desc:     "The ID of the product to get details for",
					Required: true,
				},
			}),
		},
		{
			Name: ToolAddToCart,
			Desc: "Add a product to the user's shopping cart. Use this when the user wants to add an item.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_id": {
					Type:     "string",
					Desc:     "The ID of the product to add to cart",
					Required: true,
				},
				"quantity": {
					Type: "integer",
					Desc: "Quantity to add (default is 1)",
				},
			}),
		},
		{
			Name: ToolViewCart,
			Desc: "Get the current contents of the user's shopping cart including items, quantities, and totals.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: ToolApplyDiscount,
			Desc: "Apply a discount code to the cart. Use this when the user wants to use a coupon or discount code.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"code": {
					Type:     "string",
					Desc:     "The discount code to apply (e.g., '10OFF', 'SAVE20', 'FREESHIP')",
					Required: true,
				},
			}),
		},
		{
			Name: ToolCreateCheckout,
			Desc: "Create a checkout session for the current cart. Use this when the user is ready to checkout.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"buyer_name": {
					Type: "string",
					Desc: "Buyer's full name",
				},
				"buyer_email": {
					Type: "string",
					Desc: "Buyer's email address",
				},
			}),
		},
		{
			Name: ToolCompleteCheckout,
			Desc: "Complete the checkout and finalize the purchase. Use this when the user confirms they want to complete the purchase.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
	}
}
