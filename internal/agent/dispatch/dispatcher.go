package dispatch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ucp-agent-poc/server/internal/agent/model"
	"github.com/ucp-agent-poc/server/internal/agent/tools"
	"github.com/ucp-agent-poc/server/internal/catalog"
	"github.com/ucp-agent-poc/server/internal/checkout"
	errx "github.com/ucp-agent-poc/server/internal/core/error"
	logx "github.com/ucp-agent-poc/server/pkg/logger"
)

// Placeholder buyer used when the model omits buyer details.
const (
	defaultBuyerName  = "Customer"
	defaultBuyerEmail = "customer@example.com"
)

// Result is the uniform outcome of every dispatched operation. Cart and
// Session are the new state to thread into the next call; inputs are never
// mutated. Success and Err are mutually exclusive.
type Result struct {
	Success bool
	Data    any
	Err     *errx.Error
	Cart    model.Cart
	Session *checkout.Session
}

// Typed payloads per operation so the loop can inspect outcomes without
// string-keyed maps.

type SearchData struct {
	Query    string            `json:"query,omitempty"`
	Category string            `json:"category,omitempty"`
	Products []catalog.Product `json:"products"`
	Count    int               `json:"count"`
}

type AddToCartData struct {
	ProductID string `json:"product_id"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
	Message   string `json:"message"`
}

type CartViewData struct {
	Items      model.Cart `json:"items"`
	Subtotal   int64      `json:"subtotal"`
	ItemCount  int        `json:"item_count"`
	TotalItems int        `json:"total_items"`
}

type DiscountData struct {
	Code    string `json:"code"`
	Applied bool   `json:"discount_applied"`
	Message string `json:"message"`
}

type CheckoutData struct {
	SessionID string          `json:"session_id"`
	Status    checkout.Status `json:"status"`
	Message   string          `json:"message"`
}

// Dispatcher maps the seven operation names onto the catalog and checkout
// collaborators. The operation set is closed: dispatch is a switch, not a
// registry.
type Dispatcher struct {
	catalog  catalog.Catalog
	checkout *checkout.Service
}

func New(cat catalog.Catalog, svc *checkout.Service) *Dispatcher {
	return &Dispatcher{catalog: cat, checkout: svc}
}

type searchArgs struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

type detailArgs struct {
	ProductID string `json:"product_id"`
}

type addToCartArgs struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type discountArgs struct {
	Code string `json:"code"`
}

type createCheckoutArgs struct {
	BuyerName  string `json:"buyer_name"`
	BuyerEmail string `json:"buyer_email"`
}

// Dispatch runs one named operation against the given state and returns the
// uniform result. Unknown names fail UnknownOperation without touching
// state. Errors are captured in the result rather than returned, so the
// caller can relay them to the model as tool output.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, rawArgs string, cart model.Cart, session *checkout.Session) Result {
	res := Result{Cart: cart, Session: session}

	switch name {
	case tools.ToolSearchProducts:
		var args searchArgs
		decodeArgs(rawArgs, &args)
		query := strings.TrimSpace(args.Query)
		category := strings.TrimSpace(args.Category)
		products := d.catalog.Search(query, category)
		res.Data = SearchData{Query: query, Category: category, Products: products, Count: len(products)}
		res.Success = true

	case tools.ToolGetProductDetails:
		var args detailArgs
		decodeArgs(rawArgs, &args)
		product, ok := d.catalog.Lookup(strings.TrimSpace(args.ProductID))
		if !ok {
			res.Err = errx.NotFound("product %s not found", args.ProductID)
			return res
		}
		res.Data = product
		res.Success = true

	case tools.ToolAddToCart:
		var args addToCartArgs
		decodeArgs(rawArgs, &args)
		product, ok := d.catalog.Lookup(strings.TrimSpace(args.ProductID))
		if !ok {
			res.Err = errx.NotFound("product %s not found", args.ProductID)
			return res
		}
		quantity := args.Quantity
		if quantity < 1 {
			quantity = 1
		}
		res.Cart = cart.Add(model.CartItem{
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Quantity:  quantity,
		})
		res.Data = AddToCartData{
			ProductID: product.ID,
			Product:   product.Title,
			Quantity:  quantity,
			Message:   "Added " + product.Title + " to cart",
		}
		res.Success = true

	case tools.ToolViewCart:
		res.Data = CartViewData{
			Items:      cart,
			Subtotal:   cart.Subtotal(),
			ItemCount:  len(cart),
			TotalItems: cart.TotalQuantity(),
		}
		res.Success = true

	case tools.ToolApplyDiscount:
		var args discountArgs
		decodeArgs(rawArgs, &args)
		code := strings.ToUpper(strings.TrimSpace(args.Code))
		if len(cart) == 0 {
			res.Err = errx.InvalidArgument("cart is empty, add items before applying a discount")
			return res
		}

		target := session
		if target == nil {
			created, err := d.checkout.Create(ctx, lineItemInputs(cart), checkout.DefaultCurrency,
				&checkout.Buyer{FullName: defaultBuyerName, Email: defaultBuyerEmail})
			if err != nil {
				res.Err = asErr(err)
				return res
			}
			target = created
			res.Session = created
		} else {
			// The cart may have changed since the session was created; refresh
			// the line items so the discount is computed against the live
			// subtotal.
			refreshed, err := d.checkout.Update(ctx, target.ID, checkout.UpdateRequest{
				LineItems: lineItemInputs(cart),
			})
			if err != nil {
				res.Err = asErr(err)
				return res
			}
			target = refreshed
			res.Session = refreshed
		}

		updated, err := d.checkout.ApplyDiscount(ctx, target.ID, code)
		if err != nil {
			// The created or refreshed session stays threaded so the
			// model can retry with a valid code.
			res.Err = asErr(err)
			return res
		}
		res.Session = updated
		res.Data = DiscountData{
			Code:    code,
			Applied: true,
			Message: "Discount code " + code + " applied successfully",
		}
		res.Success = true

	case tools.ToolCreateCheckout:
		var args createCheckoutArgs
		decodeArgs(rawArgs, &args)
		if len(cart) == 0 {
			res.Err = errx.InvalidArgument("cart is empty, add items before checkout")
			return res
		}
		buyer := &checkout.Buyer{
			FullName: orDefault(args.BuyerName, defaultBuyerName),
			Email:    orDefault(args.BuyerEmail, defaultBuyerEmail),
		}
		session, err := d.checkout.Create(ctx, lineItemInputs(cart), checkout.DefaultCurrency, buyer)
		if err != nil {
			res.Err = asErr(err)
			return res
		}
		res.Session = session
		res.Data = CheckoutData{
			SessionID: session.ID,
			Status:    session.Status,
			Message:   "Checkout session created",
		}
		res.Success = true

	case tools.ToolCompleteCheckout:
		if session == nil {
			res.Err = errx.InvalidArgument("no checkout session, create one first")
			return res
		}
		completed, err := d.checkout.Complete(ctx, session.ID)
		if err != nil {
			res.Err = asErr(err)
			return res
		}
		res.Cart = model.Cart{}
		res.Session = nil
		res.Data = CheckoutData{
			SessionID: completed.ID,
			Status:    completed.Status,
			Message:   "Purchase completed successfully!",
		}
		res.Success = true

	default:
		res.Err = errx.UnknownOperation(name)
	}

	return res
}

// decodeArgs tolerates malformed argument JSON: the model occasionally emits
// garbage and the operation should still run with defaults rather than fail
// hard.
func decodeArgs(raw string, into any) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		logx.Warn().Str("arguments", raw).Err(err).Msg("Ignoring undecodable tool arguments")
	}
}

func lineItemInputs(cart model.Cart) []checkout.LineItemInput {
	inputs := make([]checkout.LineItemInput, len(cart))
	for i, item := range cart {
		inputs[i] = checkout.LineItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return inputs
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func asErr(err error) *errx.Error {
	if e, ok := err.(*errx.Error); ok {
		return e
	}
	return errx.New(err, errx.CodeInternal, 500, errx.SystemErrorMessage)
}
