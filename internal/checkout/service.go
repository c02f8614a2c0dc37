package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ucp-agent-poc/server/internal/catalog"
	errx "github.com/ucp-agent-poc/server/internal/core/error"
	logx "github.com/ucp-agent-poc/server/pkg/logger"
)

// DefaultCurrency is used when callers do not specify one.
const DefaultCurrency = "USD"

// LineItemInput requests a quantity of one catalog product.
type LineItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateRequest describes a partial session update. Nil fields are left
// untouched.
type UpdateRequest struct {
	LineItems     []LineItemInput
	DiscountCodes []string
	Buyer         *Buyer
}

// Service owns the checkout session lifecycle: create, update, discount
// application and completion.
type Service struct {
	catalog catalog.Catalog
	store   Store
}

func NewService(cat catalog.Catalog, store Store) *Service {
	return &Service{catalog: cat, store: store}
}

// Create resolves the requested products, builds line items with computed
// totals and stores a new session in ready_for_complete. Draft is a
// transient internal state callers never observe.
func (s *Service) Create(ctx context.Context, items []LineItemInput, currency string, buyer *Buyer) (*Session, error) {
	if currency == "" {
		currency = DefaultCurrency
	}

	session := &Session{
		ID:        uuid.NewString(),
		Currency:  currency,
		Status:    StatusDraft,
		Payment:   []PaymentHandler{{ID: "mock_payment_handler", Name: "dev.ucp.mock_payment"}},
		CreatedAt: time.Now().UTC(),
	}

	lineItems, err := s.buildLineItems(items)
	if err != nil {
		return nil, err
	}
	session.LineItems = lineItems

	if buyer != nil {
		session.SetBuyer(buyer.FullName, buyer.Email)
	}

	session.Status = StatusReadyForComplete

	if err := s.store.Put(ctx, session); err != nil {
		return nil, err
	}

	logx.Debug().
		Str("session_id", session.ID).
		Int("line_items", len(session.LineItems)).
		Msg("Checkout session created")

	return session, nil
}

// Get returns the session or NotFound.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

// Update applies a partial update. Line items replace the full set,
// re-resolving products. Invalid discount codes are skipped best-effort so a
// batch update never aborts as a whole. Status is not advanced here.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Session, error) {
	return s.store.Update(ctx, id, func(session *Session) error {
		if req.LineItems != nil {
			lineItems, err := s.buildLineItems(req.LineItems)
			if err != nil {
				return err
			}
			session.LineItems = lineItems
		}

		for _, code := range req.DiscountCodes {
			if err := session.ApplyDiscount(code); err != nil {
				logx.Warn().
					Str("session_id", session.ID).
					Str("code", code).
					Msg("Skipping invalid discount code")
			}
		}

		if req.Buyer != nil {
			session.SetBuyer(req.Buyer.FullName, req.Buyer.Email)
		}

		return nil
	})
}

// ApplyDiscount applies a single code, failing InvalidArgument when the code
// is not in the compiled-in table. The session is left unchanged on failure.
func (s *Service) ApplyDiscount(ctx context.Context, id string, code string) (*Session, error) {
	return s.store.Update(ctx, id, func(session *Session) error {
		return session.ApplyDiscount(code)
	})
}

// Complete marks the session completed. Completing an already-completed
// session is idempotent: the session is returned unchanged with no error.
func (s *Service) Complete(ctx context.Context, id string) (*Session, error) {
	return s.store.Update(ctx, id, func(session *Session) error {
		if session.Status == StatusCompleted {
			return nil
		}
		session.Status = StatusCompleted
		return nil
	})
}

func (s *Service) buildLineItems(items []LineItemInput) ([]LineItem, error) {
	lineItems := make([]LineItem, 0, len(items))
	for _, in := range items {
		product, ok := s.catalog.Lookup(in.ProductID)
		if !ok {
			return nil, errProductNotFound(in.ProductID)
		}

		quantity := in.Quantity
		if quantity < 1 {
			quantity = 1
		}

		lineItems = append(lineItems, LineItem{
			ID: uuid.NewString(),
			Item: Item{
				ID:    product.ID,
				Title: product.Title,
				Price: product.Price,
			},
			Quantity: quantity,
			Totals:   lineTotals(product.Price, quantity),
		})
	}
	return lineItems, nil
}

func errProductNotFound(id string) *errx.Error {
	return errx.NotFound("product %s not found", id)
}
