package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ucp-agent-poc/server/internal/agent"
	"github.com/ucp-agent-poc/server/internal/agent/model"
	"github.com/ucp-agent-poc/server/internal/catalog"
	"github.com/ucp-agent-poc/server/internal/checkout"
	errx "github.com/ucp-agent-poc/server/internal/core/error"
	logx "github.com/ucp-agent-poc/server/pkg/logger"
)

// Config holds the HTTP surface settings.
type Config struct {
	Addr             string `envconfig:"SERVER_ADDR" default:":8000"`
	PublicURL        string `envconfig:"SERVER_PUBLIC_URL" default:"http://localhost:8000"`
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
	BusinessName     string
	ModelName        string
	APIKeyConfigured bool
}

// Server exposes the commerce protocol surface plus the chat endpoint. Agent
// may be nil when no model credentials are configured; commerce endpoints
// keep working and chat degrades to a configuration notice.
type Server struct {
	cfg      Config
	catalog  catalog.Catalog
	checkout *checkout.Service
	agent    *agent.Agent
	convos   model.ConversationRepository
	states   model.ConversationStateRepository
}

func New(cfg Config, cat catalog.Catalog, svc *checkout.Service, ag *agent.Agent,
	convos model.ConversationRepository, states model.ConversationStateRepository) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{cfg: cfg, catalog: cat, checkout: svc, agent: ag, convos: convos, states: states}
}

// Router assembles the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(allowCORS)

	r.Get("/", s.handleRoot)
	r.Get("/.well-known/ucp", s.handleProfile)

	r.Get("/products", s.handleListProducts)
	r.Get("/products/{product_id}", s.handleGetProduct)

	r.Route("/checkout-sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateCheckout)
		r.Get("/{session_id}", s.handleGetCheckout)
		r.Put("/{session_id}", s.handleUpdateCheckout)
		r.Post("/{session_id}/complete", s.handleCompleteCheckout)
	})

	r.Route("/ai-agent", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/status", s.handleAgentStatus)
		r.Delete("/conversations/{conversation_id}", s.handleClearConversation)
	})

	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ---- protocol envelopes ----

type ucpResponseHeader struct {
	Version      string          `json:"version"`
	Capabilities []ucpCapability `json:"capabilities"`
}

type ucpCapability struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func ucpHeader(capability string) ucpResponseHeader {
	return ucpResponseHeader{
		Version:      UCPVersion,
		Capabilities: []ucpCapability{{Name: capability, Version: UCPVersion}},
	}
}

// checkoutResponse is the wire shape of a session: the stored session plus
// derived totals and the protocol header.
type checkoutResponse struct {
	UCP       ucpResponseHeader         `json:"ucp"`
	ID        string                    `json:"id"`
	LineItems []checkout.LineItem       `json:"line_items"`
	Buyer     *checkout.Buyer           `json:"buyer,omitempty"`
	Status    checkout.Status           `json:"status"`
	Currency  string                    `json:"currency"`
	Totals    []checkout.Total          `json:"totals"`
	Links     []any                     `json:"links"`
	Payment   []checkout.PaymentHandler `json:"payment_handlers"`
	Codes     []string                  `json:"codes,omitempty"`
	Applied   []checkout.Discount       `json:"applied,omitempty"`
}

func toCheckoutResponse(session *checkout.Session) *checkoutResponse {
	if session == nil {
		return nil
	}
	return &checkoutResponse{
		UCP:       ucpHeader(capCheckout),
		ID:        session.ID,
		LineItems: session.LineItems,
		Buyer:     session.Buyer,
		Status:    session.Status,
		Currency:  session.Currency,
		Totals:    session.Totals(),
		Links:     []any{},
		Payment:   session.Payment,
		Codes:     session.Codes,
		Applied:   session.Applied,
	}
}

// ---- handlers ----

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "UCP Business Server",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"profile":  "/.well-known/ucp",
			"products": "/products",
			"checkout": "/checkout-sessions",
			"chat":     "/ai-agent/chat",
		},
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, businessProfile(s.cfg.BusinessName, s.cfg.PublicURL))
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	var products []catalog.Product
	if query == "" && category == "" {
		products = s.catalog.All()
	} else {
		products = s.catalog.Search(query, category)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ucp":      ucpHeader(capProductDiscovery),
		"products": products,
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "product_id")
	product, ok := s.catalog.Lookup(id)
	if !ok {
		respondErr(w, errx.NotFound("product %s not found", id))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"ucp":     ucpHeader(capProductDiscovery),
		"product": product,
	})
}

type createCheckoutRequest struct {
	LineItems []checkout.LineItemInput `json:"line_items"`
	Currency  string                   `json:"currency"`
	Buyer     *checkout.Buyer          `json:"buyer"`
}

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errx.InvalidArgument("invalid JSON body"))
		return
	}
	if len(req.LineItems) == 0 {
		respondErr(w, errx.InvalidArgument("line_items must not be empty"))
		return
	}

	session, err := s.checkout.Create(r.Context(), req.LineItems, req.Currency, req.Buyer)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCheckoutResponse(session))
}

func (s *Server) handleGetCheckout(w http.ResponseWriter, r *http.Request) {
	session, err := s.checkout.Get(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCheckoutResponse(session))
}

type updateCheckoutRequest struct {
	LineItems []checkout.LineItemInput `json:"line_items"`
	Discounts *struct {
		Codes []string `json:"codes"`
	} `json:"discounts"`
	Buyer *checkout.Buyer `json:"buyer"`
}

func (s *Server) handleUpdateCheckout(w http.ResponseWriter, r *http.Request) {
	var req updateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errx.InvalidArgument("invalid JSON body"))
		return
	}

	update := checkout.UpdateRequest{
		LineItems: req.LineItems,
		Buyer:     req.Buyer,
	}
	if req.Discounts != nil {
		update.DiscountCodes = req.Discounts.Codes
	}

	session, err := s.checkout.Update(r.Context(), chi.URLParam(r, "session_id"), update)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCheckoutResponse(session))
}

func (s *Server) handleCompleteCheckout(w http.ResponseWriter, r *http.Request) {
	session, err := s.checkout.Complete(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCheckoutResponse(session))
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type chatResponse struct {
	ConversationID  string                 `json:"conversation_id"`
	Response        string                 `json:"response"`
	Cart            model.Cart             `json:"cart"`
	CheckoutSession *checkoutResponse      `json:"checkout_session"`
	FunctionCalls   []model.ToolCallRecord `json:"function_calls"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errx.InvalidArgument("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondErr(w, errx.InvalidArgument("message must not be empty"))
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	ctx := r.Context()

	state, err := s.states.LoadState(ctx, req.ConversationID)
	if err != nil {
		respondErr(w, err)
		return
	}

	if s.agent == nil {
		respondJSON(w, http.StatusOK, chatResponse{
			ConversationID: req.ConversationID,
			Response:       "The AI shopping assistant is not configured. Set GEMINI_API_KEY to enable it.",
			Cart:           state.Cart,
			FunctionCalls:  []model.ToolCallRecord{},
		})
		return
	}

	history, err := s.convos.LoadHistory(ctx, req.ConversationID)
	if err != nil {
		respondErr(w, err)
		return
	}

	var session *checkout.Session
	if state.SessionID != "" {
		session, err = s.checkout.Get(ctx, state.SessionID)
		if err != nil {
			// An expired or completed-and-purged session just means the
			// conversation starts the checkout over.
			if errx.CodeOf(err) != errx.CodeNotFound {
				respondErr(w, err)
				return
			}
			session = nil
		}
	}

	result, err := s.agent.HandleChatTurn(ctx, model.TurnRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		History:        history.Messages,
		Cart:           state.Cart,
		Session:        session,
	})
	if err != nil {
		respondErr(w, err)
		return
	}

	s.persistTurn(ctx, req.ConversationID, req.Message, result)

	respondJSON(w, http.StatusOK, chatResponse{
		ConversationID:  req.ConversationID,
		Response:        result.Response,
		Cart:            result.Cart,
		CheckoutSession: toCheckoutResponse(result.Session),
		FunctionCalls:   nonNilRecords(result.ToolCalls),
	})
}

// persistTurn saves the transcript pair and the shopping state. Failures are
// logged, not surfaced: the user already has their answer.
func (s *Server) persistTurn(ctx context.Context, conversationID, message string, result model.TurnResult) {
	if err := s.convos.AddMessage(ctx, conversationID, schema.UserMessage(message)); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to persist user message")
	}
	if err := s.convos.AddMessage(ctx, conversationID, schema.AssistantMessage(result.Response, nil)); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to persist assistant message")
	}

	state := model.ConversationState{Cart: result.Cart}
	if result.Session != nil {
		state.SessionID = result.Session.ID
	}
	if err := s.states.SaveState(ctx, conversationID, state); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to persist conversation state")
	}
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"agent_ready":        s.agent != nil,
		"model":              s.cfg.ModelName,
		"api_key_configured": s.cfg.APIKeyConfigured,
	})
}

func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversation_id")

	removed, err := s.convos.GetMessageCount(r.Context(), conversationID)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := s.convos.ClearHistory(r.Context(), conversationID); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "cleared",
		"messages_removed": removed,
	})
}

// ---- plumbing ----

func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, UCP-Agent, request-signature, idempotency-key, request-id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string    `json:"error"`
	Code  errx.Code `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logx.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondErr(w http.ResponseWriter, err error) {
	respondJSON(w, errx.StatusOf(err), errorResponse{
		Error: userMessage(err),
		Code:  errx.CodeOf(err),
	})
}

func userMessage(err error) string {
	var e *errx.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return errx.SystemErrorMessage
}

func nonNilRecords(records []model.ToolCallRecord) []model.ToolCallRecord {
	if records == nil {
		return []model.ToolCallRecord{}
	}
	return records
}
