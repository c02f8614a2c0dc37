package server

// UCPVersion is the protocol version this server speaks.
const UCPVersion = "2026-01-11"

const (
	defaultBusinessID = "demo-store-001"

	capProductDiscovery = "dev.ucp.shopping.product_discovery"
	capCheckout         = "dev.ucp.shopping.checkout"
)

// Binding tells an agent how to reach a capability over a transport.
type Binding struct {
	Type    string   `json:"type"`
	Methods []string `json:"methods"`
	URL     string   `json:"url"`
}

// Capability is one declared capability of the business.
type Capability struct {
	Name     string         `json:"name"`
	Version  string         `json:"version"`
	Spec     string         `json:"spec,omitempty"`
	Config   map[string]any `json:"config"`
	Bindings []Binding      `json:"bindings,omitempty"`
}

// PaymentHandlerProfile declares a supported payment integration.
type PaymentHandlerProfile struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	Spec              string         `json:"spec"`
	ConfigSchema      string         `json:"config_schema"`
	InstrumentSchemas []string       `json:"instrument_schemas"`
	Config            map[string]any `json:"config"`
}

// Business identifies the merchant behind this server.
type Business struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DiscoveryProfile is the document served at /.well-known/ucp so agents can
// discover what this server offers and where.
type DiscoveryProfile struct {
	UCP struct {
		Version      string         `json:"version"`
		Services     map[string]any `json:"services"`
		Capabilities []Capability   `json:"capabilities"`
	} `json:"ucp"`
	Payment struct {
		Handlers []PaymentHandlerProfile `json:"handlers"`
	} `json:"payment"`
	Business Business `json:"business"`
}

func businessProfile(businessName, serverURL string) DiscoveryProfile {
	var p DiscoveryProfile

	p.UCP.Version = UCPVersion
	p.UCP.Services = map[string]any{}
	p.UCP.Capabilities = []Capability{
		{
			Name:    capProductDiscovery,
			Version: UCPVersion,
			Spec:    "https://ucp.dev/specs/shopping/product-discovery",
			Config:  map[string]any{},
			Bindings: []Binding{{
				Type:    "rest",
				Methods: []string{"GET"},
				URL:     serverURL + "/products",
			}},
		},
		{
			Name:    capCheckout,
			Version: UCPVersion,
			Spec:    "https://ucp.dev/specs/shopping/checkout",
			Config:  map[string]any{},
			Bindings: []Binding{{
				Type:    "rest",
				Methods: []string{"POST", "PUT"},
				URL:     serverURL + "/checkout-sessions",
			}},
		},
	}

	p.Payment.Handlers = []PaymentHandlerProfile{{
		ID:           "mock_payment_handler",
		Name:         "dev.ucp.mock_payment",
		Version:      UCPVersion,
		Spec:         "https://ucp.dev/specs/mock",
		ConfigSchema: "https://ucp.dev/schemas/mock.json",
		InstrumentSchemas: []string{
			"https://ucp.dev/schemas/shopping/types/card_payment_instrument.json",
		},
		Config: map[string]any{
			"supported_tokens": []string{"success_token", "fail_token"},
		},
	}}

	p.Business = Business{
		ID:   defaultBusinessID,
		Name: businessName,
		URL:  serverURL,
	}

	return p
}
