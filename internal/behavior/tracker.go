package behavior

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/ucp-agent-poc/server/internal/agent/model"
	"github.com/ucp-agent-poc/server/internal/catalog"
)

// Tracker accumulates shopping signals for one conversation and renders a
// natural-language summary used to bias the model's recommendations. It is
// telemetry only: nothing here alters control flow.
type Tracker struct {
	catalog catalog.Catalog

	searched []string
	viewed   []string
	carted   []string

	preferences []string
	queries     []string
	categories  []string
}

func NewTracker(cat catalog.Catalog) *Tracker {
	return &Tracker{catalog: cat}
}

// TrackSearch records a search and the products it surfaced.
func (t *Tracker) TrackSearch(query, category string, results []catalog.Product) {
	if query != "" {
		t.queries = append(t.queries, strings.ToLower(query))
	}
	if category != "" {
		t.categories = append(t.categories, category)
	}
	for _, p := range results {
		t.searched = appendUnique(t.searched, p.ID)
	}
}

// TrackView records that a product surfaced in front of the user.
func (t *Tracker) TrackView(productID string) {
	t.viewed = appendUnique(t.viewed, productID)
}

// TrackCartAddition records a product added to the cart.
func (t *Tracker) TrackCartAddition(productID string) {
	t.carted = appendUnique(t.carted, productID)
}

// TrackPreference records an explicit preference mined from a user turn.
func (t *Tracker) TrackPreference(text string) {
	t.preferences = append(t.preferences, text)
}

// priceRange over every product the user touched, in minor units.
type priceRange struct {
	min, max, avg int64
}

func (t *Tracker) analyzePriceRange() (priceRange, bool) {
	var prices []int64
	for _, id := range unionIDs(t.searched, t.viewed, t.carted) {
		if p, ok := t.catalog.Lookup(id); ok && p.Price > 0 {
			prices = append(prices, p.Price)
		}
	}
	if len(prices) == 0 {
		return priceRange{}, false
	}

	r := priceRange{min: prices[0], max: prices[0]}
	var sum int64
	for _, p := range prices {
		if p < r.min {
			r.min = p
		}
		if p > r.max {
			r.max = p
		}
		sum += p
	}
	r.avg = sum / int64(len(prices))
	return r, true
}

func (t *Tracker) analyzeBrands() []string {
	return t.topAttribute(unionIDs(t.carted, t.viewed), "Brand", 3)
}

func (t *Tracker) analyzeDelivery() []string {
	return t.topAttribute(unionIDs(t.carted, t.viewed), "Delivery", 2)
}

func (t *Tracker) analyzeCategories() []string {
	counts := map[string]int{}
	order := []string{}
	bump := func(cat string) {
		if cat == "" {
			return
		}
		if counts[cat] == 0 {
			order = append(order, cat)
		}
		counts[cat]++
	}

	for _, id := range unionIDs(t.searched, t.viewed, t.carted) {
		if p, ok := t.catalog.Lookup(id); ok {
			bump(p.Category)
		}
	}
	for _, cat := range t.categories {
		bump(cat)
	}

	return topN(counts, order, 3)
}

// analyzeRatingFloor returns the lowest rating among touched products.
func (t *Tracker) analyzeRatingFloor() (float64, bool) {
	var floor float64
	found := false
	for _, id := range unionIDs(t.carted, t.viewed) {
		p, ok := t.catalog.Lookup(id)
		if !ok || p.AverageRating == 0 {
			continue
		}
		if !found || p.AverageRating < floor {
			floor = p.AverageRating
		}
		found = true
	}
	return floor, found
}

// shoppingPattern labels the overall behavior with a small fixed vocabulary.
func (t *Tracker) shoppingPattern() string {
	var patterns []string

	if r, ok := t.analyzePriceRange(); ok {
		if r.avg < 5000 {
			patterns = append(patterns, "budget-conscious")
		}
		if r.avg > 20000 {
			patterns = append(patterns, "premium-focused")
		}
	}

	if brands := t.analyzeBrands(); len(brands) == 1 && len(t.carted) > 0 {
		patterns = append(patterns, "brand-loyal")
	}

	if floor, ok := t.analyzeRatingFloor(); ok && floor >= 4.0 {
		patterns = append(patterns, "quality-focused")
	}

	if len(t.viewed) > len(t.carted)*2 {
		patterns = append(patterns, "comparison-shopper")
	}

	if len(patterns) == 0 {
		return "general shopper"
	}
	return strings.Join(patterns, ", ")
}

// Summary renders the behavior digest, or ok=false when no signal exists.
func (t *Tracker) Summary() (string, bool) {
	prices, hasPrices := t.analyzePriceRange()
	brands := t.analyzeBrands()
	categories := t.analyzeCategories()

	if !hasPrices && len(brands) == 0 && len(categories) == 0 && len(t.preferences) == 0 {
		return "", false
	}

	var parts []string

	if len(t.preferences) > 0 {
		recent := t.preferences
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		parts = append(parts, "The user has expressed preferences: "+strings.Join(recent, ", "))
	}

	if hasPrices {
		switch {
		case prices.avg < 3000:
			parts = append(parts, "The user tends to shop for budget-friendly products")
		case prices.avg > 15000:
			parts = append(parts, "The user prefers premium products")
		default:
			parts = append(parts, fmt.Sprintf("The user typically shops for products in the $%d-$%d range",
				prices.min/100, prices.max/100))
		}
	}

	if len(brands) > 0 {
		parts = append(parts, "The user shows preference for "+strings.Join(brands, ", ")+" brands")
	}

	if len(categories) > 0 {
		parts = append(parts, "The user frequently browses "+strings.Join(categories, ", ")+" categories")
	}

	if floor, ok := t.analyzeRatingFloor(); ok {
		if floor >= 4.0 {
			parts = append(parts, "The user prefers highly-rated products (4+ stars)")
		} else if floor >= 3.0 {
			parts = append(parts, "The user considers products with 3+ star ratings")
		}
	}

	if delivery := t.analyzeDelivery(); len(delivery) > 0 {
		parts = append(parts, "The user prefers "+strings.Join(delivery, ", ")+" delivery options")
	}

	if pattern := t.shoppingPattern(); pattern != "general shopper" {
		parts = append(parts, "Shopping pattern: "+pattern)
	}

	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ". ") + ".", true
}

// FromConversation rebuilds a tracker from the conversation history and the
// current cart, mining explicit preferences from user turns by keyword.
func FromConversation(history []*schema.Message, cart model.Cart, cat catalog.Catalog) *Tracker {
	t := NewTracker(cat)

	for _, item := range cart {
		t.TrackCartAddition(item.ProductID)
	}

	for _, msg := range history {
		if msg == nil || msg.Role != schema.User {
			continue
		}
		minePreferences(t, strings.ToLower(msg.Content))
	}

	return t
}

func minePreferences(t *Tracker, content string) {
	if containsAny(content, "budget", "cheap", "affordable", "inexpensive", "low price") {
		t.TrackPreference("prefers budget-friendly products")
	}
	if containsAny(content, "premium", "expensive", "high-end", "luxury", "quality") {
		t.TrackPreference("prefers premium products")
	}
	if containsAny(content, "brand", "branded") {
		t.TrackPreference("has brand preferences")
	}
	if containsAny(content, "same day", "fast delivery") {
		t.TrackPreference("prefers fast delivery")
	} else if strings.Contains(content, "delivery") {
		t.TrackPreference("considers delivery options")
	}
	if containsAny(content, "rating", "star", "review") {
		t.TrackPreference("considers product ratings")
	}
}

// ====================== Helper functions ======================

func (t *Tracker) topAttribute(ids []string, key string, n int) []string {
	counts := map[string]int{}
	order := []string{}
	for _, id := range ids {
		p, ok := t.catalog.Lookup(id)
		if !ok || p.TechnicalInfo == nil {
			continue
		}
		v := strings.TrimSpace(p.TechnicalInfo[key])
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	return topN(counts, order, n)
}

// topN returns up to n keys by descending count, first-seen order breaking
// ties so output is deterministic.
func topN(counts map[string]int, order []string, n int) []string {
	sorted := append([]string(nil), order...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return counts[sorted[i]] > counts[sorted[j]]
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func unionIDs(lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, id := range list {
			out = appendUnique(out, id)
		}
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
