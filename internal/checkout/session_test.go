package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return &Session{
		ID:       "sess-1",
		Currency: "USD",
		Status:   StatusReadyForComplete,
		LineItems: []LineItem{
			{
				ID:       "li-1",
				Item:     Item{ID: "prod-1", Title: "Wireless Headphones", Price: 1000},
				Quantity: 2,
				Totals:   lineTotals(1000, 2),
			},
		},
	}
}

// ============================================
// Totals
// ============================================

func TestSession_Subtotal(t *testing.T) {
	session := newTestSession()
	assert.Equal(t, int64(2000), session.Subtotal())
}

func TestSession_Totals_NoDiscount(t *testing.T) {
	session := newTestSession()

	totals := session.Totals()

	require.Len(t, totals, 2)
	assert.Equal(t, Total{Type: TotalSubtotal, Amount: 2000}, totals[0])
	assert.Equal(t, Total{Type: TotalFinal, Amount: 2000}, totals[1])
}

func TestSession_Totals_PercentDiscount(t *testing.T) {
	session := newTestSession()

	require.NoError(t, session.ApplyDiscount("10OFF"))

	totals := session.Totals()
	require.Len(t, totals, 3)
	assert.Equal(t, Total{Type: TotalSubtotal, Amount: 2000}, totals[0])
	assert.Equal(t, Total{Type: TotalDiscount, Amount: 200}, totals[1])
	assert.Equal(t, Total{Type: TotalFinal, Amount: 1800}, totals[2])
}

func TestSession_Totals_FlatDiscount(t *testing.T) {
	session := newTestSession()

	require.NoError(t, session.ApplyDiscount("FREESHIP"))

	totals := session.Totals()
	require.Len(t, totals, 3)
	assert.Equal(t, Total{Type: TotalDiscount, Amount: 500}, totals[1])
	assert.Equal(t, Total{Type: TotalFinal, Amount: 1500}, totals[2])
}

func TestSession_Totals_ClampedAtZero(t *testing.T) {
	session := &Session{
		ID:       "sess-tiny",
		Currency: "USD",
		Status:   StatusReadyForComplete,
		LineItems: []LineItem{
			{ID: "li-1", Item: Item{ID: "prod-1", Title: "Sticker", Price: 300}, Quantity: 1, Totals: lineTotals(300, 1)},
		},
	}

	// Flat 500 discount exceeds the 300 subtotal.
	require.NoError(t, session.ApplyDiscount("FREESHIP"))

	totals := session.Totals()
	assert.Equal(t, int64(0), totals[len(totals)-1].Amount)
}

// ============================================
// Discounts
// ============================================

func TestSession_ApplyDiscount_UnknownCode(t *testing.T) {
	session := newTestSession()

	err := session.ApplyDiscount("BOGUS")

	require.Error(t, err)
	assert.Empty(t, session.Codes)
	assert.Empty(t, session.Applied)
	assert.Equal(t, int64(2000), session.Totals()[len(session.Totals())-1].Amount)
}

func TestSession_ApplyDiscount_LastWins(t *testing.T) {
	session := newTestSession()

	require.NoError(t, session.ApplyDiscount("10OFF"))
	require.NoError(t, session.ApplyDiscount("SAVE20"))

	assert.Equal(t, []string{"SAVE20"}, session.Codes)
	require.Len(t, session.Applied, 1)
	assert.Equal(t, "SAVE20", session.Applied[0].Code)
	assert.Equal(t, int64(400), session.Applied[0].Amount)

	totals := session.Totals()
	assert.Equal(t, int64(1600), totals[len(totals)-1].Amount)
}

func TestSession_ApplyDiscount_InvalidKeepsPrevious(t *testing.T) {
	session := newTestSession()

	require.NoError(t, session.ApplyDiscount("10OFF"))
	require.Error(t, session.ApplyDiscount("NOPE"))

	assert.Equal(t, []string{"10OFF"}, session.Codes)
	require.Len(t, session.Applied, 1)
	assert.Equal(t, int64(200), session.Applied[0].Amount)
}

// ============================================
// Line items and lifecycle
// ============================================

func TestLineItem_SetQuantity(t *testing.T) {
	li := LineItem{
		ID:       "li-1",
		Item:     Item{ID: "prod-1", Title: "Widget", Price: 500},
		Quantity: 1,
		Totals:   lineTotals(500, 1),
	}

	li.SetQuantity(4)

	assert.Equal(t, 4, li.Quantity)
	assert.Equal(t, int64(2000), li.Subtotal())
	assert.Equal(t, int64(2000), li.Totals[0].Amount)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusDraft.IsTerminal())
	assert.False(t, StatusReadyForComplete.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
}

func TestSession_Clone_Independence(t *testing.T) {
	session := newTestSession()
	require.NoError(t, session.ApplyDiscount("10OFF"))
	session.SetBuyer("Jane Doe", "jane@example.com")

	clone := session.Clone()
	clone.LineItems[0].SetQuantity(99)
	clone.Codes[0] = "CHANGED"
	clone.Buyer.FullName = "Someone Else"

	assert.Equal(t, 2, session.LineItems[0].Quantity)
	assert.Equal(t, []string{"10OFF"}, session.Codes)
	assert.Equal(t, "Jane Doe", session.Buyer.FullName)
}

func TestSession_Clone_Nil(t *testing.T) {
	var session *Session
	assert.Nil(t, session.Clone())
}
