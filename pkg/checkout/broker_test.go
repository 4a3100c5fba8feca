package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/andenbus/reservation-payments/pkg/faults"
	"github.com/andenbus/reservation-payments/pkg/gateway"
	"github.com/andenbus/reservation-payments/pkg/gateway/mocks"
	"github.com/andenbus/reservation-payments/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func outbound() models.Reservation {
	return models.Reservation{
		PurchaseID:    10,
		TripID:        7,
		Origin:        "Monterrey",
		Destination:   "Saltillo",
		TravelDate:    "2026-09-14",
		DepartureTime: "08:30",
		ArrivalTime:   "10:00",
		BusID:         "BUS-204",
		Seats:         []int{7, 8},
		UnitPrice:     500,
	}
}

func returnLeg() *models.Reservation {
	return &models.Reservation{
		PurchaseID:    11,
		TripID:        9,
		Origin:        "Saltillo",
		Destination:   "Monterrey",
		TravelDate:    "2026-09-18",
		DepartureTime: "17:00",
		ArrivalTime:   "18:30",
		BusID:         "BUS-311",
		Seats:         []int{4},
		UnitPrice:     450,
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("Discounted Amount In Minor Units", func(t *testing.T) {
		gw := new(mocks.Creator)
		var captured gateway.CheckoutRequest
		gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(1).(gateway.CheckoutRequest) }).
			Return("https://gateway.example.com/pay/abc", nil)

		b := NewBroker(gw, "https://app.example.com", "mxn", testLogger())
		session, err := b.Create(ctx, CreateRequest{Outbound: outbound(), DiscountPercent: 10})

		assert.NoError(t, err)
		// 2 seats at 500, 10% off: round(2*500*0.9) = 900, 90000 minor units.
		assert.Equal(t, int64(90000), session.AmountMinor)
		assert.Equal(t, int64(90000), captured.AmountMinor)
		assert.Equal(t, "mxn", captured.Currency)
		assert.Equal(t, "https://gateway.example.com/pay/abc", session.RedirectURL)
		gw.AssertExpectations(t)
	})

	t.Run("Round Trip Sums Both Legs", func(t *testing.T) {
		gw := new(mocks.Creator)
		gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return("https://gateway.example.com/pay/abc", nil)

		b := NewBroker(gw, "https://app.example.com", "mxn", testLogger())
		session, err := b.Create(ctx, CreateRequest{Outbound: outbound(), Return: returnLeg()})

		assert.NoError(t, err)
		// 2*500 + 1*450 = 1450, no discount.
		assert.Equal(t, int64(145000), session.AmountMinor)
		if assert.NotNil(t, session.PurchaseIDReturn) {
			assert.Equal(t, int64(11), *session.PurchaseIDReturn)
		}
	})

	t.Run("Displayed Total Matches The Charged Amount Exactly", func(t *testing.T) {
		gw := new(mocks.Creator)
		gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return("https://gateway.example.com/pay/abc", nil)

		// 0.615 stores below the half-cent but scales to exactly 61.5 in
		// float64, so the charge rounds to 62 while formatting the float
		// directly prints 0.61.
		leg := outbound()
		leg.Seats = []int{7}
		leg.UnitPrice = 0.615

		b := NewBroker(gw, "https://app.example.com", "mxn", testLogger())
		session, err := b.Create(ctx, CreateRequest{Outbound: leg})

		assert.NoError(t, err)
		assert.Equal(t, int64(62), session.AmountMinor)
		assert.Contains(t, session.SuccessURL, "totalPrice=0.62")
	})

	t.Run("Success URL Carries The Literal Placeholder", func(t *testing.T) {
		gw := new(mocks.Creator)
		gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return("https://gateway.example.com/pay/abc", nil)

		b := NewBroker(gw, "https://app.example.com", "mxn", testLogger())
		session, err := b.Create(ctx, CreateRequest{Outbound: outbound()})

		assert.NoError(t, err)
		assert.Contains(t, session.SuccessURL, "https://app.example.com/payments/return?session_id="+gateway.SessionPlaceholder)
		assert.Contains(t, session.SuccessURL, "idCompraIda=10")
		assert.Contains(t, session.SuccessURL, "outboundSeats=7%2C8")
		assert.Equal(t, "https://app.example.com/payments/cancelled", session.CancelURL)
	})

	t.Run("Gateway Rejection Does Not Track A Session", func(t *testing.T) {
		gw := new(mocks.Creator)
		gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return("", &faults.GatewayRejectedError{Message: "invalid amount"})

		b := NewBroker(gw, "https://app.example.com", "mxn", testLogger())
		_, err := b.Create(ctx, CreateRequest{Outbound: outbound()})

		var ge *faults.GatewayRejectedError
		assert.ErrorAs(t, err, &ge)
		assert.Contains(t, ge.Message, "invalid amount")
		_, active := b.Active(10)
		assert.False(t, active)
	})

	t.Run("Network Failure Surfaces Verbatim", func(t *testing.T) {
		gw := new(mocks.Creator)
		gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return("", &faults.NetworkError{Op: "checkout creation", Err: errors.New("dial tcp: connection refused")})

		b := NewBroker(gw, "https://app.example.com", "mxn", testLogger())
		_, err := b.Create(ctx, CreateRequest{Outbound: outbound()})

		assert.True(t, faults.IsNetwork(err))
		_, active := b.Active(10)
		assert.False(t, active)
	})
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	gw := new(mocks.Creator)
	b := NewBroker(gw, "https://app.example.com", "mxn", testLogger())

	cases := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"Empty Seat Set", func(req *CreateRequest) { req.Outbound.Seats = nil }},
		{"Duplicate Seats", func(req *CreateRequest) { req.Outbound.Seats = []int{7, 7} }},
		{"Missing Purchase Id", func(req *CreateRequest) { req.Outbound.PurchaseID = 0 }},
		{"Missing Origin", func(req *CreateRequest) { req.Outbound.Origin = "" }},
		{"Non-Positive Price", func(req *CreateRequest) { req.Outbound.UnitPrice = 0 }},
		{"Discount Out Of Range", func(req *CreateRequest) { req.DiscountPercent = 101 }},
		{"Return Leg Does Not Mirror Outbound", func(req *CreateRequest) {
			ret := returnLeg()
			ret.Destination = "Torreón"
			req.Return = ret
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := CreateRequest{Outbound: outbound()}
			tc.mutate(&req)

			_, err := b.Create(ctx, req)
			var ve *faults.ValidationError
			assert.ErrorAs(t, err, &ve)
			// The gateway is never reached with invalid input.
			gw.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
		})
	}
}

func TestSessionTracking(t *testing.T) {
	ctx := context.Background()

	t.Run("New Session Supersedes The Unredeemed One", func(t *testing.T) {
		gw := new(mocks.Creator)
		gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return("https://gateway.example.com/pay/abc", nil)

		b := NewBroker(gw, "https://app.example.com", "mxn", testLogger())
		first, err := b.Create(ctx, CreateRequest{Outbound: outbound()})
		assert.NoError(t, err)
		second, err := b.Create(ctx, CreateRequest{Outbound: outbound()})
		assert.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		active, ok := b.Active(10)
		assert.True(t, ok)
		assert.Equal(t, second.ID, active.ID)
	})

	t.Run("Discard Forgets Both Legs", func(t *testing.T) {
		gw := new(mocks.Creator)
		gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return("https://gateway.example.com/pay/abc", nil)

		b := NewBroker(gw, "https://app.example.com", "mxn", testLogger())
		_, err := b.Create(ctx, CreateRequest{Outbound: outbound(), Return: returnLeg()})
		assert.NoError(t, err)

		b.Discard(11)
		_, ok := b.Active(10)
		assert.False(t, ok)
		_, ok = b.Active(11)
		assert.False(t, ok)
	})

	t.Run("DiscardAll Clears Everything", func(t *testing.T) {
		gw := new(mocks.Creator)
		gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return("https://gateway.example.com/pay/abc", nil)

		b := NewBroker(gw, "https://app.example.com", "mxn", testLogger())
		_, err := b.Create(ctx, CreateRequest{Outbound: outbound()})
		assert.NoError(t, err)

		b.DiscardAll()
		_, ok := b.Active(10)
		assert.False(t, ok)
	})
}
