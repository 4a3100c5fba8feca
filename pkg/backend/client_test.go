package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andenbus/reservation-payments/pkg/faults"
	"github.com/andenbus/reservation-payments/pkg/models"
	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticToken string

func (s staticToken) Get() (string, bool) {
	return string(s), s != ""
}

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, staticToken("tok-123"), testLogger())
	return client, server
}

func TestCancelPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var gotPath, gotAuth string
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.Method + " " + r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		assert.NoError(t, client.CancelPurchase(ctx, 42))
		assert.Equal(t, "POST /purchases/42/cancel", gotPath)
		assert.Equal(t, "Bearer tok-123", gotAuth)
	})

	t.Run("Already Canceled Server-Side Is Success", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))
		defer server.Close()

		assert.NoError(t, client.CancelPurchase(ctx, 42))
	})

	t.Run("Server Error", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		err := client.CancelPurchase(ctx, 42)
		assert.ErrorContains(t, err, "500")
	})
}

func TestMarkPurchasePaid(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/purchases/10/pay", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		assert.NoError(t, client.MarkPurchasePaid(ctx, 10))
	})

	t.Run("Duplicate Confirmation Is Success", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == "GET" {
				json.NewEncoder(w).Encode(map[string]string{"status": "PAID"})
				return
			}
			w.WriteHeader(http.StatusConflict)
		}))
		defer server.Close()

		assert.NoError(t, client.MarkPurchasePaid(ctx, 10))
	})

	t.Run("Conflict On A Canceled Purchase Is Not Success", func(t *testing.T) {
		// A restarted app reconciling from the URL alone has no timer-side
		// status check; the client must not report PAID here.
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == "GET" {
				json.NewEncoder(w).Encode(map[string]string{"status": "CANCELED"})
				return
			}
			w.WriteHeader(http.StatusConflict)
		}))
		defer server.Close()

		err := client.MarkPurchasePaid(ctx, 10)
		assert.ErrorIs(t, err, faults.ErrHoldAlreadyExpired)
	})
}

func TestSaveGatewayReference(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var body map[string]string
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/purchases/10/gateway-reference", r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		assert.NoError(t, client.SaveGatewayReference(ctx, 10, "cs_live_789"))
		assert.Equal(t, "cs_live_789", body["reference"])
	})

	t.Run("Differing Reference Is A Conflict", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))
		defer server.Close()

		err := client.SaveGatewayReference(ctx, 10, "cs_live_789")
		assert.ErrorIs(t, err, faults.ErrReconciliationConflict)
	})
}

func TestGetPurchaseStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "/purchases/42", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]string{"status": "CANCELED"})
		}))
		defer server.Close()

		status, err := client.GetPurchaseStatus(ctx, 42)
		assert.NoError(t, err)
		assert.Equal(t, models.CANCELED, status)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		_, err := client.GetPurchaseStatus(ctx, 42)
		assert.ErrorContains(t, err, "decode")
	})
}

func TestGetDiscount(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "7", r.URL.Query().Get("tripId"))
			assert.Equal(t, "3,12", r.URL.Query().Get("seats"))
			json.NewEncoder(w).Encode(models.DiscountOffer{TripID: 7, SeatSignature: "3,12", Percent: 10})
		}))
		defer server.Close()

		offer, err := client.GetDiscount(ctx, 7, "3,12")
		assert.NoError(t, err)
		if assert.NotNil(t, offer) {
			assert.Equal(t, 10, offer.Percent)
		}
	})

	t.Run("No Offer Is Not An Error", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		offer, err := client.GetDiscount(ctx, 7, "3,12")
		assert.NoError(t, err)
		assert.Nil(t, offer)
	})
}

func TestAuthExpiry(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var hookRan bool
	client.OnAuthExpired = func() { hookRan = true }

	err := client.CancelPurchase(context.Background(), 42)
	assert.ErrorIs(t, err, faults.ErrAuthExpired)
	assert.True(t, hookRan)
}

func TestNetworkFailure(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	err := client.CancelPurchase(context.Background(), 42)
	assert.True(t, faults.IsNetwork(err))
}
