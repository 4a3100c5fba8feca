package mapping

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/andenbus/reservation-payments/pkg/faults"
	"github.com/andenbus/reservation-payments/pkg/models"
)

// Query parameter names of the gateway return URL. The backend and the
// gateway contract predate this client; the names are fixed.
const (
	paramSessionID         = "session_id"
	paramOutboundPurchase  = "idCompraIda"
	paramReturnPurchase    = "idCompraVuelta"
	paramOrigin            = "origin"
	paramDestination       = "destination"
	paramDepartDate        = "departDate"
	paramReturnDate        = "returnDate"
	paramTotalPrice        = "totalPrice"
	paramOutboundSeats     = "outboundSeats"
	paramOutboundStartTime = "outboundHoraInicio"
	paramOutboundEndTime   = "outboundHoraFin"
	paramOutboundBusID     = "outboundBusId"
	paramReturnSeats       = "returnSeats"
	paramReturnStartTime   = "returnHoraInicio"
	paramReturnEndTime     = "returnHoraFin"
	paramReturnBusID       = "returnBusId"
)

// SuccessQuery builds the query parameters the success-redirect URL embeds:
// everything the completion resolver needs to reconstruct a receipt and
// reconcile the purchase, even after an app restart. The session_id
// placeholder is appended separately so it survives unencoded. totalMinor is
// the charged amount in minor currency units, so the displayed price is
// always the exact amount the gateway charged.
func SuccessQuery(outbound *models.Reservation, ret *models.Reservation, totalMinor int64) url.Values {
	values := url.Values{}
	values.Set(paramOutboundPurchase, strconv.FormatInt(outbound.PurchaseID, 10))
	values.Set(paramOrigin, outbound.Origin)
	values.Set(paramDestination, outbound.Destination)
	values.Set(paramDepartDate, outbound.TravelDate)
	values.Set(paramTotalPrice, fmt.Sprintf("%d.%02d", totalMinor/100, totalMinor%100))
	values.Set(paramOutboundSeats, outbound.SeatList())
	values.Set(paramOutboundStartTime, outbound.DepartureTime)
	values.Set(paramOutboundEndTime, outbound.ArrivalTime)
	values.Set(paramOutboundBusID, outbound.BusID)

	if ret != nil {
		values.Set(paramReturnPurchase, strconv.FormatInt(ret.PurchaseID, 10))
		values.Set(paramReturnDate, ret.TravelDate)
		values.Set(paramReturnSeats, ret.SeatList())
		values.Set(paramReturnStartTime, ret.DepartureTime)
		values.Set(paramReturnEndTime, ret.ArrivalTime)
		values.Set(paramReturnBusID, ret.BusID)
	}
	return values
}

// ParseCallback decodes the gateway return URL into the domain callback
// payload. It validates structure only; whether the session reference is
// real is the resolver's call.
func ParseCallback(rawURL string) (*models.CallbackData, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &faults.ValidationError{Field: "callback URL", Reason: err.Error()}
	}
	query := parsed.Query()

	outboundID, err := parsePurchaseID(query.Get(paramOutboundPurchase))
	if err != nil {
		return nil, &faults.ValidationError{Field: paramOutboundPurchase, Reason: err.Error()}
	}

	data := &models.CallbackData{
		SessionID:          query.Get(paramSessionID),
		PurchaseIDOutbound: outboundID,
		Origin:             query.Get(paramOrigin),
		Destination:        query.Get(paramDestination),
		DepartDate:         query.Get(paramDepartDate),
		ReturnDate:         query.Get(paramReturnDate),
		TotalPrice:         query.Get(paramTotalPrice),
		Outbound: models.LegDetails{
			Seats:     query.Get(paramOutboundSeats),
			StartTime: query.Get(paramOutboundStartTime),
			EndTime:   query.Get(paramOutboundEndTime),
			BusID:     query.Get(paramOutboundBusID),
		},
	}

	if raw := query.Get(paramReturnPurchase); raw != "" {
		returnID, err := parsePurchaseID(raw)
		if err != nil {
			return nil, &faults.ValidationError{Field: paramReturnPurchase, Reason: err.Error()}
		}
		data.PurchaseIDReturn = &returnID
		data.Return = &models.LegDetails{
			Seats:     query.Get(paramReturnSeats),
			StartTime: query.Get(paramReturnStartTime),
			EndTime:   query.Get(paramReturnEndTime),
			BusID:     query.Get(paramReturnBusID),
		}
	}

	return data, nil
}

func parsePurchaseID(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing purchase id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a purchase id: %q", raw)
	}
	return id, nil
}
