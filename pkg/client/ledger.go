package client

import (
	"context"
	"net/http"
	"net/url"

	"slotkeeper/pkg/model"
)

type LedgerClient struct {
	httpClient *HttpClient
}

func NewLedgerClient(httpClient *HttpClient) *LedgerClient {
	return &LedgerClient{httpClient: httpClient}
}

func (c *LedgerClient) HoldSlot(ctx context.Context, req model.HoldRequest) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := c.httpClient.Call(ctx, http.MethodPost, "/api/v1/reservations/hold", req, &reservation); err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (c *LedgerClient) ConfirmReservation(ctx context.Context, reservationID string) (*model.Reservation, error) {
	path := "/api/v1/reservations/id/" + url.PathEscape(reservationID) + "/confirm"

	var reservation model.Reservation
	if err := c.httpClient.Call(ctx, http.MethodPost, path, nil, &reservation); err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (c *LedgerClient) CreateGuestReservation(ctx context.Context, req model.GuestReservationRequest) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := c.httpClient.Call(ctx, http.MethodPost, "/api/v1/reservations/guest", req, &reservation); err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (c *LedgerClient) ListExistingReservations(ctx context.Context, staffID, branchID, date string) ([]model.ExistingReservation, error) {
	q := url.Values{}
	q.Set("staff_id", staffID)
	q.Set("branch_id", branchID)
	q.Set("date", date)

	var existing []model.ExistingReservation
	if err := c.httpClient.Call(ctx, http.MethodGet, "/api/v1/reservations/occupancy?"+q.Encode(), nil, &existing); err != nil {
		return nil, err
	}
	return existing, nil
}
