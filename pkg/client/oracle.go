package client

import (
	"context"
	"net/http"

	"slotkeeper/pkg/model"
)

type OracleClient struct {
	httpClient *HttpClient
}

func NewOracleClient(httpClient *HttpClient) *OracleClient {
	return &OracleClient{httpClient: httpClient}
}

func (c *OracleClient) ListAvailability(ctx context.Context, req model.AvailabilityRequest) ([]model.AvailabilityWindow, error) {
	var windows []model.AvailabilityWindow
	if err := c.httpClient.Call(ctx, http.MethodPost, "/api/v1/availability/query", req, &windows); err != nil {
		return nil, err
	}
	return windows, nil
}
