package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"slotkeeper/pkg/model"
)

type DirectoryClient struct {
	httpClient *HttpClient
}

func NewDirectoryClient(httpClient *HttpClient) *DirectoryClient {
	return &DirectoryClient{httpClient: httpClient}
}

func (c *DirectoryClient) ListStaff(ctx context.Context, businessID, branchID string) ([]model.Staff, error) {
	q := url.Values{}
	q.Set("business_id", businessID)
	if branchID != "" {
		q.Set("branch_id", branchID)
	}

	var staff []model.Staff
	if err := c.httpClient.Call(ctx, http.MethodGet, "/api/v1/staff?"+q.Encode(), nil, &staff); err != nil {
		return nil, err
	}
	return staff, nil
}

func (c *DirectoryClient) ListScheduleOverrides(ctx context.Context, req model.OverridesRequest) ([]model.ScheduleOverride, error) {
	q := url.Values{}
	q.Set("business_id", req.BusinessID)
	q.Set("from", req.From)
	q.Set("to", req.To)
	if len(req.StaffIDs) > 0 {
		q.Set("staff_ids", strings.Join(req.StaffIDs, ","))
	}

	var overrides []model.ScheduleOverride
	if err := c.httpClient.Call(ctx, http.MethodGet, "/api/v1/schedule-overrides?"+q.Encode(), nil, &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}
