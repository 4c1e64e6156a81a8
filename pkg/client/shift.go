package client

import (
	"context"
	"net/http"
	"net/url"

	"slotkeeper/pkg/model"
)

type ShiftClient struct {
	httpClient *HttpClient
}

func NewShiftClient(httpClient *HttpClient) *ShiftClient {
	return &ShiftClient{httpClient: httpClient}
}

func (c *ShiftClient) OpenShift(ctx context.Context, req model.OpenShiftRequest) (*model.Shift, error) {
	var shift model.Shift
	if err := c.httpClient.Call(ctx, http.MethodPost, "/api/v1/shifts/open", req, &shift); err != nil {
		return nil, err
	}
	return &shift, nil
}

func (c *ShiftClient) CloseShift(ctx context.Context, req model.CloseShiftRequest) (*model.Shift, error) {
	path := "/api/v1/shifts/id/" + url.PathEscape(req.ShiftID) + "/close"

	var shift model.Shift
	if err := c.httpClient.Call(ctx, http.MethodPost, path, req, &shift); err != nil {
		return nil, err
	}
	return &shift, nil
}

func (c *ShiftClient) AddItem(ctx context.Context, req model.ItemRequest) error {
	path := "/api/v1/shifts/id/" + url.PathEscape(req.ShiftID) + "/items"
	return c.httpClient.Call(ctx, http.MethodPost, path, req.Item, nil)
}

func (c *ShiftClient) UpdateItem(ctx context.Context, req model.ItemRequest) error {
	path := "/api/v1/shifts/id/" + url.PathEscape(req.ShiftID) + "/items/" + url.PathEscape(req.Item.ID)
	return c.httpClient.Call(ctx, http.MethodPatch, path, req.Item, nil)
}

func (c *ShiftClient) DeleteItem(ctx context.Context, req model.DeleteItemRequest) error {
	path := "/api/v1/shifts/id/" + url.PathEscape(req.ShiftID) + "/items/" + url.PathEscape(req.ItemID)
	return c.httpClient.Call(ctx, http.MethodDelete, path, nil, nil)
}

func (c *ShiftClient) CurrentShift(ctx context.Context, staffID string) (*model.Shift, error) {
	path := "/api/v1/shifts/current?staff_id=" + url.QueryEscape(staffID)

	var shift *model.Shift
	if err := c.httpClient.Call(ctx, http.MethodGet, path, nil, &shift); err != nil {
		return nil, err
	}
	return shift, nil
}
