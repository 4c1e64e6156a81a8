package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "slotkeeper/pkg/errors"
)

type HttpClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Headers    map[string]string
}

func NewHttpClient(baseURL string, timeout time.Duration) *HttpClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HttpClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Headers: map[string]string{},
	}
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

// DecodeData unwraps the {"data": ...} envelope into target.
func (r *Response) DecodeData(target any) error {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Body, &wrapper); err != nil {
		return fmt.Errorf("could not decode response envelope: %w", err)
	}
	if len(wrapper.Data) == 0 || string(wrapper.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(wrapper.Data, target); err != nil {
		return fmt.Errorf("could not decode response data: %w", err)
	}
	return nil
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (c *HttpClient) GET(ctx context.Context, path string) (*Response, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *HttpClient) POST(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

func (c *HttpClient) PATCH(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPatch, path, body)
}

func (c *HttpClient) DELETE(ctx context.Context, path string) (*Response, error) {
	return c.request(ctx, http.MethodDelete, path, nil)
}

// Call performs the request and decodes the data envelope into out.
// Transport and HTTP failures come back as classified AppErrors.
func (c *HttpClient) Call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.request(ctx, method, path, body)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.Wrap(err, apperrors.CodeTimeout, "remote request timed out", http.StatusGatewayTimeout)
		}
		return apperrors.Network("remote request failed", err)
	}
	if !resp.OK() {
		return ErrorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := resp.DecodeData(out); err != nil {
		return apperrors.Technical("malformed remote response", err)
	}
	return nil
}

func (c *HttpClient) request(ctx context.Context, method, path string, body any) (*Response, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	return c.do(ctx, method, path, reqBody, body != nil)
}

func (c *HttpClient) do(ctx context.Context, method, path string, reqBody io.Reader, hasBody bool) (*Response, error) {
	url := c.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	for key, value := range c.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Response: resp,
		Body:     respBody,
	}, nil
}

type remoteError struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func GetErrorMessage(resp *Response) string {
	var errResp remoteError
	if err := resp.DecodeJSON(&errResp); err != nil {
		return string(bytes.TrimSpace(resp.Body))
	}

	if errResp.Message != "" {
		return errResp.Message
	}
	if errResp.Error != "" {
		return errResp.Error
	}
	return errResp.Code
}

// ErrorFromResponse maps a non-2xx response onto the error taxonomy.
// A structured code wins; the message text is the fallback.
func ErrorFromResponse(resp *Response) error {
	var errResp remoteError
	_ = resp.DecodeJSON(&errResp)

	message := GetErrorMessage(resp)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode >= 500:
		return apperrors.Technical(message, nil).
			WithDetails(map[string]any{"status": resp.StatusCode})
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.Network(message, nil)
	}

	if code, ok := apperrors.ClassifyCode(errResp.Code); ok {
		appErr := apperrors.New(code, message, resp.StatusCode)
		appErr.Details = errResp.Details
		return appErr
	}

	if c := apperrors.Classify(errors.New(message)); c.Category == apperrors.CategoryDomain {
		return apperrors.New(c.Code, message, resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Validation(message, errResp.Details)
	case http.StatusNotFound:
		return apperrors.New(apperrors.CodeNotFound, message, http.StatusNotFound)
	case http.StatusConflict:
		return apperrors.New(apperrors.CodeScheduleConflict, message, http.StatusConflict)
	default:
		return apperrors.New(apperrors.CodeUnknown, message, resp.StatusCode)
	}
}
