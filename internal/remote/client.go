// Package remote is the punch terminal's view of the API.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/balance"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/justification"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/goccy/go-json"
)

const (
	DefaultTimeout = 20 * time.Second

	// healthPath is served by the API's heartbeat middleware.
	healthPath = "/health"
)

// APIError is a non-success response that has no domain meaning for the
// terminal. Such failures are retried later.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes the envelope's data into out when out is not nil.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Success bool                  `json:"success"`
		Data    json.RawMessage       `json:"data"`
		Error   *response.ErrorDetail `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("invalid response body: %v", err)}
	}

	if resp.StatusCode >= 300 || !envelope.Success {
		return decodeError(resp.StatusCode, envelope.Error)
	}

	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// decodeError turns an API error body back into the domain error the
// server started from, so callers can tell permanent rejections apart.
func decodeError(status int, detail *response.ErrorDetail) error {
	if detail == nil {
		return &APIError{StatusCode: status}
	}

	switch detail.Code {
	case response.CodeValidation:
		errs := make(validator.ValidationErrors, 0, len(detail.Details))
		for field, msg := range detail.Details {
			errs = append(errs, validator.ValidationError{Field: field, Message: msg})
		}
		return errs
	case response.CodePunchBlocked:
		blocked := &punch.BlockedError{Status: detail.Details["status"]}
		blocked.StartDate, _ = time.Parse(punch.DateLayout, detail.Details["start_date"])
		blocked.EndDate, _ = time.Parse(punch.DateLayout, detail.Details["end_date"])
		return blocked
	case response.CodeCompanyBindingMissing:
		return punch.ErrCompanyBindingMissing
	case response.CodeInvalidPunchType:
		return punch.ErrInvalidType
	case response.CodeUnauthorized:
		return fmt.Errorf("%w: %s", auth.ErrInvalidToken, detail.Message)
	case response.CodeForbidden:
		return fmt.Errorf("%w: %s", user.ErrInsufficientPermissions, detail.Message)
	}

	return &APIError{StatusCode: status, Code: detail.Code, Message: detail.Message}
}

// Probe checks that the API answers.
func (c *Client) Probe(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, healthPath, nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

// CreatePunch implements punch.RemoteStore.
func (c *Client) CreatePunch(ctx context.Context, p punch.Punch) (punch.Punch, error) {
	data, err := json.Marshal(p.ToCreateRequest())
	if err != nil {
		return punch.Punch{}, fmt.Errorf("failed to encode punch: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("data", string(data)); err != nil {
		return punch.Punch{}, err
	}
	if len(p.Photo) > 0 {
		part, err := mw.CreateFormFile("photo", p.IdempotencyKey+".jpg")
		if err != nil {
			return punch.Punch{}, err
		}
		if _, err := part.Write(p.Photo); err != nil {
			return punch.Punch{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return punch.Punch{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/punches", nil, &body)
	if err != nil {
		return punch.Punch{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp punch.PunchResponse
	if err := c.do(req, &resp); err != nil {
		return punch.Punch{}, err
	}
	return resp.ToPunch()
}

// GetLastPunchOfDay implements punch.RemoteStore.
func (c *Client) GetLastPunchOfDay(ctx context.Context, date string) (*punch.Punch, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/punches/my/last", url.Values{"date": {date}}, nil)
	if err != nil {
		return nil, err
	}

	var resp *punch.PunchResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	p, err := resp.ToPunch()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPunches returns the caller's punches between two dates (inclusive).
func (c *Client) ListPunches(ctx context.Context, startDate, endDate string) ([]punch.Punch, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/punches/my",
		url.Values{"start_date": {startDate}, "end_date": {endDate}}, nil)
	if err != nil {
		return nil, err
	}

	var resp []punch.PunchResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	punches := make([]punch.Punch, 0, len(resp))
	for _, r := range resp {
		p, err := r.ToPunch()
		if err != nil {
			return nil, err
		}
		punches = append(punches, p)
	}
	return punches, nil
}

// ListJustifications returns the caller's justifications between two dates.
func (c *Client) ListJustifications(ctx context.Context, startDate, endDate string) ([]justification.JustificationResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/justifications/my",
		url.Values{"start_date": {startDate}, "end_date": {endDate}}, nil)
	if err != nil {
		return nil, err
	}

	var resp []justification.JustificationResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetMonthlyBalance returns the caller's balance for month (YYYY-MM).
func (c *Client) GetMonthlyBalance(ctx context.Context, month string) (balance.MonthlyBalanceResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/balances/my", url.Values{"month": {month}}, nil)
	if err != nil {
		return balance.MonthlyBalanceResponse{}, err
	}

	var resp balance.MonthlyBalanceResponse
	if err := c.do(req, &resp); err != nil {
		return balance.MonthlyBalanceResponse{}, err
	}
	return resp, nil
}

// GetCaptureContext implements the punch recorder's context source.
func (c *Client) GetCaptureContext(ctx context.Context) (employee.CaptureContextResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/employees/me/context", nil, nil)
	if err != nil {
		return employee.CaptureContextResponse{}, err
	}

	var resp employee.CaptureContextResponse
	if err := c.do(req, &resp); err != nil {
		return employee.CaptureContextResponse{}, err
	}
	return resp, nil
}
