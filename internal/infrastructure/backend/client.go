package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"sponsor-portal/internal/domain"
)

const maxBodyBytes = 4 << 20

// Client talks to the compliance REST API. Every authenticated call carries the
// credential as a bearer token.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, xray.Client(&http.Client{Timeout: timeout}))
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string          `json:"access_token"`
	User        domain.Identity `json:"user"`
}

func (c *Client) Login(ctx context.Context, identifier, secret string) (domain.Credential, domain.Identity, error) {
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", loginRequest{Email: identifier, Password: secret}, &out); err != nil {
		return "", domain.Identity{}, err
	}
	return domain.Credential(out.AccessToken), out.User, nil
}

func (c *Client) Me(ctx context.Context, credential domain.Credential) (domain.Identity, error) {
	var out domain.Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", credential, nil, &out); err != nil {
		return domain.Identity{}, err
	}
	return out, nil
}

func (c *Client) CalendarEvents(ctx context.Context, credential domain.Credential, year int, month time.Month) (domain.MonthEvents, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(int(month)))
	var out domain.MonthEvents
	if err := c.do(ctx, http.MethodGet, "/calendar/events?"+q.Encode(), credential, nil, &out); err != nil {
		return domain.MonthEvents{}, err
	}
	return out, nil
}

func (c *Client) ListWorkers(ctx context.Context, credential domain.Credential) ([]domain.Worker, error) {
	var out []domain.Worker
	if err := c.do(ctx, http.MethodGet, "/workers", credential, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetWorker(ctx context.Context, credential domain.Credential, workerID string) (domain.Worker, error) {
	if workerID == "" {
		return domain.Worker{}, domain.ErrInvalidInput
	}
	var out domain.Worker
	if err := c.do(ctx, http.MethodGet, "/workers/"+url.PathEscape(workerID), credential, nil, &out); err != nil {
		return domain.Worker{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, credential domain.Credential, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+string(credential))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func statusError(status int, raw []byte) error {
	be := &domain.BackendError{Status: status, Message: errorMessage(raw)}
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", domain.ErrUnauthenticated, be)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrPermissionDeny, be)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, be)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, be)
	default:
		return be
	}
}

// errorMessage pulls a human readable message out of an error body. The API
// answers with {"detail": ...}; "message" and "error" are accepted too.
func errorMessage(raw []byte) string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	var detail string
	if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &detail) == nil && detail != "" {
		return detail
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
