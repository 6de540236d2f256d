// Package restapi is the HTTP client for the backend's REST surface:
// registration, login, the nearby query, and the profile/posting CRUD.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"workmap/internal/contracts"
	"workmap/internal/domain/geo"
	"workmap/internal/domain/nearby"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProfileSaveFailed  = errors.New("profile save failed")
	ErrPostingSaveFailed  = errors.New("posting save failed")
)

// Client talks to the backend REST API. Zero-value Timeout falls back to
// 15 seconds.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	token   string
}

func New(logger *slog.Logger, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// SetToken attaches the bearer token used on authenticated routes.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Register creates an account. POST /usuarios.
func (c *Client) Register(ctx context.Context, req contracts.RegisterRequest) error {
	return c.post(ctx, "/usuarios", req, nil)
}

// Login exchanges credentials for an access token and remembers it for
// subsequent calls. POST /login.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp contracts.LoginResponse
	err := c.post(ctx, "/login", contracts.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// FindNearby queries workers within radiusKm of the center.
// GET /usuarios/cerca. The wire gives coordinates as [lng, lat] pairs;
// they are converted to the internal axis order here and nowhere else.
func (c *Client) FindNearby(ctx context.Context, center geo.Point, radiusKm int) ([]nearby.Entity, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(center.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(center.Lng, 'f', -1, 64))
	q.Set("radiusKm", strconv.Itoa(radiusKm))

	var wire []contracts.NearbyEntityWire
	if err := c.get(ctx, "/usuarios/cerca?"+q.Encode(), &wire); err != nil {
		return nil, err
	}
	entities := make([]nearby.Entity, 0, len(wire))
	for _, w := range wire {
		entities = append(entities, w.Entity())
	}
	return entities, nil
}

// SaveProfile creates or replaces the caller's professional profile.
// Failures surface to the user and are never retried.
func (c *Client) SaveProfile(ctx context.Context, req contracts.ProfileRequest) error {
	if err := c.post(ctx, "/perfiles", req, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrProfileSaveFailed, err)
	}
	return nil
}

// CreatePosting publishes a service posting.
func (c *Client) CreatePosting(ctx context.Context, req contracts.PostingRequest) error {
	if err := c.post(ctx, "/publicaciones", req, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrPostingSaveFailed, err)
	}
	return nil
}

// APIError is a non-2xx response. The body shape is not guaranteed;
// Message carries whatever the backend included, possibly nothing.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls a human message out of an error body when there is
// one; non-2xx bodies have no guaranteed shape.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body contracts.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
