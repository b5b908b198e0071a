package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxResponseBytes bounds response bodies; a full chain listing can be large.
const maxResponseBytes = 32 << 20

var (
	// ErrNotFound is returned when the server answers 404.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the server answers 401.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx response. It wraps ErrNotFound or ErrUnauthorized
// where the status code matches.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

// Block is a ledger block as served by the API.
type Block struct {
	Index        int             `json:"index"`
	Timestamp    string          `json:"timestamp"`
	Data         json.RawMessage `json:"data"`
	Hash         string          `json:"hash"`
	PreviousHash string          `json:"previous_hash"`
}

// Overview is the chain summary from GET /ledger.
type Overview struct {
	Blocks int    `json:"blocks"`
	Tip    string `json:"tip"`
}

// VerifyResult is the integrity verdict. Index and Reason are set only when
// Valid is false.
type VerifyResult struct {
	Valid  bool   `json:"valid"`
	Index  int    `json:"index,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// AddResult is the response to AddReportCard.
type AddResult struct {
	Message string `json:"message"`
	Block   Block  `json:"block"`
}

// Client talks to a reportledger server.
type Client struct {
	base        string
	httpClient  *http.Client
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client is nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a registrar token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// New creates a Client for the server at base, e.g. "http://localhost:8080".
func New(base string, opts ...Option) (*Client, error) {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return nil, errors.New("server URL is empty")
	}
	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddReportCard posts to /api/v1/reportcards. Invalid input comes back as
// an *APIError with status 400.
func (c *Client) AddReportCard(ctx context.Context, studentName string, grades map[string]string) (*AddResult, error) {
	req := map[string]any{"student_name": studentName, "grades": grades}
	var res AddResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/reportcards", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListBlocks returns every block in chain order.
func (c *Client) ListBlocks(ctx context.Context) ([]Block, error) {
	var res struct {
		Blocks []Block `json:"blocks"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/ledger/blocks", nil, &res); err != nil {
		return nil, err
	}
	return res.Blocks, nil
}

// GetBlock returns the block at index. A missing block yields ErrNotFound.
func (c *Client) GetBlock(ctx context.Context, index int) (*Block, error) {
	var b Block
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/ledger/blocks/"+strconv.Itoa(index), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Overview returns the chain length and tip hash.
func (c *Client) Overview(ctx context.Context) (*Overview, error) {
	var o Overview
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/ledger", nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CheckIntegrity asks the server to verify the chain.
func (c *Client) CheckIntegrity(ctx context.Context) (*VerifyResult, error) {
	var v VerifyResult
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/ledger/verify", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// IssueToken exchanges the registrar secret for a registrar token. It does
// not attach the client's own token to the request.
func (c *Client) IssueToken(ctx context.Context, secret, subject string) (string, error) {
	payload, err := json.Marshal(map[string]string{"secret": secret, "subject": subject})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/auth/token", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.send(req)
	if err != nil {
		return "", err
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if res.Token == "" {
		return "", errors.New("token response carried no token")
	}
	return res.Token, nil
}

// doJSON sends reqBody (if non-nil) as JSON and decodes the reply into out.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, out any) error {
	var rd io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	body, err := c.send(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// send executes req and turns non-2xx answers into *APIError.
func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return body, nil
}
