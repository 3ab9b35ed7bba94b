package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"backoffice/internal/entities"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const DefaultRequestTimeout = 10 * time.Second

// RestRequest describes one call against the managed backend.
type RestRequest struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers map[string]string
	// Timeout overrides the client default for this call only.
	Timeout time.Duration
	// DefaultMessage is used when an error body cannot be parsed.
	DefaultMessage string
}

type RestResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// RestClient issues requests to the PostgREST/storage endpoints of the backend.
// It never retries; callers decide.
type RestClient struct {
	http    *resty.Client
	apiKey  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewRestClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *RestClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetRetryCount(0).
		SetLogger(logger.Sugar()).
		SetHeader("Accept", "application/json")

	return &RestClient{
		http:    client,
		apiKey:  apiKey,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "rest_client")),
	}
}

func (c *RestClient) deadline(req RestRequest) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return c.timeout
}

// Do executes req. Non-2xx answers become *entities.APIError; an elapsed
// deadline becomes entities.ErrTimeout.
func (c *RestClient) Do(ctx context.Context, req RestRequest) (*RestResponse, error) {
	timeout := c.deadline(req)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", c.apiKey)
	if c.apiKey != "" {
		r.SetHeader("Authorization", "Bearer "+c.apiKey)
	}
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Warn("request timed out",
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.Duration("timeout", timeout),
			)
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, entities.ErrTimeout)
		}
		c.logger.Error("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}

	out := &RestResponse{
		Status: resp.StatusCode(),
		Header: resp.Header(),
		Body:   resp.Body(),
	}
	c.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", out.Status),
		zap.Duration("elapsed", time.Since(start)),
	)

	if out.Status < 200 || out.Status >= 300 {
		apiErr := NewAPIError(out.Status, out.Body, req.DefaultMessage)
		c.logger.Error("store returned an error",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("status", out.Status),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}
	return out, nil
}

// NewAPIError builds an APIError from an error body. Non-JSON bodies fall back
// to defaultMessage.
func NewAPIError(status int, body []byte, defaultMessage string) *entities.APIError {
	if defaultMessage == "" {
		defaultMessage = http.StatusText(status)
	}
	apiErr := &entities.APIError{Status: status, Message: defaultMessage}

	var parsed any
	if len(body) == 0 || json.Unmarshal(body, &parsed) != nil {
		return apiErr
	}
	apiErr.Details = parsed
	if obj, ok := parsed.(map[string]any); ok {
		for _, key := range []string{"message", "error", "details", "hint"} {
			if msg, ok := obj[key].(string); ok && msg != "" {
				apiErr.Message = msg
				break
			}
		}
	}
	return apiErr
}

// DecodeJSON decodes a response body into out, reporting a schema mismatch as
// an APIError so untyped data never travels upward.
func DecodeJSON(resp *RestResponse, out any) error {
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &entities.APIError{
			Status:  http.StatusBadGateway,
			Message: "unexpected response shape from store",
			Details: err.Error(),
		}
	}
	return nil
}

// ContentRangeTotal parses the total out of "0-9/42" or "*/0".
func ContentRangeTotal(h http.Header) (int, bool) {
	cr := h.Get("Content-Range")
	idx := strings.LastIndex(cr, "/")
	if idx < 0 || idx == len(cr)-1 {
		return 0, false
	}
	total, err := strconv.Atoi(cr[idx+1:])
	if err != nil {
		return 0, false
	}
	return total, true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Eq formats a PostgREST equality filter value.
func Eq(value string) string {
	return "eq." + value
}
