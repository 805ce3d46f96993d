package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lamim/dialprobe/internal/config"
	"github.com/lamim/dialprobe/pkg/models"
)

// DefaultHTTPTimeout is used when the configuration carries no timeout
const DefaultHTTPTimeout = 60 * time.Second

// Recorder receives per-request measurements
type Recorder interface {
	RecordRequest(deployment string, duration time.Duration, outcome string)
	RecordChoices(deployment string, count int)
}

// Client performs single chat completion calls against one gateway deployment.
// It never retries; every failure is returned to the caller as an *Error.
type Client struct {
	httpClient *http.Client
	endpoint   string
	modelsURL  string
	deployment string
	apiKey     string
	logger     *slog.Logger
	recorder   Recorder
	echoOut    io.Writer
	echo       EchoOptions
}

// NewClient validates the credential and endpoint and returns a client bound to deployment.
// No network activity happens here.
func NewClient(cfg *config.Config, secrets *config.Secrets, deployment string, logger *slog.Logger) (*Client, error) {
	if err := secrets.Check(); err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "configure client", Err: err}
	}
	if cfg == nil {
		return nil, &Error{Kind: KindConfiguration, Op: "configure client", Message: "configuration is required"}
	}

	deployment = strings.TrimSpace(deployment)
	if deployment == "" {
		return nil, &Error{Kind: KindInvalidInput, Op: "configure client", Message: "deployment name must not be empty"}
	}

	endpoint := cfg.Dial.EndpointFor(deployment)
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &Error{Kind: KindInvalidInput, Op: "configure client", Message: fmt.Sprintf("invalid endpoint %q", endpoint), Err: err}
	}

	modelsURL, err := cfg.Dial.ResolveModelsURL()
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Op: "configure client", Err: err}
	}

	timeout := cfg.Dial.Timeout()
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint:   endpoint,
		modelsURL:  modelsURL,
		deployment: deployment,
		apiKey:     secrets.APIKey,
		logger:     logger.With("deployment", deployment),
	}, nil
}

// Endpoint returns the resolved chat completions URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Deployment returns the deployment name the client is bound to
func (c *Client) Deployment() string {
	return c.deployment
}

// SetRecorder attaches a metrics recorder
func (c *Client) SetRecorder(r Recorder) {
	c.recorder = r
}

// SetEcho enables console echo of requests and responses. A nil writer disables it.
func (c *Client) SetEcho(out io.Writer, opts EchoOptions) {
	c.echoOut = out
	c.echo = opts
}

// GetCompletion sends the conversation and returns one assistant message per choice, in response order.
// When params carries a whole-number n, exactly n choices must come back.
func (c *Client) GetCompletion(ctx context.Context, messages []models.Message, params Params) ([]models.Message, error) {
	resp, err := c.ChatCompletion(ctx, messages, params)
	if err != nil {
		return nil, err
	}

	if want, ok := params.N(); ok && len(resp.Choices) != want {
		return nil, &Error{
			Kind:    KindEmptyResponse,
			Op:      "chat completion",
			Message: fmt.Sprintf("expected %d choices, got %d", want, len(resp.Choices)),
		}
	}

	out := make([]models.Message, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		out = append(out, models.NewAssistantMessage(choice.Message.Content))
	}
	return out, nil
}

// ChatCompletion sends one chat completion request and returns the decoded response.
// The body is {"messages": [...]} plus every entry of params.
func (c *Client) ChatCompletion(ctx context.Context, messages []models.Message, params Params) (*ChatCompletionResponse, error) {
	const op = "chat completion"

	if len(messages) == 0 {
		return nil, &Error{Kind: KindInvalidInput, Op: op, Message: "at least one message is required"}
	}
	for i, m := range messages {
		if !m.Role.Valid() {
			return nil, &Error{Kind: KindInvalidInput, Op: op, Message: fmt.Sprintf("message %d has unknown role %q", i, m.Role)}
		}
	}
	if _, ok := params["messages"]; ok {
		return nil, &Error{Kind: KindInvalidInput, Op: op, Message: `"messages" cannot be passed as a parameter`}
	}

	reqBody := make(map[string]any, len(params)+1)
	for k, v := range params {
		reqBody[k] = v
	}
	reqBody["messages"] = messages

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Op: op, Message: "failed to marshal request", Err: err}
	}

	if c.echoOut != nil && c.echo.Request {
		c.echoRequest(body)
	}

	respBody, err := c.do(ctx, op, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, err
	}

	// Parse response
	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, Message: "failed to parse response", Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &Error{Kind: KindEmptyResponse, Op: op, Message: "no choices returned in response"}
	}

	if c.recorder != nil {
		c.recorder.RecordChoices(c.deployment, len(resp.Choices))
	}

	if c.echoOut != nil {
		c.echoResponse(respBody, &resp)
	}

	return &resp, nil
}

// ListModels fetches the deployments exposed by the gateway
func (c *Client) ListModels(ctx context.Context) (*ModelList, error) {
	const op = "list models"

	respBody, err := c.do(ctx, op, http.MethodGet, c.modelsURL, nil)
	if err != nil {
		return nil, err
	}

	var list ModelList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, Message: "failed to parse response", Err: err}
	}
	return &list, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Op: op, Message: "failed to create request", Err: err}
	}

	// Set headers
	httpReq.Header.Set("api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("API request", "op", op, "method", method, "endpoint", endpoint, "body_bytes", len(body))

	start := time.Now()
	respBody, status, err := c.send(httpReq)
	duration := time.Since(start)

	if err != nil {
		apiErr := &Error{Kind: KindTransport, Op: op, Err: err}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			apiErr.Message = fmt.Sprintf("request timed out after %s", duration.Round(time.Millisecond))
		}
		c.finish(op, duration, apiErr)
		return nil, apiErr
	}

	// Check status code
	if status != http.StatusOK {
		apiErr := &Error{
			Kind:       KindHTTP,
			Op:         op,
			StatusCode: status,
			Body:       string(respBody),
		}
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			apiErr.Message = errResp.Error.Message
		}
		c.finish(op, duration, apiErr)
		return nil, apiErr
	}

	c.finish(op, duration, nil)
	return respBody, nil
}

func (c *Client) send(req *http.Request) ([]byte, int, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	// Read response body
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return respBody, httpResp.StatusCode, nil
}

func (c *Client) finish(op string, duration time.Duration, err *Error) {
	outcome := "success"
	if err != nil {
		outcome = err.Kind.String()
		c.logger.Warn("API request failed",
			"op", op,
			"kind", outcome,
			"status", err.StatusCode,
			"duration", duration,
			"error", err.Error())
	} else {
		c.logger.Info("API request completed", "op", op, "duration", duration)
	}

	if c.recorder != nil {
		c.recorder.RecordRequest(c.deployment, duration, outcome)
	}
}
