package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/manifest-network/stxgen/internal/generator"
	"github.com/manifest-network/stxgen/internal/metrics"
	"github.com/manifest-network/stxgen/internal/utils"
)

const (
	// DefaultHost is where the mock node listens unless WithHost says otherwise.
	DefaultHost = "localhost"

	// NewBlockEndpoint receives stacks blocks on the stacks port.
	NewBlockEndpoint = "/new_block"
	// NewBurnBlockEndpoint receives burn blocks on the stacks port.
	NewBurnBlockEndpoint = "/new_burn_block"
	// IncrementChainTipEndpoint advances the mock bitcoin chain and answers
	// with the new tip as decimal text.
	IncrementChainTipEndpoint = "/increment-chain-tip"

	contentTypeApplicationJSON = "application/json"
)

// NetworkError is returned when a request to the mock node does not complete.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when the mock bitcoin node acknowledges a chain
// tip other than the one the client advanced to.
type ProtocolError struct {
	Expected     uint64
	Acknowledged string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("mock bitcoin node acknowledged chain tip %q, expected %d", e.Acknowledged, e.Expected)
}

// AcknowledgedHeight parses the chain tip the mock node reported.
func (e *ProtocolError) AcknowledgedHeight() (uint64, error) {
	return utils.ParseChainTip(e.Acknowledged)
}

// MockNodeClient announces synthetic blocks to a mock Stacks node and drives
// the chain tip of its companion mock bitcoin node. Requests are attempted
// once; retry policy belongs to the caller.
type MockNodeClient struct {
	client *resty.Client
	host   string
}

// Option configures a MockNodeClient.
type Option func(*MockNodeClient)

// WithHost overrides the host the mock node listens on.
func WithHost(host string) Option {
	return func(c *MockNodeClient) {
		c.host = host
	}
}

// WithRestyClient replaces the underlying HTTP client.
func WithRestyClient(client *resty.Client) Option {
	return func(c *MockNodeClient) {
		c.client = client
	}
}

// NewMockNodeClient returns a client for a mock node on DefaultHost with
// resty retries disabled.
func NewMockNodeClient(opts ...Option) *MockNodeClient {
	c := &MockNodeClient{
		client: resty.New().SetRetryCount(0),
		host:   DefaultHost,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MockNodeClient) url(port uint16, endpoint string) string {
	return fmt.Sprintf("http://%s:%d%s", c.host, port, endpoint)
}

// send posts body (nil for an empty request) and returns the response text.
// The outcome is left for the caller to record.
func (c *MockNodeClient) send(ctx context.Context, port uint16, endpoint string, body []byte) (string, error) {
	req := c.client.R().SetContext(ctx)
	if body != nil {
		req = req.SetHeader("Content-Type", contentTypeApplicationJSON).SetBody(body)
	}

	resp, err := req.Post(c.url(port, endpoint))
	if err != nil {
		return "", &NetworkError{Endpoint: endpoint, Err: err}
	}

	if resp.IsError() {
		slog.Debug("Mock node returned an error status", "endpoint", endpoint, "status", resp.StatusCode())
	}
	return resp.String(), nil
}

// post is send with the transport outcome recorded in metrics.
func (c *MockNodeClient) post(ctx context.Context, port uint16, endpoint string, body []byte) (string, error) {
	started := time.Now()
	text, err := c.send(ctx, port, endpoint, body)
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusNetworkError
	}
	metrics.ObserveAnnouncement(endpoint, status, started)
	return text, err
}

// AnnounceStacksBlock posts the synthetic block at height to /new_block.
// The response body is read and discarded; its status is not interpreted.
func (c *MockNodeClient) AnnounceStacksBlock(ctx context.Context, port uint16, height, burnHeight uint64) error {
	block := generator.NewStacksBlock(height, burnHeight)
	data, err := json.Marshal(block)
	if err != nil {
		return &generator.EncodeError{Height: height, Err: err}
	}

	if _, err := c.post(ctx, port, NewBlockEndpoint, data); err != nil {
		return fmt.Errorf("failed to send new_block request: %w", err)
	}

	slog.Debug("Announced stacks block", "height", height, "burnHeight", burnHeight)
	return nil
}

// AnnounceBurnBlock advances the mock bitcoin node's chain tip and, once the
// new tip is acknowledged as burnHeight, posts the burn block to the Stacks
// node's /new_burn_block. A mismatched acknowledgment is a *ProtocolError and
// no burn block is sent.
func (c *MockNodeClient) AnnounceBurnBlock(ctx context.Context, stacksPort, bitcoinPort uint16, burnHeight uint64) error {
	started := time.Now()
	ack, err := c.send(ctx, bitcoinPort, IncrementChainTipEndpoint, nil)
	if err != nil {
		metrics.ObserveAnnouncement(IncrementChainTipEndpoint, metrics.StatusNetworkError, started)
		return fmt.Errorf("mock bitcoin rpc endpoint increment-chain-tip failed: %w", err)
	}

	acknowledged := strings.TrimSpace(ack)
	if acknowledged != strconv.FormatUint(burnHeight, 10) {
		metrics.ObserveAnnouncement(IncrementChainTipEndpoint, metrics.StatusProtocolError, started)
		return &ProtocolError{Expected: burnHeight, Acknowledged: acknowledged}
	}
	metrics.ObserveAnnouncement(IncrementChainTipEndpoint, metrics.StatusOK, started)
	metrics.BurnChainTip.Set(float64(burnHeight))

	block := generator.NewBurnBlock(burnHeight)
	data, err := json.Marshal(block)
	if err != nil {
		return &generator.EncodeError{Height: burnHeight, Err: err}
	}

	if _, err := c.post(ctx, stacksPort, NewBurnBlockEndpoint, data); err != nil {
		return fmt.Errorf("failed to send new_burn_block request: %w", err)
	}

	slog.Debug("Announced burn block", "burnHeight", burnHeight)
	return nil
}
