package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifest-network/stxgen/internal/generator"
	"github.com/manifest-network/stxgen/internal/metrics"
	"github.com/manifest-network/stxgen/internal/models"
)

// journal records the order of requests across several mock nodes.
type journal struct {
	mu    sync.Mutex
	paths []string
}

func (j *journal) record(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.paths = append(j.paths, path)
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.paths...)
}

// mockNode is a call-recording test double for either side of the protocol.
type mockNode struct {
	mu       sync.Mutex
	calls    []string
	bodies   map[string][]byte
	headers  map[string]http.Header
	tipReply string
	status   int
	journal  *journal
}

func newMockNode(t *testing.T, order *journal) (*mockNode, uint16) {
	t.Helper()

	node := &mockNode{
		bodies:  make(map[string][]byte),
		headers: make(map[string]http.Header),
		status:  http.StatusOK,
		journal: order,
	}
	srv := httptest.NewServer(http.HandlerFunc(node.serve))
	t.Cleanup(srv.Close)

	return node, serverPort(t, srv)
}

func (n *mockNode) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	n.mu.Lock()
	n.calls = append(n.calls, r.URL.Path)
	n.bodies[r.URL.Path] = body
	n.headers[r.URL.Path] = r.Header.Clone()
	status, tipReply := n.status, n.tipReply
	n.mu.Unlock()

	if n.journal != nil {
		n.journal.record(r.URL.Path)
	}

	w.WriteHeader(status)
	if r.URL.Path == IncrementChainTipEndpoint {
		_, _ = w.Write([]byte(tipReply))
		return
	}
	_, _ = w.Write([]byte("ok"))
}

func (n *mockNode) configure(status int, tipReply string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = status
	n.tipReply = tipReply
}

func (n *mockNode) body(path string) []byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bodies[path]
}

func (n *mockNode) header(path string) http.Header {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.headers[path]
}

func (n *mockNode) callCount(path string) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := 0
	for _, call := range n.calls {
		if call == path {
			count++
		}
	}
	return count
}

func serverPort(t *testing.T, srv *httptest.Server) uint16 {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.ParseUint(u.Port(), 10, 16)
	require.NoError(t, err)
	return uint16(port)
}

// closedPort returns a port nothing listens on anymore.
func closedPort(t *testing.T) uint16 {
	t.Helper()

	srv := httptest.NewServer(http.NotFoundHandler())
	port := serverPort(t, srv)
	srv.Close()
	return port
}

func newTestClient() *MockNodeClient {
	return NewMockNodeClient(WithHost("127.0.0.1"))
}

func TestAnnounceStacksBlock(t *testing.T) {
	node, port := newMockNode(t, nil)

	err := newTestClient().AnnounceStacksBlock(context.Background(), port, 5, 105)
	require.NoError(t, err)

	assert.Equal(t, 1, node.callCount(NewBlockEndpoint))
	assert.Equal(t, "application/json", node.header(NewBlockEndpoint).Get("Content-Type"))

	var block models.Block
	require.NoError(t, json.Unmarshal(node.body(NewBlockEndpoint), &block))
	assert.Equal(t, generator.NewStacksBlock(5, 105), &block)
}

func TestAnnounceStacksBlockIgnoresErrorStatus(t *testing.T) {
	node, port := newMockNode(t, nil)
	node.configure(http.StatusInternalServerError, "")

	err := newTestClient().AnnounceStacksBlock(context.Background(), port, 1, 101)
	assert.NoError(t, err)
	assert.Equal(t, 1, node.callCount(NewBlockEndpoint))
}

func TestAnnounceStacksBlockNetworkError(t *testing.T) {
	err := newTestClient().AnnounceStacksBlock(context.Background(), closedPort(t), 1, 101)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, NewBlockEndpoint, netErr.Endpoint)
}

func TestAnnounceStacksBlockCanceledContext(t *testing.T) {
	node, port := newMockNode(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestClient().AnnounceStacksBlock(ctx, port, 1, 101)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, node.callCount(NewBlockEndpoint))
}

func TestAnnounceBurnBlock(t *testing.T) {
	order := &journal{}
	stacks, stacksPort := newMockNode(t, order)
	bitcoin, bitcoinPort := newMockNode(t, order)
	bitcoin.configure(http.StatusOK, "105")

	err := newTestClient().AnnounceBurnBlock(context.Background(), stacksPort, bitcoinPort, 105)
	require.NoError(t, err)

	assert.Equal(t, []string{IncrementChainTipEndpoint, NewBurnBlockEndpoint}, order.snapshot())
	assert.Empty(t, bitcoin.body(IncrementChainTipEndpoint))
	assert.Equal(t, 1, stacks.callCount(NewBurnBlockEndpoint))
	assert.Equal(t, "application/json", stacks.header(NewBurnBlockEndpoint).Get("Content-Type"))

	var block models.BurnBlock
	require.NoError(t, json.Unmarshal(stacks.body(NewBurnBlockEndpoint), &block))
	assert.Equal(t, generator.NewBurnBlock(105), &block)
}

func TestAnnounceBurnBlockAcceptsTrailingNewline(t *testing.T) {
	stacks, stacksPort := newMockNode(t, nil)
	bitcoin, bitcoinPort := newMockNode(t, nil)
	bitcoin.configure(http.StatusOK, "7\n")

	err := newTestClient().AnnounceBurnBlock(context.Background(), stacksPort, bitcoinPort, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, stacks.callCount(NewBurnBlockEndpoint))
}

func TestAnnounceBurnBlockProtocolError(t *testing.T) {
	cases := []struct {
		name       string
		reply      string
		wantHeight uint64
		wantParse  bool
	}{
		{name: "mock chain behind", reply: "104", wantHeight: 104, wantParse: true},
		{name: "mock chain ahead", reply: "106", wantHeight: 106, wantParse: true},
		{name: "garbage", reply: "not a height", wantParse: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stacks, stacksPort := newMockNode(t, nil)
			bitcoin, bitcoinPort := newMockNode(t, nil)
			bitcoin.configure(http.StatusOK, tc.reply)

			err := newTestClient().AnnounceBurnBlock(context.Background(), stacksPort, bitcoinPort, 105)

			var protoErr *ProtocolError
			require.ErrorAs(t, err, &protoErr)
			assert.Equal(t, uint64(105), protoErr.Expected)
			assert.Equal(t, tc.reply, protoErr.Acknowledged)

			height, parseErr := protoErr.AcknowledgedHeight()
			if tc.wantParse {
				assert.NoError(t, parseErr)
				assert.Equal(t, tc.wantHeight, height)
			} else {
				assert.Error(t, parseErr)
			}

			assert.Equal(t, 1, bitcoin.callCount(IncrementChainTipEndpoint))
			assert.Equal(t, 0, stacks.callCount(NewBurnBlockEndpoint))
		})
	}
}

func TestAnnounceBurnBlockBitcoinUnreachable(t *testing.T) {
	stacks, stacksPort := newMockNode(t, nil)

	err := newTestClient().AnnounceBurnBlock(context.Background(), stacksPort, closedPort(t), 3)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, IncrementChainTipEndpoint, netErr.Endpoint)
	assert.Equal(t, 0, stacks.callCount(NewBurnBlockEndpoint))
}

func TestAnnounceBurnBlockStacksUnreachable(t *testing.T) {
	bitcoin, bitcoinPort := newMockNode(t, nil)
	bitcoin.configure(http.StatusOK, "3")

	err := newTestClient().AnnounceBurnBlock(context.Background(), closedPort(t), bitcoinPort, 3)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, NewBurnBlockEndpoint, netErr.Endpoint)
	assert.Equal(t, 1, bitcoin.callCount(IncrementChainTipEndpoint))
}

func chainTipCount(status string) float64 {
	return testutil.ToFloat64(metrics.AnnouncementsTotal.WithLabelValues(IncrementChainTipEndpoint, status))
}

func TestAnnounceBurnBlockCountsChainTipOutcomeOnce(t *testing.T) {
	cases := []struct {
		name        string
		reply       string
		unreachable bool
		wantStatus  string
	}{
		{name: "acknowledged", reply: "9", wantStatus: metrics.StatusOK},
		{name: "mismatch", reply: "999", wantStatus: metrics.StatusProtocolError},
		{name: "unreachable", unreachable: true, wantStatus: metrics.StatusNetworkError},
	}
	statuses := []string{metrics.StatusOK, metrics.StatusProtocolError, metrics.StatusNetworkError}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, stacksPort := newMockNode(t, nil)
			bitcoinPort := closedPort(t)
			if !tc.unreachable {
				var bitcoin *mockNode
				bitcoin, bitcoinPort = newMockNode(t, nil)
				bitcoin.configure(http.StatusOK, tc.reply)
			}

			before := make(map[string]float64, len(statuses))
			for _, status := range statuses {
				before[status] = chainTipCount(status)
			}

			_ = newTestClient().AnnounceBurnBlock(context.Background(), stacksPort, bitcoinPort, 9)

			for _, status := range statuses {
				want := before[status]
				if status == tc.wantStatus {
					want++
				}
				assert.Equal(t, want, chainTipCount(status), status)
			}
		})
	}
}

func TestURL(t *testing.T) {
	c := NewMockNodeClient()
	assert.Equal(t, "http://localhost:20443/new_block", c.url(20443, NewBlockEndpoint))
}
