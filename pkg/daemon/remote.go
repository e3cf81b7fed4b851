package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/idle"
	"github.com/grovetools/nudge/internal/trigger"
	"github.com/grovetools/nudge/internal/trust"
)

// RemoteClient implements Client by calling the daemon's HTTP API over a Unix socket.
type RemoteClient struct {
	httpClient *http.Client
	socketPath string
}

// NewRemoteClient creates a new RemoteClient connected to the daemon socket.
func NewRemoteClient(socketPath string) (*RemoteClient, error) {
	// Create HTTP client that dials Unix socket
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		DisableKeepAlives: false,
		MaxIdleConns:      10,
		IdleConnTimeout:   90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   10 * time.Second,
	}

	return &RemoteClient{
		httpClient: client,
		socketPath: socketPath,
	}, nil
}

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

// SocketPath returns the socket the client dials.
func (c *RemoteClient) SocketPath() string {
	return c.socketPath
}

// do sends a request and decodes a JSON response into out (if non-nil).
// Error responses carrying a NudgeError body are returned as that error.
func (c *RemoteClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.DaemonUnavailable(c.socketPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, fmt.Sprintf("failed to decode %s response", path))
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var ne errors.NudgeError
	if err := json.Unmarshal(data, &ne); err == nil && ne.Code != "" {
		return &ne
	}
	return errors.New(errors.ErrCodeInternal, fmt.Sprintf("daemon returned status %d", resp.StatusCode)).
		WithDetail("body", strings.TrimSpace(string(data)))
}

// Decision returns the current decision.
func (c *RemoteClient) Decision(ctx context.Context) (*trigger.Decision, error) {
	var d trigger.Decision
	if err := c.do(ctx, http.MethodGet, "/api/decision", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// History returns up to limit transitions, most recent first.
func (c *RemoteClient) History(ctx context.Context, limit int) ([]trigger.Transition, error) {
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var transitions []trigger.Transition
	if err := c.do(ctx, http.MethodGet, path, nil, &transitions); err != nil {
		return nil, err
	}
	return transitions, nil
}

// Idle returns the daemon's idle snapshot.
func (c *RemoteClient) Idle(ctx context.Context) (*idle.Snapshot, error) {
	var snap idle.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/idle", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Submit sends one event to the trigger machine.
func (c *RemoteClient) Submit(ctx context.Context, ev trigger.Event) (*trigger.State, error) {
	var st trigger.State
	if err := c.do(ctx, http.MethodPost, "/api/events", ev, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ObserveOSIdle reports the operating system's idle time.
func (c *RemoteClient) ObserveOSIdle(ctx context.Context, d time.Duration) error {
	return c.do(ctx, http.MethodPost, "/api/os-idle", OSIdleRequest{IdleSeconds: d.Seconds()}, nil)
}

// Feedback records an outcome for a trust context.
func (c *RemoteClient) Feedback(ctx context.Context, contextKey string, outcome trust.Outcome) (*FeedbackResponse, error) {
	var res FeedbackResponse
	req := FeedbackRequest{ContextKey: contextKey, Outcome: outcome}
	if err := c.do(ctx, http.MethodPost, "/api/feedback", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Trust returns every known trust context.
func (c *RemoteClient) Trust(ctx context.Context) ([]trust.Entry, error) {
	var entries []trust.Entry
	if err := c.do(ctx, http.MethodGet, "/api/trust", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// TrustFor returns a single trust context.
func (c *RemoteClient) TrustFor(ctx context.Context, contextKey string) (*trust.Entry, error) {
	var entry trust.Entry
	if err := c.do(ctx, http.MethodGet, "/api/trust/"+url.PathEscape(contextKey), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ResetMetrics clears the feedback tally of a context.
func (c *RemoteClient) ResetMetrics(ctx context.Context, contextKey string) error {
	return c.do(ctx, http.MethodDelete, "/api/trust/"+url.PathEscape(contextKey)+"/metrics", nil, nil)
}

// RunningConfig returns the configuration the daemon is using.
func (c *RemoteClient) RunningConfig(ctx context.Context) (*RunningConfig, error) {
	var rc RunningConfig
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// Health returns the daemon's identity.
func (c *RemoteClient) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// IsRunning returns true if the daemon is available and responding.
func (c *RemoteClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Stream subscribes to real-time updates via Server-Sent Events (SSE).
// Returns a channel that receives updates. The channel is closed when the context is cancelled
// or the connection is lost.
func (c *RemoteClient) Stream(ctx context.Context) (<-chan StreamUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/api/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	// Use a separate client with no timeout for streaming
	streamTransport := &http.Transport{
		DialContext: func(dialCtx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(dialCtx, "unix", c.socketPath)
		},
	}
	streamClient := &http.Client{
		Transport: streamTransport,
		Timeout:   0, // No timeout for streaming
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, errors.DaemonUnavailable(c.socketPath, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	ch := make(chan StreamUpdate, 10)

	go func() {
		defer resp.Body.Close()
		defer close(ch)
		defer streamTransport.CloseIdleConnections()
		readStream(ctx, resp.Body, ch)
	}()

	return ch, nil
}

// readStream parses SSE data lines from r until EOF or ctx is done.
func readStream(ctx context.Context, r io.Reader, ch chan<- StreamUpdate) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		// Skip comments and empty lines
		if strings.HasPrefix(line, ":") || line == "" {
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			var update StreamUpdate
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
				continue // Skip malformed data
			}

			select {
			case ch <- update:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Ensure RemoteClient implements Client interface.
var _ Client = (*RemoteClient)(nil)
