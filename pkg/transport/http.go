// Package transport provides the default HTTP/JSON implementation of
// api.NodeClient.
//
// Every call is bounded by the configured request timeout so one slow node
// cannot stall a full-cluster round. Failures are normalized per the
// api.NodeClient contract: read endpoints surface api.ErrUnreachable, write
// endpoints surface *api.DispatchError when the node answered and
// api.ErrUnreachable when it did not. The read endpoints of each node are
// additionally guarded by a circuit breaker: a node that keeps failing is
// reported unreachable without a network round-trip until its reset timeout
// expires.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/internal/cbreaker"
)

// HTTPNodeClient talks to one cluster node's REST surface.
type HTTPNodeClient struct {
	nodeID  int
	baseURL string
	timeout time.Duration
	client  *http.Client
	breaker *cbreaker.CircuitBreaker
}

var _ api.NodeClient = (*HTTPNodeClient)(nil)

// NewHTTPNodeClient builds a client for the node with the given id and base
// URL ("http://host:port").
func NewHTTPNodeClient(nodeID int, baseURL string, timeout time.Duration, cb api.CircuitBreakerCfg) *HTTPNodeClient {
	return &HTTPNodeClient{
		nodeID:  nodeID,
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{},
		breaker: cbreaker.NewCircuitBreaker(cb.FailureThreshold, cb.SuccessThreshold, cb.ResetTimeout),
	}
}

// NewClients builds one HTTP client per configured node, in node-ID order.
func NewClients(cluster api.ClusterCfg, timeout time.Duration, cb api.CircuitBreakerCfg) []api.NodeClient {
	clients := make([]api.NodeClient, 0, cluster.Nodes)
	for id := 1; id <= cluster.Nodes; id++ {
		clients = append(clients, NewHTTPNodeClient(id, cluster.Address(id), timeout, cb))
	}
	return clients
}

func (c *HTTPNodeClient) NodeID() int { return c.nodeID }

// statusResponse is the /status body. Nodes report errors in-band with 200.
type statusResponse struct {
	api.NodeState
	Error string `json:"error"`
}

func (c *HTTPNodeClient) Status(ctx context.Context) (*api.NodeState, error) {
	ns, err := cbreaker.Do(ctx, c.breaker, func(ctx context.Context) (*api.NodeState, error) {
		var resp statusResponse
		if err := c.getJSON(ctx, "/status", &resp); err != nil {
			return nil, err
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("node %d reported %q: %w", c.nodeID, resp.Error, api.ErrUnreachable)
		}
		if resp.NodeID == 0 {
			resp.NodeID = c.nodeID
		}
		return &resp.NodeState, nil
	})
	return ns, c.normalizeBreaker(err)
}

// normalizeBreaker maps an open-breaker refusal onto the unreachable
// condition the NodeClient contract promises for read endpoints.
func (c *HTTPNodeClient) normalizeBreaker(err error) error {
	if errors.Is(err, cbreaker.ErrOpenState) {
		return fmt.Errorf("node %d: circuit open: %w", c.nodeID, api.ErrUnreachable)
	}
	return err
}

type proposeRequest struct {
	Operation string `json:"operation"`
}

type proposeResponse struct {
	Success  bool               `json:"success"`
	NewState map[string]float64 `json:"new_state"`
	Error    string             `json:"error"`
	Leader   string             `json:"leader"`
}

func (c *HTTPNodeClient) Propose(ctx context.Context, payload string) (*api.ProposeResult, error) {
	body, status, err := c.post(ctx, "/propose", proposeRequest{Operation: payload})
	if err != nil {
		return nil, fmt.Errorf("node %d propose: %w: %v", c.nodeID, api.ErrUnreachable, err)
	}

	var resp proposeResponse
	if jerr := json.Unmarshal(body, &resp); jerr != nil {
		if status/100 != 2 {
			return nil, &api.DispatchError{
				Reason: api.ReasonRejected,
				Detail: fmt.Sprintf("node %d answered HTTP %d", c.nodeID, status),
			}
		}
		return nil, &api.DispatchError{
			Reason: api.ReasonMalformedResponse,
			Detail: fmt.Sprintf("node %d: %v", c.nodeID, jerr),
		}
	}

	if status/100 != 2 {
		detail := resp.Error
		if detail == "" {
			detail = fmt.Sprintf("node %d answered HTTP %d", c.nodeID, status)
		}
		return nil, &api.DispatchError{
			Reason:     api.ReasonRejected,
			Detail:     detail,
			LeaderHint: resp.Leader,
		}
	}

	result := &api.ProposeResult{
		Success:    resp.Success,
		Err:        resp.Error,
		LeaderHint: resp.Leader,
	}
	if resp.NewState != nil {
		result.NewState = make(map[api.Account]float64, len(resp.NewState))
		for acc, bal := range resp.NewState {
			result.NewState[api.Account(acc)] = bal
		}
	}
	return result, nil
}

type switchRequest struct {
	Algorithm api.Algorithm `json:"algorithm"`
}

func (c *HTTPNodeClient) SwitchAlgorithm(ctx context.Context, algo api.Algorithm) error {
	return c.ack(ctx, "/switch_algorithm", switchRequest{Algorithm: algo})
}

func (c *HTTPNodeClient) Reset(ctx context.Context) error {
	return c.ack(ctx, "/reset", nil)
}

func (c *HTTPNodeClient) StartElection(ctx context.Context) error {
	return c.ack(ctx, "/start_election", nil)
}

// ack posts a request whose only interesting outcome is acceptance.
func (c *HTTPNodeClient) ack(ctx context.Context, path string, payload any) error {
	body, status, err := c.post(ctx, path, payload)
	if err != nil {
		return fmt.Errorf("node %d %s: %w: %v", c.nodeID, path, api.ErrUnreachable, err)
	}

	var resp struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if jerr := json.Unmarshal(body, &resp); jerr == nil {
		if resp.Error != "" || (resp.Success != nil && !*resp.Success) {
			return &api.DispatchError{
				Reason: api.ReasonRejected,
				Detail: fmt.Sprintf("node %d %s: %s", c.nodeID, path, resp.Error),
			}
		}
	}
	if status/100 != 2 {
		return &api.DispatchError{
			Reason: api.ReasonRejected,
			Detail: fmt.Sprintf("node %d %s: HTTP %d", c.nodeID, path, status),
		}
	}
	return nil
}

type consensusLogsResponse struct {
	NodeID int            `json:"node_id"`
	Logs   []api.LogEntry `json:"logs"`
}

func (c *HTTPNodeClient) FetchLogs(ctx context.Context) ([]api.LogEntry, error) {
	logs, err := cbreaker.Do(ctx, c.breaker, func(ctx context.Context) ([]api.LogEntry, error) {
		var resp consensusLogsResponse
		if err := c.getJSON(ctx, "/consensus_logs", &resp); err != nil {
			return nil, err
		}
		return resp.Logs, nil
	})
	return logs, c.normalizeBreaker(err)
}

// operationLogResponse is the /log body. Log entries are either plain wire
// strings or objects whose "message" field carries the wire string.
type operationLogResponse struct {
	NodeID int               `json:"node_id"`
	Log    []json.RawMessage `json:"log"`
}

func (c *HTTPNodeClient) FetchLog(ctx context.Context) ([]string, error) {
	entries, err := cbreaker.Do(ctx, c.breaker, func(ctx context.Context) ([]string, error) {
		var resp operationLogResponse
		if err := c.getJSON(ctx, "/log", &resp); err != nil {
			return nil, err
		}

		entries := make([]string, 0, len(resp.Log))
		for _, raw := range resp.Log {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				entries = append(entries, s)
				continue
			}
			var obj struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
				entries = append(entries, obj.Message)
			}
		}
		return entries, nil
	})
	return entries, c.normalizeBreaker(err)
}

// getJSON performs a GET and decodes the body, normalizing every failure
// mode to api.ErrUnreachable.
func (c *HTTPNodeClient) getJSON(ctx context.Context, path string, out any) error {
	tctx, tcancel := context.WithTimeout(ctx, c.timeout)
	defer tcancel()

	req, err := http.NewRequestWithContext(tctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("node %d %s: %w: %v", c.nodeID, path, api.ErrUnreachable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("node %d %s: %w: %v", c.nodeID, path, api.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("node %d %s: HTTP %d: %w", c.nodeID, path, resp.StatusCode, api.ErrUnreachable)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("node %d %s: bad body: %w", c.nodeID, path, api.ErrUnreachable)
	}
	return nil
}

// post performs a POST with an optional JSON payload and returns the raw
// body along with the HTTP status.
func (c *HTTPNodeClient) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	tctx, tcancel := context.WithTimeout(ctx, c.timeout)
	defer tcancel()

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal %s request: %w", path, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(tctx, http.MethodPost, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
