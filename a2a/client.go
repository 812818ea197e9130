package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/costmesh/internal/util"
	"github.com/hupe1980/costmesh/logging"
)

// Client is a typed connection to one remote agent, bound to the address and
// identity captured in its card. It wraps the JSON-RPC round trips of the
// task boundary and a bounded wait for a remote task to reach terminal state.
type Client struct {
	card         AgentCard
	endpoint     string
	hc           *http.Client
	logger       logging.Logger
	pollInitial  time.Duration
	pollMax      time.Duration
	waitForAgent time.Duration
}

// ClientOptions configure a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	Logger     logging.Logger
	// PollInitial is the first poll interval of WaitForTerminal; subsequent
	// intervals back off exponentially up to PollMax.
	PollInitial time.Duration
	PollMax     time.Duration
	// WaitTimeout bounds the total duration of WaitForTerminal.
	WaitTimeout time.Duration
}

// NewClient constructs a client for the agent described by card.
func NewClient(card AgentCard, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		Logger:      logging.NoOpLogger{},
		PollInitial: 200 * time.Millisecond,
		PollMax:     2 * time.Second,
		WaitTimeout: 2 * time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		card:         card,
		endpoint:     strings.TrimRight(card.URL, "/") + "/",
		hc:           opts.HTTPClient,
		logger:       opts.Logger,
		pollInitial:  opts.PollInitial,
		pollMax:      opts.PollMax,
		waitForAgent: opts.WaitTimeout,
	}
}

// Card returns the agent card this client was built from.
func (c *Client) Card() AgentCard { return c.card }

// SendMessage submits a message via message/send and returns the Task the
// remote created for it. The returned task may be non-terminal; use
// WaitForTerminal to await its outcome.
func (c *Client) SendMessage(ctx context.Context, msg Message) (*Task, error) {
	params := MessageSendParams{Message: msg, ContextID: msg.ContextID}

	var raw json.RawMessage
	if err := c.call(ctx, MethodMessageSend, params, &raw); err != nil {
		return nil, err
	}
	return c.decodeTask(raw)
}

// GetTask fetches the current snapshot of a remote task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var raw json.RawMessage
	if err := c.call(ctx, MethodTasksGet, TaskIDParams{ID: taskID}, &raw); err != nil {
		return nil, err
	}
	return c.decodeTask(raw)
}

// CancelTask requests cancellation of a remote task. Best effort: the remote
// may already be terminal.
func (c *Client) CancelTask(ctx context.Context, taskID string) (*Task, error) {
	var raw json.RawMessage
	if err := c.call(ctx, MethodTasksCancel, TaskIDParams{ID: taskID}, &raw); err != nil {
		return nil, err
	}
	return c.decodeTask(raw)
}

// WaitForTerminal polls tasks/get with exponential backoff until the task
// reaches a terminal state, the context is done, or the configured wait
// timeout elapses. Timeout surfaces as a RemoteError wrapping ErrWaitTimeout.
func (c *Client) WaitForTerminal(ctx context.Context, taskID string) (*Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.waitForAgent)
	defer cancel()

	interval := c.pollInitial
	for {
		t, err := c.GetTask(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &RemoteError{Agent: c.card.Name, URL: c.card.URL, Cause: ErrWaitTimeout}
			}
			return nil, err
		}
		if t.Status.State.Terminal() {
			return t, nil
		}

		select {
		case <-ctx.Done():
			return nil, &RemoteError{Agent: c.card.Name, URL: c.card.URL, Cause: ErrWaitTimeout}
		case <-time.After(interval):
		}
		if interval = interval * 3 / 2; interval > c.pollMax {
			interval = c.pollMax
		}
	}
}

// call performs one JSON-RPC round trip.
func (c *Client) call(ctx context.Context, method string, params any, result *json.RawMessage) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}

	reqBody, err := json.Marshal(Request{
		JSONRPC: "2.0",
		ID:      util.NewID(),
		Method:  method,
		Params:  paramsJSON,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return &RemoteError{Agent: c.card.Name, URL: c.card.URL, Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.hc.Do(httpReq)
	if err != nil {
		return &RemoteError{Agent: c.card.Name, URL: c.card.URL, Cause: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return &RemoteError{Agent: c.card.Name, URL: c.card.URL, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if resp.Error != nil {
		return &RemoteError{Agent: c.card.Name, URL: c.card.URL, Cause: resp.Error}
	}

	*result = resp.Result
	return nil
}

// decodeTask decodes a JSON-RPC result expected to be a Task. Any other
// result variant is a ResponseShapeError: the caller must abort rather than
// guess at intent.
func (c *Client) decodeTask(raw json.RawMessage) (*Task, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &ResponseShapeError{Agent: c.card.Name, Got: "undecodable result"}
	}
	if probe.Kind != "task" {
		c.logger.Warn("a2a.client.non_task_result", "agent", c.card.Name, "kind", probe.Kind)
		return nil, &ResponseShapeError{Agent: c.card.Name, Got: probe.Kind}
	}

	var t Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, &ResponseShapeError{Agent: c.card.Name, Got: "malformed task"}
	}
	return &t, nil
}
