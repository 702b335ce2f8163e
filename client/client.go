// Package client is a minimal Go client for the ACP HTTP surface,
// grounded on original_source/python/src/acp_sdk/client/client.py's method
// set (agents, run_sync/async/stream, run_status, run_cancel,
// run_resume_*), translated to explicit request/response types and a
// plain net/http.Client since no complete example repo's direct
// dependencies include a third-party REST client library to reach for
// instead.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/acp-project/acp-go/acpmodel"
	"github.com/acp-project/acp-go/transport/httpapi"
)

// Client talks to one ACP server over HTTP. SessionID, when set, is sent
// on every run creation and updated from each sync or async run-creation
// response, mirroring the Python client's session-scoped behavior; stream
// and resume calls leave it unchanged.
type Client struct {
	BaseURL    string
	SessionID  string
	HTTPClient *http.Client
}

// New constructs a Client against baseURL (no trailing slash expected).
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTPClient: http.DefaultClient}
}

// Agents lists every agent registered with the server.
func (c *Client) Agents(ctx context.Context) ([]httpapi.AgentDescriptor, error) {
	var out []httpapi.AgentDescriptor
	if err := c.doJSON(ctx, http.MethodGet, "/agents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Agent fetches one agent's descriptor by name.
func (c *Client) Agent(ctx context.Context, name string) (httpapi.AgentDescriptor, error) {
	var out httpapi.AgentDescriptor
	err := c.doJSON(ctx, http.MethodGet, "/agents/"+name, nil, &out)
	return out, err
}

// RunSync creates a run in sync mode and blocks until it reaches a
// terminal status or suspends on an AwaitRequest.
func (c *Client) RunSync(ctx context.Context, agentName string, input []acpmodel.Message) (acpmodel.Run, error) {
	return c.createRun(ctx, agentName, input, httpapi.ModeSync)
}

// RunAsync creates a run in async mode and returns immediately with its
// initial snapshot.
func (c *Client) RunAsync(ctx context.Context, agentName string, input []acpmodel.Message) (acpmodel.Run, error) {
	return c.createRun(ctx, agentName, input, httpapi.ModeAsync)
}

// RunStream creates a run in stream mode and returns the channel of SSE
// events; the channel is closed once the run reaches a terminal status or
// ctx is cancelled.
func (c *Client) RunStream(ctx context.Context, agentName string, input []acpmodel.Message) (<-chan acpmodel.Event, error) {
	body, err := json.Marshal(httpapi.CreateRunRequest{
		AgentName: agentName,
		SessionID: c.SessionID,
		Input:     input,
		Mode:      httpapi.ModeStream,
	})
	if err != nil {
		return nil, err
	}
	return c.streamRequest(ctx, http.MethodPost, "/runs", body)
}

func (c *Client) createRun(ctx context.Context, agentName string, input []acpmodel.Message, mode httpapi.Mode) (acpmodel.Run, error) {
	body, err := json.Marshal(httpapi.CreateRunRequest{
		AgentName: agentName,
		SessionID: c.SessionID,
		Input:     input,
		Mode:      mode,
	})
	if err != nil {
		return acpmodel.Run{}, err
	}
	var run acpmodel.Run
	if err := c.doJSON(ctx, http.MethodPost, "/runs", body, &run); err != nil {
		return acpmodel.Run{}, err
	}
	c.SessionID = run.SessionID
	return run, nil
}

// RunStatus fetches a run's current snapshot.
func (c *Client) RunStatus(ctx context.Context, runID string) (acpmodel.Run, error) {
	var run acpmodel.Run
	err := c.doJSON(ctx, http.MethodGet, "/runs/"+runID, nil, &run)
	return run, err
}

// RunCancel requests cancellation and returns the CANCELLING overlay the
// server responds with immediately.
func (c *Client) RunCancel(ctx context.Context, runID string) (acpmodel.Run, error) {
	var run acpmodel.Run
	err := c.doJSON(ctx, http.MethodPost, "/runs/"+runID+"/cancel", nil, &run)
	return run, err
}

// RunResumeSync answers a pending AwaitRequest and blocks for the run's
// next stopping point.
func (c *Client) RunResumeSync(ctx context.Context, runID string, resume acpmodel.AwaitResume) (acpmodel.Run, error) {
	return c.resumeRun(ctx, runID, resume, httpapi.ModeSync)
}

// RunResumeAsync answers a pending AwaitRequest and returns immediately.
func (c *Client) RunResumeAsync(ctx context.Context, runID string, resume acpmodel.AwaitResume) (acpmodel.Run, error) {
	return c.resumeRun(ctx, runID, resume, httpapi.ModeAsync)
}

// RunResumeStream answers a pending AwaitRequest and streams the run's
// subsequent events.
func (c *Client) RunResumeStream(ctx context.Context, runID string, resume acpmodel.AwaitResume) (<-chan acpmodel.Event, error) {
	body, err := json.Marshal(httpapi.ResumeRequest{AwaitResume: resume, Mode: httpapi.ModeStream})
	if err != nil {
		return nil, err
	}
	return c.streamRequest(ctx, http.MethodPost, "/runs/"+runID, body)
}

func (c *Client) resumeRun(ctx context.Context, runID string, resume acpmodel.AwaitResume, mode httpapi.Mode) (acpmodel.Run, error) {
	body, err := json.Marshal(httpapi.ResumeRequest{AwaitResume: resume, Mode: mode})
	if err != nil {
		return acpmodel.Run{}, err
	}
	var run acpmodel.Run
	err = c.doJSON(ctx, http.MethodPost, "/runs/"+runID, body, &run)
	return run, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errBody httpapi.ErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("acp client: %s %s: %d %s: %s", method, path, resp.StatusCode, errBody.Code, errBody.Message)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// streamRequest issues a request expecting a "text/event-stream" response
// and decodes each "data: ..." frame as an acpmodel.Event, the Go
// counterpart of client.py's httpx_sse-based _validate_stream.
func (c *Client) streamRequest(ctx context.Context, method, path string, body []byte) (<-chan acpmodel.Event, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errBody httpapi.ErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, fmt.Errorf("acp client: %s %s: %d %s: %s", method, path, resp.StatusCode, errBody.Code, errBody.Message)
	}

	out := make(chan acpmodel.Event)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var evt acpmodel.Event
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
