// Package rpc talks to the control server's command endpoint.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"portalctl/src/logging"
)

// Kind is the command type understood by the server. Only Shell carries
// meaning for the bridge; the rest are passed through untouched.
type Kind string

const (
	Shell      Kind = "shell"
	Upload     Kind = "upload"
	Download   Kind = "download"
	Screenshot Kind = "screenshot"
	System     Kind = "system"
	Process    Kind = "process"
)

// Kinds lists every command type the server accepts.
var Kinds = []Kind{Shell, Upload, Download, Screenshot, System, Process}

// ParseKind maps a type name to a Kind. An empty name is Shell.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return Shell, nil
	}
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &Error{Kind: ErrInvalidRequest, Op: "parse kind", Message: fmt.Sprintf("unknown command type %q", s)}
}

// Result is the decoded body of a command response.
type Result struct {
	OK     bool   `json:"success"`
	Output string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Executor runs one command on one agent.
type Executor interface {
	Execute(ctx context.Context, agentID, command string, kind Kind) (Result, error)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a thin request/response wrapper. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type commandRequest struct {
	Command string `json:"command"`
	Type    Kind   `json:"type"`
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Execute issues exactly one command on the agent. A response with
// success=false returns the decoded Result together with ErrCommandFailed.
func (c *Client) Execute(ctx context.Context, agentID, command string, kind Kind) (Result, error) {
	const op = "execute"
	if agentID == "" {
		return Result{}, &Error{Kind: ErrInvalidRequest, Op: op, Message: "empty agent id"}
	}
	if kind == "" {
		kind = Shell
	}
	if kind == Shell && command == "" {
		return Result{}, &Error{Kind: ErrInvalidRequest, Op: op, Agent: agentID, Message: "empty shell command"}
	}

	body, err := json.Marshal(commandRequest{Command: command, Type: kind})
	if err != nil {
		return Result{}, &Error{Kind: ErrProtocol, Op: op, Agent: agentID, Err: err}
	}
	endpoint := c.baseURL + "/api/agents/" + url.PathEscape(agentID) + "/command"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, &Error{Kind: ErrProtocol, Op: op, Agent: agentID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	log := logging.L().With(zap.String("agent", agentID), zap.String("kind", string(kind)))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("command transport failed", zap.Error(err))
		return Result{}, &Error{Kind: ErrNetwork, Op: op, Agent: agentID, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &Error{Kind: ErrNetwork, Op: op, Agent: agentID, Status: resp.StatusCode, Err: err}
	}
	if err := statusError(op, agentID, resp.StatusCode, raw); err != nil {
		log.Warn("command rejected", zap.Int("status", resp.StatusCode))
		return Result{}, err
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, &Error{Kind: ErrProtocol, Op: op, Agent: agentID, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	log.Debug("command finished",
		zap.Bool("ok", result.OK),
		zap.Int("bytes", len(result.Output)),
		zap.Duration("took", time.Since(start)))
	if !result.OK {
		msg := result.Error
		if msg == "" {
			msg = "command reported failure"
		}
		return result, &Error{Kind: ErrCommandFailed, Op: op, Agent: agentID, Message: msg}
	}
	return result, nil
}

func statusError(op, agentID string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	text := strings.TrimSpace(string(body))
	if status == http.StatusNotFound {
		return &Error{Kind: ErrAgentNotFound, Op: op, Agent: agentID, Status: status, Message: text}
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return &Error{Kind: ErrProtocol, Op: op, Agent: agentID, Status: status, Message: text}
}

// ShellOutput runs a shell command and returns only its output.
func ShellOutput(ctx context.Context, exec Executor, agentID, command string) (string, error) {
	res, err := exec.Execute(ctx, agentID, command, Shell)
	if err != nil {
		return "", fmt.Errorf("%s: %w", firstWord(command), err)
	}
	return res.Output, nil
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}
