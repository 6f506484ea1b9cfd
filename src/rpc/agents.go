package rpc

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Agent is a normalised agent record. The server emits both snake_case and
// short field names depending on version; either is accepted.
type Agent struct {
	ID         string
	Hostname   string
	OS         string
	Arch       string
	IP         string
	Username   string
	Registered time.Time
}

func (c *Client) Agents(ctx context.Context) ([]Agent, error) {
	const op = "agents"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/agents", nil)
	if err != nil {
		return nil, &Error{Kind: ErrProtocol, Op: op, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrNetwork, Op: op, Status: resp.StatusCode, Err: err}
	}
	if err := statusError(op, "", resp.StatusCode, raw); err != nil {
		return nil, err
	}
	return ParseAgents(raw)
}

// Agent looks up a single agent by id.
func (c *Client) Agent(ctx context.Context, id string) (Agent, error) {
	agents, err := c.Agents(ctx)
	if err != nil {
		return Agent{}, err
	}
	for _, a := range agents {
		if a.ID == id {
			return a, nil
		}
	}
	return Agent{}, &Error{Kind: ErrAgentNotFound, Op: "agents", Agent: id}
}

// ParseAgents decodes an agent list body. Records without any id are skipped.
func ParseAgents(raw []byte) ([]Agent, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &Error{Kind: ErrProtocol, Op: "agents", Message: "malformed agent list"}
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return nil, &Error{Kind: ErrProtocol, Op: "agents", Message: "agent list is not an array"}
	}
	var agents []Agent
	doc.ForEach(func(_, rec gjson.Result) bool {
		id := either(rec, "agent_id", "id")
		if id == "" {
			return true
		}
		a := Agent{
			ID:       id,
			Hostname: orDefault(rec.Get("hostname").String(), "Unknown Host"),
			OS:       orDefault(rec.Get("os").String(), "Unknown OS"),
			Arch:     orDefault(either(rec, "architecture", "arch"), "Unknown Arch"),
			IP:       orDefault(either(rec, "ip_address", "ip"), "Unknown IP"),
			Username: rec.Get("username").String(),
		}
		if ts := rec.Get("registration_time"); ts.Exists() && ts.Int() > 0 {
			a.Registered = time.Unix(ts.Int(), 0)
		}
		agents = append(agents, a)
		return true
	})
	return agents, nil
}

func either(rec gjson.Result, primary, fallback string) string {
	if v := rec.Get(primary).String(); v != "" {
		return v
	}
	return rec.Get(fallback).String()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
