// Package orchestrator is the typed wire layer over the orchestrator's
// HTTP API: URL construction, length-prefixed binary encode/decode, header
// injection, and mapping of HTTP failures to wireerr.HTTPStatusError.
//
// The capability surface is a plain interface (Client below satisfies it)
// so tests can substitute an in-memory implementation instead of reaching
// for package-level globals.
package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nexusprover/client/internal/buildinfo"
	"github.com/nexusprover/client/internal/proof"
	"github.com/nexusprover/client/internal/task"
	"github.com/nexusprover/client/internal/wire"
	"github.com/nexusprover/client/internal/wireerr"
)

// requestTimeout bounds a single orchestrator round trip, connect through
// body read. NetworkClient's retry layer, not this timeout, is what absorbs
// a slow or wedged orchestrator.
const requestTimeout = 10 * time.Second

// API is the capability interface consumed by TaskFetcher and ProofSubmitter, so
// a scripted in-memory implementation can stand in during tests.
type API interface {
	GetUser(ctx context.Context, wallet string) (userID string, err error)
	RegisterUser(ctx context.Context, uuid, wallet string) error
	RegisterNode(ctx context.Context, userID string) (nodeID string, err error)
	GetNode(ctx context.Context, nodeID string) (wallet string, err error)
	GetTasks(ctx context.Context, nodeID string) ([]task.Task, error)
	GetProofTask(ctx context.Context, nodeID, ed25519PublicKeyHex string, maxDifficulty task.Difficulty) (task.Task, error)
	SubmitProof(ctx context.Context, sub proof.Submission) error
}

// Client is the real HTTP implementation of API.
type Client struct {
	http    *resty.Client
	baseURL string

	countryOnce sync.Once
	countryCode string
}

// New constructs a Client against baseURL (e.g. "https://orchestrator.nexus.xyz").
func New(baseURL string) *Client {
	h := resty.New().
		SetTimeout(requestTimeout).
		SetHeader("User-Agent", buildinfo.UserAgent()).
		SetHeader("X-Build-Timestamp", buildinfo.BuildTimestamp).
		SetHeader("Content-Type", "application/octet-stream")
	return &Client{http: h, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) url(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

// doFrame POSTs/GETs a length-prefixed JSON request and decodes a
// length-prefixed JSON response into out (nil for an empty body).
func (c *Client) doFrame(ctx context.Context, method, path string, in any, out any) error {
	req := c.http.R().SetContext(ctx)
	if in != nil {
		body, err := wire.Encode(in)
		if err != nil {
			return err
		}
		req.SetBody(body)
	}

	var resp *resty.Response
	var err error
	switch method {
	case http.MethodGet:
		resp, err = req.Get(path)
	case http.MethodPost:
		resp, err = req.Post(path)
	default:
		return fmt.Errorf("orchestrator: unsupported method %s", method)
	}
	if err != nil {
		return &wireerr.TransportError{Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return &wireerr.HTTPStatusError{
			Status:  resp.StatusCode(),
			Message: string(resp.Body()),
			Headers: resp.Header(),
		}
	}
	if out != nil && len(resp.Body()) > 0 {
		payload, _, derr := wire.DecodeBytes(resp.Body())
		if derr != nil {
			return derr
		}
		if err := unmarshalInto(payload, out); err != nil {
			return err
		}
	}
	return nil
}

// GetUser fetches the orchestrator's user id for wallet.
func (c *Client) GetUser(ctx context.Context, wallet string) (string, error) {
	var out struct {
		UserID string `json:"user_id"`
	}
	err := c.doFrame(ctx, http.MethodGet, c.url("/v3/users/%s", url.PathEscape(wallet)), nil, &out)
	return out.UserID, err
}

// RegisterUser creates a new user record keyed by wallet.
func (c *Client) RegisterUser(ctx context.Context, uuidStr, wallet string) error {
	in := struct {
		UUID          string `json:"uuid"`
		WalletAddress string `json:"wallet_address"`
	}{UUID: uuidStr, WalletAddress: wallet}
	return c.doFrame(ctx, http.MethodPost, c.url("/v3/users"), in, nil)
}

// RegisterNode registers (or re-registers) a CLI_PROVER node for userID.
func (c *Client) RegisterNode(ctx context.Context, userID string) (string, error) {
	in := struct {
		NodeType string `json:"node_type"`
		UserID   string `json:"user_id"`
	}{NodeType: "CLI_PROVER", UserID: userID}
	var out struct {
		NodeID string `json:"node_id"`
	}
	err := c.doFrame(ctx, http.MethodPost, c.url("/v3/nodes"), in, &out)
	return out.NodeID, err
}

// GetNode fetches the wallet address a node is registered under.
func (c *Client) GetNode(ctx context.Context, nodeID string) (string, error) {
	var out struct {
		WalletAddress string `json:"wallet_address"`
	}
	err := c.doFrame(ctx, http.MethodGet, c.url("/v3/nodes/%s", url.PathEscape(nodeID)), nil, &out)
	return out.WalletAddress, err
}

// GetTasks polls for tasks already assigned to nodeID (the "batch" path).
func (c *Client) GetTasks(ctx context.Context, nodeID string) ([]task.Task, error) {
	var out struct {
		Tasks []wireTask `json:"tasks"`
	}
	if err := c.doFrame(ctx, http.MethodGet, c.url("/v3/tasks/%s", url.PathEscape(nodeID)), nil, &out); err != nil {
		return nil, err
	}
	tasks := make([]task.Task, 0, len(out.Tasks))
	for _, wt := range out.Tasks {
		t, err := wt.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// GetProofTask requests one new task at maxDifficulty (the one-at-a-time path).
func (c *Client) GetProofTask(ctx context.Context, nodeID, ed25519PublicKeyHex string, maxDifficulty task.Difficulty) (task.Task, error) {
	in := struct {
		NodeID        string `json:"node_id"`
		NodeType      string `json:"node_type"`
		Ed25519PubKey string `json:"ed25519_public_key"`
		MaxDifficulty string `json:"max_difficulty"`
	}{NodeID: nodeID, NodeType: "CLI_PROVER", Ed25519PubKey: ed25519PublicKeyHex, MaxDifficulty: maxDifficulty.String()}
	var out wireTask
	if err := c.doFrame(ctx, http.MethodPost, c.url("/v3/tasks"), in, &out); err != nil {
		return task.Task{}, err
	}
	return out.toTask()
}

// SubmitProof posts a completed submission.
func (c *Client) SubmitProof(ctx context.Context, sub proof.Submission) error {
	return c.doFrame(ctx, http.MethodPost, c.url("/v3/tasks/submit"), FromSubmission(sub), nil)
}

var _ API = (*Client)(nil)
