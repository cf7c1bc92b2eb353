// Package transport issues authenticated request/response round-trips to
// the save-sync server over HTTP (spec §6.2). It is adapted from this
// repo's former HTTPTransport (context-aware requests, explicit phase
// functions, User-Agent header) generalized from git's smart-HTTP protocol
// to this spec's JSON/binary save-sync protocol.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/fenilsonani/savesync/internal/syncerr"
)

const (
	apiPrefix  = "/api/v1"
	userAgent  = "savesync/1.0"
	octetMIME  = "application/octet-stream"
	jsonMIME   = "application/json"
)

// Config is the immutable set of values a Transport needs to reach the
// server (spec §6.5: server_url, api_key, console_id).
type Config struct {
	ServerURL string
	APIKey    string
	ConsoleID string
}

// Transport issues HTTP calls to the save-sync server.
type Transport struct {
	cfg    Config
	client *http.Client
}

// New returns a Transport using cfg and client. If client is nil, a
// default *http.Client is used.
func New(cfg Config, client *http.Client) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transport{cfg: cfg, client: client}
}

func (t *Transport) url(path string) string {
	return t.cfg.ServerURL + apiPrefix + path
}

func (t *Transport) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, t.url(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", t.cfg.APIKey)
	req.Header.Set("X-Console-ID", t.cfg.ConsoleID)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (t *Transport) do(req *http.Request) (*http.Response, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, syncerr.New(syncerr.NetworkError, err)
	}
	return resp, nil
}

// GetSave fetches the bundle bytes for titleIDHex. ok is false on a 404
// ("absent"); any other non-200 status is a ServerError.
func (t *Transport) GetSave(ctx context.Context, titleIDHex string) (data []byte, ok bool, err error) {
	req, err := t.newRequest(ctx, http.MethodGet, "/saves/"+titleIDHex, nil, "")
	if err != nil {
		return nil, false, syncerr.New(syncerr.NetworkError, err)
	}
	resp, err := t.do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, syncerr.New(syncerr.ServerError, fmt.Errorf("GET /saves/%s: status %d", titleIDHex, resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, syncerr.New(syncerr.NetworkError, err)
	}
	return body, true, nil
}

// PutSave uploads bundle bytes for titleIDHex. Non-200 is a ServerError.
func (t *Transport) PutSave(ctx context.Context, titleIDHex string, bundle []byte) error {
	req, err := t.newRequest(ctx, http.MethodPost, "/saves/"+titleIDHex, bytes.NewReader(bundle), octetMIME)
	if err != nil {
		return syncerr.New(syncerr.NetworkError, err)
	}
	resp, err := t.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return syncerr.New(syncerr.ServerError, fmt.Errorf("POST /saves/%s: status %d", titleIDHex, resp.StatusCode))
	}
	return nil
}

// Meta is the metadata JSON returned by GET /saves/{tid}/meta (spec §4.6.4).
type Meta struct {
	SaveHash  string `json:"save_hash"`
	SaveSize  int64  `json:"save_size"`
	FileCount int    `json:"file_count"`
	LastSync  int64  `json:"last_sync"`
	ConsoleID string `json:"console_id"`
}

// GetMeta fetches save metadata for titleIDHex. ok is false on 404.
func (t *Transport) GetMeta(ctx context.Context, titleIDHex string) (*Meta, bool, error) {
	req, err := t.newRequest(ctx, http.MethodGet, "/saves/"+titleIDHex+"/meta", nil, "")
	if err != nil {
		return nil, false, syncerr.New(syncerr.NetworkError, err)
	}
	resp, err := t.do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, syncerr.New(syncerr.ServerError, fmt.Errorf("GET /saves/%s/meta: status %d", titleIDHex, resp.StatusCode))
	}
	var meta Meta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, false, syncerr.New(syncerr.ServerError, fmt.Errorf("decode meta: %w", err))
	}
	return &meta, true, nil
}

// HistoryVersion is one entry of GET /saves/{tid}/history.
type HistoryVersion struct {
	Timestamp int64 `json:"timestamp"`
	Size      int64 `json:"size"`
	FileCount int   `json:"file_count"`
}

// GetHistory fetches the version history for titleIDHex.
func (t *Transport) GetHistory(ctx context.Context, titleIDHex string) ([]HistoryVersion, error) {
	req, err := t.newRequest(ctx, http.MethodGet, "/saves/"+titleIDHex+"/history", nil, "")
	if err != nil {
		return nil, syncerr.New(syncerr.NetworkError, err)
	}
	resp, err := t.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, syncerr.New(syncerr.ServerError, fmt.Errorf("GET /saves/%s/history: status %d", titleIDHex, resp.StatusCode))
	}
	var out struct {
		Versions []HistoryVersion `json:"versions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, syncerr.New(syncerr.ServerError, fmt.Errorf("decode history: %w", err))
	}
	return out.Versions, nil
}

// GetHistoryAt fetches a historical bundle for titleIDHex at timestamp ts.
func (t *Transport) GetHistoryAt(ctx context.Context, titleIDHex string, ts int64) ([]byte, error) {
	req, err := t.newRequest(ctx, http.MethodGet, fmt.Sprintf("/saves/%s/history/%d", titleIDHex, ts), nil, "")
	if err != nil {
		return nil, syncerr.New(syncerr.NetworkError, err)
	}
	resp, err := t.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, syncerr.New(syncerr.ServerError, fmt.Errorf("GET /saves/%s/history/%d: status %d", titleIDHex, ts, resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}

// SyncTitleEntry is one title's entry in the sync-plan request body.
type SyncTitleEntry struct {
	TitleID        string `json:"title_id"`
	SaveHash       string `json:"save_hash"`
	Timestamp      int64  `json:"timestamp"`
	Size           int64  `json:"size"`
	LastSyncedHash string `json:"last_synced_hash,omitempty"`
}

// SyncPlanRequest is the body of POST /sync (spec §4.6.3).
type SyncPlanRequest struct {
	ConsoleID string           `json:"console_id"`
	Titles    []SyncTitleEntry `json:"titles"`
}

// SyncPlan is the server's disjoint partition of titles (spec §4.6.3).
type SyncPlan struct {
	Upload     []string `json:"upload"`
	Download   []string `json:"download"`
	ServerOnly []string `json:"server_only"`
	Conflict   []string `json:"conflict"`
	UpToDate   []string `json:"up_to_date"`
}

// PostSyncPlan posts req to /sync and returns the server's classification.
func (t *Transport) PostSyncPlan(ctx context.Context, req SyncPlanRequest) (*SyncPlan, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, syncerr.New(syncerr.ServerError, fmt.Errorf("encode sync plan request: %w", err))
	}
	httpReq, err := t.newRequest(ctx, http.MethodPost, "/sync", bytes.NewReader(body), jsonMIME)
	if err != nil {
		return nil, syncerr.New(syncerr.NetworkError, err)
	}
	resp, err := t.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, syncerr.New(syncerr.ServerError, fmt.Errorf("POST /sync: status %d", resp.StatusCode))
	}
	var plan SyncPlan
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		return nil, syncerr.New(syncerr.ServerError, fmt.Errorf("decode sync plan: %w", err))
	}
	return &plan, nil
}

// TitleNames fetches human-readable names for product codes (spec §6.2
// POST /titles/names).
func (t *Transport) TitleNames(ctx context.Context, codes []string) (map[string]string, error) {
	body, err := json.Marshal(struct {
		Codes []string `json:"codes"`
	}{Codes: codes})
	if err != nil {
		return nil, syncerr.New(syncerr.ServerError, err)
	}
	req, err := t.newRequest(ctx, http.MethodPost, "/titles/names", bytes.NewReader(body), jsonMIME)
	if err != nil {
		return nil, syncerr.New(syncerr.NetworkError, err)
	}
	resp, err := t.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, syncerr.New(syncerr.ServerError, fmt.Errorf("POST /titles/names: status %d", resp.StatusCode))
	}
	var out struct {
		Names map[string]string `json:"names"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, syncerr.New(syncerr.ServerError, fmt.Errorf("decode title names: %w", err))
	}
	return out.Names, nil
}

// UpdateInfo is the response of GET /update/check.
type UpdateInfo struct {
	Latest      string `json:"latest"`
	DownloadURL string `json:"download_url"`
	Notes       string `json:"notes"`
}

// CheckUpdate asks the server whether a newer client version than current
// is available.
func (t *Transport) CheckUpdate(ctx context.Context, current string) (*UpdateInfo, error) {
	req, err := t.newRequest(ctx, http.MethodGet, "/update/check?current="+current, nil, "")
	if err != nil {
		return nil, syncerr.New(syncerr.NetworkError, err)
	}
	resp, err := t.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, syncerr.New(syncerr.ServerError, fmt.Errorf("GET /update/check: status %d", resp.StatusCode))
	}
	var info UpdateInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, syncerr.New(syncerr.ServerError, fmt.Errorf("decode update info: %w", err))
	}
	return &info, nil
}
