// Package client is the Go consumer of the daemon's query surface, used by
// the CLI and the MCP bridge.
package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Hit mirrors the [path, known] pairs the daemon emits.
type Hit struct {
	Path  string
	Known bool
}

// UnmarshalJSON accepts the two-element array form.
func (h *Hit) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &h.Path); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &h.Known)
}

// Client talks to one daemon instance.
type Client struct {
	// Addr is the daemon base address, e.g. "http://127.0.0.1:6789".
	Addr string

	httpClient *http.Client
}

// New builds a client for addr.
func New(addr string) *Client {
	return &Client{
		Addr:       addr,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Search queries /search.
func (c *Client) Search(entry string, fuzzy bool) ([]Hit, error) {
	q := url.Values{"entry": {entry}, "is_fuzzy": {boolStr(fuzzy)}}
	return c.hits("/search", q)
}

// HotSearch queries /hot_search.
func (c *Client) HotSearch(entry string, fuzzy, regex bool) ([]Hit, error) {
	q := url.Values{"entry": {entry}, "is_fuzzy": {boolStr(fuzzy)}, "is_regex": {boolStr(regex)}}
	return c.hits("/hot_search", q)
}

// RegexSearch queries /regex_search.
func (c *Client) RegexSearch(pattern string) ([]Hit, error) {
	q := url.Values{"path": {pattern}}
	return c.hits("/regex_search", q)
}

// Star pins a path.
func (c *Client) Star(path string) (bool, error) {
	return c.flag("/star_path", url.Values{"path_data": {path}})
}

// Unstar removes a pinned path.
func (c *Client) Unstar(path string) (bool, error) {
	return c.flag("/unstar_path", url.Values{"path_data": {path}})
}

func (c *Client) hits(endpoint string, q url.Values) ([]Hit, error) {
	var hits []Hit
	if err := c.get(endpoint, q, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (c *Client) flag(endpoint string, q url.Values) (bool, error) {
	var ok bool
	if err := c.get(endpoint, q, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (c *Client) get(endpoint string, q url.Values, out any) error {
	u := c.Addr + "/file_elf" + endpoint + "?" + q.Encode()
	resp, err := c.httpClient.Get(u)
	if err != nil {
		return fmt.Errorf("query daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
