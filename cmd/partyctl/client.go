package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type client struct {
	base  string
	token string
	http  *http.Client
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
}

// get fetches path from the API and decodes the envelope data into dst.
func (c *client) get(ctx context.Context, path string, query url.Values, dst any) error {
	u := strings.TrimRight(c.base, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: unexpected response (%s): %w", path, resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK {
		var msg string
		_ = json.Unmarshal(env.Data, &msg)
		return fmt.Errorf("%s: %s %s", path, resp.Status, msg)
	}
	return json.Unmarshal(env.Data, dst)
}
