package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/guildbox/internal/api/httpapi"
)

// client calls the admin HTTP API.
type client struct {
	http    *http.Client
	baseURL string
	token   string
}

func newClient(httpClient *http.Client, baseURL, token string) *client {
	return &client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

func (c *client) sessions(ctx context.Context) ([]httpapi.SessionView, error) {
	var out []httpapi.SessionView
	err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &out)
	return out, err
}

func (c *client) session(ctx context.Context, guildID string) (httpapi.SessionView, error) {
	var out httpapi.SessionView
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(guildID), nil, &out)
	return out, err
}

func (c *client) skip(ctx context.Context, guildID string) (httpapi.SkipResponse, error) {
	var out httpapi.SkipResponse
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(guildID)+"/skip", nil, &out)
	return out, err
}

func (c *client) stop(ctx context.Context, guildID string) (httpapi.StopResponse, error) {
	var out httpapi.StopResponse
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(guildID)+"/stop", nil, &out)
	return out, err
}

func (c *client) setVolume(ctx context.Context, guildID string, volume int) (httpapi.VolumeResponse, error) {
	var out httpapi.VolumeResponse
	body := httpapi.VolumeRequest{Volume: &volume}
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(guildID)+"/volume", body, &out)
	return out, err
}

func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set(httpapi.AdminTokenHeader, c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e httpapi.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return errors.Newf("%s %s: %s", method, path, resp.Status)
		}
		return errors.Newf("%s %s: %s: %s", method, path, resp.Status, e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
