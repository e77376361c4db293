package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"NestLink/internal/config"
	"NestLink/internal/lib/sl"
)

// Client talks to the remote real-estate backend over REST. The backend is
// the source of truth for conversations and messages; realtime channels only
// augment what these calls return.
type Client struct {
	baseUrl string
	token   string
	client  *http.Client
	log     *slog.Logger
}

func NewClient(conf *config.Config, logger *slog.Logger) *Client {
	return &Client{
		baseUrl: conf.Backend.BaseURL,
		token:   conf.Backend.Token,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     logger.With(sl.Module("gateway")),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	url := c.baseUrl + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	log := c.log.With(
		slog.String("method", method),
		slog.String("url", url),
	)

	t := time.Now()
	defer func() {
		log = log.With(slog.Duration("duration", time.Since(t)))
		if err != nil {
			log.Error("gateway call", sl.Err(err))
		} else {
			log.Debug("gateway call")
		}
	}()

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err = fmt.Errorf("backend responded with %d", resp.StatusCode)
		return err
	}

	if out == nil {
		return nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err = json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
