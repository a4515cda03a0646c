// Package push is a minimal client for the Expo push relay.
package push

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"

	"github.com/Alijeyrad/destek_backend/config"
)

var (
	ErrDisabled      = errors.New("push: disabled")
	ErrInvalidToken  = errors.New("push: not an Expo push token")
	ErrRelayRejected = errors.New("push: relay rejected the message")
)

const DefaultURL = "https://exp.host/--/api/v2/push/send"

type Config struct {
	Enabled     bool
	URL         string
	AccessToken string
	Timeout     time.Duration
}

func DefaultConfig() Config {
	return Config{URL: DefaultURL, Timeout: 10 * time.Second}
}

func FromCentralConfig(c config.PushConfig) Config {
	cfg := DefaultConfig()
	cfg.Enabled = c.Enabled
	if c.URL != "" {
		cfg.URL = c.URL
	}
	cfg.AccessToken = c.AccessToken
	if c.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	return cfg
}

// Message is one Expo push message.
type Message struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Sound string         `json:"sound,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

type Client struct {
	cfg  Config
	http *client.Client
}

func New(cfg Config) *Client {
	hc := client.New()
	hc.SetTimeout(cfg.Timeout)
	return &Client{cfg: cfg, http: hc}
}

func (c *Client) Enabled() bool { return c.cfg.Enabled }

// ValidToken reports whether token looks like an Expo push token.
func ValidToken(token string) bool {
	return (strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")) &&
		strings.HasSuffix(token, "]")
}

// Send posts m to the relay. Only the HTTP status is checked; per-ticket
// receipts are not fetched.
func (c *Client) Send(ctx context.Context, m Message) error {
	if !c.cfg.Enabled {
		return ErrDisabled
	}
	if !ValidToken(m.To) {
		return ErrInvalidToken
	}
	if m.Sound == "" {
		m.Sound = "default"
	}

	headers := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
	if c.cfg.AccessToken != "" {
		headers["Authorization"] = "Bearer " + c.cfg.AccessToken
	}

	res, err := c.http.Post(c.cfg.URL, client.Config{
		Ctx:    ctx,
		Header: headers,
		Body:   m,
	})
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer res.Close()

	if code := res.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("%w (status=%d)", ErrRelayRejected, code)
	}
	return nil
}
