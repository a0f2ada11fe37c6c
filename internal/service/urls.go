package service

import (
	"fmt"
	"strings"
)

// URLConfig holds the public base URL used in CreateSession responses.
type URLConfig struct {
	BaseURL string
}

// StreamURL returns the SSE stream URL for a session
// (e.g. https://host/sessions/:id/stream).
func (c *URLConfig) StreamURL(sessionID string) string {
	return c.join(fmt.Sprintf("/sessions/%s/stream", sessionID))
}

// WSURL returns the WebSocket mirror URL for a session
// (e.g. wss://host/ws/stream/:session_id).
func (c *URLConfig) WSURL(sessionID string) string {
	path := fmt.Sprintf("/ws/stream/%s", sessionID)
	if c == nil || c.BaseURL == "" {
		return path
	}
	base := strings.TrimSuffix(c.BaseURL, "/")
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + path
}

func (c *URLConfig) join(path string) string {
	if c == nil || c.BaseURL == "" {
		return path
	}
	return strings.TrimSuffix(c.BaseURL, "/") + path
}
