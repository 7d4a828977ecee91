package relay

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kayz/promptflow/internal/logger"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second

	// ClientVersion is reported during the auth handshake.
	ClientVersion = "1.0.0"
)

// AuthMessage is sent once on connect.
type AuthMessage struct {
	Type          string `json:"type"`
	Token         string `json:"token,omitempty"`
	ClientVersion string `json:"client_version"`
}

// AuthResult is the server's response to authentication.
type AuthResult struct {
	Type      string `json:"type"`
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	Error     string `json:"error,omitempty"`
}

// ChunkMessage is one streaming fragment forwarded to a viewer.
type ChunkMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
	Chunk     string `json:"chunk"`
	Timestamp int64  `json:"timestamp"`
}

// Client forwards streaming fragments to a real-time relay server over a
// websocket. Sends are fire-and-forget: delivery failures are logged, never
// surfaced to the execution path.
type Client struct {
	conn      *websocket.Conn
	connMu    sync.Mutex
	sessionID string
}

// Dial connects and authenticates against the relay server.
func Dial(serverURL, token string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(serverURL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("connect relay: %w", err)
	}

	auth := AuthMessage{
		Type:          "auth",
		Token:         token,
		ClientVersion: ClientVersion,
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send auth: %w", err)
	}

	var result AuthResult
	if err := conn.ReadJSON(&result); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read auth result: %w", err)
	}
	if !result.Success {
		conn.Close()
		return nil, fmt.Errorf("relay auth rejected: %s", result.Error)
	}

	logger.Info("Relay connected, session %s", result.SessionID)
	return &Client{conn: conn, sessionID: result.SessionID}, nil
}

// SessionID returns the session assigned during authentication.
func (c *Client) SessionID() string {
	return c.sessionID
}

// SendChunk forwards one text fragment to the given channel. Errors are
// logged and dropped so a slow or dead relay never stalls aggregation.
func (c *Client) SendChunk(channelID, text string) {
	msg := ChunkMessage{
		Type:      "content_chunk",
		ChannelID: channelID,
		Chunk:     text,
		Timestamp: time.Now().UnixMilli(),
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		logger.Warn("Relay chunk dropped for channel %s: %v", channelID, err)
	}
}

// Close shuts the websocket down cleanly.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
