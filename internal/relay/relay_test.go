package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type chunkSink struct {
	chunks chan ChunkMessage
}

func startRelayServer(t *testing.T, acceptAuth bool) (*httptest.Server, *chunkSink) {
	t.Helper()
	sink := &chunkSink{chunks: make(chan ChunkMessage, 16)}
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var auth AuthMessage
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		if err := conn.WriteJSON(AuthResult{
			Type:      "auth_result",
			Success:   acceptAuth,
			SessionID: "sess-1",
			Error:     map[bool]string{true: "", false: "bad token"}[acceptAuth],
		}); err != nil {
			return
		}
		for {
			var msg ChunkMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			sink.chunks <- msg
		}
	}))
	return srv, sink
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialAndSendChunk(t *testing.T) {
	srv, sink := startRelayServer(t, true)
	defer srv.Close()

	client, err := Dial(wsURL(srv), "tok")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if client.SessionID() != "sess-1" {
		t.Errorf("session id = %q", client.SessionID())
	}

	client.SendChunk("chan-1", "Hello, ")
	client.SendChunk("chan-1", "world!")

	for _, want := range []string{"Hello, ", "world!"} {
		select {
		case msg := <-sink.chunks:
			if msg.Type != "content_chunk" {
				t.Errorf("type = %q", msg.Type)
			}
			if msg.ChannelID != "chan-1" {
				t.Errorf("channel = %q", msg.ChannelID)
			}
			if msg.Chunk != want {
				t.Errorf("chunk = %q, want %q", msg.Chunk, want)
			}
			if msg.Timestamp == 0 {
				t.Error("timestamp not set")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("chunk %q not received", want)
		}
	}
}

func TestDialAuthRejected(t *testing.T) {
	srv, _ := startRelayServer(t, false)
	defer srv.Close()

	if _, err := Dial(wsURL(srv), "bad"); err == nil {
		t.Fatal("expected auth rejection")
	} else if !strings.Contains(err.Error(), "bad token") {
		t.Errorf("error should carry server reason, got %v", err)
	}
}
