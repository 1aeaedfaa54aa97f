package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"carprice/service"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestHubBroadcastsDatasetUpdates(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(Chain(LoggerMiddleware(zap.NewNop()))(http.HandlerFunc(hub.HandleWebSocket)))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Notify(service.Event{Type: service.EventDatasetUpdated, Rows: 2, Trained: true})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if msg.Type != service.EventDatasetUpdated {
		t.Fatalf("unexpected message type %q", msg.Type)
	}
	var event service.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("invalid event: %v", err)
	}
	if event.Rows != 2 || !event.Trained {
		t.Fatalf("unexpected event: %+v", event)
	}
}
