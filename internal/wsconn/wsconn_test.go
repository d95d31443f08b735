package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func newServer(t *testing.T, handler func(conn *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		if handler != nil {
			handler(conn)
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newClient(t *testing.T, url string, mutate func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_RejectsNonWebSocketURL(t *testing.T) {
	for _, u := range []string{"http://host", "", "::"} {
		if _, err := New(DefaultConfig(u, "test")); err == nil {
			t.Errorf("New(%q) expected error", u)
		}
	}
}

func TestClient_ConnectAndStates(t *testing.T) {
	srv, url := newServer(t, func(conn *websocket.Conn) {
		time.Sleep(100 * time.Millisecond)
	})
	defer srv.Close()

	c := newClient(t, url, nil)

	var (
		mu     sync.Mutex
		states []State
	)
	c.OnStateChange(func(s State, _ error) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !c.IsConnected() {
		t.Fatalf("state = %s, want connected", c.State())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 || states[0] != StateConnecting || states[1] != StateConnected {
		t.Fatalf("states = %v, want [connecting connected ...]", states)
	}
}

func TestClient_ConnectFailure(t *testing.T) {
	c := newClient(t, "ws://127.0.0.1:1", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err == nil {
		t.Fatal("expected Connect to fail")
	}
	if c.State() != StateDisconnected {
		t.Fatalf("state = %s, want disconnected", c.State())
	}
}

func TestClient_SendJSONAndEcho(t *testing.T) {
	srv, url := newServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if err := conn.Write(ctx, typ, data); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	c := newClient(t, url, nil)

	got := make(chan []byte, 1)
	c.OnMessage(func(_ context.Context, msg []byte) {
		got <- msg
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	payload := map[string]interface{}{"messageId": "SEND_TRANSACTIONS", "requestId": "1"}
	if err := c.SendJSON(ctx, payload); err != nil {
		t.Fatalf("SendJSON: %v", err)
	}

	select {
	case msg := <-got:
		var parsed map[string]interface{}
		if err := json.Unmarshal(msg, &parsed); err != nil {
			t.Fatalf("echo is not JSON: %v (%s)", err, msg)
		}
		if parsed["messageId"] != "SEND_TRANSACTIONS" {
			t.Fatalf("messageId = %v", parsed["messageId"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for echo")
	}
}

func TestClient_SendWhenDisconnected(t *testing.T) {
	c := newClient(t, "ws://127.0.0.1:1", nil)
	if err := c.Send(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error sending without a connection")
	}
}

func TestClient_ConcurrentSend(t *testing.T) {
	var count atomic.Int32

	srv, url := newServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
			count.Add(1)
		}
	})
	defer srv.Close()

	c := newClient(t, url, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	const workers, perWorker = 8, 5
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := c.SendJSON(ctx, map[string]int{"worker": id, "n": j}); err != nil {
					t.Errorf("SendJSON: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for count.Load() < workers*perWorker && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := count.Load(); got != workers*perWorker {
		t.Fatalf("server received %d messages, want %d", got, workers*perWorker)
	}
}

func TestClient_OversizedMessageDrops(t *testing.T) {
	srv, url := newServer(t, func(conn *websocket.Conn) {
		_ = conn.Write(context.Background(), websocket.MessageText, make([]byte, 4096))
		time.Sleep(100 * time.Millisecond)
	})
	defer srv.Close()

	c := newClient(t, url, func(cfg *Config) { cfg.MaxMessageSize = 100 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if c.IsConnected() {
		t.Fatal("expected client to drop the connection after an oversized message")
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	srv, url := newServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	c := newClient(t, url, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.State() != StateClosed {
		t.Fatalf("state = %s, want closed", c.State())
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := c.Connect(ctx); err == nil {
		t.Fatal("Connect after Close should fail")
	}
}
