package engine

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// closeConn makes the fake engine drop the connection instead of replying.
type closeConn struct{}

type handlerFunc func(req Request) []any

// fakeEngine is a websocket server speaking just enough of the engine protocol
// for the tests.
type fakeEngine struct {
	server   *httptest.Server
	reject   int
	greeting []any
	handlers map[string]handlerFunc

	mu       sync.Mutex
	requests []Request
	header   http.Header
}

func newFakeEngine(t *testing.T) *fakeEngine {
	fe := &fakeEngine{handlers: map[string]handlerFunc{}}
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	fe.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fe.reject != 0 {
			http.Error(w, "denied", fe.reject)
			return
		}
		fe.mu.Lock()
		fe.header = r.Header.Clone()
		fe.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range fe.greeting {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
		for {
			var req Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			fe.mu.Lock()
			fe.requests = append(fe.requests, req)
			handler, ok := fe.handlers[req.Method]
			fe.mu.Unlock()
			if !ok {
				handler = func(req Request) []any {
					return []any{errorReply(req.ID, -32601, "method not found")}
				}
			}
			for _, out := range handler(req) {
				if _, ok := out.(closeConn); ok {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(fe.server.Close)
	return fe
}

func (fe *fakeEngine) on(method string, h handlerFunc) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.handlers[method] = h
}

func (fe *fakeEngine) url() string {
	return "ws" + strings.TrimPrefix(fe.server.URL, "http") + "/app/doc-123"
}

func (fe *fakeEngine) received() []Request {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return append([]Request(nil), fe.requests...)
}

func (fe *fakeEngine) methods() []string {
	var out []string
	for _, req := range fe.received() {
		out = append(out, req.Method)
	}
	return out
}

func (fe *fakeEngine) authorization() string {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.header.Get("Authorization")
}

// ====================== Reply helpers ======================

func resultReply(id uint64, result any) map[string]any {
	return map[string]any{"jsonrpc": "2.0", "id": id, "result": result}
}

func errorReply(id uint64, code int, message string) map[string]any {
	return map[string]any{"jsonrpc": "2.0", "id": id, "error": map[string]any{"code": code, "message": message}}
}

func handleReply(id uint64, qType string, handle int, genericID string) map[string]any {
	return resultReply(id, map[string]any{
		"qReturn": map[string]any{"qType": qType, "qHandle": handle, "qGenericId": genericID},
	})
}

func echo(result any) handlerFunc {
	return func(req Request) []any { return []any{resultReply(req.ID, result)} }
}

// qlikDocument wires the handlers of a document with handle 7 whose session
// objects get handle 12.
func (fe *fakeEngine) qlikDocument(layout any) {
	fe.on("OpenDoc", func(req Request) []any {
		return []any{handleReply(req.ID, "Doc", 7, "doc-123")}
	})
	fe.on("CreateSessionObject", func(req Request) []any {
		return []any{handleReply(req.ID, "GenericObject", 12, "so-1")}
	})
	fe.on("GetLayout", func(req Request) []any {
		return []any{resultReply(req.ID, map[string]any{"qLayout": layout})}
	})
	fe.on("DestroySessionObject", echo(map[string]any{"qSuccess": true}))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ReplyTimeout = 2 * time.Second
	return cfg
}
