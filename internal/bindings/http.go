package bindings

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/coder/websocket"
	"github.com/duneland/dune/internal/core"
)

// httpModule implements the `http` binding's fetch() (§6), grounded on the
// teacher's own outbound-fetch binding (the worker's fetch() shape: method,
// headers, body in, status/headers/body out) generalized from "fetch
// proxied through a Workers-runtime subrequest" to a plain net/http round
// trip, since dune has no platform fetch to delegate to.
func httpModule(env *Env) Module {
	client := &http.Client{}

	return Module{
		Name: "http",
		Install: func(rt core.JSRuntime) error {
			if err := rt.RegisterFunc("__http_fetch", func(reqJSON string) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					var req struct {
						URL     string            `json:"url"`
						Method  string            `json:"method"`
						Headers map[string]string `json:"headers"`
						Body    string            `json:"body"`
					}
					if err := core.UnmarshalArg(reqJSON, &req); err != nil {
						return "", err
					}
					method := req.Method
					if method == "" {
						method = http.MethodGet
					}
					var body io.Reader
					if req.Body != "" {
						body = strings.NewReader(req.Body)
					}
					httpReq, err := http.NewRequest(method, req.URL, body)
					if err != nil {
						return "", err
					}
					for k, v := range req.Headers {
						httpReq.Header.Set(k, v)
					}
					resp, err := client.Do(httpReq)
					if err != nil {
						return "", err
					}
					defer resp.Body.Close()
					reader := resp.Body
					if resp.Header.Get("Content-Encoding") == "br" {
						reader = io.NopCloser(brotli.NewReader(resp.Body))
					}
					data, err := io.ReadAll(reader)
					if err != nil {
						return "", err
					}
					headers := make(map[string]string, len(resp.Header))
					for k := range resp.Header {
						headers[k] = resp.Header.Get(k)
					}
					return core.MarshalArg(map[string]any{
						"status":     resp.StatusCode,
						"statusText": resp.Status,
						"headers":    headers,
						"body":       string(data),
					})
				}), nil
			}); err != nil {
				return err
			}

			ws := &wsTable{conns: make(map[int]*websocket.Conn)}

			if err := rt.RegisterFunc("__ws_connect", func(url string) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					conn, _, err := websocket.Dial(context.Background(), url, nil)
					if err != nil {
						return "", err
					}
					return core.MarshalArg(ws.add(conn))
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__ws_receive", func(id int) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					conn, ok := ws.get(id)
					if !ok {
						return "", websocket.CloseError{Code: websocket.StatusAbnormalClosure}
					}
					typ, data, err := conn.Read(context.Background())
					if err != nil {
						return "", err
					}
					return core.MarshalArg(map[string]any{
						"binary": typ == websocket.MessageBinary,
						"data":   encodeBytes(data),
					})
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__ws_send", func(id int, payloadBase64 string, binary bool) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					conn, ok := ws.get(id)
					if !ok {
						return "", websocket.CloseError{Code: websocket.StatusAbnormalClosure}
					}
					data, err := decodeBytes(payloadBase64)
					if err != nil {
						return "", err
					}
					typ := websocket.MessageText
					if binary {
						typ = websocket.MessageBinary
					}
					return "", conn.Write(context.Background(), typ, data)
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__ws_close", func(id int) error {
				conn, ok := ws.pop(id)
				if !ok {
					return nil
				}
				return conn.Close(websocket.StatusNormalClosure, "")
			}); err != nil {
				return err
			}

			return rt.Eval(httpKernelJS)
		},
	}
}

// wsTable tracks live outbound WebSocket connections by handle, the same
// shape connTable uses for TCP sockets in net.go.
type wsTable struct {
	mu     sync.Mutex
	nextID int
	conns  map[int]*websocket.Conn
}

func (t *wsTable) add(c *websocket.Conn) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.conns[t.nextID] = c
	return t.nextID
}

func (t *wsTable) get(id int) (*websocket.Conn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[id]
	return c, ok
}

func (t *wsTable) pop(id int) (*websocket.Conn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[id]
	delete(t.conns, id)
	return c, ok
}

// httpKernelJS shapes fetch()'s return value into a minimal Response: a
// resolved body string plus .json()/.text() accessors, matching the subset
// of the Fetch API surface §6 calls for rather than the full Web standard.
const httpKernelJS = `(function() {
	function fetchFn(url, options) {
		options = options || {};
		const reqJSON = JSON.stringify({
			url: typeof url === "string" ? url : url.url,
			method: options.method || "GET",
			headers: options.headers || {},
			body: options.body || "",
		});
		const id = __http_fetch(reqJSON);
		return globalThis.__dune_newPromise(id).then(function(res) {
			return {
				status: res.status,
				statusText: res.statusText,
				headers: res.headers,
				ok: res.status >= 200 && res.status < 300,
				text: function() { return Promise.resolve(res.body); },
				json: function() { return Promise.resolve(JSON.parse(res.body)); },
			};
		});
	}

	function connectWebSocket(url) {
		const id = __ws_connect(url);
		return globalThis.__dune_newPromise(id).then(function(connID) {
			return {
				send: function(data, binary) {
					const b64 = typeof data === "string" ? __dune_bytesToBase64(new TextEncoder().encode(data)) : __dune_bytesToBase64(data);
					const wid = __ws_send(connID, b64, !!binary || typeof data !== "string");
					return globalThis.__dune_newPromise(wid);
				},
				receive: function() {
					const rid = __ws_receive(connID);
					return globalThis.__dune_newPromise(rid).then(function(msg) {
						const bytes = __dune_base64ToBytes(msg.data);
						return { binary: msg.binary, data: msg.binary ? bytes : new TextDecoder().decode(bytes) };
					});
				},
				close: function() { __ws_close(connID); },
			};
		});
	}

	globalThis.fetch = fetchFn;
	globalThis.__dune_bindings.http = { fetch: fetchFn, connectWebSocket: connectWebSocket };
})()`
