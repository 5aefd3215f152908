package bindings

import (
	"net"
	"sync"

	"github.com/duneland/dune/internal/core"
)

// netModule implements the `net` binding's TCP client/server surface (§6):
// connect/write/read/close on the client side, listen/accept on the server
// side. Each blocking syscall runs through the bridge's goroutine-per-call
// pattern (fs.go's shape) rather than a host-level epoll reactor — the
// teacher has no multiplexed socket reactor of its own to generalize, and
// Go's net.Conn already blocks a goroutine cheaply, so one goroutine per
// in-flight read/accept is the idiomatic fit here instead of inventing one.
func netModule(env *Env) Module {
	conns := &connTable{conns: make(map[int]net.Conn)}
	listeners := &listenerTable{ls: make(map[int]net.Listener)}

	return Module{
		Name: "net",
		Install: func(rt core.JSRuntime) error {
			if err := rt.RegisterFunc("__net_connect", func(network, address string) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					conn, err := net.Dial(network, address)
					if err != nil {
						return "", err
					}
					id := conns.add(conn)
					return core.MarshalArg(map[string]any{
						"id":         id,
						"localAddr":  conn.LocalAddr().String(),
						"remoteAddr": conn.RemoteAddr().String(),
					})
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__net_read", func(id int, maxBytes int) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					conn, ok := conns.get(id)
					if !ok {
						return "", net.ErrClosed
					}
					buf := make([]byte, maxBytes)
					n, err := conn.Read(buf)
					if n > 0 {
						return core.MarshalArg(encodeBytes(buf[:n]))
					}
					if err != nil {
						return "", err
					}
					return core.MarshalArg("")
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__net_write", func(id int, payloadBase64 string) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					conn, ok := conns.get(id)
					if !ok {
						return "", net.ErrClosed
					}
					data, err := decodeBytes(payloadBase64)
					if err != nil {
						return "", err
					}
					n, err := conn.Write(data)
					if err != nil {
						return "", err
					}
					return core.MarshalArg(n)
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__net_close", func(id int) error {
				conn, ok := conns.pop(id)
				if !ok {
					return nil
				}
				return conn.Close()
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__net_listen", func(network, address string) (string, error) {
				ln, err := net.Listen(network, address)
				if err != nil {
					return "", err
				}
				id := listeners.add(ln)
				return core.MarshalArg(map[string]any{
					"id":   id,
					"addr": ln.Addr().String(),
				})
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__net_accept", func(listenerID int) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					ln, ok := listeners.get(listenerID)
					if !ok {
						return "", net.ErrClosed
					}
					conn, err := ln.Accept()
					if err != nil {
						return "", err
					}
					id := conns.add(conn)
					return core.MarshalArg(map[string]any{
						"id":         id,
						"remoteAddr": conn.RemoteAddr().String(),
					})
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__net_listenerClose", func(id int) error {
				ln, ok := listeners.pop(id)
				if !ok {
					return nil
				}
				return ln.Close()
			}); err != nil {
				return err
			}

			return rt.Eval(netKernelJS)
		},
	}
}

type connTable struct {
	mu     sync.Mutex
	nextID int
	conns  map[int]net.Conn
}

func (t *connTable) add(c net.Conn) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.conns[t.nextID] = c
	return t.nextID
}

func (t *connTable) get(id int) (net.Conn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[id]
	return c, ok
}

func (t *connTable) pop(id int) (net.Conn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[id]
	delete(t.conns, id)
	return c, ok
}

type listenerTable struct {
	mu     sync.Mutex
	nextID int
	ls     map[int]net.Listener
}

func (t *listenerTable) add(l net.Listener) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.ls[t.nextID] = l
	return t.nextID
}

func (t *listenerTable) get(id int) (net.Listener, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.ls[id]
	return l, ok
}

func (t *listenerTable) pop(id int) (net.Listener, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.ls[id]
	delete(t.ls, id)
	return l, ok
}

// netKernelJS wraps every pending id in a promise and base64-decodes read
// results into a Uint8Array, matching fs.go's byte-payload convention.
const netKernelJS = `(function() {
	function connect(options) {
		const id = __net_connect(options.transport || "tcp", options.hostname + ":" + options.port);
		return globalThis.__dune_newPromise(id).then(function(info) {
			return {
				localAddr: info.localAddr,
				remoteAddr: info.remoteAddr,
				read: function(maxBytes) {
					const rid = __net_read(info.id, maxBytes || 65536);
					return globalThis.__dune_newPromise(rid).then(function(b64) {
						return b64 ? __dune_base64ToBytes(b64) : null;
					});
				},
				write: function(data) {
					const b64 = __dune_bytesToBase64(data);
					const wid = __net_write(info.id, b64);
					return globalThis.__dune_newPromise(wid);
				},
				close: function() { __net_close(info.id); },
			};
		});
	}

	function listen(options) {
		const infoJSON = __net_listen(options.transport || "tcp", (options.hostname || "0.0.0.0") + ":" + options.port);
		const info = JSON.parse(infoJSON);
		return {
			addr: info.addr,
			accept: function() {
				const id = __net_accept(info.id);
				return globalThis.__dune_newPromise(id).then(function(connInfo) {
					return {
						remoteAddr: connInfo.remoteAddr,
						read: function(maxBytes) {
							const rid = __net_read(connInfo.id, maxBytes || 65536);
							return globalThis.__dune_newPromise(rid).then(function(b64) {
								return b64 ? __dune_base64ToBytes(b64) : null;
							});
						},
						write: function(data) {
							const wid = __net_write(connInfo.id, __dune_bytesToBase64(data));
							return globalThis.__dune_newPromise(wid);
						},
						close: function() { __net_close(connInfo.id); },
					};
				});
			},
			close: function() { __net_listenerClose(info.id); },
		};
	}

	globalThis.__dune_bindings.net = { connect: connect, listen: listen };
})()`
