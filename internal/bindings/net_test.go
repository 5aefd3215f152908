package bindings

import (
	"testing"
	"time"

	"github.com/duneland/dune/internal/bridge"
	"github.com/duneland/dune/internal/core"
	"github.com/duneland/dune/internal/engine"
	"github.com/duneland/dune/internal/scheduler"
)

// bootTestNet boots a real isolate with the full registry installed (the
// net binding depends on bytesKernelJS's base64/TextEncoder helpers, which
// the registry — not net.go itself — installs), and returns the scheduler
// so the test can pump Tick/RunMicrotasks the way cmd/dune's own run loop
// does to let a bridge.Submit'd goroutine's completion surface.
func bootTestNet(t *testing.T) (core.JSRuntime, *scheduler.Scheduler) {
	t.Helper()
	rt, err := engine.New(0)
	if err != nil {
		t.Fatalf("booting engine: %v", err)
	}
	t.Cleanup(rt.Dispose)

	sched := scheduler.New(rt)
	br := bridge.New(rt, sched)
	t.Cleanup(br.Dispose)
	if err := br.Install(rt); err != nil {
		t.Fatalf("installing bridge kernel: %v", err)
	}

	env := &Env{State: core.NewProcessState(nil, t.TempDir()), Sched: sched, Bridge: br}
	reg := NewRegistry(env)
	if err := reg.Install(rt); err != nil {
		t.Fatalf("installing registry: %v", err)
	}
	return rt, sched
}

// pumpUntil drives the scheduler/microtask loop until cond is true or
// deadline elapses, the same poll shape Graph.Run and runTestFile use.
func pumpUntil(t *testing.T, rt core.JSRuntime, sched *scheduler.Scheduler, cond string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		sched.Tick()
		rt.RunMicrotasks()
		done, err := rt.EvalBool(cond)
		if err != nil {
			t.Fatalf("evaluating %q: %v", cond, err)
		}
		if done {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q", cond)
		}
		time.Sleep(time.Millisecond)
	}
}

// TestNetTCPEchoRoundTrip covers scenario 4 from §8: a server listening on
// port 0 (OS-assigned), a client connecting and writing `hello`, the
// server echoing it back, and the client observing the same bytes.
func TestNetTCPEchoRoundTrip(t *testing.T) {
	rt, sched := bootTestNet(t)

	if err := rt.Eval(`
		globalThis.__test_done = false;
		globalThis.__test_ok = false;
		const net = globalThis.__dune_bindings.net;
		const server = net.listen({ hostname: "127.0.0.1", port: 0 });
		const addr = server.addr;
		const port = Number(addr.split(":").pop());

		server.accept().then(function(conn) {
			return conn.read(64).then(function(data) {
				return conn.write(data);
			});
		});

		net.connect({ hostname: "127.0.0.1", port: port }).then(function(conn) {
			const enc = new TextEncoder();
			return conn.write(enc.encode("hello")).then(function() {
				return conn.read(64);
			});
		}).then(function(data) {
			const dec = new TextDecoder();
			globalThis.__test_ok = dec.decode(data) === "hello";
			globalThis.__test_done = true;
		}).catch(function(e) {
			globalThis.__test_error = String((e && e.stack) || e);
			globalThis.__test_done = true;
		});
	`); err != nil {
		t.Fatalf("starting echo script: %v", err)
	}

	pumpUntil(t, rt, sched, "!!globalThis.__test_done", 5*time.Second)

	if errMsg, _ := rt.EvalString("globalThis.__test_error || ''"); errMsg != "" {
		t.Fatalf("echo script reported an error: %s", errMsg)
	}
	ok, err := rt.EvalBool("!!globalThis.__test_ok")
	if err != nil {
		t.Fatalf("reading __test_ok: %v", err)
	}
	if !ok {
		t.Fatal("client did not receive the echoed \"hello\" bytes")
	}
}
