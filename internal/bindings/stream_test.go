package bindings

import "testing"

func TestReadableStreamDeliversEnqueuedChunksInOrder(t *testing.T) {
	rt, _ := bootTestRuntime(t)
	if err := rt.Eval(`
		globalThis.__chunks = [];
		globalThis.__done = false;
		const stream = new ReadableStream({
			start: function(controller) {
				controller.enqueue("a");
				controller.enqueue("b");
				controller.close();
			},
		});
		const reader = stream.getReader();
		function pump() {
			reader.read().then(function(result) {
				if (result.done) { globalThis.__done = true; return; }
				globalThis.__chunks.push(result.value);
				pump();
			});
		}
		pump();
	`); err != nil {
		t.Fatalf("eval: %v", err)
	}

	for i := 0; i < 1000; i++ {
		rt.RunMicrotasks()
		done, err := rt.EvalBool("globalThis.__done")
		if err != nil {
			t.Fatalf("EvalBool: %v", err)
		}
		if done {
			break
		}
	}

	done, err := rt.EvalBool("globalThis.__done")
	if err != nil {
		t.Fatalf("EvalBool: %v", err)
	}
	if !done {
		t.Fatal("reader never reported done after draining microtasks")
	}

	got, err := rt.EvalString(`globalThis.__chunks.join(",")`)
	if err != nil {
		t.Fatalf("EvalString: %v", err)
	}
	if got != "a,b" {
		t.Fatalf("chunks = %q, want %q", got, "a,b")
	}
}

func TestWritableStreamRejectsWriteAfterClose(t *testing.T) {
	rt, _ := bootTestRuntime(t)
	if err := rt.Eval(`
		globalThis.__rejected = false;
		const sink = { write: function() {}, close: function() {} };
		const stream = new WritableStream(sink);
		const writer = stream.getWriter();
		writer.close().then(function() {
			writer.write("late").catch(function() { globalThis.__rejected = true; });
		});
	`); err != nil {
		t.Fatalf("eval: %v", err)
	}

	for i := 0; i < 1000; i++ {
		rt.RunMicrotasks()
		rejected, err := rt.EvalBool("globalThis.__rejected")
		if err != nil {
			t.Fatalf("EvalBool: %v", err)
		}
		if rejected {
			return
		}
	}
	t.Fatal("write after close was never rejected")
}
