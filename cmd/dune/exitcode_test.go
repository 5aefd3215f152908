package main

import (
	"errors"
	"testing"

	"github.com/duneland/dune/internal/diagnostics"
)

func TestExitCodeForMapsKnownKinds(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{diagnostics.New(diagnostics.Resolution, "missing module"), exitNoInput},
		{diagnostics.New(diagnostics.Parse, "bad syntax"), exitDataErr},
		{diagnostics.New(diagnostics.Link, "cycle"), exitDataErr},
		{diagnostics.New(diagnostics.HostIO, "disk full"), exitIOErr},
		{diagnostics.New(diagnostics.Network, "refused"), exitIOErr},
		{diagnostics.New(diagnostics.Timeout, "deadline"), exitTimeout},
		{diagnostics.New(diagnostics.Internal, "oops"), exitSoftware},
		{errors.New("untyped"), exitSoftware},
	}
	for _, c := range cases {
		if got := exitCodeFor(c.err); got != c.want {
			t.Errorf("exitCodeFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestExitCodeForUnwrapsWrappedKind(t *testing.T) {
	wrapped := diagnostics.Wrap(diagnostics.Network, errors.New("dial tcp: connection refused"), "fetching module")
	if got := exitCodeFor(wrapped); got != exitIOErr {
		t.Fatalf("exitCodeFor(wrapped network error) = %d, want %d", got, exitIOErr)
	}
}
