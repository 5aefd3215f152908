package bindings

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeDecodeBytesRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte{},
		[]byte("hello"),
		[]byte{0x00, 0xFF, 0x10, 0x7F},
		bytes.Repeat([]byte{0xAB}, 37), // not a multiple of 3, exercises padding
	}
	for _, want := range cases {
		encoded := encodeBytes(want)
		got, err := decodeBytes(encoded)
		if err != nil {
			t.Fatalf("decodeBytes(%q): %v", encoded, err)
		}
		if !bytes.Equal(got, want) && !(len(got) == 0 && len(want) == 0) {
			t.Fatalf("round trip mismatch: got %v, want %v", got, want)
		}
	}
}

func TestDecodeBytesRejectsInvalidInput(t *testing.T) {
	if _, err := decodeBytes("not base64!!"); err == nil {
		t.Fatal("expected an error decoding invalid base64")
	}
}

// bytesKernelJS is evaluated once per isolate at boot; assert its shape
// stays stable so a future edit can't silently drop a guard or a global.
func TestBytesKernelJSDefinesExpectedGlobals(t *testing.T) {
	for _, want := range []string{
		"globalThis.__dune_bytesToBase64",
		"globalThis.__dune_base64ToBytes",
		"globalThis.TextEncoder",
		"globalThis.TextDecoder",
	} {
		if !strings.Contains(bytesKernelJS, want) {
			t.Errorf("bytesKernelJS missing definition of %s", want)
		}
	}
	if strings.Contains(bytesKernelJS, "btoa(") || strings.Contains(bytesKernelJS, "atob(") {
		t.Error("bytesKernelJS must not depend on btoa/atob, which are not guaranteed by either engine")
	}
}
