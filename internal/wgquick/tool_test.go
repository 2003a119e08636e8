package wgquick

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type call struct {
	binary string
	args   []string
}

type fakeRunner struct {
	calls  []call
	result Result
}

func (f *fakeRunner) Run(_ context.Context, binary string, args ...string) Result {
	f.calls = append(f.calls, call{binary: binary, args: args})
	return f.result
}

func TestSetTunnelInvalidNameNeverRuns(t *testing.T) {
	fr := &fakeRunner{}
	tool := &Tool{WGQuick: "/usr/local/bin/wg-quick", Runner: fr}

	for _, name := range []string{"", ";rm -rf *", "name-that-is-far-too-long"} {
		ok, msg := tool.SetTunnel(context.Background(), name, true)
		if ok {
			t.Errorf("SetTunnel(%q) succeeded", name)
		}
		if !strings.Contains(msg, name) {
			t.Errorf("message %q does not contain %q", msg, name)
		}
	}
	if len(fr.calls) != 0 {
		t.Errorf("runner invoked %d times for invalid names", len(fr.calls))
	}
}

func TestSetTunnelComposesArguments(t *testing.T) {
	fr := &fakeRunner{}
	tool := &Tool{WGQuick: "/usr/local/bin/wg-quick", Runner: fr}

	if ok, msg := tool.SetTunnel(context.Background(), "home", true); !ok || msg != "" {
		t.Errorf("up = (%v, %q)", ok, msg)
	}
	if ok, _ := tool.SetTunnel(context.Background(), "home", false); !ok {
		t.Error("down failed")
	}

	want := []call{
		{binary: "/usr/local/bin/wg-quick", args: []string{"up", "home"}},
		{binary: "/usr/local/bin/wg-quick", args: []string{"down", "home"}},
	}
	if !reflect.DeepEqual(fr.calls, want) {
		t.Errorf("calls = %+v, want %+v", fr.calls, want)
	}
}

func TestSetTunnelSurfacesStderr(t *testing.T) {
	fr := &fakeRunner{result: Result{ExitCode: 1, Stderr: "wg-quick: `home' already exists\n"}}
	tool := &Tool{WGQuick: "/x/wg-quick", Runner: fr}

	ok, msg := tool.SetTunnel(context.Background(), "home", true)
	if ok {
		t.Fatal("expected failure")
	}
	if msg != "wg-quick: `home' already exists" {
		t.Errorf("msg = %q", msg)
	}
}

func TestSetTunnelFailureWithoutStderr(t *testing.T) {
	fr := &fakeRunner{result: Result{ExitCode: 2}}
	ok, msg := (&Tool{WGQuick: "/x/wg-quick", Runner: fr}).SetTunnel(context.Background(), "home", false)
	if ok || msg != "wg-quick down home failed" {
		t.Errorf("(%v, %q)", ok, msg)
	}
}

func TestInstalled(t *testing.T) {
	dir := t.TempDir()
	wg := filepath.Join(dir, "wg")
	wgQuick := filepath.Join(dir, "wg-quick")
	tool := &Tool{WG: wg, WGQuick: wgQuick}

	if tool.Installed() {
		t.Error("Installed() = true with no binaries")
	}
	if err := os.WriteFile(wg, nil, 0o755); err != nil {
		t.Fatal(err)
	}
	if tool.Installed() {
		t.Error("Installed() = true with only wg")
	}
	if err := os.WriteFile(wgQuick, nil, 0o755); err != nil {
		t.Fatal(err)
	}
	if !tool.Installed() {
		t.Error("Installed() = false with both binaries")
	}
}
