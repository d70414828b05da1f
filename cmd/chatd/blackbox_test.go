package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"
	"time"

	"chatd/internal/chat"
	"chatd/internal/stream"
)

// Process-level tests: build the binary, run it against a fake Ollama and
// talk to it over HTTP.

func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func buildBinary(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "chatd")
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go build failed: %v\n%s", err, out)
	}
	return bin
}

func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Prompt == "" {
			fmt.Fprintf(w, `{"model":%q,"done":true}`, req.Model)
			return
		}
		fmt.Fprintf(w, "{\"model\":%q,\"response\":\"Stretch\",\"done\":false}\n", req.Model)
		fmt.Fprintf(w, "{\"model\":%q,\"response\":\" first.\",\"done\":false}\n", req.Model)
		fmt.Fprintf(w, "{\"model\":%q,\"response\":\"\",\"done\":true}\n", req.Model)
	})
	mux.HandleFunc("/api/ps", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type serverProc struct {
	cmd  *exec.Cmd
	base string
	done chan error
}

func startServer(t *testing.T, bin string, args ...string) *serverProc {
	t.Helper()
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	cmd := exec.Command(bin, append([]string{"-addr", fmt.Sprintf("127.0.0.1:%d", port)}, args...)...)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(), "CHATD_SESSION_SECRET=blackbox")
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	sp := &serverProc{cmd: cmd, base: base, done: make(chan error, 1)}
	go func() { sp.done <- cmd.Wait() }()
	t.Cleanup(func() { _ = cmd.Process.Kill() })

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return sp
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestBlackbox_ChatFlowAndShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and runs the binary")
	}
	if runtime.GOOS == "windows" {
		t.Skip("relies on SIGINT")
	}
	ollama := fakeOllama(t)
	sp := startServer(t, buildBinary(t), "-backend", "ollama", "-ollama-url", ollama.URL, "-device", "cpu")

	resp, err := http.Get(sp.base + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz before first chat = %d", resp.StatusCode)
	}

	resp, err = http.Post(sp.base+"/chat", "application/json", bytes.NewReader([]byte(`{"message":"Before running?"}`)))
	if err != nil {
		t.Fatal(err)
	}
	var last chat.Event
	for ev, err := range stream.ParseFrames(resp.Body) {
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		last = ev
	}
	resp.Body.Close()
	if last.Kind != chat.KindSuccess || last.FullResponse != "Stretch first." {
		t.Fatalf("final frame = %+v", last)
	}

	resp, err = http.Post(sp.base+"/chat", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || !bytes.Contains(body, []byte("Missing message")) {
		t.Fatalf("missing message: %d %s", resp.StatusCode, body)
	}

	resp, err = http.Get(sp.base + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz after chat = %d", resp.StatusCode)
	}

	if err := sp.cmd.Process.Signal(syscall.SIGINT); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-sp.done:
		if err != nil {
			t.Fatalf("exit: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after SIGINT")
	}
}
