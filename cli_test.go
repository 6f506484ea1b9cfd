package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalctl/src/rpc"
)

const rootListing = `total 8
drwxr-xr-x 3 root root 4096 Apr 1 12:00 .
drwxr-xr-x 3 root root 4096 Apr 1 12:00 ..
-rw-r--r-- 1 root root    5 Apr 1 12:00 notes.txt
drwxr-xr-x 2 root root 4096 Apr 1 12:00 www
`

type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	commands []string
	kinds    []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/agents", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"agent_id":"a1","hostname":"web-1","os":"linux","architecture":"amd64","ip_address":"10.0.0.2","username":"root","registration_time":1700000000}]`))
	})
	mux.HandleFunc("/api/agents/a1/command", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Command string `json:"command"`
			Type    string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fs.mu.Lock()
		fs.commands = append(fs.commands, req.Command)
		fs.kinds = append(fs.kinds, req.Type)
		fs.mu.Unlock()

		out := ""
		switch {
		case req.Type == "screenshot":
			out = "captured 1920x1080"
		case req.Command == `ls -la '/'`:
			out = rootListing
		case req.Command == `cat '/notes.txt' | base64`:
			out = "aGVsbG8=\n"
		case req.Command == "uname -a":
			out = "Linux web-1\n"
		case req.Command == "false":
			json.NewEncoder(w).Encode(map[string]any{"success": false, "result": "partial", "error": "exit status 1"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "result": out})
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) Kinds() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.kinds...)
}

func (fs *fakeServer) Commands() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.commands...)
}

func runCLI(t *testing.T, srv *fakeServer, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PORTAL_SFTP_ADDR", "")
	t.Setenv("PORTAL_LOG_FILE", "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{"--server", srv.URL, "--agent", "a1", "--env-file", filepath.Join(t.TempDir(), "missing.env")}
	cmd.SetArgs(append(args[:1:1], append(base, args[1:]...)...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAgentsCommand(t *testing.T) {
	srv := newFakeServer(t)
	out, err := runCLI(t, srv, "agents")
	require.NoError(t, err)
	assert.Contains(t, out, "REGISTERED")
	assert.Contains(t, out, "a1")
	assert.Contains(t, out, "web-1")
	assert.Contains(t, out, "10.0.0.2")
}

func TestLsCommand(t *testing.T) {
	srv := newFakeServer(t)
	out, err := runCLI(t, srv, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "Root")
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "www/")
	assert.Contains(t, out, "5 B")
	assert.Equal(t, []string{`ls -la '/'`}, srv.Commands())
}

func TestGetCommandWritesDownloadDir(t *testing.T) {
	srv := newFakeServer(t)
	dir := t.TempDir()
	t.Setenv("PORTAL_DOWNLOAD_DIR", dir)

	out, err := runCLI(t, srv, "get", "/notes.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved notes.txt to "+filepath.Join(dir, "notes.txt"))

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestGetCommandSFTPNeedsConfig(t *testing.T) {
	srv := newFakeServer(t)
	_, err := runCLI(t, srv, "get", "--sftp", "/notes.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORTAL_SFTP_ADDR")
	assert.Empty(t, srv.Commands())
}

func TestPutCommand(t *testing.T) {
	srv := newFakeServer(t)
	local := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(local, []byte("hi"), 0o644))

	out, err := runCLI(t, srv, "put", "--to", "/tmp", local)
	require.NoError(t, err)
	assert.Contains(t, out, "[1/1] a.txt")
	assert.Equal(t, []string{`echo 'aGk=' | base64 -d > '/tmp/a.txt'`}, srv.Commands())
}

func TestMvCommand(t *testing.T) {
	srv := newFakeServer(t)
	out, err := runCLI(t, srv, "mv", "/notes.txt", "/www")
	require.NoError(t, err)
	assert.Contains(t, out, "Moved /notes.txt to /www")
	assert.Equal(t, []string{
		`ls -la '/'`,
		`ls -la '/'`,
		`mv '/notes.txt' '/www'`,
		`ls -la '/'`,
	}, srv.Commands())
}

func TestMvCommandRejectsFileDestination(t *testing.T) {
	srv := newFakeServer(t)
	_, err := runCLI(t, srv, "mv", "/www", "/notes.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
	for _, c := range srv.Commands() {
		assert.False(t, strings.HasPrefix(c, "mv "))
	}
}

func TestAgentRequired(t *testing.T) {
	srv := newFakeServer(t)
	t.Setenv("PORTAL_AGENT", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"ls", "--server", srv.URL, "--env-file", filepath.Join(t.TempDir(), "none")})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no agent selected")
}

func TestExecShellCommand(t *testing.T) {
	srv := newFakeServer(t)
	out, err := runCLI(t, srv, "exec", "uname", "-a")
	require.NoError(t, err)
	assert.Equal(t, "Linux web-1\n", out)
	assert.Equal(t, []string{"uname -a"}, srv.Commands())
	assert.Equal(t, []string{"shell"}, srv.Kinds())
}

func TestExecPassesKindThrough(t *testing.T) {
	srv := newFakeServer(t)
	out, err := runCLI(t, srv, "exec", "--type", "screenshot")
	require.NoError(t, err)
	assert.Contains(t, out, "captured 1920x1080")
	assert.Equal(t, []string{""}, srv.Commands())
	assert.Equal(t, []string{"screenshot"}, srv.Kinds())
}

func TestExecEmptyShellCommand(t *testing.T) {
	srv := newFakeServer(t)
	_, err := runCLI(t, srv, "exec")
	require.Error(t, err)
	assert.ErrorIs(t, err, rpc.ErrInvalidRequest)
	assert.Empty(t, srv.Commands())
}

func TestExecUnknownKind(t *testing.T) {
	srv := newFakeServer(t)
	_, err := runCLI(t, srv, "exec", "--type", "reboot", "now")
	assert.ErrorIs(t, err, rpc.ErrInvalidRequest)
	assert.Empty(t, srv.Commands())
}

func TestExecCommandFailure(t *testing.T) {
	srv := newFakeServer(t)
	out, err := runCLI(t, srv, "exec", "false")
	require.Error(t, err)
	assert.ErrorIs(t, err, rpc.ErrCommandFailed)
	assert.Contains(t, err.Error(), "exit status 1")
	assert.Equal(t, "partial\n", out)
}
