package transfer

import (
	"context"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalctl/src/rpc"
	"portalctl/src/rpc/rpctest"
)

func TestCodecRoundTrip(t *testing.T) {
	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	for _, in := range [][]byte{nil, {}, {0}, []byte("hello"), random} {
		out, err := Decode(Encode(in))
		require.NoError(t, err)
		assert.Equal(t, len(in), len(out))
		if len(in) > 0 {
			assert.Equal(t, in, out)
		}
	}
}

func TestDecodeIgnoresWrapping(t *testing.T) {
	enc := Encode([]byte(strings.Repeat("portal", 40)))
	var wrapped strings.Builder
	for i := 0; i < len(enc); i += 76 {
		end := min(i+76, len(enc))
		wrapped.WriteString(enc[i:end])
		wrapped.WriteString("\r\n")
	}
	out, err := Decode("  " + wrapped.String() + "\t")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("portal", 40), string(out))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("not*base64!")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"notes.txt":         "text/plain",
		"INDEX.HTML":        "text/html",
		"app.js":            "application/javascript",
		"photo.JpEg":        "image/jpeg",
		"deck.pptx":         "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"archive.tar.gz":    "application/octet-stream",
		"Makefile":          "application/octet-stream",
		"/var/www/site.css": "text/css",
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentType(name), name)
	}
	assert.True(t, IsText(ContentType("a.json")))
	assert.False(t, IsText(ContentType("a.png")))
}

func TestDownload(t *testing.T) {
	exec := &rpctest.Executor{Responses: map[string]string{
		`cat '/etc/motd' | base64`: Encode([]byte("welcome\n")) + "\n",
	}}
	var got struct {
		data     []byte
		ct, name string
	}
	sink := SinkFunc(func(_ context.Context, data []byte, ct, name string) error {
		got.data, got.ct, got.name = data, ct, name
		return nil
	})

	require.NoError(t, Download(context.Background(), exec, "a1", "/etc/motd", sink))
	assert.Equal(t, "welcome\n", string(got.data))
	assert.Equal(t, "motd", got.name)
	assert.Equal(t, "application/octet-stream", got.ct)
	assert.Equal(t, []string{`cat '/etc/motd' | base64`}, exec.Commands())
}

func TestDownloadDecodeFailure(t *testing.T) {
	exec := &rpctest.Executor{Responses: map[string]string{"cat ": "cat: /x: No such file"}}
	called := false
	sink := SinkFunc(func(context.Context, []byte, string, string) error { called = true; return nil })

	err := Download(context.Background(), exec, "a1", "/x", sink)
	assert.ErrorIs(t, err, ErrDecode)
	assert.False(t, called)
}

func TestDownloadCommandFailure(t *testing.T) {
	exec := &rpctest.Executor{Handler: func(c rpctest.Call) (rpc.Result, error) {
		return rpctest.Failure(c.Agent, "permission denied")
	}}
	err := Download(context.Background(), exec, "a1", "/root/secret", DirSink{Dir: t.TempDir()})
	assert.ErrorIs(t, err, rpc.ErrCommandFailed)
}

func TestUploadSequentialWithProgress(t *testing.T) {
	exec := &rpctest.Executor{}
	var progress [][2]int
	files := []File{
		BytesFile("a.txt", []byte("A")),
		BytesFile("sub/b.bin", []byte{0xff, 0x00}),
		BytesFile("empty", nil),
	}

	err := Upload(context.Background(), exec, "a1", "/tmp/", files, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`echo 'QQ==' | base64 -d > '/tmp/a.txt'`,
		`echo '/wA=' | base64 -d > '/tmp/b.bin'`,
		`echo '' | base64 -d > '/tmp/empty'`,
	}, exec.Commands())
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
}

func TestUploadStopsAtFirstFailure(t *testing.T) {
	exec := &rpctest.Executor{Handler: func(c rpctest.Call) (rpc.Result, error) {
		if strings.Contains(c.Command, "/b") {
			return rpctest.Failure(c.Agent, "disk full")
		}
		return rpc.Result{OK: true}, nil
	}}
	var done []int
	files := []File{BytesFile("a", []byte("1")), BytesFile("b", []byte("2")), BytesFile("c", []byte("3"))}

	err := Upload(context.Background(), exec, "a1", "/", files, func(n, _ int) { done = append(done, n) })
	require.Error(t, err)
	assert.ErrorIs(t, err, rpc.ErrCommandFailed)
	assert.Contains(t, err.Error(), "upload b")
	assert.Equal(t, []int{1}, done)
	assert.Len(t, exec.Calls(), 2)
}

func TestUploadOpenFailure(t *testing.T) {
	exec := &rpctest.Executor{}
	err := Upload(context.Background(), exec, "a1", "/", []File{LocalFile(filepath.Join(t.TempDir(), "missing"))}, nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, exec.Calls())
}

func TestUploadLocalFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(p, []byte("hi"), 0o644))
	exec := &rpctest.Executor{}

	require.NoError(t, Upload(context.Background(), exec, "a1", "/home/op", []File{LocalFile(p)}, nil))
	assert.Equal(t, []string{`echo 'aGk=' | base64 -d > '/home/op/report.txt'`}, exec.Commands())
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "loot")
	sink := DirSink{Dir: dir}

	require.NoError(t, sink.Deliver(context.Background(), []byte("x"), "text/plain", "../../escape.txt"))
	data, err := os.ReadFile(filepath.Join(dir, "escape.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	assert.Equal(t, filepath.Join(dir, "escape.txt"), sink.Target("../../escape.txt"))

	assert.Error(t, sink.Deliver(context.Background(), nil, "", ".."))
}
