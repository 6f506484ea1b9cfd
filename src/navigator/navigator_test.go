package navigator

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalctl/src/listing"
	"portalctl/src/rpc"
	"portalctl/src/rpc/rpctest"
	"portalctl/src/transfer"
)

const srvListing = `total 12
drwxr-xr-x 3 root root 4096 Apr 1 12:00 .
drwxr-xr-x 9 root root 4096 Apr 1 12:00 ..
drwxr-xr-x 2 root root 4096 Apr 1 12:00 www
-rw-r--r-- 1 root root   42 Apr 1 12:00 notes.txt
`

func TestBreadcrumbs(t *testing.T) {
	assert.Equal(t, []Breadcrumb{{"Root", "/"}}, Breadcrumbs("/"))
	assert.Equal(t, []Breadcrumb{{"Root", "/"}}, Breadcrumbs(""))
	assert.Equal(t, []Breadcrumb{
		{"Root", "/"}, {"a", "/a"}, {"b", "/a/b"},
	}, Breadcrumbs("/a/b"))
	assert.Equal(t, []Breadcrumb{
		{"Root", "/"}, {"a", "/a"}, {"b", "/a/b"},
	}, Breadcrumbs("a//b/"))
}

func TestNavigate(t *testing.T) {
	exec := &rpctest.Executor{Responses: map[string]string{`ls -la '/srv'`: srvListing}}
	nav := New(exec, "a1")
	assert.Equal(t, "/", nav.State().Path)

	require.NoError(t, nav.Navigate(context.Background(), "/srv/"))
	st := nav.State()
	assert.Equal(t, "/srv", st.Path)
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)
	assert.Equal(t, []Breadcrumb{{"Root", "/"}, {"srv", "/srv"}}, st.Crumbs)
	require.Len(t, st.Entries, 2)
	assert.Equal(t, "/srv/www", st.Entries[0].Path)

	e, ok := st.Find("notes.txt")
	require.True(t, ok)
	assert.Equal(t, int64(42), e.Size)
	assert.Equal(t, []rpctest.Call{{Agent: "a1", Command: `ls -la '/srv'`, Kind: rpc.Shell}}, exec.Calls())
}

func TestNavigateBreadcrumbsFollowPath(t *testing.T) {
	nav := New(&rpctest.Executor{}, "a1")
	require.NoError(t, nav.Navigate(context.Background(), "/a/b"))
	assert.Equal(t, []Breadcrumb{{"Root", "/"}, {"a", "/a"}, {"b", "/a/b"}}, nav.State().Crumbs)
}

func TestNavigateFailureKeepsPath(t *testing.T) {
	exec := &rpctest.Executor{Handler: func(c rpctest.Call) (rpc.Result, error) {
		return rpctest.Failure(c.Agent, "No such file or directory")
	}}
	nav := New(exec, "a1")
	err := nav.Navigate(context.Background(), "/missing")
	assert.ErrorIs(t, err, rpc.ErrCommandFailed)

	st := nav.State()
	assert.Equal(t, "/missing", st.Path)
	assert.False(t, st.Loading)
	assert.ErrorIs(t, st.Err, rpc.ErrCommandFailed)
}

func TestUp(t *testing.T) {
	exec := &rpctest.Executor{}
	nav := New(exec, "a1")

	require.NoError(t, nav.Up(context.Background()))
	assert.Empty(t, exec.Calls())

	require.NoError(t, nav.Navigate(context.Background(), "/a/b"))
	require.NoError(t, nav.Up(context.Background()))
	assert.Equal(t, "/a", nav.State().Path)
	assert.Equal(t, []string{`ls -la '/a/b'`, `ls -la '/a'`}, exec.Commands())
}

func TestMoveRejectsNonDirectory(t *testing.T) {
	exec := &rpctest.Executor{}
	nav := New(exec, "a1")
	src := listing.Entry{Name: "a.txt", Path: "/a.txt", Kind: listing.File}

	for _, kind := range []listing.Kind{listing.File, listing.Link} {
		dst := listing.Entry{Name: "b", Path: "/b", Kind: kind}
		err := nav.Move(context.Background(), src, dst)
		assert.ErrorIs(t, err, ErrNotDirectory)
	}
	assert.Empty(t, exec.Calls())
}

func TestMoveIssuesMvThenReloads(t *testing.T) {
	exec := &rpctest.Executor{}
	nav := New(exec, "a1")
	require.NoError(t, nav.Navigate(context.Background(), "/srv"))

	src := listing.Entry{Name: "notes.txt", Path: "/srv/notes.txt"}
	dst := listing.Entry{Name: "www", Path: "/srv/www", Kind: listing.Directory}
	require.NoError(t, nav.Move(context.Background(), src, dst))
	assert.Equal(t, []string{
		`ls -la '/srv'`,
		`mv '/srv/notes.txt' '/srv/www'`,
		`ls -la '/srv'`,
	}, exec.Commands())
}

func TestMoveFailureSkipsReload(t *testing.T) {
	exec := &rpctest.Executor{Handler: func(c rpctest.Call) (rpc.Result, error) {
		if strings.HasPrefix(c.Command, "mv ") {
			return rpctest.Failure(c.Agent, "Permission denied")
		}
		return rpc.Result{OK: true}, nil
	}}
	nav := New(exec, "a1")
	dst := listing.Entry{Name: "d", Path: "/d", Kind: listing.Directory}
	err := nav.Move(context.Background(), listing.Entry{Name: "f", Path: "/f"}, dst)
	assert.ErrorIs(t, err, rpc.ErrCommandFailed)
	assert.Len(t, exec.Calls(), 1)
}

func TestUploadReloadsCurrentDirectory(t *testing.T) {
	exec := &rpctest.Executor{}
	nav := New(exec, "a1")
	require.NoError(t, nav.Navigate(context.Background(), "/tmp"))

	var last [2]int
	err := nav.Upload(context.Background(), []transfer.File{transfer.BytesFile("x", []byte("x"))}, func(d, n int) {
		last = [2]int{d, n}
	})
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, 1}, last)
	assert.Equal(t, []string{
		`ls -la '/tmp'`,
		`echo 'eA==' | base64 -d > '/tmp/x'`,
		`ls -la '/tmp'`,
	}, exec.Commands())
}

func TestUploadToOtherDirReloadsAfterFailure(t *testing.T) {
	exec := &rpctest.Executor{Handler: func(c rpctest.Call) (rpc.Result, error) {
		if strings.HasPrefix(c.Command, "echo ") {
			return rpctest.Failure(c.Agent, "read-only file system")
		}
		return rpc.Result{OK: true}, nil
	}}
	nav := New(exec, "a1")
	err := nav.UploadTo(context.Background(), "/ro", []transfer.File{transfer.BytesFile("x", nil)}, nil)
	assert.ErrorIs(t, err, rpc.ErrCommandFailed)
	assert.Equal(t, `ls -la '/'`, exec.Commands()[1])
}

func TestDownload(t *testing.T) {
	exec := &rpctest.Executor{Responses: map[string]string{"cat ": transfer.Encode([]byte("data"))}}
	nav := New(exec, "a1")

	var got string
	sink := transfer.SinkFunc(func(_ context.Context, data []byte, _, _ string) error {
		got = string(data)
		return nil
	})
	require.NoError(t, nav.Download(context.Background(), listing.Entry{Name: "f", Path: "/f"}, sink))
	assert.Equal(t, "data", got)

	err := nav.Download(context.Background(), listing.Entry{Name: "d", Path: "/d", Kind: listing.Directory}, sink)
	assert.ErrorIs(t, err, ErrIsDirectory)
	assert.Len(t, exec.Calls(), 1)
}

func TestStaleListingDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	exec := &rpctest.Executor{Handler: func(c rpctest.Call) (rpc.Result, error) {
		if c.Command == `ls -la '/slow'` {
			close(started)
			<-release
			return rpc.Result{OK: true, Output: "total 1\n-rw-r--r-- 1 u g 1 Apr 1 12:00 old"}, nil
		}
		return rpc.Result{OK: true, Output: "total 1\n-rw-r--r-- 1 u g 1 Apr 1 12:00 new"}, nil
	}}
	nav := New(exec, "a1")

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowErr = nav.Navigate(context.Background(), "/slow")
	}()
	<-started
	require.NoError(t, nav.Navigate(context.Background(), "/fast"))
	close(release)
	wg.Wait()

	assert.ErrorIs(t, slowErr, ErrStale)
	st := nav.State()
	assert.Equal(t, "/fast", st.Path)
	require.Len(t, st.Entries, 1)
	assert.Equal(t, "new", st.Entries[0].Name)
}

func TestStateTransitions(t *testing.T) {
	s := initialState().navigated("/a", 1)
	assert.True(t, s.Loading)

	entries := []listing.Entry{{Name: "x", Path: "/a/x"}}
	_, ok := s.applied("/a", 0, entries, nil)
	assert.False(t, ok, "older token")
	_, ok = s.applied("/b", 1, entries, nil)
	assert.False(t, ok, "other path")

	s, ok = s.applied("/a", 1, entries, nil)
	require.True(t, ok)
	assert.False(t, s.Loading)
	assert.Equal(t, entries, s.Entries)

	r := s.loading(2)
	assert.True(t, r.Loading)
	assert.Equal(t, entries, r.Entries)
	assert.False(t, s.Loading, "transitions do not mutate the receiver")

	c := s.clone()
	c.Entries[0].Name = "changed"
	assert.Equal(t, "x", s.Entries[0].Name)
}
