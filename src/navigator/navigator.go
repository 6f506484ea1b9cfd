// Package navigator keeps the current remote directory of one agent and
// runs listing, move and transfer operations against it.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"portalctl/src/listing"
	"portalctl/src/logging"
	"portalctl/src/rpc"
	"portalctl/src/transfer"
)

var (
	ErrNotDirectory = errors.New("navigator: destination is not a directory")
	ErrIsDirectory  = errors.New("navigator: cannot download a directory")
	// ErrStale is returned when a listing finished after a newer request
	// was issued; its result was discarded.
	ErrStale = errors.New("navigator: listing superseded")
)

type Navigator struct {
	exec  rpc.Executor
	agent string

	mu    sync.Mutex
	state State
	seq   uint64
}

// New returns a navigator positioned at "/" with nothing loaded yet.
func New(exec rpc.Executor, agentID string) *Navigator {
	return &Navigator{exec: exec, agent: agentID, state: initialState()}
}

func (n *Navigator) Agent() string { return n.agent }

// State returns a copy of the current state.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.clone()
}

// Navigate changes directory to path and lists it.
func (n *Navigator) Navigate(ctx context.Context, path string) error {
	n.mu.Lock()
	n.seq++
	n.state = n.state.navigated(path, n.seq)
	path, seq := n.state.Path, n.seq
	n.mu.Unlock()

	logging.L().Debug("navigate", zap.String("agent", n.agent), zap.String("path", path))
	return n.load(ctx, path, seq)
}

// Reload lists the current directory again.
func (n *Navigator) Reload(ctx context.Context) error {
	n.mu.Lock()
	n.seq++
	n.state = n.state.loading(n.seq)
	path, seq := n.state.Path, n.seq
	n.mu.Unlock()

	return n.load(ctx, path, seq)
}

// Up moves to the parent directory. At "/" it does nothing.
func (n *Navigator) Up(ctx context.Context) error {
	path := n.State().Path
	if path == "/" {
		return nil
	}
	return n.Navigate(ctx, listing.Parent(path))
}

func (n *Navigator) load(ctx context.Context, path string, seq uint64) error {
	out, err := rpc.ShellOutput(ctx, n.exec, n.agent, listing.Command(path))
	var entries []listing.Entry
	if err == nil {
		entries = listing.Parse(out, path)
	}

	n.mu.Lock()
	next, ok := n.state.applied(path, seq, entries, err)
	if ok {
		n.state = next
	}
	n.mu.Unlock()

	if !ok {
		logging.L().Debug("dropped stale listing",
			zap.String("agent", n.agent), zap.String("path", path), zap.Uint64("seq", seq))
		return ErrStale
	}
	if err != nil {
		return fmt.Errorf("list %s: %w", path, err)
	}
	return nil
}

// Move moves source into the directory destination and reloads.
func (n *Navigator) Move(ctx context.Context, source, destination listing.Entry) error {
	if destination.Kind != listing.Directory {
		return fmt.Errorf("move %s to %s: %w", source.Name, destination.Name, ErrNotDirectory)
	}
	cmd := "mv " + listing.Quote(source.Path) + " " + listing.Quote(destination.Path)
	if _, err := rpc.ShellOutput(ctx, n.exec, n.agent, cmd); err != nil {
		return fmt.Errorf("move %s: %w", source.Name, err)
	}
	logging.L().Info("moved",
		zap.String("agent", n.agent),
		zap.String("path", source.Path),
		zap.String("to", destination.Path))
	return n.refresh(ctx)
}

// Upload writes files into the current directory.
func (n *Navigator) Upload(ctx context.Context, files []transfer.File, progress transfer.Progress) error {
	return n.UploadTo(ctx, n.State().Path, files, progress)
}

// UploadTo writes files into dir, then reloads the current directory even
// if only some of them made it.
func (n *Navigator) UploadTo(ctx context.Context, dir string, files []transfer.File, progress transfer.Progress) error {
	uerr := transfer.Upload(ctx, n.exec, n.agent, dir, files, progress)
	rerr := n.refresh(ctx)
	if uerr != nil {
		return uerr
	}
	return rerr
}

// refresh reloads after a mutation. A newer listing already in flight
// covers the change, so losing to it is not an error.
func (n *Navigator) refresh(ctx context.Context) error {
	if err := n.Reload(ctx); err != nil && !errors.Is(err, ErrStale) {
		return err
	}
	return nil
}

// Download hands the contents of entry to sink.
func (n *Navigator) Download(ctx context.Context, entry listing.Entry, sink transfer.Sink) error {
	if entry.IsDir() {
		return fmt.Errorf("download %s: %w", entry.Name, ErrIsDirectory)
	}
	return transfer.Download(ctx, n.exec, n.agent, entry.Path, sink)
}
