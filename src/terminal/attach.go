package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/muesli/cancelreader"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"portalctl/src/logging"
)

// DetachKey ends an attached session from the keyboard (ctrl+]).
const DetachKey = 0x1d

var errDetached = errors.New("detached")

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Attach wires in and out to a new session on dialer and blocks until the
// operator detaches, in reaches EOF, ctx ends, or the session fails. When
// in is a terminal it is switched to raw mode for the duration.
func Attach(ctx context.Context, dialer Dialer, in io.Reader, out io.Writer) error {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("enable raw mode: %w", err)
		}
		defer term.Restore(fd, state)
	}

	reader, err := cancelreader.NewReader(in)
	if err != nil {
		return fmt.Errorf("stdin: %w", err)
	}
	defer reader.Close()

	var log *zap.Logger
	s := NewSession(Options{
		Dialer:  dialer,
		Surface: nopCloser{out},
		OnFrame: func(f Frame) {
			log.Debug("frame", zap.Stringer("dir", f.Dir), zap.Int("bytes", len(f.Payload)))
		},
	})
	log = logging.L().With(zap.String("session", s.ID()))
	if err := s.Open(); err != nil {
		return err
	}
	defer s.Close()
	log.Info("attached")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		buf := make([]byte, 1024)
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				chunk := buf[:n]
				if i := bytes.IndexByte(chunk, DetachKey); i >= 0 {
					s.Write(chunk[:i])
					return errDetached
				}
				if _, werr := s.Write(chunk); werr != nil {
					return nil
				}
			}
			if err != nil {
				if errors.Is(err, cancelreader.ErrCanceled) {
					return nil
				}
				// EOF or a broken stdin both end the session
				return errDetached
			}
		}
	})
	g.Go(func() error {
		select {
		case <-s.Done():
		case <-gctx.Done():
		}
		reader.Cancel()
		return s.Err()
	})

	err = g.Wait()
	log.Info("detached", zap.Stringer("status", s.Status()))
	if errors.Is(err, errDetached) {
		return nil
	}
	return err
}
