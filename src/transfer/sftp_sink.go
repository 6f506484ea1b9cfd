package transfer

import (
	"context"
	"fmt"
	"path"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPConfig locates a staging directory on an SFTP host.
type SFTPConfig struct {
	Addr     string
	User     string
	Password string
	Dir      string
}

// SFTPSink stores artifacts on a remote host over SFTP.
type SFTPSink struct {
	client *sftp.Client
	conn   *ssh.Client
	dir    string
}

func DialSFTP(cfg SFTPConfig) (*SFTPSink, error) {
	config := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	conn, err := ssh.Dial("tcp", cfg.Addr, config)
	if err != nil {
		return nil, fmt.Errorf("sftp dial %s: %w", cfg.Addr, err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp session %s: %w", cfg.Addr, err)
	}
	s := NewSFTPSink(client, cfg.Dir)
	s.conn = conn
	return s, nil
}

// NewSFTPSink wraps an existing client.
func NewSFTPSink(client *sftp.Client, dir string) *SFTPSink {
	if dir == "" {
		dir = "."
	}
	return &SFTPSink{client: client, dir: dir}
}

func (s *SFTPSink) Deliver(_ context.Context, data []byte, _ string, filename string) error {
	name, err := safeName(filename)
	if err != nil {
		return err
	}
	if err := s.client.MkdirAll(s.dir); err != nil {
		return fmt.Errorf("sftp mkdir %s: %w", s.dir, err)
	}
	target := path.Join(s.dir, name)
	f, err := s.client.Create(target)
	if err != nil {
		return fmt.Errorf("sftp create %s: %w", target, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("sftp write %s: %w", target, err)
	}
	return f.Close()
}

func (s *SFTPSink) Close() error {
	err := s.client.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
