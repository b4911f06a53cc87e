// Package ingest downloads gridded input files from the data provider.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"

	"github.com/lox/merdata/internal/metrics"
)

type FTPConfig struct {
	Addr         string // host:port
	User         string
	Password     string
	Timeout      time.Duration
	DialAttempts uint64
}

type FTPFetcher struct {
	cfg    FTPConfig
	logger *zap.Logger
}

func NewFTPFetcher(cfg FTPConfig, logger *zap.Logger) *FTPFetcher {
	if cfg.User == "" {
		cfg.User, cfg.Password = "anonymous", "anonymous"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DialAttempts == 0 {
		cfg.DialAttempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FTPFetcher{cfg: cfg, logger: logger}
}

// Fetch downloads every regular file in remoteDir whose name contains
// identifier into destDir, skipping files already present with the same
// size. It returns the names downloaded.
func (f *FTPFetcher) Fetch(ctx context.Context, remoteDir, identifier, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("ftp: create %s: %w", destDir, err)
	}

	conn, err := f.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	entries, err := conn.List(remoteDir)
	if err != nil {
		return nil, fmt.Errorf("ftp list %s: %w", remoteDir, err)
	}

	wanted := SelectEntries(entries, identifier, localSize(destDir))
	var fetched []string
	for _, e := range wanted {
		if err := ctx.Err(); err != nil {
			return fetched, err
		}
		f.logger.Info("ftp: downloading", zap.String("file", e.Name), zap.Uint64("bytes", e.Size))
		if err := download(conn, path.Join(remoteDir, e.Name), filepath.Join(destDir, e.Name)); err != nil {
			return fetched, err
		}
		fetched = append(fetched, e.Name)
		metrics.FilesFetched.Inc()
	}
	return fetched, nil
}

func (f *FTPFetcher) connect(ctx context.Context) (*ftp.ServerConn, error) {
	var conn *ftp.ServerConn
	operation := func() error {
		c, err := ftp.Dial(f.cfg.Addr, ftp.DialWithTimeout(f.cfg.Timeout), ftp.DialWithContext(ctx))
		if err != nil {
			f.logger.Warn("ftp: dial failed", zap.String("addr", f.cfg.Addr), zap.Error(err))
			return fmt.Errorf("ftp dial: %w", err)
		}
		if err := c.Login(f.cfg.User, f.cfg.Password); err != nil {
			c.Quit()
			return backoff.Permanent(fmt.Errorf("ftp login: %w", err))
		}
		conn = c
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.cfg.DialAttempts-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return conn, nil
}

// SelectEntries returns the regular files whose name contains identifier
// and that are missing locally or differ in size, sorted by name. local
// reports the size of an existing local copy.
func SelectEntries(entries []*ftp.Entry, identifier string, local func(name string) (int64, bool)) []*ftp.Entry {
	var out []*ftp.Entry
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile || !strings.Contains(e.Name, identifier) {
			continue
		}
		if size, ok := local(e.Name); ok && uint64(size) == e.Size {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func localSize(dir string) func(string) (int64, bool) {
	return func(name string) (int64, bool) {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !info.Mode().IsRegular() {
			return 0, false
		}
		return info.Size(), true
	}
}

// download writes to a temporary file first so an interrupted transfer
// never leaves a truncated grid file under its final name.
func download(conn *ftp.ServerConn, remote, local string) error {
	resp, err := conn.Retr(remote)
	if err != nil {
		return fmt.Errorf("ftp retr %s: %w", remote, err)
	}
	defer resp.Close()

	tmp, err := os.CreateTemp(filepath.Dir(local), "."+filepath.Base(local)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", local, err)
	}
	defer func() {
		if _, err := os.Stat(tmp.Name()); !errors.Is(err, fs.ErrNotExist) {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, resp); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", remote, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return fmt.Errorf("rename %s: %w", local, err)
	}
	return nil
}
