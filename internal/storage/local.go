package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalStore 把报表保存在本地目录中
type LocalStore struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewLocalStore 构造 LocalStore，dir 为空时使用 generated_docs
func NewLocalStore(dir string, logger *zap.Logger) *LocalStore {
	if dir == "" {
		dir = "generated_docs"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStore{dir: dir, logger: logger, now: time.Now}
}

// Dir 根目录
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save 先写入同目录的临时文件再重命名，读者不会看到写了一半的文件
func (s *LocalStore) Save(_ context.Context, name string, date time.Time, ext string, content []byte) (string, error) {
	key := ObjectKey(name, date, s.now(), ext)
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+uuid.New().String()+".tmp")
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename report: %w", err)
	}

	s.logger.Info("report archived", zap.String("key", key), zap.Int("bytes", len(content)))
	return key, nil
}

// Prune 删除旧文件，并移除因此变空的日期目录
func (s *LocalStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	removed := 0
	var dirs []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.dir {
				dirs = append(dirs, path)
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		removed++
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return removed, fmt.Errorf("prune reports: %w", err)
	}

	// 由深到浅删除空目录
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err == nil && len(entries) == 0 {
			_ = os.Remove(dirs[i])
		}
	}

	s.logger.Info("reports pruned", zap.Int("removed", removed), zap.Time("cutoff", cutoff))
	return removed, nil
}
