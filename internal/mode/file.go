package mode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/logger"
)

// FileName is the mode file inside the data directory.
const FileName = "mode.json"

type modeFile struct {
	Mode domain.Mode `json:"mode"`
}

// FileProvider keeps the mode in <dataDir>/mode.json. The value is cached
// and refreshed when the file changes on disk. A missing file means normal
// mode.
type FileProvider struct {
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu      sync.RWMutex
	current domain.Mode
	loadErr error

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewFileProvider loads the mode file in dataDir and starts watching it.
func NewFileProvider(dataDir string, log *slog.Logger) (*FileProvider, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create mode watcher: %w", err)
	}
	// Watch the directory so atomic replacements are seen.
	if err := w.Add(dataDir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dataDir, err)
	}

	p := &FileProvider{
		path:    filepath.Join(dataDir, FileName),
		logger:  logger.OrDiscard(log),
		watcher: w,
		done:    make(chan struct{}),
	}
	p.reload()

	p.wg.Add(1)
	go p.watch()

	return p, nil
}

// Path returns the mode file path.
func (p *FileProvider) Path() string {
	return p.path
}

// Current returns the cached mode. It fails when the file exists but cannot
// be parsed.
func (p *FileProvider) Current(context.Context) (domain.Mode, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.loadErr
}

// Set writes m to the mode file and updates the cache.
func (p *FileProvider) Set(_ context.Context, m domain.Mode) error {
	if _, err := domain.ParseMode(string(m)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(modeFile{Mode: m}, "", "  ")
	if err != nil {
		return err
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write mode file: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace mode file: %w", err)
	}

	p.mu.Lock()
	p.current, p.loadErr = m, nil
	p.mu.Unlock()

	p.logger.Info("mode changed", "mode", m)
	return nil
}

// Close stops watching the mode file.
func (p *FileProvider) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		err = p.watcher.Close()
		p.wg.Wait()
	})
	return err
}

func (p *FileProvider) watch() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != p.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				p.reload()
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("mode watcher error", "error", err)
		}
	}
}

func (p *FileProvider) reload() {
	m, err := readModeFile(p.path)

	p.mu.Lock()
	changed := err == nil && m != p.current
	p.current, p.loadErr = m, err
	p.mu.Unlock()

	switch {
	case err != nil:
		p.logger.Warn("mode file unreadable", "path", p.path, "error", err)
	case changed:
		p.logger.Debug("mode refreshed", "mode", m)
	}
}

func readModeFile(path string) (domain.Mode, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ModeNormal, nil
	}
	if err != nil {
		return "", fmt.Errorf("read mode file: %w", err)
	}

	var f modeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("parse mode file: %w", err)
	}
	return domain.ParseMode(string(f.Mode))
}
