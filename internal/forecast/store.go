package forecast

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Store holds the current table snapshot and reloads it when the modeling
// pipeline rewrites the CSV files. Readers always see a complete snapshot;
// a failed reload keeps the last good one.
type Store struct {
	mu          sync.RWMutex
	tables      *Tables
	monthlyPath string
	dailyPath   string

	watcher     *fsnotify.Watcher
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	logger *zap.Logger
}

// NewStore loads both tables and returns a store around them.
func NewStore(monthlyPath, dailyPath string, logger *zap.Logger) (*Store, error) {
	tables, err := Load(monthlyPath, dailyPath)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		tables:      tables,
		monthlyPath: monthlyPath,
		dailyPath:   dailyPath,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // rapid rewrites collapse to one reload
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      logger,
	}, nil
}

// Snapshot returns the current tables. The returned value must be treated
// as read-only.
func (s *Store) Snapshot() *Tables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables
}

// Reload re-reads both CSV files and swaps the snapshot.
func (s *Store) Reload() error {
	tables, err := Load(s.monthlyPath, s.dailyPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tables = tables
	s.mu.Unlock()
	s.logger.Info("forecast tables reloaded",
		zap.Int("monthly_rows", len(tables.Monthly)),
		zap.Int("daily_rows", len(tables.Daily)))
	return nil
}

// Watch starts watching the directories containing the CSV files and
// reloads on change. Non-blocking; stop with Close.
func (s *Store) Watch(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	dirs := map[string]bool{
		filepath.Dir(s.monthlyPath): true,
		filepath.Dir(s.dailyPath):   true,
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return err
		}
		s.logger.Debug("watching prediction directory", zap.String("dir", dir))
	}

	go s.run(ctx)
	return nil
}

// Close stops the watcher, if running.
func (s *Store) Close() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
	_ = s.watcher.Close()
}

func (s *Store) run(ctx context.Context) {
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !s.relevant(event) {
				continue
			}
			if s.debounced(event.Name) {
				continue
			}
			if err := s.Reload(); err != nil {
				// Keep serving the last good snapshot.
				s.logger.Warn("reload after file change failed",
					zap.String("file", event.Name), zap.Error(err))
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (s *Store) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == filepath.Clean(s.monthlyPath) || name == filepath.Clean(s.dailyPath)
}

// debounced reports whether the event for path arrived within the debounce
// window of the previous one.
func (s *Store) debounced(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if last, ok := s.debounceMap[path]; ok && now.Sub(last) < s.debounceDur {
		return true
	}
	s.debounceMap[path] = now
	return false
}
