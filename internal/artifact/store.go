// Package artifact owns the on-disk lifecycle of conversion inputs and
// outputs: naming, directory selection, persistence, and deferred deletion.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/phuslu/log"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
)

// Defaults for directory resolution and cleanup.
const (
	DefaultLocalDir    = "outputs"
	DefaultTempPattern = "convert-"
	DefaultInputGrace  = 2 * time.Second
	DefaultOutputGrace = 30 * time.Second

	timestampLayout = "20060102-150405"
	outputExt       = ".pdf"

	// maxCollisions bounds the suffix search for one base name.
	maxCollisions = 1000

	// maxNameBytes is NAME_MAX on common filesystems.
	maxNameBytes = 255
	maxExtBytes  = 16
)

// Sentinel errors for artifact operations.
var (
	ErrAllocate  = errors.New("failed to allocate artifact paths")
	ErrPersist   = errors.New("failed to persist artifact")
	ErrMissing   = errors.New("artifact not found")
	ErrEmptyData = errors.New("artifact data is empty")
)

// Scheduler runs delayed work without blocking the caller.
type Scheduler interface {
	After(delay time.Duration, fn func(context.Context))
}

// Config controls where artifacts live and how long they are kept.
type Config struct {
	OutputDir   string        // Highest priority directory, created if absent.
	LocalDir    string        // Used when it already exists (default: "outputs").
	DebugDir    string        // Used in debug mode (default: <tmp>/outputs).
	Debug       bool          // Retain outputs and prefer DebugDir.
	InputGrace  time.Duration // Delay before deleting the input.
	OutputGrace time.Duration // Further delay before deleting the output.
	Now         func() time.Time
}

// Pair is an allocated input/output artifact pair sharing one base name.
type Pair struct {
	Dir       string
	Base      string
	Input     string
	Output    string
	Ephemeral bool // Dir was created for this request only.
}

// Store allocates, persists, and schedules cleanup of artifacts.
type Store struct {
	cfg    Config
	sched  Scheduler
	logger *log.Logger

	mu       sync.Mutex
	reserved map[string]struct{} // keyed by Dir/Base
}

// New returns a Store.
func New(cfg Config, sched Scheduler, logger *log.Logger) *Store {
	if cfg.LocalDir == "" {
		cfg.LocalDir = DefaultLocalDir
	}
	if cfg.DebugDir == "" {
		cfg.DebugDir = filepath.Join(os.TempDir(), DefaultLocalDir)
	}
	if cfg.InputGrace <= 0 {
		cfg.InputGrace = DefaultInputGrace
	}
	if cfg.OutputGrace <= 0 {
		cfg.OutputGrace = DefaultOutputGrace
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		cfg:      cfg,
		sched:    sched,
		logger:   logger,
		reserved: make(map[string]struct{}),
	}
}

// ResolveDirectory picks the artifact directory for one request, in order:
// the configured output directory (created if needed), an existing local
// directory, the debug directory in debug mode, or a fresh temp directory.
// The boolean reports whether the directory was created for this request.
func (s *Store) ResolveDirectory() (string, bool, error) {
	if s.cfg.OutputDir != "" {
		if err := os.MkdirAll(s.cfg.OutputDir, 0o750); err != nil {
			return "", false, fmt.Errorf("%w: creating %s: %v", ErrAllocate, s.cfg.OutputDir, err)
		}
		return s.cfg.OutputDir, false, nil
	}

	if fileutil.DirExists(s.cfg.LocalDir) {
		return s.cfg.LocalDir, false, nil
	}

	if s.cfg.Debug {
		if err := os.MkdirAll(s.cfg.DebugDir, 0o750); err != nil {
			return "", false, fmt.Errorf("%w: creating %s: %v", ErrAllocate, s.cfg.DebugDir, err)
		}
		return s.cfg.DebugDir, false, nil
	}

	dir, err := os.MkdirTemp("", DefaultTempPattern)
	if err != nil {
		return "", false, fmt.Errorf("%w: creating temp directory: %v", ErrAllocate, err)
	}
	return dir, true, nil
}

// Allocate derives a unique input/output pair from the uploaded name.
// extHint is used when the name has no extension. The base name stays
// reserved until ScheduleCleanup has finished with it.
func (s *Store) Allocate(originalName, extHint string) (*Pair, error) {
	dir, ephemeral, err := s.ResolveDirectory()
	if err != nil {
		return nil, err
	}

	stem, ext := fileutil.SplitExt(fileutil.SanitizeName(filepath.Base(originalName)))
	if ext == "" || len(ext) > maxExtBytes {
		ext = extHint
	}
	stem = truncateBytes(stem, stemBudget(ext))
	stamped := stem + "-" + s.cfg.Now().Format(timestampLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	for n := 1; n <= maxCollisions; n++ {
		base := stamped
		if n > 1 {
			base += "-" + strconv.Itoa(n)
		}
		p := &Pair{
			Dir:       dir,
			Base:      base,
			Input:     filepath.Join(dir, base+ext),
			Output:    filepath.Join(dir, base+outputExt),
			Ephemeral: ephemeral,
		}
		if s.taken(p) {
			continue
		}
		s.reserved[s.key(p)] = struct{}{}
		return p, nil
	}
	return nil, fmt.Errorf("%w: too many artifacts named %s", ErrAllocate, stamped)
}

// stemBudget is the room left for the stem once the timestamp, the largest
// collision suffix and the longer of ext and ".pdf" are appended.
func stemBudget(ext string) int {
	reserved := len("-"+timestampLayout) + len("-"+strconv.Itoa(maxCollisions)) + max(len(ext), len(outputExt))
	return maxNameBytes - reserved
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (s *Store) key(p *Pair) string {
	return filepath.Join(p.Dir, p.Base)
}

// taken must be called with s.mu held.
func (s *Store) taken(p *Pair) bool {
	if _, ok := s.reserved[s.key(p)]; ok {
		return true
	}
	return fileutil.FileExists(p.Input) || fileutil.FileExists(p.Output)
}

func (s *Store) release(p *Pair) {
	s.mu.Lock()
	delete(s.reserved, s.key(p))
	s.mu.Unlock()
}

// Persist writes data to the pair's input path. The file must not exist yet.
func (s *Store) Persist(p *Pair, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyData
	}
	f, err := os.OpenFile(p.Input, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: writing %s: %v", ErrPersist, p.Input, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrPersist, p.Input, err)
	}
	return nil
}

// Open opens the output artifact for streaming and returns its size.
func (s *Store) Open(p *Pair) (*os.File, int64, error) {
	f, err := os.Open(p.Output)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissing, p.Output)
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// ScheduleCleanup deletes the input after the input grace period and, unless
// retainOutput is set, the output after a further output grace period.
// It returns immediately; deletion failures are logged, never returned.
func (s *Store) ScheduleCleanup(p *Pair, retainOutput bool) {
	s.sched.After(s.cfg.InputGrace, func(context.Context) {
		s.remove(p.Input, "input")
		if retainOutput {
			s.release(p)
		}
	})

	if retainOutput {
		return
	}

	s.sched.After(s.cfg.InputGrace+s.cfg.OutputGrace, func(context.Context) {
		s.remove(p.Output, "output")
		if p.Ephemeral {
			// Only succeeds once the directory is empty.
			_ = os.Remove(p.Dir)
		}
		s.release(p)
	})
}

func (s *Store) remove(path, role string) {
	if err := fileutil.RemoveIfExists(path); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Str("role", role).Msg("artifact cleanup failed")
		return
	}
	s.logger.Debug().Str("path", path).Str("role", role).Msg("artifact removed")
}

// Reserved returns the number of base names currently reserved.
func (s *Store) Reserved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reserved)
}
