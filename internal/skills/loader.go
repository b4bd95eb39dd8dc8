package skills

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/local/squidbot/pkg/models"
)

// listTTL is the list cache's time-to-live (spec §4.3).
const listTTL = 2 * time.Second

// Loader discovers skills across an ordered list of search directories.
// Later directories override earlier ones by skill name (user skills
// shadow bundled ones), matching the teacher's layered-source precedence
// in internal/skills/manager.go generalized to this package's flat
// directory list.
type Loader struct {
	dirs   []string
	logger *slog.Logger

	mu         sync.Mutex
	listCache  []models.SkillMetadata
	listAt     time.Time
	knownMtime map[string]time.Time // SKILL.md path -> mtime at last scan
	dirty      atomic.Bool          // set by the fsnotify watcher between TTL windows

	bodyMu    sync.Mutex
	bodyCache map[string]bodyEntry // skill name -> cached body

	watcher *fsnotify.Watcher
}

type bodyEntry struct {
	path  string
	mtime time.Time
	body  string
}

// NewLoader creates a Loader scanning dirs in order; later entries win
// ties on skill name. It starts a best-effort fsnotify watcher on each
// directory so a skill added or edited mid-TTL-window is picked up
// immediately rather than waiting out the 2s cache; watcher failures
// (e.g. a directory that does not exist yet) are logged and otherwise
// ignored, since the mtime check in ListSkills still catches stale entries.
func NewLoader(dirs []string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{
		dirs:       dirs,
		logger:     logger.With("component", "skills"),
		knownMtime: make(map[string]time.Time),
		bodyCache:  make(map[string]bodyEntry),
	}
	l.startWatcher()
	return l
}

func (l *Loader) startWatcher() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		l.logger.Warn("fsnotify watcher unavailable, falling back to TTL+mtime only", "error", err)
		return
	}
	for _, dir := range l.dirs {
		if err := w.Add(dir); err != nil {
			l.logger.Warn("could not watch skills dir", "dir", dir, "error", err)
		}
	}
	l.watcher = w
	go l.watchLoop()
}

func (l *Loader) watchLoop() {
	for {
		select {
		case _, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			l.dirty.Store(true)
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("fsnotify watch error", "error", err)
		}
	}
}

// Close stops the background watcher, if one was started.
func (l *Loader) Close() error {
	if l.watcher == nil {
		return nil
	}
	return l.watcher.Close()
}

// ListSkills returns the ordered, deduplicated-by-name skill metadata
// across all search directories (spec §4.3).
func (l *Loader) ListSkills() ([]models.SkillMetadata, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.listValidLocked() {
		out := make([]models.SkillMetadata, len(l.listCache))
		copy(out, l.listCache)
		return out, nil
	}

	return l.rescanLocked()
}

func (l *Loader) listValidLocked() bool {
	if l.listCache == nil {
		return false
	}
	if l.dirty.Load() {
		return false
	}
	if time.Since(l.listAt) >= listTTL {
		return false
	}
	// Even within the TTL, a changed mtime on a previously-known SKILL.md
	// forces an immediate rescan (spec §4.3).
	for path, known := range l.knownMtime {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if !info.ModTime().Equal(known) {
			return false
		}
	}
	return true
}

func (l *Loader) rescanLocked() ([]models.SkillMetadata, error) {
	byName := make(map[string]models.SkillMetadata)
	var order []string // first-seen discovery order, spec §4.3's "ordered list"
	mtimes := make(map[string]time.Time)

	for _, dir := range l.dirs {
		found, err := discoverDir(dir)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if _, seen := byName[p.meta.Name]; !seen {
				order = append(order, p.meta.Name)
			}
			byName[p.meta.Name] = p.meta // later dirs override earlier by name, same position
			skillFile := p.meta.Path + string(os.PathSeparator) + SkillFilename
			if info, err := os.Stat(skillFile); err == nil {
				mtimes[skillFile] = info.ModTime()
			}
		}
	}

	out := make([]models.SkillMetadata, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}

	l.listCache = out
	l.listAt = time.Now()
	l.knownMtime = mtimes
	l.dirty.Store(false)

	result := make([]models.SkillMetadata, len(out))
	copy(result, out)
	return result, nil
}

// LoadSkillBody returns the markdown body for the named skill, using a
// cache keyed by (resolved path, mtime) so an edited SKILL.md is reread
// but an untouched one is served from memory (spec §4.3).
func (l *Loader) LoadSkillBody(name string) (string, error) {
	metas, err := l.ListSkills()
	if err != nil {
		return "", err
	}

	var dir string
	for _, m := range metas {
		if m.Name == name {
			dir = m.Path
			break
		}
	}
	if dir == "" {
		return "", os.ErrNotExist
	}
	path := dir + string(os.PathSeparator) + SkillFilename

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	mtime := info.ModTime()

	l.bodyMu.Lock()
	if cached, ok := l.bodyCache[name]; ok && cached.path == path && cached.mtime.Equal(mtime) {
		l.bodyMu.Unlock()
		return cached.body, nil
	}
	l.bodyMu.Unlock()

	p, err := parseSkillFile(path, dir)
	if err != nil {
		return "", err
	}

	l.bodyMu.Lock()
	l.bodyCache[name] = bodyEntry{path: path, mtime: mtime, body: p.body}
	l.bodyMu.Unlock()

	return p.body, nil
}
