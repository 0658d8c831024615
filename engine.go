package spiral

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/runtime"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
)

const rulesHashKey = "rules_hash"

// Engine indexes Spiral files into a SQLite database and answers queries
// over the index. Every file is analysed on its own; the index is the
// union of the per-file results.
type Engine struct {
	*Analyzer

	store      *store.Store
	scriptsDir string
	scriptsFS  fs.FS

	useParallel bool

	// rulesStale is set when the rule scripts differ from the ones the
	// index was built with. Unchanged files are then re-analysed anyway.
	rulesStale bool

	// changes accumulates per-file declaration changes until Changes is
	// called.
	changes map[string]ChangeSet
}

// New creates an Engine backed by a SQLite database at dbPath.
// Script loading priority:
//  1. If WithScriptsFS is set, use the provided fs.FS
//  2. Otherwise, use scriptsDir on disk
//
// The scriptsDir parameter may be empty when WithScriptsFS is used.
func New(dbPath string, scriptsDir string, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("spiral: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("spiral: migrate: %w", err)
	}

	a, err := newAnalyzer(scriptsDir, o, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	e := &Engine{
		Analyzer:    a,
		store:       s,
		scriptsDir:  scriptsDir,
		scriptsFS:   o.scriptsFS,
		useParallel: o.useParallel,
		changes:     make(map[string]ChangeSet),
	}
	e.rulesStale = e.RulesChanged()
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// rulesHash computes a SHA-256 hash over the active rule scripts and any
// other .risor files they may import. Paths are sorted so the hash is
// stable.
func (e *Engine) rulesHash() string {
	var paths []string
	if e.scriptsFS != nil {
		fs.WalkDir(e.scriptsFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				paths = append(paths, path)
			}
			return nil
		})
	} else if e.scriptsDir != "" {
		filepath.WalkDir(e.scriptsDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				rel, _ := filepath.Rel(e.scriptsDir, path)
				paths = append(paths, rel)
			}
			return nil
		})
	}
	sort.Strings(paths)

	h := sha256.New()
	// Disabling rules changes what gets indexed too.
	fmt.Fprintf(h, "rules:%d\n", len(e.rules))
	for _, p := range paths {
		src, err := e.runtime.LoadScript(p)
		if err != nil {
			continue
		}
		h.Write([]byte(p))
		h.Write([]byte(src))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// RulesChanged reports whether the rule scripts differ from the ones used
// to build the current database. It is true for a fresh database. The next
// IndexFiles call re-analyses every file it is given when the rules
// changed at the time the Engine was created.
func (e *Engine) RulesChanged() bool {
	stored, err := e.store.GetMetadata(rulesHashKey)
	if err != nil || stored == "" {
		return true
	}
	return stored != e.rulesHash()
}

func (e *Engine) storeRulesHash() error {
	return e.store.SetMetadata(rulesHashKey, e.rulesHash())
}

// FileChange is the declaration-level change of one file, as seen by the
// last re-index of that file.
type FileChange struct {
	Path string
	ChangeSet
}

// Changes returns the files whose declarations changed since the previous
// call, sorted by path. Files that were re-indexed without changing their
// declarations are not listed.
func (e *Engine) Changes() []FileChange {
	var out []FileChange
	for path, cs := range e.changes {
		if cs.Empty() {
			continue
		}
		out = append(out, FileChange{Path: path, ChangeSet: cs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	e.changes = make(map[string]ChangeSet)
	return out
}

func (e *Engine) recordChange(path string, before, after map[string]string) {
	e.changes[path] = store.DiffSignatures(before, after)
}

// IndexFiles indexes the given file paths. When WithParallel is enabled,
// uses a worker pool for concurrent analysis with batched SQLite writes.
// Otherwise falls back to the serial path.
//
// For each file:
//  1. Skip files that are not Spiral sources
//  2. Skip unchanged files (same content hash), unless the rules changed
//  3. Capture the old signature hashes
//  4. Delete stale data and insert the file record
//  5. Parse, analyse and run the rules
//  6. Diff the new signature hashes against the old ones
//
// Errors on individual files are collected and skipped; processing
// continues. Cancelling ctx stops between files.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	var err error
	if e.useParallel {
		err = e.IndexFilesParallel(ctx, paths)
	} else {
		err = e.indexFilesSerial(ctx, paths)
	}
	if err != nil {
		return err
	}
	if e.rulesStale {
		if err := e.storeRulesHash(); err != nil {
			return fmt.Errorf("spiral: %w", err)
		}
		e.rulesStale = false
	}
	return nil
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.indexFile(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// indexFile writes straight into the Store. A failure part way through
// removes whatever was written for the file.
func (e *Engine) indexFile(ctx context.Context, path string) error {
	item, skip, err := e.prepareFile(path)
	if err != nil || skip {
		return err
	}
	if _, err := e.analyze(ctx, item.path, item.source, e.store, item.fileID); err != nil {
		if delErr := e.store.DeleteFileData(item.fileID); delErr != nil {
			return fmt.Errorf("%w (cleanup: %v)", err, delErr)
		}
		return err
	}
	after, err := e.store.SignatureHashes(item.fileID)
	if err != nil {
		return fmt.Errorf("capture new signatures: %w", err)
	}
	e.recordChange(path, item.oldHashes, after)
	return nil
}

// skipDirs are excluded from the directory walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// IndexDirectory indexes all Spiral sources under root. If root is inside a
// git repository, uses git ls-files to respect .gitignore. Falls back to a
// filesystem walk (skipping hidden dirs, node_modules and vendor) if git is
// unavailable. Indexed files under root that no longer exist are removed
// from the index and reported by Changes.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("spiral: %w", err)
	}
	paths, err := e.gitListFiles(abs)
	if err != nil {
		// Not a git repo or git not available; fall back to walk.
		paths, err = e.walkListFiles(abs)
		if err != nil {
			return err
		}
	}
	if err := e.prune(abs, paths); err != nil {
		return err
	}
	return e.IndexFiles(ctx, paths)
}

// prune drops indexed files under root that are not in present. Files that
// still exist but became ignored are dropped as well.
func (e *Engine) prune(root string, present []string) error {
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("spiral: prune: %w", err)
	}
	prefix := root + string(filepath.Separator)
	for _, f := range files {
		if keep[f.Path] || !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		before, err := e.store.SignatureHashes(f.ID)
		if err != nil {
			return fmt.Errorf("spiral: prune %s: %w", f.Path, err)
		}
		if err := e.store.DeleteFileData(f.ID); err != nil {
			return fmt.Errorf("spiral: prune %s: %w", f.Path, err)
		}
		e.recordChange(f.Path, before, nil)
	}
	return nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) Spiral sources under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if runtime.IsSourceFile(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if runtime.IsSourceFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// fileItem is a file that passed change detection and has a fresh file
// record.
type fileItem struct {
	path   string
	source string
	fileID int64

	// Signature hashes of the previous version, nil for a new file.
	oldHashes map[string]string
}

// prepareFile reads path, skips it when unchanged and otherwise replaces
// its file record. skip=true means the file is unchanged or not a Spiral
// source.
func (e *Engine) prepareFile(path string) (fileItem, bool, error) {
	if !runtime.IsSourceFile(path) {
		return fileItem{}, true, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fileItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return fileItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash && !e.rulesStale {
		return fileItem{}, true, nil
	}

	var oldHashes map[string]string
	if existing != nil {
		oldHashes, err = e.store.SignatureHashes(existing.ID)
		if err != nil {
			return fileItem{}, false, fmt.Errorf("capture old signatures: %w", err)
		}
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			return fileItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:        path,
		Module:      e.ModuleName(path),
		Hash:        hash,
		LineCount:   bytes.Count(content, []byte{'\n'}) + 1,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return fileItem{}, false, fmt.Errorf("insert file: %w", err)
	}
	return fileItem{path: path, source: string(content), fileID: fileID, oldHashes: oldHashes}, false, nil
}
