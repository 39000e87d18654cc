// Package discovery collects the interface and markdown artifacts under a
// target path.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"stubtester/internal/config"
	"stubtester/internal/logging"
	"stubtester/internal/types"
)

var (
	// ErrPathNotFound indicates the target path does not exist.
	ErrPathNotFound = errors.New("path not found")

	// ErrUnsupportedFile indicates a single target file with an extension
	// that is neither an interface file nor markdown.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrInvalidPattern indicates an exclude pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// Target is the result of one discovery pass.
type Target struct {
	// Root is the absolute directory the target lives in: the path itself
	// for a directory, its parent for a single file.
	Root       string
	SingleFile bool
	Artifacts  []types.Artifact
}

// Dirs returns the distinct absolute directories holding artifacts, in
// discovery order.
func (t Target) Dirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, a := range t.Artifacts {
		dir := filepath.Dir(a.Path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// Discoverer walks target paths with a deny-list.
type Discoverer struct {
	cfg         config.DiscoveryConfig
	excludeDirs map[string]struct{}
	exclude     []glob.Glob
	// BaseDir anchors display paths; defaults to the working directory.
	BaseDir string
}

// New compiles the exclude patterns of cfg.
func New(cfg config.DiscoveryConfig) (*Discoverer, error) {
	d := &Discoverer{
		cfg:         cfg,
		excludeDirs: make(map[string]struct{}, len(cfg.ExcludeDirs)),
	}
	for _, name := range cfg.ExcludeDirs {
		d.excludeDirs[name] = struct{}{}
	}
	for _, pattern := range cfg.ExcludePatterns {
		matcher, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		d.exclude = append(d.exclude, matcher)
	}
	if wd, err := os.Getwd(); err == nil {
		d.BaseDir = wd
	}
	return d, nil
}

// Kind classifies a file name by extension. ok is false for files that
// are neither interface files nor markdown.
func (d *Discoverer) Kind(name string) (types.ArtifactKind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range d.cfg.StubExtensions {
		if strings.EqualFold(e, ext) {
			return types.KindInterface, true
		}
	}
	for _, e := range d.cfg.MarkdownExtensions {
		if strings.EqualFold(e, ext) {
			return types.KindMarkdown, true
		}
	}
	return "", false
}

// Discover resolves path and reads every artifact below it. A missing
// path is ErrPathNotFound; a single file of another kind is
// ErrUnsupportedFile.
func (d *Discoverer) Discover(ctx context.Context, path string) (*Target, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		kind, ok := d.Kind(abs)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(abs))
		}
		a, err := d.read(abs, kind)
		if err != nil {
			return nil, err
		}
		logging.Discovery("single file %s", a.Display)
		return &Target{Root: filepath.Dir(abs), SingleFile: true, Artifacts: []types.Artifact{a}}, nil
	}

	target := &Target{Root: abs}
	err = filepath.WalkDir(abs, func(p string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if os.IsPermission(walkErr) {
				logging.DiscoveryDebug("skipping %s: %v", p, walkErr)
				return nil
			}
			return walkErr
		}
		if p == abs {
			return nil
		}

		if entry.IsDir() {
			if d.Excluded(entry.Name(), true) {
				logging.DiscoveryDebug("excluded directory %s", p)
				return fs.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || d.Excluded(entry.Name(), false) {
			return nil
		}
		kind, ok := d.Kind(entry.Name())
		if !ok {
			return nil
		}
		a, err := d.read(p, kind)
		if err != nil {
			return err
		}
		target.Artifacts = append(target.Artifacts, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", path, err)
	}

	logging.Discovery("found %d artifact(s) under %s", len(target.Artifacts), abs)
	return target, nil
}

// Excluded reports whether a path segment is on the deny-list.
func (d *Discoverer) Excluded(name string, dir bool) bool {
	if dir {
		if _, ok := d.excludeDirs[name]; ok {
			return true
		}
	}
	for _, m := range d.exclude {
		if m.Match(name) {
			return true
		}
	}
	return false
}

func (d *Discoverer) read(path string, kind types.ArtifactKind) (types.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Artifact{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return types.Artifact{
		Path:    path,
		Display: d.display(path),
		Kind:    kind,
		Text:    strings.ReplaceAll(string(data), "\r\n", "\n"),
	}, nil
}

// display returns path relative to BaseDir when it lies below it.
func (d *Discoverer) display(path string) string {
	if d.BaseDir == "" {
		return path
	}
	rel, err := filepath.Rel(d.BaseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
