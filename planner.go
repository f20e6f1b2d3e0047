package sshclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FileEntry is a local regular file selected for transfer.
type FileEntry struct {
	// Path is the absolute local path.
	Path string `json:"path"`

	// RelPath is the path relative to the scanned root, used to mirror the
	// tree at the destination.
	RelPath string `json:"rel_path"`

	// Size is the file size in bytes at planning time.
	Size int64 `json:"size"`
}

// TransferPlan is the ordered, fully materialized list of files to upload.
type TransferPlan struct {
	Root    string      `json:"root"`
	Entries []FileEntry `json:"entries"`
}

// Len returns the number of planned entries.
func (p *TransferPlan) Len() int { return len(p.Entries) }

// TotalBytes returns the summed size of all planned entries.
func (p *TransferPlan) TotalBytes() int64 {
	var total int64
	for _, e := range p.Entries {
		total += e.Size
	}
	return total
}

// PlanOptions controls which files a Planner selects.
type PlanOptions struct {
	// Recursive walks the whole subtree. Otherwise only the immediate
	// children of the root are considered.
	Recursive bool

	// NamePattern filters on base name, see NewFileFilter.
	NamePattern string

	// Includes keeps files matching at least one pattern.
	Includes []string

	// Excludes drops files matching any pattern.
	Excludes []string

	// SkipHidden drops dot-files and does not descend into dot-directories.
	SkipHidden bool
}

// Planner builds upload plans from a local directory tree.
type Planner struct {
	Fs     afero.Fs
	Logger Logger
}

// NewPlanner returns a Planner over fs, or over the OS filesystem when fs
// is nil.
func NewPlanner(fs afero.Fs, logger Logger) *Planner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Planner{Fs: fs, Logger: logger}
}

// Plan walks root and returns the files selected by opts, sorted by
// relative path. A missing or unreadable root yields *SourceNotFoundError;
// a valid root with no matching files yields an empty plan.
func (p *Planner) Plan(ctx context.Context, root string, opts PlanOptions) (*TransferPlan, error) {
	log := loggerOrNop(p.Logger)

	filter, err := NewFileFilter(opts.NamePattern, opts.Includes, opts.Excludes)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &SourceNotFoundError{Path: root, Err: err}
	}

	info, err := p.Fs.Stat(absRoot)
	if err != nil {
		return nil, &SourceNotFoundError{Path: root, Err: err}
	}

	plan := &TransferPlan{Root: absRoot}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, &SourceNotFoundError{Path: root, Err: errors.New("not a regular file or directory")}
		}
		name := filepath.Base(absRoot)
		if filter.Match(name) {
			plan.Root = filepath.Dir(absRoot)
			plan.Entries = append(plan.Entries, FileEntry{Path: absRoot, RelPath: name, Size: info.Size()})
		}
		return plan, nil
	}

	// Walk lstats its root, so a symlinked root would never be entered.
	walkRoot := absRoot
	if _, ok := p.Fs.(*afero.OsFs); ok {
		if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
			walkRoot = resolved
		}
	}

	err = afero.Walk(p.Fs, walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == walkRoot {
				return &SourceNotFoundError{Path: root, Err: err}
			}
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("planning cancelled: %w", err)
		}

		hidden := strings.HasPrefix(info.Name(), ".")

		if info.IsDir() {
			if path == walkRoot {
				return nil
			}
			if !opts.Recursive || (opts.SkipHidden && hidden) {
				return filepath.SkipDir
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := p.Fs.Stat(path)
			if err != nil {
				log.Warnf("skipping broken symlink %s: %v", path, err)
				return nil
			}
			info = target
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(walkRoot, path)
		if err != nil {
			return err
		}

		if opts.SkipHidden && hidden {
			log.Debugf("skip hidden: %s", rel)
			return nil
		}
		if !filter.Match(rel) {
			log.Debugf("skip unmatched: %s", rel)
			return nil
		}

		plan.Entries = append(plan.Entries, FileEntry{Path: filepath.Join(absRoot, rel), RelPath: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(plan.Entries, func(i, j int) bool {
		return plan.Entries[i].RelPath < plan.Entries[j].RelPath
	})

	log.Debugf("planned %d files under %s", len(plan.Entries), absRoot)
	return plan, nil
}
