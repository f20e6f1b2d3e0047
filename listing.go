package sshclient

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Listing is an immutable, ordered view over remote paths. Every filter or
// transform returns a new Listing sharing the same RemoteFilesystem; the
// receiver is never modified, so a Listing can be reused across chains.
//
// FilesOnly, DirectoriesOnly and WithExtension classify each entry with a
// live round trip. Results are not cached.
type Listing struct {
	fs    RemoteFilesystem
	paths []string
}

// NewListing returns a Listing over a copy of paths.
func NewListing(fs RemoteFilesystem, paths []string) Listing {
	return Listing{fs: fs, paths: append([]string(nil), paths...)}
}

// ListRemote lists dir on fs and wraps the result in a Listing.
func ListRemote(ctx context.Context, fs RemoteFilesystem, dir string, recursive bool) (Listing, error) {
	paths, err := fs.List(ctx, dir, recursive)
	if err != nil {
		return Listing{}, err
	}
	return Listing{fs: fs, paths: paths}, nil
}

func (l Listing) with(paths []string) Listing {
	return Listing{fs: l.fs, paths: paths}
}

func (l Listing) classify(ctx context.Context, keep func(string) bool) (Listing, error) {
	out := make([]string, 0, len(l.paths))
	for _, p := range l.paths {
		if err := ctx.Err(); err != nil {
			return Listing{}, fmt.Errorf("listing classification cancelled: %w", err)
		}
		if keep(p) {
			out = append(out, p)
		}
	}
	return l.with(out), nil
}

// FilesOnly keeps entries that are regular files.
func (l Listing) FilesOnly(ctx context.Context) (Listing, error) {
	return l.classify(ctx, func(p string) bool { return l.fs.IsFile(ctx, p) })
}

// DirectoriesOnly keeps entries that are directories.
func (l Listing) DirectoriesOnly(ctx context.Context) (Listing, error) {
	return l.classify(ctx, func(p string) bool { return l.fs.IsDir(ctx, p) })
}

// WithExtension keeps files whose final dotted suffix equals ext.
// Matching is case-sensitive; a leading dot on ext is ignored.
func (l Listing) WithExtension(ctx context.Context, ext string) (Listing, error) {
	ext = strings.TrimPrefix(ext, ".")
	return l.classify(ctx, func(p string) bool {
		if extensionOf(p) != ext {
			return false
		}
		return l.fs.IsFile(ctx, p)
	})
}

// extensionOf returns the text after the last dot of the base name, or ""
// if there is none.
func extensionOf(p string) string {
	base := path.Base(p)
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return ""
	}
	return base[i+1:]
}

// WithoutHidden drops entries whose last path segment starts with a dot.
func (l Listing) WithoutHidden() Listing {
	return l.Filter(func(p string) bool { return !isHidden(p) })
}

func isHidden(p string) bool {
	return strings.HasPrefix(path.Base(strings.TrimRight(p, "/")), ".")
}

// Filter keeps entries for which keep returns true.
func (l Listing) Filter(keep func(string) bool) Listing {
	out := make([]string, 0, len(l.paths))
	for _, p := range l.paths {
		if keep(p) {
			out = append(out, p)
		}
	}
	return l.with(out)
}

// Map replaces every entry with fn(entry), preserving order.
func (l Listing) Map(fn func(string) string) Listing {
	out := make([]string, len(l.paths))
	for i, p := range l.paths {
		out[i] = fn(p)
	}
	return l.with(out)
}

// MapListing applies fn to every entry of l and returns the results.
func MapListing[T any](l Listing, fn func(string) T) []T {
	out := make([]T, len(l.paths))
	for i, p := range l.paths {
		out[i] = fn(p)
	}
	return out
}

// Each calls fn for every entry in order.
func (l Listing) Each(fn func(i int, p string)) {
	for i, p := range l.paths {
		fn(i, p)
	}
}

// First returns the first entry, or false when the listing is empty.
func (l Listing) First() (string, bool) {
	if len(l.paths) == 0 {
		return "", false
	}
	return l.paths[0], true
}

// Last returns the last entry, or false when the listing is empty.
func (l Listing) Last() (string, bool) {
	if len(l.paths) == 0 {
		return "", false
	}
	return l.paths[len(l.paths)-1], true
}

// IsEmpty reports whether the listing has no entries.
func (l Listing) IsEmpty() bool { return len(l.paths) == 0 }

// Count returns the number of entries.
func (l Listing) Count() int { return len(l.paths) }

// All returns a copy of the entries.
func (l Listing) All() []string {
	return append([]string(nil), l.paths...)
}

// String implements fmt.Stringer with the entry count.
func (l Listing) String() string {
	return fmt.Sprintf("Listing(%d items)", len(l.paths))
}

// MarshalJSON encodes the listing as an array of paths.
func (l Listing) MarshalJSON() ([]byte, error) {
	if l.paths == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.paths)
}
