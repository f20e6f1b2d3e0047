package sshclient

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileFilter decides which files of a source tree take part in an upload.
//
// A file is kept when its base name matches the name pattern (if any), at
// least one include pattern (if any), and no exclude pattern. Exclude
// patterns are also tried against the slash-separated relative path so
// that patterns such as "build/**" can drop whole subtrees.
type FileFilter struct {
	name     *regexp.Regexp
	includes []func(string) bool
	excludes []func(string) bool
}

// NewFileFilter compiles the given patterns.
//
// namePattern is either a regular expression wrapped in slashes ("/^a.*$/")
// or a shell glob translated by GlobToRegexp. The glob is searched for
// anywhere in the base name, so "report" also keeps "report-2024.csv".
// Include and exclude patterns are doublestar globs matched against the
// whole name, or slash-wrapped regular expressions.
func NewFileFilter(namePattern string, includes, excludes []string) (*FileFilter, error) {
	f := &FileFilter{}

	if namePattern != "" {
		re, err := compileNamePattern(namePattern)
		if err != nil {
			return nil, err
		}
		f.name = re
	}

	for _, p := range includes {
		m, err := compileMatcher(p)
		if err != nil {
			return nil, err
		}
		f.includes = append(f.includes, m)
	}
	for _, p := range excludes {
		m, err := compileMatcher(p)
		if err != nil {
			return nil, err
		}
		f.excludes = append(f.excludes, m)
	}

	return f, nil
}

// Match reports whether the file at relPath (relative to the scanned root,
// OS separators allowed) is selected.
func (f *FileFilter) Match(relPath string) bool {
	rel := filepath.ToSlash(relPath)
	base := path.Base(rel)

	for _, ex := range f.excludes {
		if ex(base) || ex(rel) {
			return false
		}
	}

	if f.name != nil && !f.name.MatchString(base) {
		return false
	}

	if len(f.includes) == 0 {
		return true
	}
	for _, in := range f.includes {
		if in(base) {
			return true
		}
	}
	return false
}

func isRegexPattern(p string) bool {
	return len(p) >= 2 && strings.HasPrefix(p, "/") && strings.HasSuffix(p, "/")
}

func compileNamePattern(p string) (*regexp.Regexp, error) {
	expr := GlobToRegexp(p)
	if isRegexPattern(p) {
		expr = p[1 : len(p)-1]
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &PatternError{Pattern: p, Err: err}
	}
	return re, nil
}

func compileMatcher(p string) (func(string) bool, error) {
	if isRegexPattern(p) {
		re, err := regexp.Compile(p[1 : len(p)-1])
		if err != nil {
			return nil, &PatternError{Pattern: p, Err: err}
		}
		return re.MatchString, nil
	}
	if !doublestar.ValidatePattern(p) {
		return nil, &PatternError{Pattern: p, Err: doublestar.ErrBadPattern}
	}
	return func(name string) bool {
		ok, _ := doublestar.Match(p, name)
		return ok
	}, nil
}

// GlobToRegexp translates a shell glob into an unanchored regular
// expression. "*" matches any run of characters, "?" any single character,
// and bracket expressions keep their meaning ("[!x]" negates). Everything
// else, including ".", is literal. Anchor the result with ^ and $ for
// whole-name matching.
func GlobToRegexp(glob string) string {
	var b strings.Builder
	b.WriteString("(?s:")

	n := len(glob)
	for i := 0; i < n; {
		c := glob[i]
		i++

		switch c {
		case '*':
			for i < n && glob[i] == '*' {
				i++
			}
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '[':
			j := i
			if j < n && glob[j] == '!' {
				j++
			}
			if j < n && glob[j] == ']' {
				j++
			}
			for j < n && glob[j] != ']' {
				j++
			}
			if j >= n {
				b.WriteString(`\[`)
				continue
			}
			class := glob[i:j]
			i = j + 1
			b.WriteByte('[')
			if strings.HasPrefix(class, "!") {
				b.WriteByte('^')
				class = class[1:]
			} else if strings.HasPrefix(class, "^") {
				b.WriteByte('\\')
			}
			b.WriteString(strings.NewReplacer(`\`, `\\`, `[`, `\[`).Replace(class))
			b.WriteByte(']')
		default:
			b.WriteString(regexp.QuoteMeta(glob[i-1 : i]))
		}
	}

	b.WriteString(")")
	return b.String()
}
