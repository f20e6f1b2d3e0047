package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Script is one entry below "scripts:", a named command run on a
// connection's remote path.
type Script struct {
	Description string `mapstructure:"description" yaml:"description,omitempty"`
	Command     string `mapstructure:"command" yaml:"command"`
}

// ErrScriptNotFound is returned by Script for unknown names.
var ErrScriptNotFound = errors.New("script not found")

// ScriptNames returns the configured script names, sorted.
func (f *File) ScriptNames() []string {
	names := make([]string, 0, len(f.Scripts))
	for name := range f.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Script returns the named script. Names are case-insensitive, and a
// script without a command counts as missing.
func (f *File) Script(name string) (Script, error) {
	s, ok := f.Scripts[strings.ToLower(name)]
	if !ok || strings.TrimSpace(s.Command) == "" {
		return Script{}, fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}
	return s, nil
}

// SearchScripts returns the sorted names of scripts whose name, description
// or command contains term, ignoring case.
func (f *File) SearchScripts(term string) []string {
	term = strings.ToLower(term)
	var found []string
	for _, name := range f.ScriptNames() {
		s := f.Scripts[name]
		text := strings.ToLower(name + " " + s.Description + " " + s.Command)
		if strings.Contains(text, term) {
			found = append(found, name)
		}
	}
	return found
}
