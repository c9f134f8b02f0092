package exclude

import "strings"

// Filter is a case-insensitive deny-list of directory names.
type Filter struct {
	names map[string]struct{}
}

// New builds a Filter. Names are trimmed and lowercased; blanks are ignored.
func New(names []string) *Filter {
	f := &Filter{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			f.names[name] = struct{}{}
		}
	}
	return f
}

// ShouldDescend reports whether a walk may enter a directory with this
// base name. A nil Filter lets everything through.
func (f *Filter) ShouldDescend(dirName string) bool {
	if f == nil {
		return true
	}
	_, excluded := f.names[strings.ToLower(dirName)]
	return !excluded
}

// Len returns the number of excluded names.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}
