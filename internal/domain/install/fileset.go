package install

import (
	"path"
	"sort"

	"github.com/spf13/afero"
)

// Entry is one discovered file.
type Entry struct {
	// Source is the path of the file on the source filesystem.
	Source string
	// Rel is the slash-separated path of the file relative to the FileSet root.
	Rel string
	// Size is the file size in bytes at discovery time.
	Size int64
}

// Name returns the base name of the entry.
func (e Entry) Name() string {
	return path.Base(e.Rel)
}

// FileSet is the unordered result of matching a pattern under a root.
// It is computed per invocation and never cached.
type FileSet struct {
	// Fs is the filesystem the entries were discovered on.
	Fs afero.Fs
	// Root is the directory the walk started from.
	Root string
	// Pattern is the glob the entries matched.
	Pattern string
	// Entries holds the matched files.
	Entries []Entry
}

// Len returns the number of entries.
func (s *FileSet) Len() int {
	if s == nil {
		return 0
	}

	return len(s.Entries)
}

// IsEmpty reports whether nothing matched.
func (s *FileSet) IsEmpty() bool {
	return s.Len() == 0
}

// Sorted returns a copy of the entries ordered by relative path.
func (s *FileSet) Sorted() []Entry {
	if s.IsEmpty() {
		return nil
	}

	entries := append([]Entry(nil), s.Entries...)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Rel < entries[j].Rel
	})

	return entries
}

// TotalSize sums the sizes of all entries.
func (s *FileSet) TotalSize() int64 {
	var total int64

	if s == nil {
		return total
	}

	for _, e := range s.Entries {
		total += e.Size
	}

	return total
}
