package datastore

import (
	"sort"
	"time"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/paths"
)

// Record is the installed state of one package. Files and Symlinks are
// prefix-relative, slash-separated, in installation order.
type Record struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Prefix      string    `json:"prefix"`
	Files       []string  `json:"files"`
	Symlinks    []string  `json:"symlinks"`
	InstalledAt time.Time `json:"installed_at"`
	Source      string    `json:"source"`
	SHA256      string    `json:"sha256"`
	Recipe      string    `json:"recipe"`
	Verified    bool      `json:"verified"`
}

// Owns reports whether rel is listed as a file or symlink of the record
func (r *Record) Owns(rel string) bool {
	if r == nil {
		return false
	}
	for _, p := range r.Files {
		if p == rel {
			return true
		}
	}
	for _, p := range r.Symlinks {
		if p == rel {
			return true
		}
	}
	return false
}

// Paths returns every recorded path, files first
func (r *Record) Paths() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Files)+len(r.Symlinks))
	out = append(out, r.Files...)
	return append(out, r.Symlinks...)
}

// Stale returns the paths the record lists that next does not
func (r *Record) Stale(next *Record) []string {
	var stale []string
	for _, p := range r.Paths() {
		if !next.Owns(p) {
			stale = append(stale, p)
		}
	}
	return stale
}

// Validate checks the record is usable for ownership decisions
func (r *Record) Validate() error {
	if err := paths.ValidatePackageName(r.Name); err != nil {
		return err
	}
	if r.Version == "" {
		return errors.New(errors.ErrInvalidInput, "record version is required")
	}
	if r.Prefix == "" {
		return errors.New(errors.ErrInvalidInput, "record prefix is required")
	}
	for _, p := range r.Paths() {
		if err := paths.ValidateRelPath(p); err != nil {
			return err
		}
	}
	return nil
}

// normalize makes empty lists serialize as [] rather than null
func (r *Record) normalize() {
	if r.Files == nil {
		r.Files = []string{}
	}
	if r.Symlinks == nil {
		r.Symlinks = []string{}
	}
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
}
