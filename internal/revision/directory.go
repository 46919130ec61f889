package revision

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Directory is the on-disk migration history: files named NNNN_name.sql,
// applied in version order.
type Directory struct {
	path string
}

// NewDirectory returns a Directory rooted at path without touching the
// filesystem. A missing directory reads as an empty history; use
// OpenDirectory before writing revisions.
func NewDirectory(path string) *Directory {
	return &Directory{path: path}
}

// OpenDirectory returns a Directory rooted at path, creating it if needed.
func OpenDirectory(path string) (*Directory, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create revision directory %s: %w", path, err)
	}
	return &Directory{path: path}, nil
}

// Path returns the directory root.
func (d *Directory) Path() string { return d.path }

// Revisions lists the defined revisions in ascending version order.
// Duplicate versions are an error: the history would be ambiguous.
func (d *Directory) Revisions() ([]Revision, error) {
	files, err := filepath.Glob(filepath.Join(d.path, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	sort.Strings(files)

	seen := map[int64]string{}
	var out []Revision
	for _, file := range files {
		version, name, err := parseVersion(file)
		if err != nil {
			return nil, err
		}
		if other, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate revision %d: %s and %s", version, other, filepath.Base(file))
		}
		seen[version] = filepath.Base(file)
		out = append(out, Revision{Version: version, Name: name, Filename: file})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Defined returns the set of defined revision versions.
func (d *Directory) Defined() (Set, error) {
	revs, err := d.Revisions()
	if err != nil {
		return nil, err
	}
	set := make(Set, len(revs))
	for _, r := range revs {
		set[r.Version] = struct{}{}
	}
	return set, nil
}

// Head returns the latest defined revision. ok is false when the history is
// empty.
func (d *Directory) Head() (Revision, bool, error) {
	revs, err := d.Revisions()
	if err != nil {
		return Revision{}, false, err
	}
	if len(revs) == 0 {
		return Revision{}, false, nil
	}
	return revs[len(revs)-1], true, nil
}

// ReadScript loads the SQL body of a revision.
func (d *Directory) ReadScript(rev Revision) (string, error) {
	body, err := os.ReadFile(rev.Filename)
	if err != nil {
		return "", fmt.Errorf("read revision %d: %w", rev.Version, err)
	}
	return string(body), nil
}

// Write creates the next revision file from the given statements and returns
// the new revision.
func (d *Directory) Write(name string, statements []string) (Revision, error) {
	if len(statements) == 0 {
		return Revision{}, fmt.Errorf("refusing to write empty revision %q", name)
	}
	revs, err := d.Revisions()
	if err != nil {
		return Revision{}, err
	}
	var next int64 = 1
	if len(revs) > 0 {
		next = revs[len(revs)-1].Version + 1
	}

	cleaned := snakeCase(name)
	if cleaned == "" {
		cleaned = "revision"
	}
	filename := filepath.Join(d.path, fmt.Sprintf("%04d_%s.sql", next, cleaned))
	content := "-- Generated revision; review before applying by hand.\n" + strings.Join(statements, "\n") + "\n"
	if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
		return Revision{}, fmt.Errorf("write revision %s: %w", filename, err)
	}
	return Revision{Version: next, Name: cleaned, Filename: filename}, nil
}

func parseVersion(path string) (int64, string, error) {
	base := filepath.Base(path)
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, "", fmt.Errorf("invalid revision filename: %s", base)
	}
	version, err := strconv.ParseInt(strings.TrimSuffix(parts[0], ".sql"), 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid revision version in %s: %w", base, err)
	}
	// Version 0 is the CLI's "use head" sentinel and may never name a file.
	if version < 1 {
		return 0, "", fmt.Errorf("invalid revision version in %s: versions start at 1", base)
	}
	name := strings.TrimSuffix(parts[1], ".sql")
	return version, name, nil
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

func snakeCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWord.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
