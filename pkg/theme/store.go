package theme

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/posterforge/posterforge/pkg/errors"
)

// Store loads theme profiles from a directory of JSON files, one file
// per theme, addressed by identifier (filename without extension).
type Store struct {
	dir    string
	logger *log.Logger
}

// NewStore creates a store reading from dir. A missing directory is not
// an error; List simply returns no themes until it appears.
func NewStore(dir string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// validName matches theme identifiers: filename-safe, no separators,
// so a request can never address a file outside the theme directory.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Load reads the named profile, filling unset fields from the built-in
// default. Loading the well-known default name succeeds even when no
// stored profile exists. A missing or unparseable profile yields a
// ThemeNotFoundError carrying the requested name and the available list.
func (s *Store) Load(name string) (Theme, error) {
	if !validName(name) {
		s.logger.Warn("invalid theme name", "theme", name)
		return Theme{}, errors.ThemeNotFound(name, s.List())
	}
	path := filepath.Join(s.dir, name+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if name == DefaultName {
			s.logger.Debug("using built-in default theme")
			return Default(), nil
		}
		s.logger.Warn("theme not found", "theme", name, "path", path)
		return Theme{}, errors.ThemeNotFound(name, s.List())
	}

	var t Theme
	if err := json.Unmarshal(data, &t); err != nil {
		// Unparseable profiles are treated the same as missing ones.
		s.logger.Error("invalid theme file", "theme", name, "err", err)
		return Theme{}, errors.ThemeNotFound(name, s.List())
	}

	if missing := missingRequired(t); len(missing) > 0 {
		s.logger.Warn("theme missing required keys, using defaults",
			"theme", name, "missing", strings.Join(missing, ","))
	}

	return applyDefaults(t), nil
}

// List enumerates the identifiers of all stored profiles, sorted for
// deterministic ordering. An absent or empty directory yields an empty
// slice, never an error.
func (s *Store) List() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Debug("themes directory unavailable", "dir", s.dir, "err", err)
		return []string{}
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	if names == nil {
		names = []string{}
	}
	return names
}

// Details is a theme together with its storage identifier, as exposed
// by the themes API.
type Details struct {
	ID string `json:"id"`
	Theme
}

// All loads every stored profile with details. Profiles that fail to
// load are skipped with a warning rather than failing the whole listing.
func (s *Store) All() []Details {
	var themes []Details
	for _, name := range s.List() {
		t, err := s.Load(name)
		if err != nil {
			s.logger.Warn("skipping theme", "theme", name, "err", err)
			continue
		}
		themes = append(themes, Details{ID: name, Theme: t})
	}
	return themes
}

// Exists reports whether name resolves to a loadable profile.
func (s *Store) Exists(name string) bool {
	_, err := s.Load(name)
	return err == nil
}
