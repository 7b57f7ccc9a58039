package container

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo describes one saved container file (for listing).
type FileInfo struct {
	Filename  string
	Name      string // label parsed from filename (empty if unnamed)
	Timestamp time.Time
}

const fileExt = ".awgc"

// Store is a directory of timestamped container files.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) a container library directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// DefaultDir returns the default container library path.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "awgctl", "containers"), nil
}

// List returns saved containers, newest first.
func (s *Store) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []FileInfo{}, nil
		}
		return nil, err
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, fileExt) {
			continue
		}

		// Filename: 2006-01-02_15-04-05.awgc or 2006-01-02_15-04-05_label.awgc
		base := strings.TrimSuffix(name, fileExt)
		if len(base) < 19 {
			continue
		}
		ts, err := time.Parse("2006-01-02_15-04-05", base[:19])
		if err != nil {
			continue
		}
		label := ""
		if len(base) > 20 && base[19] == '_' {
			label = base[20:]
		}
		files = append(files, FileInfo{Filename: name, Name: label, Timestamp: ts})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Timestamp.After(files[j].Timestamp)
	})
	return files, nil
}

// Save encodes the container and writes a timestamped file. The label
// is optional and lands in the filename after the timestamp.
func (s *Store) Save(c *Container, label string) (string, error) {
	data, err := c.Encode()
	if err != nil {
		return "", err
	}

	filename := time.Now().Format("2006-01-02_15-04-05")
	if label != "" {
		filename += "_" + sanitizeLabel(label)
	}
	filename += fileExt

	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0644); err != nil {
		return "", err
	}
	return filename, nil
}

// Load decodes a specific file, or the most recent one if filename is
// empty.
func (s *Store) Load(filename string) (*Container, error) {
	if filename == "" {
		files, err := s.List()
		if err != nil || len(files) == 0 {
			return nil, fmt.Errorf("no containers in %s", s.dir)
		}
		filename = files[0].Filename
	}

	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Delete removes a saved container file.
func (s *Store) Delete(filename string) error {
	return os.Remove(filepath.Join(s.dir, filename))
}

// Rename changes the label part of a filename, keeping the timestamp.
func (s *Store) Rename(oldFilename, newLabel string) error {
	base := strings.TrimSuffix(oldFilename, fileExt)
	if len(base) < 19 {
		return fmt.Errorf("invalid container filename %q", oldFilename)
	}

	newFilename := base[:19]
	if newLabel != "" {
		newFilename += "_" + sanitizeLabel(newLabel)
	}
	newFilename += fileExt

	return os.Rename(filepath.Join(s.dir, oldFilename), filepath.Join(s.dir, newFilename))
}

// sanitizeLabel removes characters that are problematic in filenames.
func sanitizeLabel(label string) string {
	label = strings.ReplaceAll(label, " ", "-")
	for _, c := range []string{"/", "\\", ":"} {
		label = strings.ReplaceAll(label, c, "-")
	}
	for _, c := range []string{"*", "?", "\"", "<", ">", "|"} {
		label = strings.ReplaceAll(label, c, "")
	}
	return label
}
