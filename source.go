package syntax

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/cptaffe/acme-syntax/watcher"
	"go.uber.org/multierr"
)

// RawEntry is one unparsed style file.
type RawEntry struct {
	// Name is the style name, the file name without its extension.
	Name string
	// Origin describes where Data came from, for logging.
	Origin string
	Data   []byte
}

// Source yields style files.  LoadAll returns every readable entry even when
// some files fail; the error then describes the failures.
type Source interface {
	LoadAll() ([]RawEntry, error)
}

// FSSource reads *.yaml and *.yml files from the Dir directory of FS.  It
// serves the bundled styles.
type FSSource struct {
	FS  fs.FS
	Dir string
}

func (s FSSource) LoadAll() ([]RawEntry, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	return loadFS(s.FS, dir, "")
}

// DirSource reads *.yaml and *.yml files from a directory on disk.  A
// missing directory holds no styles.
type DirSource struct {
	Dir string
}

func (s DirSource) LoadAll() ([]RawEntry, error) {
	if s.Dir == "" {
		return nil, nil
	}
	entries, err := loadFS(os.DirFS(s.Dir), ".", s.Dir)
	if errors.Is(err, fs.ErrNotExist) && len(entries) == 0 {
		return nil, nil
	}
	return entries, err
}

func loadFS(fsys fs.FS, dir, prefix string) ([]RawEntry, error) {
	des, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read style dir %s: %w", path.Join(prefix, dir), err)
	}
	sort.Slice(des, func(i, j int) bool { return des[i].Name() < des[j].Name() })

	var out []RawEntry
	var errs error
	for _, de := range des {
		if de.IsDir() || !watcher.IsStyleFile(de.Name()) {
			continue
		}
		p := path.Join(dir, de.Name())
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read style %s: %w", path.Join(prefix, p), err))
			continue
		}
		out = append(out, RawEntry{
			Name:   strings.TrimSuffix(de.Name(), path.Ext(de.Name())),
			Origin: path.Join(prefix, p),
			Data:   data,
		})
	}
	return out, errs
}
