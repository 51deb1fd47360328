package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bsm/gdstash/catalog"
	"github.com/bsm/gdstash/snapshot"
	farm "github.com/dgryski/go-farm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const cachePattern = "catalog-*.snt"

// Fingerprint identifies a set of archive files by path, size and
// modification time. Any change to an input yields a new fingerprint.
func Fingerprint(paths []string) (uint64, error) {
	var buf []byte
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return 0, err
		}
		buf = append(buf, path...)
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, fi.Size(), 10)
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, fi.ModTime().UnixNano(), 10)
		buf = append(buf, 0)
	}
	return farm.Fingerprint64(buf), nil
}

// CachePath returns the snapshot location for the catalog built from src.
func CachePath(dir string, src *Sources) (string, error) {
	paths := make([]string, 0, len(src.Databases)+len(src.Localizations))
	paths = append(paths, src.Databases...)
	paths = append(paths, src.Localizations...)

	fp, err := Fingerprint(paths)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("catalog-%016x.snt", fp)), nil
}

// CacheFiles lists the snapshots stored in dir.
func CacheFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, cachePattern))
}

// ClearCache removes every snapshot in dir and returns the removed paths.
func ClearCache(dir string) ([]string, error) {
	files, err := CacheFiles(dir)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, name := range files {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}

// loadSnapshot returns the cached catalog for src or nil on a miss. An
// unreadable snapshot counts as a miss.
func loadSnapshot(dir string, src *Sources, log logrus.FieldLogger) *catalog.Catalog {
	path, err := CachePath(dir, src)
	if err != nil {
		log.WithError(err).Debug("cannot fingerprint archives")
		return nil
	}

	r, closer, err := snapshot.Open(path)
	if os.IsNotExist(err) {
		log.WithField("path", path).Debug("catalog cache miss")
		return nil
	} else if err != nil {
		log.WithField("path", path).WithError(err).Warn("ignoring unreadable catalog cache")
		return nil
	}
	defer closer.Close()

	cat, err := r.Catalog()
	if err != nil {
		log.WithField("path", path).WithError(err).Warn("ignoring unreadable catalog cache")
		return nil
	}
	log.WithFields(logrus.Fields{"path": path, "entries": cat.Len()}).Debug("catalog cache hit")
	return cat
}

func storeSnapshot(dir string, src *Sources, cat *catalog.Catalog, log logrus.FieldLogger) {
	path, err := CachePath(dir, src)
	if err == nil {
		err = writeSnapshot(path, cat)
	}
	if err != nil {
		log.WithError(err).Warn("cannot store catalog cache")
		return
	}
	log.WithField("path", path).Debug("catalog cache stored")
}

// writeSnapshot writes to a temporary file first so readers never see a
// partial table.
func writeSnapshot(path string, cat *catalog.Catalog) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".catalog-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if err := snapshot.Write(f, cat, nil); err != nil {
		return errors.Wrap(err, "snapshot")
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
