package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Usage is the on-disk footprint of the content database and the search indexes.
type Usage struct {
	DatabaseBytes int64 `json:"database_bytes"`
	IndexBytes    int64 `json:"index_bytes"`
}

// Total returns the combined size.
func (u Usage) Total() int64 {
	return u.DatabaseBytes + u.IndexBytes
}

// MeasureUsage sizes the database file (with its WAL and shared-memory siblings)
// and the index directory. Missing paths count as zero.
func MeasureUsage(dbPath, indexRoot string) (Usage, error) {
	var u Usage
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		n, err := pathSize(p)
		if err != nil {
			return Usage{}, err
		}
		u.DatabaseBytes += n
	}
	n, err := pathSize(indexRoot)
	if err != nil {
		return Usage{}, err
	}
	u.IndexBytes = n
	return u, nil
}

// pathSize returns the size of a file, or the recursive size of a directory.
func pathSize(p string) (int64, error) {
	if p == "" {
		return 0, nil
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
