package storage

import (
	"fmt"
	"os"
	"time"
)

// stalenessTolerance absorbs filesystem timestamp precision (FAT32: 2s)
const stalenessTolerance = 1 * time.Second

// DocumentModTime returns the newest modification time of a SQLite file and
// its -wal/-shm companions. In WAL mode the main file may lag the log.
func DocumentModTime(dbPath string) (time.Time, error) {
	info, err := os.Stat(dbPath)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat document store: %w", err)
	}
	newest := info.ModTime()
	for _, companion := range []string{dbPath + "-wal", dbPath + "-shm"} {
		if ci, err := os.Stat(companion); err == nil && ci.ModTime().After(newest) {
			newest = ci.ModTime()
		}
	}
	return newest, nil
}

// LinksStale reports whether the document store changed after the last link
// run, meaning link-documents should be rerun. A store never linked is stale.
// Returns the staleness (zero when fresh or never linked).
func LinksStale(documentPath string, lastLinked *time.Time) (bool, time.Duration, error) {
	modified, err := DocumentModTime(documentPath)
	if err != nil {
		return false, 0, err
	}
	if lastLinked == nil {
		return true, 0, nil
	}
	staleness := modified.Sub(*lastLinked)
	if staleness > stalenessTolerance {
		return true, staleness, nil
	}
	return false, 0, nil
}
