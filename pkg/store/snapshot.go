package store

import (
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotCache persists parsed series as msgpack files so a warm
// restart skips re-parsing the CSVs. A snapshot is only trusted when
// it is newer than its source file.
type snapshotCache struct {
	dir string
}

func newSnapshotCache(dir string) *snapshotCache {
	_ = os.MkdirAll(dir, 0o755)
	return &snapshotCache{dir: dir}
}

func (c *snapshotCache) path(key string) string {
	return filepath.Join(c.dir, key+".snap")
}

func (c *snapshotCache) load(key string, csvModTime time.Time) (*Series, bool) {
	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil || info.ModTime().Before(csvModTime) {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var series Series
	if err := msgpack.Unmarshal(data, &series); err != nil {
		return nil, false
	}
	if series.Key != key {
		return nil, false
	}
	// msgpack decodes timestamps in the host zone; dates must stay UTC
	// or formatting shifts across the date line.
	for i := range series.Records {
		series.Records[i].Date = series.Records[i].Date.UTC()
	}
	return &series, true
}

func (c *snapshotCache) save(series *Series) error {
	data, err := msgpack.Marshal(series)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(series.Key), data, 0o644)
}
