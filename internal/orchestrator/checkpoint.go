package orchestrator

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var checkpointBucket = []byte("ingestion_checkpoints")

// checkpoint is the resumable state for one Source's streaming loop:
// an xxhash of each file's content at the time it was last persisted,
// and the running totals accumulated so far, so a restarted job can
// skip files whose content hasn't changed instead of re-parsing the
// whole repository.
type checkpoint struct {
	SourceID      string            `json:"source_id"`
	FileHashes    map[string]uint64 `json:"file_hashes"`
	Nodes         int               `json:"nodes"`
	Relationships int               `json:"relationships"`
}

// CheckpointStore persists checkpoint to bbolt, grounded on the
// teacher's bbolt-backed IdentityResolver cache
// (internal/mcp/identity_resolver.go: View/Update closures over one
// bucket, JSON-encoded values).
type CheckpointStore struct {
	db *bolt.DB
}

// OpenCheckpointStore opens (creating if absent) a bbolt database at path.
func OpenCheckpointStore(path string) (*CheckpointStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(checkpointBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init checkpoint bucket: %w", err)
	}
	return &CheckpointStore{db: db}, nil
}

func (c *CheckpointStore) Close() error { return c.db.Close() }

func (c *CheckpointStore) load(sourceID string) (*checkpoint, bool) {
	var cp checkpoint
	found := false
	c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(checkpointBucket).Get([]byte(sourceID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &cp); err == nil {
			found = true
		}
		return nil
	})
	return &cp, found
}

func (c *CheckpointStore) save(cp *checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(checkpointBucket).Put([]byte(cp.SourceID), data)
	})
}

func (c *CheckpointStore) clear(sourceID string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(checkpointBucket).Delete([]byte(sourceID))
	})
}
