package kv

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"

	"github.com/ridenav/rideengine/pkg/datastructure"

	"github.com/dgraph-io/badger/v4"
)

// snapFormatVersion tags every stored record. A record written by another
// version is treated as a miss, never interpreted.
const snapFormatVersion int32 = 1

type snapRecord struct {
	FormatVersion int32
	Profile       string
	SnappedPoints []datastructure.Coordinate
	Instructions  []datastructure.Instruction
}

// SnapResultCache persists map-matching results keyed by the content hash of
// the source route file, so re-loading the same file never repeats the remote
// calls. Entries are small and content addressed; there is no eviction.
type SnapResultCache struct {
	db *badger.DB
}

func NewSnapResultCache(db *badger.DB) *SnapResultCache {
	return &SnapResultCache{db}
}

// RouteFileKey is the lowercase hex sha256 digest of the raw file bytes.
func RouteFileKey(fileBytes []byte) string {
	digest := sha256.Sum256(fileBytes)
	return hex.EncodeToString(digest[:])
}

func (c *SnapResultCache) Put(key, profile string, matched datastructure.MatchedRoute) error {
	val, err := encodeRecord(snapRecord{
		FormatVersion: snapFormatVersion,
		Profile:       profile,
		SnappedPoints: matched.SnappedPoints,
		Instructions:  matched.Instructions,
	})
	if err != nil {
		return err
	}

	// badger commits the entry atomically, a crash mid-write never leaves a
	// torn record visible to readers
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

// Get returns the cached result for key. Absent keys, version mismatches and
// undecodable entries are all reported as a plain miss.
func (c *SnapResultCache) Get(key string) (datastructure.MatchedRoute, bool, error) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return datastructure.MatchedRoute{}, false, nil
	}
	if err != nil {
		return datastructure.MatchedRoute{}, false, err
	}

	record, err := decodeRecord(val)
	if err != nil {
		log.Printf("unreadable snap cache entry %s treated as miss: %v", key, err)
		return datastructure.MatchedRoute{}, false, nil
	}
	if record.FormatVersion != snapFormatVersion {
		return datastructure.MatchedRoute{}, false, nil
	}

	return datastructure.MatchedRoute{
		SnappedPoints: record.SnappedPoints,
		Instructions:  record.Instructions,
	}, true, nil
}

func (c *SnapResultCache) Close() {
	c.db.Close()
}
