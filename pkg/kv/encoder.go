package kv

import (
	"github.com/DataDog/zstd"
	"github.com/kelindar/binary"
)

func encodeRecord(record snapRecord) ([]byte, error) {
	bb, err := binary.Marshal(record)
	if err != nil {
		return nil, err
	}

	return compress(bb)
}

func decodeRecord(bbCompressed []byte) (snapRecord, error) {
	bb, err := decompress(bbCompressed)
	if err != nil {
		return snapRecord{}, err
	}

	var record snapRecord
	if err := binary.Unmarshal(bb, &record); err != nil {
		return snapRecord{}, err
	}
	return record, nil
}

func compress(bb []byte) ([]byte, error) {
	var bbCompressed []byte
	bbCompressed, err := zstd.Compress(bbCompressed, bb)
	if err != nil {
		return []byte{}, err
	}
	return bbCompressed, nil
}

func decompress(bbCompressed []byte) ([]byte, error) {
	var bb []byte
	bb, err := zstd.Decompress(bb, bbCompressed)
	if err != nil {
		return []byte{}, err
	}

	return bb, nil
}
