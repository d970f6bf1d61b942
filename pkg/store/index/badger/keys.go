package badger

import "encoding/binary"

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so prefixed keys organize the index into
// logical namespaces:
//
// Data Type          Prefix   Key Format                        Value
// ===================================================================================
// Records            "f:"     f:<id u64be>                      Record (JSON)
// Path lookup        "p:"     p:<normalized path>               id (u64be)
// Children           "c:"     c:<parent id u64be><child name>   child id (u64be)
// Id sequence        "seq:"   seq:id                            badger.Sequence state
//
// Records are addressed by identifier so that a rename only rewrites the
// "p:" entries and the moved record's own "c:" entry; children of a moved
// directory keep their "c:" keys because those embed the parent identifier.
//
// Listing a directory is a prefix scan over "c:<parent id>", which yields
// children already ordered by name (keys sort lexicographically).

const (
	prefixRecord   = "f:"
	prefixPath     = "p:"
	prefixChild    = "c:"
	sequenceIDKey  = "seq:id"
	idSize         = 8
	sequenceLeases = 128
)

func encodeID(id uint64) []byte {
	buf := make([]byte, idSize)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

func decodeID(b []byte) uint64 {
	if len(b) != idSize {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func keyRecord(id uint64) []byte {
	return append([]byte(prefixRecord), encodeID(id)...)
}

func keyPath(path string) []byte {
	return []byte(prefixPath + path)
}

func keyChildPrefix(parentID uint64) []byte {
	return append([]byte(prefixChild), encodeID(parentID)...)
}

func keyChild(parentID uint64, name string) []byte {
	return append(keyChildPrefix(parentID), name...)
}
