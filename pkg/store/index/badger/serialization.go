package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/objfs/pkg/store/index"
)

// Records are stored as JSON: human-readable when inspecting the database and
// tolerant of added fields. Identifiers use fixed-width binary encoding so
// that they sort correctly inside keys.

func encodeRecord(rec *index.Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %d: %w", rec.ID, err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*index.Record, error) {
	var rec index.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &rec, nil
}
