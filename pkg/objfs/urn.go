package objfs

import "strconv"

// DefaultURNPrefix is prepended to index identifiers to form object keys.
const DefaultURNPrefix = "urn:oid:"

// urnMapper derives object keys from index identifiers.
type urnMapper struct {
	prefix string
}

func newURNMapper(prefix string) urnMapper {
	if prefix == "" {
		prefix = DefaultURNPrefix
	}
	return urnMapper{prefix: prefix}
}

func (m urnMapper) urn(id uint64) string {
	return m.prefix + strconv.FormatUint(id, 10)
}
