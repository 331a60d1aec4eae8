package store

import "encoding/binary"

// Reserved physical-key prefixes, one family per logical type (see doc.go).
const (
	prefixString = "string:"
	prefixHash   = "hash:"
	prefixList   = "list:data:"
	prefixListM  = "list:meta:"
	prefixSet    = "set:"
	prefixExpire = "expire:"
)

// StringKey returns the physical key for a scalar value.
func StringKey(k string) []byte {
	return []byte(prefixString + k)
}

// HashField returns the physical key for one hash field.
func HashField(k, field string) []byte {
	return []byte(prefixHash + k + ":" + field)
}

// HashPrefix returns the scan prefix covering every field of hash k.
func HashPrefix(k string) []byte {
	return []byte(prefixHash + k + ":")
}

// ListDataKey returns the physical key for one list element at seq.
func ListDataKey(k string, seq int64) []byte {
	b := []byte(prefixList + k + ":")
	return append(b, EncodeSeq(seq)...)
}

// ListDataPrefix returns the scan prefix covering every element of list k.
func ListDataPrefix(k string) []byte {
	return []byte(prefixList + k + ":")
}

// ListHeadKey and ListTailKey are the physical keys bracketing the live range.
func ListHeadKey(k string) []byte { return []byte(prefixListM + k + ":head") }
func ListTailKey(k string) []byte { return []byte(prefixListM + k + ":tail") }

// SetMember returns the physical key for one set member (presence = membership).
func SetMember(k, member string) []byte {
	return []byte(prefixSet + k + ":" + member)
}

// SetPrefix returns the scan prefix covering every member of set k.
func SetPrefix(k string) []byte {
	return []byte(prefixSet + k + ":")
}

// ExpireKey returns the physical key holding K's absolute expiry, if any.
func ExpireKey(k string) []byte {
	return []byte(prefixExpire + k)
}

// ExpireScanPrefix covers every expire: entry, for the active sweeper.
func ExpireScanPrefix() []byte {
	return []byte(prefixExpire)
}

// EncodeSeq maps a signed 64-bit sequence number to an 8-byte big-endian
// encoding whose lexicographic byte order matches numeric order, by
// flipping the sign bit before encoding. Forward iteration over
// list:data:<K>: physical keys therefore visits elements head-to-tail
// even as seq crosses zero.
func EncodeSeq(seq int64) []byte {
	u := uint64(seq) ^ (1 << 63)
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, u)
	return b
}

// DecodeSeq is the inverse of EncodeSeq.
func DecodeSeq(b []byte) int64 {
	u := binary.BigEndian.Uint64(b)
	return int64(u ^ (1 << 63))
}

// EncodeBound encodes a head/tail meta value: a plain big-endian i64,
// no sign-bit flip, since meta entries are looked up by exact key, never
// range-scanned.
func EncodeBound(seq int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(seq))
	return b
}

// DecodeBound is the inverse of EncodeBound.
func DecodeBound(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

// EncodeExpiry and DecodeExpiry handle the expire: value, an absolute
// unix-millisecond timestamp stored unsigned.
func EncodeExpiry(unixMillis uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, unixMillis)
	return b
}

// DecodeExpiry is the inverse of EncodeExpiry.
func DecodeExpiry(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
