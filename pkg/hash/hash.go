package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ipIterations is the SHA256 work factor applied to client IPs.
const ipIterations = 5000

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// Short returns the first n characters of SHA256Hex(input).
func Short(input string, n int) string {
	full := SHA256Hex(input)
	if n > len(full) || n <= 0 {
		return full
	}
	return full[:n]
}

// Key builds a compact, fixed-length cache key suffix from free-form parts.
// Parts are joined with a separator that cannot appear in normalised input.
func Key(parts ...string) string {
	return Short(strings.Join(parts, "\x1f"), 24)
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// HashIP hashes an IP address with a salt so analytics never store raw addresses.
func HashIP(ip, salt string) string {
	return IteratedSHA256(salt+ip, ipIterations)
}
