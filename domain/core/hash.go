package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint is a hex sha256 over a canonical rendering of some input
type Fingerprint string

// NewFingerprint hashes raw bytes
func NewFingerprint(data []byte) Fingerprint {
	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

func (f Fingerprint) String() string { return string(f) }

// FingerprintRecords hashes a list of string maps independently of map iteration order.
// Row order is significant.
func FingerprintRecords(name string, columns []string, rows []map[string]string) Fingerprint {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('\n')

	cols := append([]string(nil), columns...)
	sort.Strings(cols)
	b.WriteString(strings.Join(cols, "\x1f"))
	b.WriteByte('\n')

	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(row[k])
			b.WriteByte('\x1f')
		}
		b.WriteByte('\n')
	}
	return NewFingerprint([]byte(b.String()))
}

// Combine folds several fingerprints into one, order-sensitive
func Combine(parts ...Fingerprint) Fingerprint {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(string(p))
		b.WriteByte('|')
	}
	return NewFingerprint([]byte(b.String()))
}
