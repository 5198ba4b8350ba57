package voucherno

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

var reNum = regexp.MustCompile(`^[A-Z]{2}-\d{4}-[0-9A-Z]{5}$`)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// IsValid returns true if s matches ^[A-Z]{2}-\d{4}-[0-9A-Z]{5}$
func IsValid(s string) bool {
	return reNum.MatchString(s)
}

// Generate builds a voucher number <code>-<year>-<5 base36 chars>, e.g.
// HV-2026-7K3QX. Uniqueness is enforced by the store; on a collision the
// caller regenerates rather than retrying the same number.
func Generate(code string, year int) string {
	var buf [5]byte
	_, _ = rand.Read(buf[:])
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return fmt.Sprintf("%s-%04d-%s", code, year, string(buf[:]))
}
