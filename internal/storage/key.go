package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"
)

const maxFileNameLen = 128

// ObjectKey derives a collision-resistant object key scoped to one owner:
// ownerID/<unix-nanos>_<random>_<sanitized-name>. The nanosecond clock plus
// the random component keeps keys distinct even for two uploads of the same
// filename by the same owner in the same instant.
func ObjectKey(ownerID, fileName string) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s/%d_%s_%s", ownerID, time.Now().UnixNano(), hex.EncodeToString(buf), SanitizeFileName(fileName))
}

// SanitizeFileName reduces a client-supplied filename to a safe alphabet:
// letters, digits, dot, underscore, and hyphen. Path components are
// stripped, everything else collapses to a hyphen, and the result is
// length-bounded and never empty.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "file"
	}
	if len(out) > maxFileNameLen {
		out = out[len(out)-maxFileNameLen:]
	}
	return out
}
