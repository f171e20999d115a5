package storage

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "note.txt", "note.txt"},
		{"spaces", "my holiday photo.jpg", "my-holiday-photo.jpg"},
		{"path traversal", "../../etc/passwd", "passwd"},
		{"windows path", `C:\Users\alice\cat.png`, "cat.png"},
		{"unicode", "отчёт.pdf", "pdf"},
		{"only junk", "///???", "file"},
		{"empty", "", "file"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SanitizeFileName(tt.in))
		})
	}
}

func TestSanitizeFileName_Bounded(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 500) + ".txt"
	got := SanitizeFileName(long)
	assert.LessOrEqual(t, len(got), maxFileNameLen)
	assert.True(t, strings.HasSuffix(got, ".txt"))
}

func TestObjectKey_OwnerScoped(t *testing.T) {
	t.Parallel()

	key := ObjectKey("owner-1", "note.txt")
	assert.True(t, strings.HasPrefix(key, "owner-1/"))
	assert.True(t, strings.HasSuffix(key, "_note.txt"))
}

func TestObjectKey_ConcurrentUploadsDistinct(t *testing.T) {
	t.Parallel()

	// Same owner, same filename, fired at the same instant: every derived
	// key must still be distinct.
	const n = 200

	keys := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			keys[i] = ObjectKey("owner-1", "note.txt")
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			t.Fatalf("duplicate object key derived: %s", k)
		}
		seen[k] = struct{}{}
	}
}
