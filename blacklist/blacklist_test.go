package blacklist

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"path/filepath"

	"github.com/stretchr/testify/assert"
)

// Functions

// TestBlockAndIsBlocked checks the basic block round trip.
func TestBlockAndIsBlocked(t *testing.T) {

	guard := NewFileGuard(filepath.Join(t.TempDir(), "blacklist.log"), (60 * time.Second))

	// Before any block, and even before the file exists,
	// no IP counts as blocked.
	blocked, err := guard.IsBlocked("10.0.0.1")
	assert.Nil(t, err, "IsBlocked should not fail on a missing log file")
	assert.Equal(t, false, blocked, "no IP should be blocked before the first Block call")

	err = guard.Block("10.0.0.1")
	assert.Nil(t, err, "Block should not return an error")

	blocked, err = guard.IsBlocked("10.0.0.1")
	assert.Nil(t, err)
	assert.Equal(t, true, blocked, "a freshly blocked IP should count as blocked")

	blocked, err = guard.IsBlocked("10.0.0.2")
	assert.Nil(t, err)
	assert.Equal(t, false, blocked, "an unrelated IP should not count as blocked")
}

// TestExpiredEntryIgnored checks that an entry whose expiry
// lies in the past no longer blocks, without being purged.
func TestExpiredEntryIgnored(t *testing.T) {

	file := filepath.Join(t.TempDir(), "blacklist.log")

	expired := fmt.Sprintf("10.0.0.1 %d\n", time.Now().Add(-time.Minute).Unix())
	err := os.WriteFile(file, []byte(expired), 0600)
	assert.Nil(t, err)

	guard := NewFileGuard(file, (60 * time.Second))

	blocked, err := guard.IsBlocked("10.0.0.1")
	assert.Nil(t, err)
	assert.Equal(t, false, blocked, "an expired entry should not block")

	content, err := os.ReadFile(file)
	assert.Nil(t, err)
	assert.Equal(t, expired, string(content), "expired entries are ignored, not purged")
}

// TestMultipleEntriesCoexist checks that repeated blocks
// append entries and any unexpired one keeps blocking.
func TestMultipleEntriesCoexist(t *testing.T) {

	file := filepath.Join(t.TempDir(), "blacklist.log")

	// One already expired entry followed by a fresh one.
	stale := fmt.Sprintf("10.0.0.1 %d\n", time.Now().Add(-time.Minute).Unix())
	err := os.WriteFile(file, []byte(stale), 0600)
	assert.Nil(t, err)

	guard := NewFileGuard(file, (60 * time.Second))

	err = guard.Block("10.0.0.1")
	assert.Nil(t, err)

	blocked, err := guard.IsBlocked("10.0.0.1")
	assert.Nil(t, err)
	assert.Equal(t, true, blocked, "the unexpired entry should block despite the stale one")

	content, err := os.ReadFile(file)
	assert.Nil(t, err)

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	assert.Equal(t, 2, len(lines), "Block should append, never rewrite")
	assert.True(t, strings.HasPrefix(lines[0], "10.0.0.1 "), "the stale entry should still be first")
}
