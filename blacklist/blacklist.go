package blacklist

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Structs

// FileGuard tracks recently abusive client IP addresses in
// an append-only log file shared by all connection handlers.
// Each line holds one '<ip> <unix-expiry>' entry. Entries are
// never deduplicated or purged: an IP counts as blocked while
// any entry for it is unexpired, and expired entries are
// simply skipped on read. Appends from multiple processes are
// best-effort, relying on filesystem append semantics.
type FileGuard struct {
	lock   sync.Mutex
	file   string
	window time.Duration
}

// Functions

// NewFileGuard wraps the supplied log file location and
// block window into a ready-to-use guard. The file is
// created on first Block call.
func NewFileGuard(file string, window time.Duration) *FileGuard {

	return &FileGuard{
		file:   file,
		window: window,
	}
}

// IsBlocked reports whether an unexpired entry for the
// supplied IP exists in the log. A log file that does not
// exist yet means no IP has ever been blocked.
func (g *FileGuard) IsBlocked(ip string) (bool, error) {

	g.lock.Lock()
	defer g.lock.Unlock()

	handle, err := os.Open(g.file)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to open blacklist file")
	}
	defer handle.Close()

	now := time.Now().Unix()

	scanner := bufio.NewScanner(handle)
	for scanner.Scan() {

		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}

		if fields[0] != ip {
			continue
		}

		until, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}

		if now < until {
			return true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return false, errors.Wrap(err, "failed to scan blacklist file")
	}

	return false, nil
}

// Block appends a new entry for the supplied IP with an
// expiry one window from now. Prior entries for the same IP
// are left in place.
func (g *FileGuard) Block(ip string) error {

	g.lock.Lock()
	defer g.lock.Unlock()

	handle, err := os.OpenFile(g.file, (os.O_WRONLY | os.O_CREATE | os.O_APPEND), 0600)
	if err != nil {
		return errors.Wrap(err, "failed to open blacklist file for append")
	}

	until := time.Now().Add(g.window).Unix()

	if _, err := fmt.Fprintf(handle, "%s %d\n", ip, until); err != nil {
		handle.Close()
		return errors.Wrap(err, "failed to append blacklist entry")
	}

	if err := handle.Close(); err != nil {
		return errors.Wrap(err, "failed to close blacklist file")
	}

	return nil
}
