package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// DefaultTempFileAge is how old a temp file must be before it counts as left
// behind by an interrupted write rather than one in flight.
const DefaultTempFileAge = 5 * time.Minute

// StaleFileCheck finds leftovers in the jsonfile conversations directory:
// temp files from interrupted writes and lock files whose conversation file
// was never created. Lock files held by a running relay are never touched.
type StaleFileCheck struct {
	dir     string
	fix     bool
	tempAge time.Duration
	now     func() time.Time
}

// NewStaleFileCheck creates a new stale file check.
// If fix is true, stale files will be deleted.
func NewStaleFileCheck(dir string, fix bool) *StaleFileCheck {
	return &StaleFileCheck{
		dir:     dir,
		fix:     fix,
		tempAge: DefaultTempFileAge,
		now:     time.Now,
	}
}

func (c *StaleFileCheck) Name() string {
	return "Conversation Files"
}

func (c *StaleFileCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		result.Items = append(result.Items, CheckItem{
			Label:  "Conversations directory",
			Status: StatusPass,
			Detail: "no conversations directory yet",
		})
		return result
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Read conversations directory",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.Name()] = true
	}

	var stale []CheckItem
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
			continue
		case strings.HasSuffix(name, ".json.tmp"):
			if item, ok := c.checkTemp(entry); ok {
				stale = append(stale, item)
			}
		case strings.HasSuffix(name, ".json.lock"):
			if present[strings.TrimSuffix(name, ".lock")] {
				continue
			}
			if item, ok := c.checkLock(name); ok {
				stale = append(stale, item)
			}
		}
	}

	if len(stale) == 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "No stale files",
			Status: StatusPass,
			Detail: fmt.Sprintf("%d file(s) checked", len(entries)),
		})
		return result
	}

	result.Items = append(result.Items, stale...)
	return result
}

// checkTemp reports a temp file once it is older than the grace period.
func (c *StaleFileCheck) checkTemp(entry os.DirEntry) (CheckItem, bool) {
	name := entry.Name()

	info, err := entry.Info()
	if err != nil {
		// Renamed away since the directory was read.
		return CheckItem{}, false
	}
	if c.now().Sub(info.ModTime()) < c.tempAge {
		return CheckItem{}, false
	}

	if !c.fix {
		return staleItem(name, "interrupted write"), true
	}
	return removedItem(name, os.Remove(filepath.Join(c.dir, name))), true
}

// checkLock reports a lock file with no conversation behind it. The lock is
// taken without blocking before anything is decided, so a lock held by a
// live store is skipped, and the conversation file is re-checked under it.
func (c *StaleFileCheck) checkLock(name string) (CheckItem, bool) {
	path := filepath.Join(c.dir, name)

	unlock, ok, err := tryLock(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckItem{}, false
		}
		return CheckItem{Label: name, Status: StatusFail, Detail: fmt.Sprintf("failed to lock: %v", err)}, true
	}
	if !ok {
		return CheckItem{}, false
	}
	defer unlock()

	if _, err := os.Stat(strings.TrimSuffix(path, ".lock")); err == nil {
		return CheckItem{}, false
	}

	if !c.fix {
		return staleItem(name, "no conversation data"), true
	}
	return removedItem(name, os.Remove(path)), true
}

// tryLock takes an exclusive flock on path without blocking. ok is false when
// another process holds the lock.
func tryLock(path string) (unlock func(), ok bool, err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, false, err
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
	}, true, nil
}

func staleItem(name, reason string) CheckItem {
	return CheckItem{
		Label:   name,
		Status:  StatusWarn,
		Detail:  "stale file (" + reason + ")",
		Fixable: true,
	}
}

func removedItem(name string, err error) CheckItem {
	if err != nil {
		return CheckItem{Label: name, Status: StatusFail, Detail: fmt.Sprintf("failed to delete: %v", err)}
	}
	return CheckItem{Label: name, Status: StatusPass, Detail: "deleted stale file"}
}
