package store

import (
	"github.com/gofrs/flock"
)

// withExclusiveLock runs fn while holding an exclusive advisory lock on
// path (created alongside the target if needed). Appenders to history.jsonl
// use this for the whole duration of a write, per spec §3/§5.
func withExclusiveLock(lockPath string, fn func() error) error {
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() {
		_ = lock.Unlock()
	}()
	return fn()
}

// tryShared attempts to take a best-effort shared lock on path, returning a
// release function. On failure (e.g. platform without flock support, or an
// appender mid-write on a filesystem that does not support shared locks
// alongside an exclusive one) it returns a no-op release and ok=false: the
// caller continues unlocked, tolerating the format's line-atomicity as
// spec §3/§9 (Open Question 1) documents.
func tryShared(path string) (release func(), ok bool) {
	lock := flock.New(path)
	locked, err := lock.TryRLock()
	if err != nil || !locked {
		return func() {}, false
	}
	return func() {
		_ = lock.Unlock()
	}, true
}
