package services

import "sync"

// userLocks serializes mutating operations per user. Two concurrent
// operations for the same user take turns; different users never contend.
// Entries are never removed: the map is bounded by the number of distinct
// users the process has served.
type userLocks struct {
	mu    sync.Mutex
	users map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{users: make(map[int64]*sync.Mutex)}
}

// lock acquires the user's mutex and returns the matching unlock.
func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	m, ok := l.users[userID]
	if !ok {
		m = &sync.Mutex{}
		l.users[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// size reports how many distinct users have taken a lock.
func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
