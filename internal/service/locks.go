package service

import "sync"

// guildLocks serializes cycles of the same guild.
type guildLocks struct {
	mu    sync.Mutex
	locks map[int64]*guildLock
}

type guildLock struct {
	mu   sync.Mutex
	refs int
}

func newGuildLocks() *guildLocks {
	return &guildLocks{locks: make(map[int64]*guildLock)}
}

// lock blocks until the guild is free and returns its unlock function.
func (g *guildLocks) lock(guildID int64) func() {
	g.mu.Lock()
	l, ok := g.locks[guildID]
	if !ok {
		l = &guildLock{}
		g.locks[guildID] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, guildID)
		}
		g.mu.Unlock()
	}
}
