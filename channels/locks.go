package channels

import (
	"container/list"
	"sync"
)

// guildLocks hands out one mutex per guild and keeps at most size of them,
// evicting the least recently used idle ones. A lock somebody holds or waits
// for is never evicted.
type guildLocks struct {
	mu    sync.Mutex
	size  int
	order *list.List
	locks map[string]*list.Element
}

type guildLock struct {
	guildID string
	mu      sync.Mutex
	users   int
}

func newGuildLocks(size int) *guildLocks {
	if size < 1 {
		size = 1
	}
	return &guildLocks{
		size:  size,
		order: list.New(),
		locks: make(map[string]*list.Element),
	}
}

// Lock blocks until guildID's lock is free and returns its release func.
func (l *guildLocks) Lock(guildID string) func() {
	l.mu.Lock()
	el, ok := l.locks[guildID]
	if ok {
		l.order.MoveToFront(el)
	} else {
		el = l.order.PushFront(&guildLock{guildID: guildID})
		l.locks[guildID] = el
	}
	lock := el.Value.(*guildLock)
	lock.users++
	l.evict()
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.users--
		l.evict()
		l.mu.Unlock()
	}
}

func (l *guildLocks) evict() {
	for el := l.order.Back(); el != nil && l.order.Len() > l.size; {
		prev := el.Prev()
		if lock := el.Value.(*guildLock); lock.users == 0 {
			l.order.Remove(el)
			delete(l.locks, lock.guildID)
		}
		el = prev
	}
}

func (l *guildLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}
