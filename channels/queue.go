package channels

import "sync"

// guildQueue runs jobs one at a time per guild, in submission order, on a
// goroutine that exists only while the guild has pending work.
type guildQueue struct {
	mu      sync.Mutex
	pending map[string][]func()
}

func newGuildQueue() *guildQueue {
	return &guildQueue{pending: make(map[string][]func())}
}

// Submit never blocks.
func (q *guildQueue) Submit(guildID string, job func()) {
	q.mu.Lock()
	jobs, running := q.pending[guildID]
	q.pending[guildID] = append(jobs, job)
	q.mu.Unlock()
	if !running {
		go q.drain(guildID)
	}
}

func (q *guildQueue) drain(guildID string) {
	for {
		q.mu.Lock()
		jobs := q.pending[guildID]
		if len(jobs) == 0 {
			delete(q.pending, guildID)
			q.mu.Unlock()
			return
		}
		job := jobs[0]
		q.pending[guildID] = jobs[1:]
		q.mu.Unlock()
		job()
	}
}

// Len reports how many guilds have work pending or running.
func (q *guildQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
