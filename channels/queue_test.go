package channels

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuildQueueKeepsSubmissionOrder(t *testing.T) {
	q := newGuildQueue()
	var (
		mu  sync.Mutex
		got []int
	)
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		i := i
		q.Submit("g1", func() {
			if i%10 == 0 {
				time.Sleep(time.Millisecond)
			}
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	q.Submit("g1", func() { close(done) })
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestGuildQueueRunsGuildsIndependently(t *testing.T) {
	q := newGuildQueue()
	release := make(chan struct{})
	q.Submit("g1", func() { <-release })

	done := make(chan struct{})
	q.Submit("g2", func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("g2 waited behind g1")
	}
	close(release)
}

func TestGuildQueueForgetsIdleGuilds(t *testing.T) {
	q := newGuildQueue()
	done := make(chan struct{})
	q.Submit("g1", func() { close(done) })
	<-done
	assert.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, time.Millisecond)
}
