package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerguard/internal/domain"
)

func testJob(id string) job {
	return job{
		ctx:     context.Background(),
		trigger: domain.TriggerAuditFailed,
		invoice: &domain.Invoice{ID: id},
	}
}

func TestJobQueue_EnqueueDequeue(t *testing.T) {
	q := newJobQueue()

	require.True(t, q.Enqueue(testJob("inv-1")), "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, domain.TriggerAuditFailed, got.trigger)
	assert.Equal(t, "inv-1", got.invoice.ID)
}

func TestJobQueue_FIFO(t *testing.T) {
	q := newJobQueue()

	for _, id := range []string{"A", "B", "C"} {
		q.Enqueue(testJob(id))
	}

	for _, want := range []string{"A", "B", "C"} {
		j, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, j.invoice.ID)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestJobQueue_TryDequeue_Empty(t *testing.T) {
	q := newJobQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestJobQueue_SignalCoalesces(t *testing.T) {
	q := newJobQueue()
	q.Enqueue(testJob("inv-1"))
	q.Enqueue(testJob("inv-2"))

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending wake-up")
	}

	select {
	case <-q.Wait():
		t.Fatal("wake-ups should coalesce")
	default:
	}
}

func TestJobQueue_Close(t *testing.T) {
	q := newJobQueue()
	q.Enqueue(testJob("inv-1"))
	q.Close()

	assert.False(t, q.Enqueue(testJob("inv-2")), "enqueue after close should fail")
	assert.False(t, q.Drained(), "pending job keeps the queue undrained")

	j, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "inv-1", j.invoice.ID)
	assert.True(t, q.Drained())

	// Close is idempotent.
	q.Close()
}

func TestJobQueue_CloseWakesWaiter(t *testing.T) {
	q := newJobQueue()
	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by Close")
	}
}

func TestJobQueue_ConcurrentEnqueue(t *testing.T) {
	q := newJobQueue()
	const producers, perProducer = 8, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(testJob("inv"))
			}
		}()
	}
	wg.Wait()

	n := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, producers*perProducer, n)
}
