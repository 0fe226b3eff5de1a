package datastore

import (
	"sync"
	"testing"
	"time"
)

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue(nil)

	var mu sync.Mutex
	var got []int
	for i := range 100 {
		q.submit(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	q.close()
	<-q.done

	if len(got) != 100 {
		t.Fatalf("ran %d tasks, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestTaskQueue_SubmitAfterClose(t *testing.T) {
	q := newTaskQueue(nil)
	q.close()
	<-q.done

	if q.submit(func() {}) {
		t.Error("submit() = true after close, want false")
	}
	q.close()
	if q.submit(func() {}) {
		t.Error("submit() = true after second close, want false")
	}
}

func TestTaskQueue_DoesNotBlockSubmitters(t *testing.T) {
	q := newTaskQueue(nil)
	release := make(chan struct{})
	q.submit(func() { <-release })

	done := make(chan struct{})
	go func() {
		for range 10_000 {
			q.submit(func() {})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("submit blocked while the worker was busy")
	}

	close(release)
	q.close()
	<-q.done
}

func TestTaskQueue_ReportsDepth(t *testing.T) {
	var mu sync.Mutex
	var depths []int
	q := newTaskQueue(func(d int) {
		mu.Lock()
		depths = append(depths, d)
		mu.Unlock()
	})

	release := make(chan struct{})
	q.submit(func() { <-release })
	q.submit(func() {})
	close(release)
	q.close()
	<-q.done

	mu.Lock()
	defer mu.Unlock()
	if len(depths) == 0 {
		t.Fatal("no depth reported")
	}
	if last := depths[len(depths)-1]; last != 0 {
		t.Errorf("final depth = %d, want 0", last)
	}
}
