package pipeline

import (
	"context"
	"sync"
)

// Task is a run executing in the background.
type Task struct {
	cancel context.CancelFunc
	events chan Event
	done   chan struct{}
	stop   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	queue   []Event
	notify  chan struct{}
	closing bool

	result Result
	err    error
}

// Start runs the pipeline on its own goroutine. Progress is delivered on
// Events; the pipeline never waits for a slow reader. cfg.OnProgress, when
// set, is still called synchronously.
func Start(ctx context.Context, cfg Config) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		events: make(chan Event),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
		notify: make(chan struct{}, 1),
	}

	userProgress := cfg.OnProgress
	cfg.OnProgress = func(ev Event) {
		if userProgress != nil {
			userProgress(ev)
		}
		t.push(ev)
	}

	go t.forward()
	go func() {
		defer close(t.done)
		defer cancel()
		t.result, t.err = Run(ctx, cfg)
		t.mu.Lock()
		t.closing = true
		t.mu.Unlock()
		t.wake()
	}()
	return t
}

// Events returns the progress channel. It is closed after the last event,
// or by Release. A caller that stops reading early must call Release.
func (t *Task) Events() <-chan Event {
	return t.events
}

// Cancel asks the run to stop before the next batch. A call in flight is
// allowed to finish.
func (t *Task) Cancel() {
	t.cancel()
}

// Wait blocks until the run ends and returns its result.
func (t *Task) Wait() (Result, error) {
	<-t.done
	return t.result, t.err
}

// Release stops event delivery: queued and future events are dropped and
// Events is closed. The run itself continues; use Cancel to stop it.
func (t *Task) Release() {
	t.once.Do(func() { close(t.stop) })
}

// Done is closed when the run ends.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) push(ev Event) {
	select {
	case <-t.stop:
		return
	default:
	}
	t.mu.Lock()
	t.queue = append(t.queue, ev)
	t.mu.Unlock()
	t.wake()
}

func (t *Task) wake() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// forward drains the queue into the events channel until the run ends or
// Release is called.
func (t *Task) forward() {
	defer close(t.events)
	for {
		select {
		case <-t.notify:
		case <-t.stop:
			return
		}
		for {
			t.mu.Lock()
			if len(t.queue) == 0 {
				closing := t.closing
				t.mu.Unlock()
				if closing {
					return
				}
				break
			}
			ev := t.queue[0]
			t.queue = t.queue[1:]
			t.mu.Unlock()
			select {
			case t.events <- ev:
			case <-t.stop:
				return
			}
		}
	}
}
