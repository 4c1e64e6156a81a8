package availability

import (
	"context"
	"sync"
	"time"

	"slotkeeper/pkg/logger"
)

type Fetcher interface {
	GetSlots(ctx context.Context, q Query) Result
}

// AfterFunc schedules f after d and returns a function that cancels it.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Watcher debounces slot queries and publishes only the latest one.
//
// Every Request bumps a generation and restarts the debounce timer. A query
// runs only if its generation is still current when the timer fires, and its
// result is published only if no newer Request was issued in the meantime.
// Superseded results are dropped, never retried.
type Watcher struct {
	fetcher   Fetcher
	window    time.Duration
	timeout   time.Duration
	afterFunc AfterFunc
	log       *logger.Logger

	mu        sync.Mutex
	gen       uint64
	stop      func() bool
	state     Result
	onPublish func(Result)
}

func NewWatcher(fetcher Fetcher, window, timeout time.Duration, log *logger.Logger) *Watcher {
	return &Watcher{
		fetcher:   fetcher,
		window:    window,
		timeout:   timeout,
		afterFunc: timeAfterFunc,
		log:       log,
	}
}

// SetAfterFunc replaces the timer seam. Tests only.
func (w *Watcher) SetAfterFunc(fn AfterFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.afterFunc = fn
}

// OnPublish registers the callback receiving every published result.
func (w *Watcher) OnPublish(fn func(Result)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onPublish = fn
}

func (w *Watcher) Request(q Query) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	gen := w.gen
	if w.stop != nil {
		w.stop()
	}
	w.state = Result{Key: q.Key(), Loading: true}
	w.stop = w.afterFunc(w.window, func() { w.run(gen, q) })
}

// Cancel abandons any pending or in-flight query and clears the state.
func (w *Watcher) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	if w.stop != nil {
		w.stop()
		w.stop = nil
	}
	w.state = Result{}
}

func (w *Watcher) State() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Watcher) current(gen uint64) bool {
	return w.gen == gen
}

func (w *Watcher) run(gen uint64, q Query) {
	w.mu.Lock()
	if !w.current(gen) {
		w.mu.Unlock()
		return
	}
	w.stop = nil
	w.mu.Unlock()

	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	res := w.fetcher.GetSlots(ctx, q)

	w.mu.Lock()
	if !w.current(gen) {
		w.mu.Unlock()
		w.log.Debug("Discarding superseded availability result", "key", res.Key.String())
		return
	}
	w.state = res
	publish := w.onPublish
	w.mu.Unlock()

	if publish != nil {
		publish(res)
	}
}
