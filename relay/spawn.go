package relay

import (
	"context"
	"sync"

	"github.com/Swind/go-task-relay/app"
)

// SpawnerName names the relay object that polls spawned futures.
const SpawnerName = "futures"

// Future is work that completes over several turns of the event loop.
//
// Poll runs on the loop goroutine and must not block. It returns true once
// the work is done. Until then it must arrange for wake to be called when it
// can make progress; each wake queues exactly one more Poll. wake may be
// called from any goroutine, including from inside Poll.
type Future interface {
	Poll(ctx context.Context, wake func()) bool
}

// FutureFunc adapts a function to Future.
type FutureFunc func(ctx context.Context, wake func()) bool

func (f FutureFunc) Poll(ctx context.Context, wake func()) bool { return f(ctx, wake) }

// spawned owns a future until it completes.
type spawned struct {
	mu     sync.Mutex
	future Future
	relay  *Relay[*spawned]
}

func (s *spawned) wake() {
	s.relay.Enqueue(s)
}

// pollSpawned is the executor of the spawner relay.
func pollSpawned(ctx context.Context, s *spawned) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A late wake after completion finds nothing to poll
	if s.future == nil {
		return
	}
	if s.future.Poll(ctx, s.wake) {
		s.future = nil
	}
}

var spawnMu sync.Mutex

// Spawn polls future on the current application's event loop until it
// completes. Spawn never polls inline; the first poll happens on a later loop
// iteration.
//
// It fails with ErrNoApplication when there is no application, and with
// ErrRejected when the loop has shut down. A future still pending when the
// application is destroyed is dropped without another poll.
func Spawn(future Future) error {
	if future == nil {
		return ErrNilFuture
	}
	r, err := spawner(app.Instance())
	if err != nil {
		return err
	}

	s := &spawned{future: future, relay: r}
	if !r.Enqueue(s) {
		return ErrRejected
	}
	return nil
}

// spawner returns the application's spawner relay, creating it on first use.
func spawner(application *app.Application) (*Relay[*spawned], error) {
	if application == nil {
		return nil, ErrNoApplication
	}

	spawnMu.Lock()
	defer spawnMu.Unlock()

	if r, ok := app.FindChild[*Relay[*spawned]](application.Root()); ok {
		return r, nil
	}
	return New(application, pollSpawned, WithName(SpawnerName))
}
