package relay

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/Swind/go-task-relay/app"
	"github.com/Swind/go-task-relay/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *app.Application {
	t.Helper()
	a, err := app.New(app.Config{Name: t.Name(), Logger: core.NewNoOpLogger()})
	require.NoError(t, err)
	t.Cleanup(a.Destroy)
	return a
}

// recorder is an Executor that records the handles it receives.
type recorder struct {
	mu    sync.Mutex
	tasks []Handle
}

func (r *recorder) execute(ctx context.Context, task Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
}

func (r *recorder) got() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Handle(nil), r.tasks...)
}

func TestNew_AttachesToRoot(t *testing.T) {
	a := newTestApp(t)

	var got []string
	r, err := New(a, func(ctx context.Context, task string) { got = append(got, task) }, WithName("strings"))
	require.NoError(t, err)

	assert.Equal(t, "strings", r.Name())
	assert.Same(t, a, r.Application())
	assert.Same(t, a.Root(), r.Object().Parent())
	assert.True(t, r.IsAttached())

	found, ok := app.FindChild[*Relay[string]](a.Root())
	require.True(t, ok)
	assert.Same(t, r, found)

	require.True(t, r.Enqueue("x"))
	require.True(t, r.Enqueue("y"))
	_, err = a.ProcessEvents()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestNew_Errors(t *testing.T) {
	_, err := New[int](nil, func(context.Context, int) {})
	require.ErrorIs(t, err, ErrNoApplication)

	a := newTestApp(t)
	_, err = New[int](a, nil)
	require.ErrorIs(t, err, ErrNilExecutor)

	a.Destroy()
	_, err = New(a, func(context.Context, int) {})
	require.ErrorIs(t, err, ErrNoApplication)
}

func TestRelay_BoxedClosures(t *testing.T) {
	a := newTestApp(t)
	r, err := New(a, Call)
	require.NoError(t, err)

	var loop *core.EventLoop
	require.True(t, r.Enqueue(func(ctx context.Context) { loop = core.CurrentEventLoop(ctx) }))
	_, err = a.ProcessEvents()
	require.NoError(t, err)
	assert.Same(t, a.Loop(), loop)
}

func TestRelay_EnqueueNeverRunsInline(t *testing.T) {
	a := newTestApp(t)

	var order []string
	var r *Relay[string]
	r, err := New(a, func(ctx context.Context, task string) {
		order = append(order, task)
		if task == "outer" {
			require.True(t, r.Enqueue("inner"))
			order = append(order, "after-enqueue")
		}
	})
	require.NoError(t, err)

	require.True(t, r.Enqueue("outer"))
	assert.Empty(t, order)

	n, err := a.ProcessEvents()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"outer", "after-enqueue"}, order)

	_, err = a.ProcessEvents()
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "after-enqueue", "inner"}, order)
}

func TestRelay_Close(t *testing.T) {
	a := newTestApp(t)

	calls := 0
	r, err := New(a, func(context.Context, int) { calls++ })
	require.NoError(t, err)

	require.True(t, r.Enqueue(1))
	r.Close()
	assert.False(t, r.IsAttached())
	assert.False(t, r.Enqueue(2))
	assert.Empty(t, a.Root().Children())

	_, err = a.ProcessEvents()
	require.NoError(t, err)
	assert.Zero(t, calls)

	stats := r.Stats()
	assert.Equal(t, core.RelayStats{Name: DefaultName, Accepted: 1, Rejected: 1, Skipped: 1}, stats)
}

func TestRelay_DeliversOnLoopGoroutineFromManyProducers(t *testing.T) {
	a := newTestApp(t)

	const producers, perProducer = 8, 25
	var mu sync.Mutex
	loopIDs := make(map[uint64]bool)
	next := make([]int, producers)
	outOfOrder := 0
	done := make(chan struct{})
	total := 0

	type job struct{ producer, seq int }
	r, err := New(a, func(ctx context.Context, j job) {
		mu.Lock()
		defer mu.Unlock()
		loopIDs[goroutineID()] = true
		if next[j.producer] != j.seq {
			outOfOrder++
		}
		next[j.producer] = j.seq + 1
		total++
		if total == producers*perProducer {
			close(done)
		}
	})
	require.NoError(t, err)
	require.NoError(t, a.Loop().Start())

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := 0; s < perProducer; s++ {
				assert.True(t, r.Enqueue(job{producer: p, seq: s}))
			}
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("not all relayed tasks executed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, loopIDs, 1)
	assert.Zero(t, outOfOrder)
	assert.EqualValues(t, producers*perProducer, r.Stats().Executed)
}

func goroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	var id uint64
	for i := len("goroutine "); i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			break
		}
		id = id*10 + uint64(b[i]-'0')
	}
	return id
}
