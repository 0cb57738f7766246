// Package app provides the host application a relay attaches to: one current
// application per process, owning an object tree and a single-threaded
// core.EventLoop.
package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Swind/go-task-relay/core"
)

// Config configures an Application. The zero value is usable.
type Config struct {
	// Name labels the application, its root object and, unless Loop sets
	// one, its event loop. Defaults to "app".
	Name string

	// Logger defaults to core.DefaultLogger prefixed with Name.
	Logger core.Logger

	// Verbose enables debug output on the default logger.
	Verbose bool

	// Loop configures the event loop. Its Logger defaults to Logger.
	Loop *core.EventLoopConfig
}

var current atomic.Pointer[Application]

// Application owns the root object and the event loop of the process.
type Application struct {
	name   string
	root   *Object
	loop   *core.EventLoop
	logger core.Logger

	exitOnce    sync.Once
	exitCode    atomic.Int32
	destroyOnce sync.Once
	destroyed   atomic.Bool
}

// New creates the application and makes it current. Only one application
// may be current at a time; New fails with ErrApplicationExists otherwise.
func New(config Config) (*Application, error) {
	name := config.Name
	if name == "" {
		name = "app"
	}
	logger := config.Logger
	if logger == nil {
		logger = &core.DefaultLogger{Prefix: name, Verbose: config.Verbose}
	}

	loopConfig := core.EventLoopConfig{}
	if config.Loop != nil {
		loopConfig = *config.Loop
	}
	if loopConfig.Name == "" {
		loopConfig.Name = name
	}
	if loopConfig.Logger == nil {
		loopConfig.Logger = logger
	}

	a := &Application{
		name:   name,
		logger: logger,
		loop:   core.NewEventLoop(&loopConfig),
	}
	a.root = NewObject(name, a)

	if !current.CompareAndSwap(nil, a) {
		a.loop.Shutdown()
		return nil, ErrApplicationExists
	}

	logger.Debug("application created", core.F("app", name), core.F("root", a.root.ID()))
	return a, nil
}

// Instance returns the current application, or nil if there is none.
func Instance() *Application {
	return current.Load()
}

func (a *Application) Name() string          { return a.name }
func (a *Application) Root() *Object         { return a.root }
func (a *Application) Loop() *core.EventLoop { return a.loop }
func (a *Application) Logger() core.Logger   { return a.logger }
func (a *Application) IsDestroyed() bool     { return a.destroyed.Load() }

// Exec runs the event loop on the calling goroutine until Exit, Quit,
// Destroy or ctx cancellation, and returns the code passed to Exit.
func (a *Application) Exec(ctx context.Context) (int, error) {
	err := a.loop.Run(ctx)
	return int(a.exitCode.Load()), err
}

// ProcessEvents runs one iteration of the event loop on the calling
// goroutine. See core.EventLoop.ProcessPendingTasks.
func (a *Application) ProcessEvents() (int, error) {
	return a.loop.ProcessPendingTasks()
}

// Exit shuts the event loop down and makes Exec return code. Pending tasks
// are discarded. Only the first call sets the code.
func (a *Application) Exit(code int) {
	a.exitOnce.Do(func() { a.exitCode.Store(int32(code)) })
	a.loop.Shutdown()
}

// Quit is Exit(0).
func (a *Application) Quit() {
	a.Exit(0)
}

// Destroy stops being current, shuts the loop down (discarding pending tasks)
// and destroys the object tree. A task already running on the loop is not
// waited for, so Destroy may be called from inside a task.
func (a *Application) Destroy() {
	a.destroyOnce.Do(func() {
		a.destroyed.Store(true)
		current.CompareAndSwap(a, nil)
		a.loop.Shutdown()
		a.root.Destroy()
		a.logger.Debug("application destroyed", core.F("app", a.name))
	})
}
