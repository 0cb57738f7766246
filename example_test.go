package taskrelay_test

import (
	"context"
	"fmt"

	taskrelay "github.com/Swind/go-task-relay"
)

// ExampleEnqueue demonstrates the basic usage with only one import.
func ExampleEnqueue() {
	application, err := taskrelay.NewApplication("example")
	if err != nil {
		panic(err)
	}
	defer application.Destroy()

	fmt.Println("before initialize:", taskrelay.Enqueue(1))

	err = taskrelay.Initialize(func(ctx context.Context, task taskrelay.Handle) {
		fmt.Println("task", uint(task))
	})
	if err != nil {
		panic(err)
	}

	taskrelay.Enqueue(1)
	taskrelay.Enqueue(2)
	taskrelay.Enqueue(3)

	// One iteration of the loop runs everything queued so far
	if _, err := application.ProcessEvents(); err != nil {
		panic(err)
	}

	// Output:
	// before initialize: false
	// task 1
	// task 2
	// task 3
}

// ExampleApplication_Exec runs the loop on a goroutine of its own while
// another goroutine enqueues work.
func ExampleApplication_Exec() {
	application, err := taskrelay.NewApplication("exec")
	if err != nil {
		panic(err)
	}
	defer application.Destroy()

	err = taskrelay.Initialize(func(ctx context.Context, task taskrelay.Handle) {
		fmt.Println("task", uint(task))
		if task == 2 {
			application.Quit()
		}
	})
	if err != nil {
		panic(err)
	}

	go func() {
		taskrelay.Enqueue(1)
		taskrelay.Enqueue(2)
	}()

	code, err := application.Exec(context.Background())
	if err != nil {
		panic(err)
	}
	fmt.Println("exit code:", code)
	fmt.Println("started after quit:", taskrelay.Started())

	// Output:
	// task 1
	// task 2
	// exit code: 0
	// started after quit: true
}

// ExampleSpawn polls a future that needs three turns of the loop.
func ExampleSpawn() {
	application, err := taskrelay.NewApplication("spawn")
	if err != nil {
		panic(err)
	}
	defer application.Destroy()

	turns := 0
	err = taskrelay.Spawn(taskrelay.FutureFunc(func(ctx context.Context, wake func()) bool {
		turns++
		fmt.Println("poll", turns)
		if turns < 3 {
			wake()
			return false
		}
		application.Exit(turns)
		return true
	}))
	if err != nil {
		panic(err)
	}

	code, err := application.Exec(context.Background())
	if err != nil {
		panic(err)
	}
	fmt.Println("exit code:", code)

	// Output:
	// poll 1
	// poll 2
	// poll 3
	// exit code: 3
}
