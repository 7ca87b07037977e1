package async

import (
	"context"
	"sync"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// Run executes tasks concurrently and waits for all of them. The returned
// map holds the error of every task that failed, keyed by task name; it
// is empty when all succeeded.
//
// Example:
//
//	errs := async.Run(ctx, []async.Task{
//	    {Name: "containers", Func: listContainers},
//	    {Name: "images", Func: listImages},
//	})
//	if err := errs["images"]; err != nil {
//	    ...
//	}
func Run(ctx context.Context, tasks []Task) map[string]error {
	errs := make(map[string]error)
	if len(tasks) == 0 {
		return errs
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := task.Func(ctx); err != nil {
				mu.Lock()
				errs[task.Name] = err
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errs
}
