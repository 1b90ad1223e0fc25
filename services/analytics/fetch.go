package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// fetchTask is one independent source read of a dashboard fan-out.
type fetchTask struct {
	source string
	run    func(ctx context.Context) error
}

// settleAll runs every task concurrently and waits for all of them. A failing
// task never cancels its siblings; its error is reported under its source.
func settleAll(ctx context.Context, timeout time.Duration, tasks ...fetchTask) FetchErrors {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs FetchErrors
	)
	for _, t := range tasks {
		wg.Add(1)
		go func(t fetchTask) {
			defer wg.Done()
			taskCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				taskCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			err := runTask(taskCtx, t)
			if err == nil {
				return
			}
			mu.Lock()
			errs = append(errs, &DataFetchError{Source: t.source, Err: err})
			mu.Unlock()
		}(t)
	}
	wg.Wait()

	if len(errs) == 0 {
		return nil
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Source < errs[j].Source })
	return errs
}

func runTask(ctx context.Context, t fetchTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.run(ctx)
}
