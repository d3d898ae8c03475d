package scheduler

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// roundTask is one agent's pending contribution to a round. index is the
// agent's position in the scheduler's declaration order.
type roundTask struct {
	index int
	run   func(ctx context.Context) (string, error)
}

type indexedReply struct {
	index int
	text  string
	err   error
}

// fanOut runs every task concurrently and returns the replies sorted by
// declaration index, regardless of completion order. A slow or failing task
// never blocks or cancels its peers; errors travel back inside the reply so
// the caller can treat them as abstentions rather than round failures.
func fanOut(ctx context.Context, tasks []roundTask) []indexedReply {
	replies := make([]indexedReply, len(tasks))

	var wg sync.WaitGroup
	for slot, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := task.run(ctx)
			replies[slot] = indexedReply{index: task.index, text: text, err: err}
		}()
	}
	wg.Wait()

	slices.SortFunc(replies, func(a, b indexedReply) int {
		return cmp.Compare(a.index, b.index)
	})
	return replies
}
