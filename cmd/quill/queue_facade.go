package main

import (
	"context"
	"strings"

	"quill/internal/ipc"
	"quill/internal/queue"
)

// queueAPI abstracts queue operations so commands behave the same whether
// they reach the daemon over IPC or open the store directly.
type queueAPI interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]ipc.QueueItem, error)
	Describe(ctx context.Context, id int64) (*ipc.QueueItem, error)
	Add(ctx context.Context, path string) (ipc.QueueItem, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
	ResetStuck(ctx context.Context) (int64, error)
	RetryAll(ctx context.Context) (int64, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Stop(ctx context.Context, ids []int64) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
}

// --- IPC adapter ---

type queueIPCAdapter struct {
	client *ipc.Client
}

// removed and updated unwrap the two counter response shapes the queue RPCs
// share, so each adapter method stays a one-liner.
func removed(resp *ipc.RemovedCount, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func updated(resp *ipc.UpdatedCount, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (q *queueIPCAdapter) Stats(context.Context) (map[string]int, error) {
	resp, err := q.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.QueueStats, nil
}

func (q *queueIPCAdapter) List(_ context.Context, statuses []string) ([]ipc.QueueItem, error) {
	resp, err := q.client.QueueList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Describe maps the daemon's not-found error onto a nil item so both
// adapters report an unknown id the same way.
func (q *queueIPCAdapter) Describe(_ context.Context, id int64) (*ipc.QueueItem, error) {
	resp, err := q.client.QueueDescribe(id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return &resp.Item, nil
}

func (q *queueIPCAdapter) Add(_ context.Context, path string) (ipc.QueueItem, error) {
	resp, err := q.client.AddFile(path)
	if err != nil {
		return ipc.QueueItem{}, err
	}
	return resp.Item, nil
}

func (q *queueIPCAdapter) ClearAll(context.Context) (int64, error) {
	return removed(q.client.QueueClear())
}

func (q *queueIPCAdapter) ClearCompleted(context.Context) (int64, error) {
	return removed(q.client.QueueClearCompleted())
}

func (q *queueIPCAdapter) ClearFailed(context.Context) (int64, error) {
	return removed(q.client.QueueClearFailed())
}

func (q *queueIPCAdapter) Remove(_ context.Context, ids []int64) (int64, error) {
	return removed(q.client.QueueRemove(ids))
}

func (q *queueIPCAdapter) ResetStuck(context.Context) (int64, error) {
	return updated(q.client.QueueReset())
}

func (q *queueIPCAdapter) RetryAll(context.Context) (int64, error) {
	return updated(q.client.QueueRetry(nil))
}

func (q *queueIPCAdapter) Retry(_ context.Context, ids []int64) (int64, error) {
	return updated(q.client.QueueRetry(ids))
}

func (q *queueIPCAdapter) Stop(_ context.Context, ids []int64) (int64, error) {
	return updated(q.client.QueueStop(ids))
}

func (q *queueIPCAdapter) Health(context.Context) (queue.HealthSummary, error) {
	resp, err := q.client.QueueHealth()
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return queue.HealthSummary(*resp), nil
}

// --- Store adapter ---

type queueStoreAdapter struct {
	store *queue.Store
}

func (q *queueStoreAdapter) Stats(ctx context.Context) (map[string]int, error) {
	counts, err := q.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(counts))
	for status, count := range counts {
		out[string(status)] = count
	}
	return out, nil
}

func (q *queueStoreAdapter) List(ctx context.Context, statuses []string) ([]ipc.QueueItem, error) {
	var filters []queue.Status
	for _, s := range statuses {
		if parsed, ok := queue.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	items, err := q.store.List(ctx, filters...)
	if err != nil {
		return nil, err
	}
	out := make([]ipc.QueueItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, ipc.FromQueueItem(item))
	}
	return out, nil
}

func (q *queueStoreAdapter) Describe(ctx context.Context, id int64) (*ipc.QueueItem, error) {
	item, err := q.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := ipc.FromQueueItem(item)
	return &dto, nil
}

// Add mirrors the daemon enqueue path: an item still moving through the
// workflow wins over inserting a duplicate for the same source file.
func (q *queueStoreAdapter) Add(ctx context.Context, path string) (ipc.QueueItem, error) {
	if existing, err := q.store.FindBySourcePath(ctx, path); err == nil && existing != nil && existing.IsInWorkflow() {
		return ipc.FromQueueItem(existing), nil
	}
	item, err := q.store.NewFile(ctx, path)
	if err != nil {
		return ipc.QueueItem{}, err
	}
	return ipc.FromQueueItem(item), nil
}

func (q *queueStoreAdapter) ClearAll(ctx context.Context) (int64, error) {
	return q.store.Clear(ctx)
}

func (q *queueStoreAdapter) ClearCompleted(ctx context.Context) (int64, error) {
	return q.store.ClearCompleted(ctx)
}

func (q *queueStoreAdapter) ClearFailed(ctx context.Context) (int64, error) {
	return q.store.ClearFailed(ctx)
}

func (q *queueStoreAdapter) Remove(ctx context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		gone, err := q.store.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if gone {
			count++
		}
	}
	return count, nil
}

func (q *queueStoreAdapter) ResetStuck(ctx context.Context) (int64, error) {
	return q.store.ResetStuckProcessing(ctx)
}

func (q *queueStoreAdapter) RetryAll(ctx context.Context) (int64, error) {
	return q.store.RetryFailed(ctx)
}

func (q *queueStoreAdapter) Retry(ctx context.Context, ids []int64) (int64, error) {
	return q.store.RetryFailed(ctx, ids...)
}

func (q *queueStoreAdapter) Stop(ctx context.Context, ids []int64) (int64, error) {
	return q.store.StopItems(ctx, ids...)
}

func (q *queueStoreAdapter) Health(ctx context.Context) (queue.HealthSummary, error) {
	return q.store.Health(ctx)
}
