package services

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"zentask/zentask/models"
	"zentask/zentask/store"
)

// BatchResult tallies a batch of independent writes. Successful writes are
// never rolled back when others fail.
type BatchResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func (r BatchResult) Total() int {
	return r.Succeeded + r.Failed
}

// OrderAssignment is the position a reorder gives one task.
type OrderAssignment struct {
	TaskID string `json:"taskId"`
	Order  int    `json:"order"`
}

// MoveOrder moves the item at src to dst and numbers the result 0..n-1.
// When src == dst the tasks keep their current order values.
func MoveOrder(visible []models.Task, src, dst int) ([]OrderAssignment, error) {
	if src < 0 || src >= len(visible) || dst < 0 || dst >= len(visible) {
		return nil, fmt.Errorf("%w: move %d -> %d out of range for %d tasks", ErrInvalidInput, src, dst, len(visible))
	}
	if src == dst {
		return nil, nil
	}

	moved := make([]models.Task, 0, len(visible))
	moved = append(moved, visible[:src]...)
	moved = append(moved, visible[src+1:]...)
	moved = append(moved[:dst], append([]models.Task{visible[src]}, moved[dst:]...)...)

	assignments := make([]OrderAssignment, len(moved))
	for i, task := range moved {
		assignments[i] = OrderAssignment{TaskID: task.ID, Order: i}
	}
	return assignments, nil
}

// ReorderEngine persists drag-and-drop moves within a visible subset.
type ReorderEngine struct {
	store store.Store
}

func NewReorderEngine(s store.Store) *ReorderEngine {
	return &ReorderEngine{store: s}
}

// Reorder writes every assignment of the move concurrently and waits for
// all of them before reporting the tally.
func (e *ReorderEngine) Reorder(ctx context.Context, visible []models.Task, src, dst int) ([]OrderAssignment, BatchResult, error) {
	assignments, err := MoveOrder(visible, src, dst)
	if err != nil || len(assignments) == 0 {
		return assignments, BatchResult{}, err
	}

	result := runBatch(ctx, len(assignments), func(ctx context.Context, i int) error {
		a := assignments[i]
		return e.store.Update(ctx, store.Tasks, a.TaskID, models.TaskPatch{Order: models.Ptr(a.Order)}.Fields())
	})
	if result.Failed > 0 {
		log.Printf("Failed to reorder tasks: %d of %d updates failed", result.Failed, result.Total())
	}
	return assignments, result, nil
}

// runBatch runs n independent operations concurrently. Failures are
// counted, not propagated, so every operation is attempted.
func runBatch(ctx context.Context, n int, op func(ctx context.Context, i int) error) BatchResult {
	var succeeded, failed atomic.Int64
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := op(ctx, i); err != nil {
				failed.Add(1)
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return BatchResult{Succeeded: int(succeeded.Load()), Failed: int(failed.Load())}
}
