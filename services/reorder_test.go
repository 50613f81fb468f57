package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zentask/zentask/models"
)

func TestMoveOrder(t *testing.T) {
	visible := []models.Task{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	got, err := MoveOrder(visible, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []OrderAssignment{{"b", 0}, {"c", 1}, {"a", 2}}, got)

	got, err = MoveOrder(visible, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []OrderAssignment{{"c", 0}, {"a", 1}, {"b", 2}}, got)
}

func TestMoveOrder_SamePositionIsNoop(t *testing.T) {
	got, err := MoveOrder([]models.Task{{ID: "a"}, {ID: "b"}}, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMoveOrder_OutOfRange(t *testing.T) {
	_, err := MoveOrder([]models.Task{{ID: "a"}}, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = MoveOrder(nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunBatch_CountsFailuresWithoutStopping(t *testing.T) {
	result := runBatch(context.Background(), 7, func(ctx context.Context, i int) error {
		if i%2 == 1 {
			return errors.New("boom")
		}
		return nil
	})
	assert.Equal(t, BatchResult{Succeeded: 4, Failed: 3}, result)
	assert.Equal(t, 7, result.Total())
}

func TestSessionReorder_RoundTrip(t *testing.T) {
	session, st, _ := newTestSession(t)
	var created []string
	for i := 0; i < 5; i++ {
		created = append(created, seed(t, st, map[string]interface{}{
			"title":     string(rune('a' + i)),
			"createdAt": testNow.UnixMilli() + int64(i),
		}))
	}
	// Newest first without manual positions.
	before := []string{created[4], created[3], created[2], created[1], created[0]}
	require.Equal(t, before, ids(session.Visible()))

	assignments, result, err := session.Reorder(context.Background(), 4, 1)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Succeeded: 5}, result)
	assert.Len(t, assignments, 5)

	want := []string{created[4], created[0], created[3], created[2], created[1]}
	if diff := cmp.Diff(want, ids(session.Visible())); diff != "" {
		t.Errorf("order after move mismatch (-want +got):\n%s", diff)
	}
	for i, task := range session.Visible() {
		require.NotNil(t, task.Order)
		assert.Equal(t, i, *task.Order)
	}
}

func TestSessionReorder_NoopWritesNothing(t *testing.T) {
	session, st, _ := newTestSession(t)
	seed(t, st, map[string]interface{}{"createdAt": testNow.UnixMilli()})
	seed(t, st, map[string]interface{}{"createdAt": testNow.UnixMilli() + 1})

	assignments, result, err := session.Reorder(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assert.Zero(t, result.Total())
	for _, task := range session.Visible() {
		assert.Nil(t, task.Order)
	}
}

func TestSessionReorder_RequiresDefaultSort(t *testing.T) {
	session, st, _ := newTestSession(t)
	seed(t, st, nil)
	seed(t, st, nil)

	_, err := session.SetView(ViewUpdate{Sort: models.Ptr("alpha")})
	require.NoError(t, err)

	_, _, err = session.Reorder(context.Background(), 0, 1)
	assert.ErrorIs(t, err, ErrManualOrderUnavailable)
}
