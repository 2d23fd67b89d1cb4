package flair

import (
	"context"
	"errors"
	"testing"

	"flairbridge/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient(t *testing.T) {
	mock := NewMockClient()
	ctx := context.Background()

	require.NoError(t, mock.Update(ctx, model.TypeRooms, "r1", map[string]interface{}{"active": false}, nil))
	calls := mock.GetUpdates()
	require.Len(t, calls, 1)
	assert.Equal(t, model.TypeRooms, calls[0].ResourceType)
	assert.Equal(t, false, calls[0].Attributes["active"])

	boom := errors.New("boom")
	mock.SetUpdateError(boom)
	assert.ErrorIs(t, mock.Update(ctx, model.TypeRooms, "r1", nil, nil), boom)
	assert.Len(t, mock.GetUpdates(), 1)

	mock.ClearUpdates()
	assert.Empty(t, mock.GetUpdates())

	snap := model.NewSnapshot()
	snap.AddStructure(model.NewStructure("s1"))
	mock.SetSnapshot(snap)

	got, err := mock.Fetch(ctx)
	require.NoError(t, err)
	assert.Contains(t, got.Structures, "s1")
	assert.Equal(t, 1, mock.FetchCount())

	mock.SetFetchError(boom)
	_, err = mock.Fetch(ctx)
	assert.ErrorIs(t, err, boom)
}
