package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentUploads_MalformedTimestamp(t *testing.T) {
	// GIVEN: an upload row whose timestamp was written by hand
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	_, err = store.db.ExecContext(ctx, `
		INSERT INTO processed_uploads (id, filename, ingested_at, row_count, status, error_message)
		VALUES ('bad', 'a.xlsx', 'yesterday', 3, 'success', NULL)
	`)
	require.NoError(t, err)

	// WHEN: listing uploads
	uploads, err := store.RecentUploads(ctx, 10)

	// THEN: the row is reported instead of showing a zero time
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingested_at")
	assert.Nil(t, uploads)
}
