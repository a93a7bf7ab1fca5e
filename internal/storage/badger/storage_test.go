package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/referolabs/refero/internal/common"
	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	config := &common.BadgerConfig{Path: t.TempDir()}
	manager, err := NewManager(config, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestUserStorage(t *testing.T) {
	manager := testManager(t)
	ctx := context.Background()

	user := &models.User{
		Username:     "amy",
		PasswordHash: "$2a$10$fakehash",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, manager.Users().Create(ctx, user))

	// Duplicate registration is a conflict
	err := manager.Users().Create(ctx, user)
	assert.ErrorIs(t, err, models.ErrUserExists)

	got, err := manager.Users().Get(ctx, "amy")
	require.NoError(t, err)
	assert.Equal(t, user.PasswordHash, got.PasswordHash)

	exists, err := manager.Users().Exists(ctx, "amy")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = manager.Users().Exists(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = manager.Users().Get(ctx, "nobody")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestReportStorage_RoundTrip(t *testing.T) {
	manager := testManager(t)
	ctx := context.Background()

	report := &models.Report{
		Identity: "user:amy",
		Theme:    "quantum computing",
		Sections: []models.Section{
			{Title: "History", Content: "early days"},
			{Title: "Hardware", Content: "qubits"},
		},
		Links:     []string{"http://a.example"},
		TotalTime: 12.5,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, manager.Reports().Save(ctx, report))

	got, err := manager.Reports().Get(ctx, "user:amy")
	require.NoError(t, err)
	assert.Equal(t, "quantum computing", got.Theme)
	require.Len(t, got.Sections, 2)
	assert.Equal(t, "History", got.Sections[0].Title)
	assert.Equal(t, 12.5, got.TotalTime)

	// Saving again replaces the previous report
	report.Sections[0].Content = "revised"
	require.NoError(t, manager.Reports().Save(ctx, report))
	got, err = manager.Reports().Get(ctx, "user:amy")
	require.NoError(t, err)
	assert.Equal(t, "revised", got.Sections[0].Content)

	all, err := manager.Reports().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, manager.Reports().Delete(ctx, "user:amy"))
	_, err = manager.Reports().Get(ctx, "user:amy")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	// Deleting a missing report is not an error
	assert.NoError(t, manager.Reports().Delete(ctx, "user:amy"))
}

func TestJobStorage(t *testing.T) {
	manager := testManager(t)
	ctx := context.Background()

	job := &models.GenerationJob{
		Identity:  "user:amy",
		Status:    models.JobStatusRunning,
		StartedAt: time.Now(),
	}
	require.NoError(t, manager.Jobs().Save(ctx, job))

	got, err := manager.Jobs().Get(ctx, "user:amy")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, got.Status)

	job.Status = models.JobStatusDone
	require.NoError(t, manager.Jobs().Save(ctx, job))
	got, err = manager.Jobs().Get(ctx, "user:amy")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, got.Status)

	require.NoError(t, manager.Jobs().Delete(ctx, "user:amy"))
	_, err = manager.Jobs().Get(ctx, "user:amy")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestOutcomeStorage(t *testing.T) {
	manager := testManager(t)
	ctx := context.Background()

	outcome := &models.ReprocessOutcome{
		Identity:     "user:amy",
		Section:      "History",
		OriginalText: "before",
		ModifiedText: "after",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, manager.Outcomes().Save(ctx, outcome))

	got, err := manager.Outcomes().Get(ctx, "user:amy")
	require.NoError(t, err)
	assert.Equal(t, "after", got.ModifiedText)

	require.NoError(t, manager.Outcomes().Delete(ctx, "user:amy"))
	_, err = manager.Outcomes().Get(ctx, "user:amy")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestKVStorage(t *testing.T) {
	manager := testManager(t)
	ctx := context.Background()

	require.NoError(t, manager.KV().Set(ctx, "pending:user:amy", []byte(`{"section":"History"}`)))
	require.NoError(t, manager.KV().Set(ctx, "pending:anon:123", []byte(`{}`)))
	require.NoError(t, manager.KV().Set(ctx, "other:key", []byte("x")))

	value, err := manager.KV().Get(ctx, "pending:user:amy")
	require.NoError(t, err)
	assert.Contains(t, string(value), "History")

	keys, err := manager.KV().ListKeys(ctx, "pending:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pending:user:amy", "pending:anon:123"}, keys)

	require.NoError(t, manager.KV().Delete(ctx, "pending:user:amy"))
	_, err = manager.KV().Get(ctx, "pending:user:amy")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	// Deleting a missing key is not an error
	assert.NoError(t, manager.KV().Delete(ctx, "pending:user:amy"))
}
