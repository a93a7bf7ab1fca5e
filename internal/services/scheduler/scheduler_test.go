package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/referolabs/refero/internal/common"
	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
	"github.com/referolabs/refero/internal/storage/badger"
)

func TestSweep(t *testing.T) {
	manager, err := badger.NewManager(&common.BadgerConfig{Path: t.TempDir()}, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	ctx := context.Background()

	stale := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()

	reports := []*models.Report{
		{Identity: models.SessionIdentity("old-session"), Theme: "a", UpdatedAt: stale},
		{Identity: models.SessionIdentity("live-session"), Theme: "b", UpdatedAt: fresh},
		{Identity: models.UserIdentity("amy"), Theme: "c", UpdatedAt: stale},
	}
	for _, report := range reports {
		require.NoError(t, manager.Reports().Save(ctx, report))
	}
	// Associated state for the stale session
	staleIdentity := models.SessionIdentity("old-session")
	require.NoError(t, manager.Outcomes().Save(ctx, &models.ReprocessOutcome{Identity: staleIdentity, Section: "x"}))
	require.NoError(t, manager.KV().Set(ctx, models.PendingDecisionKey(staleIdentity), []byte("{}")))

	config := &common.RetentionConfig{Enabled: true, Schedule: "0 * * * *"}
	service := NewService(config, 24*time.Hour, manager, common.GetLogger())

	removed, err := service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Only the stale anonymous report went away
	_, err = manager.Reports().Get(ctx, staleIdentity)
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
	_, err = manager.Reports().Get(ctx, models.SessionIdentity("live-session"))
	assert.NoError(t, err)
	_, err = manager.Reports().Get(ctx, models.UserIdentity("amy"))
	assert.NoError(t, err)

	// Its edit state went with it
	_, err = manager.Outcomes().Get(ctx, staleIdentity)
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
	_, err = manager.KV().Get(ctx, models.PendingDecisionKey(staleIdentity))
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestStart_InvalidSchedule(t *testing.T) {
	manager, err := badger.NewManager(&common.BadgerConfig{Path: t.TempDir()}, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	config := &common.RetentionConfig{Enabled: true, Schedule: "not a schedule"}
	service := NewService(config, 24*time.Hour, manager, common.GetLogger())
	assert.Error(t, service.Start())
}

func TestStart_Disabled(t *testing.T) {
	config := &common.RetentionConfig{Enabled: false}
	service := NewService(config, 24*time.Hour, nil, common.GetLogger())
	assert.NoError(t, service.Start())
}
