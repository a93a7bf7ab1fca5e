package reports

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

// stubAssembler returns a fixed report, optionally blocking until
// released so in-progress states can be observed.
type stubAssembler struct {
	report  *models.Report
	err     error
	release chan struct{}
}

func (a *stubAssembler) Generate(ctx context.Context, identity string, req *models.ReportRequest) (*models.Report, error) {
	if a.release != nil {
		<-a.release
	}
	if a.err != nil {
		return nil, a.err
	}
	report := *a.report
	report.Identity = identity
	return &report, nil
}

func (a *stubAssembler) GenerateSection(ctx context.Context, client interfaces.LLMClient, theme string, section models.SectionSpec, links []string) (models.Section, error) {
	return models.Section{Title: section.Title, Content: "regenerated"}, nil
}

func (a *stubAssembler) RecommendSections(ctx context.Context, req *models.RecommendRequest) ([]models.SectionSpec, error) {
	return nil, nil
}

func testService(t *testing.T, asm interfaces.Assembler) (*Service, interfaces.StorageManager) {
	t.Helper()
	manager, err := badger.NewManager(&common.BadgerConfig{Path: t.TempDir()}, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return NewService(manager, asm, common.GetLogger()), manager
}

func sampleReport() *models.Report {
	return &models.Report{
		Theme: "quantum computing",
		Sections: []models.Section{
			{Title: "History", Content: "early days"},
			{Title: "Hardware", Content: "qubits"},
		},
		Links:     []string{"http://a.example"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func waitForJob(t *testing.T, service *Service, identity string) *models.GenerationJob {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		job, err := service.JobStatus(context.Background(), identity)
		if err == nil && job.Status != models.JobStatusRunning && job.Status != models.JobStatusPending {
			return job
		}
		select {
		case <-deadline:
			t.Fatal("generation job never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStartGeneration_CompletesAndStoresReport(t *testing.T) {
	service, _ := testService(t, &stubAssembler{report: sampleReport()})
	ctx := context.Background()

	require.NoError(t, service.StartGeneration(ctx, "user:amy", &models.ReportRequest{Theme: "quantum computing"}))

	job := waitForJob(t, service, "user:amy")
	assert.Equal(t, models.JobStatusDone, job.Status)

	report, err := service.Get(ctx, "user:amy")
	require.NoError(t, err)
	assert.Equal(t, "quantum computing", report.Theme)
	assert.Len(t, report.Sections, 2)
}

func TestStartGeneration_RejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	service, _ := testService(t, &stubAssembler{report: sampleReport(), release: release})
	ctx := context.Background()

	require.NoError(t, service.StartGeneration(ctx, "user:amy", &models.ReportRequest{}))

	err := service.StartGeneration(ctx, "user:amy", &models.ReportRequest{})
	assert.ErrorIs(t, err, ErrGenerationInProgress)

	// A different identity is unaffected
	require.NoError(t, service.StartGeneration(ctx, "user:bob", &models.ReportRequest{}))

	close(release)
	waitForJob(t, service, "user:amy")
	waitForJob(t, service, "user:bob")
}

func TestStartGeneration_FailureRecordedInJob(t *testing.T) {
	service, _ := testService(t, &stubAssembler{err: &models.ConfigurationError{Reason: "no key"}})
	ctx := context.Background()

	require.NoError(t, service.StartGeneration(ctx, "user:amy", &models.ReportRequest{}))

	job := waitForJob(t, service, "user:amy")
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "no key")

	_, err := service.Get(ctx, "user:amy")
	assert.ErrorIs(t, err, models.ErrReportNotFound)
}

func TestUpdateSection(t *testing.T) {
	service, _ := testService(t, &stubAssembler{})
	ctx := context.Background()

	report := sampleReport()
	report.Identity = "user:amy"
	require.NoError(t, service.Save(ctx, report))

	updated, err := service.UpdateSection(ctx, "user:amy", "History", "rewritten history")
	require.NoError(t, err)
	assert.Equal(t, "rewritten history", updated.Sections[0].Content)
	// The other section is untouched
	assert.Equal(t, "qubits", updated.Sections[1].Content)

	// Persisted, not just returned
	got, err := service.Get(ctx, "user:amy")
	require.NoError(t, err)
	assert.Equal(t, "rewritten history", got.Sections[0].Content)
}

func TestUpdateSection_UnknownSection(t *testing.T) {
	service, _ := testService(t, &stubAssembler{})
	ctx := context.Background()

	report := sampleReport()
	report.Identity = "user:amy"
	require.NoError(t, service.Save(ctx, report))

	_, err := service.UpdateSection(ctx, "user:amy", "Conclusion", "text")
	var notFound *models.SectionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Conclusion", notFound.Section)

	// Report unchanged
	got, err := service.Get(ctx, "user:amy")
	require.NoError(t, err)
	assert.Equal(t, "early days", got.Sections[0].Content)
}

func TestDelete_ClearsAllState(t *testing.T) {
	service, manager := testService(t, &stubAssembler{})
	ctx := context.Background()

	report := sampleReport()
	report.Identity = "user:amy"
	require.NoError(t, service.Save(ctx, report))
	require.NoError(t, manager.Outcomes().Save(ctx, &models.ReprocessOutcome{Identity: "user:amy", Section: "History"}))
	require.NoError(t, manager.KV().Set(ctx, models.PendingDecisionKey("user:amy"), []byte("{}")))

	require.NoError(t, service.Delete(ctx, "user:amy"))

	_, err := service.Get(ctx, "user:amy")
	assert.ErrorIs(t, err, models.ErrReportNotFound)
	_, err = manager.Outcomes().Get(ctx, "user:amy")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
	_, err = manager.KV().Get(ctx, models.PendingDecisionKey("user:amy"))
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	// Deleting again is a no-op, not an error
	assert.NoError(t, service.Delete(ctx, "user:amy"))
}

func TestDelete_NothingStoredSucceeds(t *testing.T) {
	service, _ := testService(t, &stubAssembler{})

	assert.NoError(t, service.Delete(context.Background(), "anon:ghost"))
}

func TestStartGeneration_RecoversStaleJobAfterRestart(t *testing.T) {
	service, manager := testService(t, &stubAssembler{report: sampleReport()})
	ctx := context.Background()

	// A running job left behind by a crashed process: persisted state
	// says running, but no live run exists in this service instance
	require.NoError(t, manager.Jobs().Save(ctx, &models.GenerationJob{
		Identity:  "user:amy",
		Status:    models.JobStatusRunning,
		StartedAt: time.Now().Add(-48 * time.Hour),
	}))

	require.NoError(t, service.StartGeneration(ctx, "user:amy", &models.ReportRequest{Theme: "quantum computing"}))

	job := waitForJob(t, service, "user:amy")
	assert.Equal(t, models.JobStatusDone, job.Status)

	report, err := service.Get(ctx, "user:amy")
	require.NoError(t, err)
	assert.Equal(t, "quantum computing", report.Theme)
}

func TestBeginEdit_RefusedWhileGenerationRuns(t *testing.T) {
	release := make(chan struct{})
	service, _ := testService(t, &stubAssembler{report: sampleReport(), release: release})
	ctx := context.Background()

	require.NoError(t, service.StartGeneration(ctx, "user:amy", &models.ReportRequest{}))

	_, err := service.BeginEdit("user:amy")
	assert.ErrorIs(t, err, ErrGenerationInProgress)

	close(release)
	waitForJob(t, service, "user:amy")

	// The in-flight flag clears just after the job result is recorded
	assert.Eventually(t, func() bool {
		unlock, err := service.BeginEdit("user:amy")
		if err != nil {
			return false
		}
		unlock()
		return true
	}, 2*time.Second, 10*time.Millisecond)
}
