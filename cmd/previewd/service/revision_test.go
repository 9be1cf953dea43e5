package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/previewlab/surgeon/cmd/previewd/repository"
	"github.com/previewlab/surgeon/common/checks"
	"github.com/previewlab/surgeon/common/clients"
	"github.com/previewlab/surgeon/common/gate"
	"github.com/previewlab/surgeon/common/logger"
	"github.com/previewlab/surgeon/common/models"
	"github.com/previewlab/surgeon/common/patchtext"
	"github.com/previewlab/surgeon/common/validation"
)

const baselineSource = `export default function ProductPreview() {
  return (
    <section aria-label="Product preview" className="rounded-xl border bg-white p-6 shadow">
      <h2 className="text-xl font-bold">Linen resort shirt</h2>
      <p className="text-sm">Lightweight linen for warm weekends.</p>
      <button className="rounded-full bg-black px-4 py-2 text-white">Add to cart</button>
    </section>
  );
}
`

const allChecksPassed = "4 checks passed: component compiled, preview landmark preserved, action controls present, styled structure preserved."

// memStore backs both store interfaces for pipeline tests.
type memStore struct {
	mu        sync.Mutex
	projects  map[string]*models.Project
	revisions map[uuid.UUID]*models.Revision
}

func newMemStore() *memStore {
	return &memStore{
		projects:  make(map[string]*models.Project),
		revisions: make(map[uuid.UUID]*models.Revision),
	}
}

func (m *memStore) addProject(p *models.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
}

func (m *memStore) GetByID(_ context.Context, projectID string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, rev *models.Revision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now()
		rev.UpdatedAt = rev.CreatedAt
	}
	cp := *rev
	m.revisions[rev.ID] = &cp
	return nil
}

func (m *memStore) GetByProjectAndID(_ context.Context, projectID string, revisionID uuid.UUID) (*models.Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rev, ok := m.revisions[revisionID]
	if !ok || rev.ProjectID != projectID {
		return nil, repository.ErrNotFound
	}
	cp := *rev
	return &cp, nil
}

func (m *memStore) Update(_ context.Context, rev *models.Revision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.revisions[rev.ID]; !ok {
		return repository.ErrNotFound
	}
	rev.UpdatedAt = time.Now()
	cp := *rev
	m.revisions[rev.ID] = &cp
	return nil
}

func (m *memStore) Promote(_ context.Context, rev *models.Revision, activeSource string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.revisions[rev.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = models.StatusApplied
	stored.RunStage = models.StageComplete
	stored.TestStatus = rev.TestStatus
	stored.TestOutput = rev.TestOutput
	m.projects[rev.ProjectID].ActiveSource = activeSource
	return nil
}

func (m *memStore) CreateApplied(_ context.Context, rev *models.Revision, activeSource string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now()
		rev.UpdatedAt = rev.CreatedAt
	}
	cp := *rev
	m.revisions[rev.ID] = &cp
	m.projects[rev.ProjectID].ActiveSource = activeSource
	return nil
}

func (m *memStore) revision(t *testing.T, id uuid.UUID) *models.Revision {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	rev, ok := m.revisions[id]
	if !ok {
		t.Fatalf("revision %s not stored", id)
	}
	cp := *rev
	return &cp
}

func (m *memStore) activeSource(projectID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projects[projectID].ActiveSource
}

func newTestService(t *testing.T, store *memStore) *RevisionService {
	t.Helper()
	runner, err := checks.NewRunner(checks.DefaultBattery())
	if err != nil {
		t.Fatalf("building check runner: %v", err)
	}
	log := logger.New("error", "json")
	return NewRevisionService(Deps{
		Projects:  store,
		Revisions: store,
		Generator: clients.NewFallbackGenerator(),
		Engine:    patchtext.NewEngine(patchtext.AllowedPreviewPath, patchtext.DefaultMaxChangedLines),
		Validator: validation.NewSourceValidator(patchtext.AllowedPreviewPath, patchtext.DefaultMaxChangedLines),
		Runner:    runner,
		Gate:      gate.NewMemoryGate(),
		Logger:    log,
	})
}

func seedProject(store *memStore) *models.Project {
	p := &models.Project{
		ID:             "proj-1",
		Name:           "Spring Conversion Refresh",
		BaselineSource: baselineSource,
		ActiveSource:   baselineSource,
	}
	store.addProject(p)
	return p
}

func TestStartSurgeryAppliesRevision(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	snap, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Make the buy button feel more urgent",
	})
	if err != nil {
		t.Fatalf("StartSurgery: %v", err)
	}
	if snap.Status != models.StatusPending || snap.RunStage != models.StageGenerating {
		t.Fatalf("unexpected initial snapshot: %s/%s", snap.Status, snap.RunStage)
	}

	svc.Wait()

	rev := store.revision(t, snap.RevisionID)
	if rev.Status != models.StatusApplied {
		t.Fatalf("status = %s, want applied (output: %s)", rev.Status, rev.TestOutput)
	}
	if rev.RunStage != models.StageComplete {
		t.Fatalf("run stage = %s, want complete", rev.RunStage)
	}
	if rev.TestStatus != models.TestPassed {
		t.Fatalf("test status = %s", rev.TestStatus)
	}
	if rev.TestOutput != allChecksPassed {
		t.Fatalf("test output = %q", rev.TestOutput)
	}
	if rev.PatchText == "" || !strings.Contains(rev.PatchText, "@@") {
		t.Fatalf("expected a unified diff, got %q", rev.PatchText)
	}
	if active := store.activeSource("proj-1"); !strings.Contains(active, "Sticky mobile buy bar") {
		t.Fatalf("active source was not promoted")
	}
}

func TestStartSurgeryBlocksForbiddenScope(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	snap, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Rewrite the checkout flow to skip payment",
	})
	if err != nil {
		t.Fatalf("StartSurgery: %v", err)
	}
	svc.Wait()

	rev := store.revision(t, snap.RevisionID)
	if rev.Status != models.StatusBlocked {
		t.Fatalf("status = %s, want blocked", rev.Status)
	}
	if rev.RunStage != models.StageValidating {
		t.Fatalf("run stage = %s, want validating", rev.RunStage)
	}
	if rev.BlockedReason == nil || *rev.BlockedReason != models.ReasonForbiddenScope {
		t.Fatalf("blocked reason = %v", rev.BlockedReason)
	}
	if len(rev.Summary) != 1 || !strings.Contains(rev.Summary[0], "Blocked a request") {
		t.Fatalf("summary = %v", rev.Summary)
	}
	if store.activeSource("proj-1") != baselineSource {
		t.Fatalf("active source changed on blocked revision")
	}
}

func TestStartSurgeryBlocksForbiddenFile(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	// Trips the generator's forbidden-topic fallback without matching the
	// scope gate, so the static validator has to catch it.
	snap, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Show what is inside the cart today",
	})
	if err != nil {
		t.Fatalf("StartSurgery: %v", err)
	}
	svc.Wait()

	rev := store.revision(t, snap.RevisionID)
	if rev.Status != models.StatusBlocked {
		t.Fatalf("status = %s, want blocked", rev.Status)
	}
	if rev.BlockedReason == nil || *rev.BlockedReason != models.ReasonForbiddenFile {
		t.Fatalf("blocked reason = %v", rev.BlockedReason)
	}
	if store.activeSource("proj-1") != baselineSource {
		t.Fatalf("active source changed on blocked revision")
	}
}

type stubGenerator struct {
	resp *models.PatchResponse
}

func (g *stubGenerator) GeneratePatch(_ context.Context, _ string, _ *models.SurgeryRequest) (*models.PatchResponse, error) {
	return g.resp, nil
}

func TestStartSurgeryFailsBehavioralChecks(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	// Statically valid but strips the landmark, buttons, and styling.
	svc.generator = &stubGenerator{resp: &models.PatchResponse{
		Summary:      []string{"Stripped the preview down."},
		SourceAfter:  "export default function ProductPreview() {\n  return <div>Linen resort shirt</div>;\n}\n",
		FilesTouched: []string{patchtext.AllowedPreviewPath},
	}}

	snap, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Simplify the layout",
	})
	if err != nil {
		t.Fatalf("StartSurgery: %v", err)
	}
	svc.Wait()

	rev := store.revision(t, snap.RevisionID)
	if rev.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", rev.Status)
	}
	if rev.RunStage != models.StageTesting {
		t.Fatalf("run stage = %s, want testing", rev.RunStage)
	}
	if rev.TestStatus != models.TestFailed {
		t.Fatalf("test status = %s", rev.TestStatus)
	}
	if len(strings.Split(rev.TestOutput, "\n")) != 3 {
		t.Fatalf("expected all three failure lines, got %q", rev.TestOutput)
	}
	if store.activeSource("proj-1") != baselineSource {
		t.Fatalf("active source changed on failed revision")
	}
}

func TestStartSurgeryProjectNotFound(t *testing.T) {
	svc := newTestService(t, newMemStore())

	_, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "missing",
		Prompt:    "Brighten the hero",
	})
	if err != ErrProjectNotFound {
		t.Fatalf("err = %v, want ErrProjectNotFound", err)
	}
}

func TestStartSurgeryRejectsConcurrentRuns(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	release, err := svc.gate.Acquire(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("priming gate: %v", err)
	}
	defer release()

	_, err = svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Brighten the hero",
	})
	if err != gate.ErrBusy {
		t.Fatalf("err = %v, want gate.ErrBusy", err)
	}
}

func TestGetRevisionSnapshot(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	snap, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Add trust badges near the price",
	})
	if err != nil {
		t.Fatalf("StartSurgery: %v", err)
	}
	svc.Wait()

	got, err := svc.GetRevisionSnapshot(context.Background(), "proj-1", snap.RevisionID)
	if err != nil {
		t.Fatalf("GetRevisionSnapshot: %v", err)
	}
	if got.Status != models.StatusApplied {
		t.Fatalf("snapshot status = %s", got.Status)
	}

	if _, err := svc.GetRevisionSnapshot(context.Background(), "proj-1", uuid.New()); err != ErrRevisionNotFound {
		t.Fatalf("err = %v, want ErrRevisionNotFound", err)
	}
	if _, err := svc.GetRevisionSnapshot(context.Background(), "other", snap.RevisionID); err != ErrRevisionNotFound {
		t.Fatalf("cross-project lookup err = %v, want ErrRevisionNotFound", err)
	}
}

func TestRestoreProjectBaseline(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	snap, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Add a sticky mobile buy bar",
	})
	if err != nil {
		t.Fatalf("StartSurgery: %v", err)
	}
	svc.Wait()
	if store.revision(t, snap.RevisionID).Status != models.StatusApplied {
		t.Fatalf("setup surgery did not apply")
	}

	resp, err := svc.RestoreProject(context.Background(), "proj-1", &RestoreRequest{Target: RestoreTargetBaseline})
	if err != nil {
		t.Fatalf("RestoreProject: %v", err)
	}
	if resp.Status != models.StatusApplied {
		t.Fatalf("restore status = %s (output: %s)", resp.Status, resp.TestOutput)
	}
	if resp.TestStatus != models.TestPassed {
		t.Fatalf("restore test status = %s", resp.TestStatus)
	}
	if store.activeSource("proj-1") != baselineSource {
		t.Fatalf("active source not restored to baseline")
	}

	rev := store.revision(t, resp.RevisionID)
	if rev.Prompt != "Restore the original product page version." {
		t.Fatalf("restore prompt = %q", rev.Prompt)
	}

	if _, err := svc.RestoreProject(context.Background(), "proj-1", &RestoreRequest{Target: RestoreTargetBaseline}); err != ErrAlreadyActive {
		t.Fatalf("err = %v, want ErrAlreadyActive", err)
	}
}

func TestRestoreProjectRevisionTarget(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	snap, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Add a sticky mobile buy bar",
	})
	if err != nil {
		t.Fatalf("StartSurgery: %v", err)
	}
	svc.Wait()
	applied := store.revision(t, snap.RevisionID)
	if applied.Status != models.StatusApplied {
		t.Fatalf("setup surgery did not apply")
	}

	if _, err := svc.RestoreProject(context.Background(), "proj-1", &RestoreRequest{Target: RestoreTargetBaseline}); err != nil {
		t.Fatalf("restoring baseline: %v", err)
	}

	id := applied.ID
	resp, err := svc.RestoreProject(context.Background(), "proj-1", &RestoreRequest{Target: RestoreTargetRevision, RevisionID: &id})
	if err != nil {
		t.Fatalf("RestoreProject: %v", err)
	}
	if resp.Status != models.StatusApplied {
		t.Fatalf("restore status = %s (output: %s)", resp.Status, resp.TestOutput)
	}
	if active := store.activeSource("proj-1"); !strings.Contains(active, "Sticky mobile buy bar") {
		t.Fatalf("active source not restored to revision result")
	}
	if !strings.HasPrefix(store.revision(t, resp.RevisionID).Prompt, "Restore the saved version from ") {
		t.Fatalf("restore prompt = %q", store.revision(t, resp.RevisionID).Prompt)
	}
}

func TestRestoreProjectRejectsUnreadyRevision(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	failed := &models.Revision{
		ID:           uuid.New(),
		ProjectID:    "proj-1",
		Prompt:       "Bad attempt",
		Summary:      []string{},
		SourceBefore: baselineSource,
		Status:       models.StatusFailed,
		RunStage:     models.StageValidating,
		TestStatus:   models.TestFailed,
	}
	if err := store.Create(context.Background(), failed); err != nil {
		t.Fatalf("seeding revision: %v", err)
	}

	id := failed.ID
	_, err := svc.RestoreProject(context.Background(), "proj-1", &RestoreRequest{Target: RestoreTargetRevision, RevisionID: &id})
	if err != ErrNotRestorable {
		t.Fatalf("err = %v, want ErrNotRestorable", err)
	}

	missing := uuid.New()
	_, err = svc.RestoreProject(context.Background(), "proj-1", &RestoreRequest{Target: RestoreTargetRevision, RevisionID: &missing})
	if err != ErrRevisionNotFound {
		t.Fatalf("err = %v, want ErrRevisionNotFound", err)
	}
}

func TestReplayRevisionPatch(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	snap, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Add a sticky mobile buy bar",
	})
	if err != nil {
		t.Fatalf("StartSurgery: %v", err)
	}
	svc.Wait()
	applied := store.revision(t, snap.RevisionID)
	if applied.Status != models.StatusApplied {
		t.Fatalf("setup surgery did not apply")
	}

	// Replay only lines up against the source the patch was cut from.
	if _, err := svc.RestoreProject(context.Background(), "proj-1", &RestoreRequest{Target: RestoreTargetBaseline}); err != nil {
		t.Fatalf("restoring baseline: %v", err)
	}

	resp, err := svc.ReplayRevisionPatch(context.Background(), "proj-1", applied.ID)
	if err != nil {
		t.Fatalf("ReplayRevisionPatch: %v", err)
	}
	if !resp.OK {
		t.Fatalf("replay rejected: %s", resp.Error)
	}
	if resp.PatchText != applied.PatchText {
		t.Fatalf("replay returned a different patch")
	}
	if !strings.Contains(resp.SourceAfter, "Sticky mobile buy bar") {
		t.Fatalf("replay result missing expected content")
	}
	if store.activeSource("proj-1") != baselineSource {
		t.Fatalf("replay must not persist anything")
	}
}

type panicGenerator struct{}

func (panicGenerator) GeneratePatch(_ context.Context, _ string, _ *models.SurgeryRequest) (*models.PatchResponse, error) {
	panic("codex transport wedged")
}

func TestStartSurgerySurvivesPipelinePanic(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)
	svc.generator = panicGenerator{}

	snap, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Brighten the hero",
	})
	if err != nil {
		t.Fatalf("StartSurgery: %v", err)
	}
	svc.Wait()

	rev := store.revision(t, snap.RevisionID)
	if rev.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", rev.Status)
	}
	if rev.TestStatus != models.TestFailed {
		t.Fatalf("test status = %s, want failed", rev.TestStatus)
	}
	if !strings.Contains(rev.TestOutput, "codex transport wedged") {
		t.Fatalf("test output = %q, want the fault message", rev.TestOutput)
	}
	if store.activeSource("proj-1") != baselineSource {
		t.Fatalf("active source changed on failed revision")
	}

	// The project gate must come back even when the pipeline blows up.
	release, err := svc.gate.Acquire(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("gate still held after panic: %v", err)
	}
	release()
}

func TestReplayRejectsStalePatch(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	snap, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Add a sticky mobile buy bar",
	})
	if err != nil {
		t.Fatalf("StartSurgery: %v", err)
	}
	svc.Wait()
	applied := store.revision(t, snap.RevisionID)
	if applied.Status != models.StatusApplied {
		t.Fatalf("setup surgery did not apply")
	}

	if _, err := svc.RestoreProject(context.Background(), "proj-1", &RestoreRequest{Target: RestoreTargetBaseline}); err != nil {
		t.Fatalf("restoring baseline: %v", err)
	}

	// A later revision drifts the active source away from what the saved
	// patch was cut against.
	drifted := strings.Replace(baselineSource,
		"Lightweight linen for warm weekends.",
		"Breathable linen, cut for warm weekends.", 1)
	svc.generator = &stubGenerator{resp: &models.PatchResponse{
		Summary:      []string{"Refreshed the product copy."},
		SourceAfter:  drifted,
		FilesTouched: []string{patchtext.AllowedPreviewPath},
	}}
	second, err := svc.StartSurgery(context.Background(), &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Refresh the product copy",
	})
	if err != nil {
		t.Fatalf("StartSurgery: %v", err)
	}
	svc.Wait()
	if store.revision(t, second.RevisionID).Status != models.StatusApplied {
		t.Fatalf("drift surgery did not apply")
	}

	resp, err := svc.ReplayRevisionPatch(context.Background(), "proj-1", applied.ID)
	if err != nil {
		t.Fatalf("ReplayRevisionPatch: %v", err)
	}
	if resp.OK {
		t.Fatalf("stale replay reported ok")
	}
	if resp.Error != models.ReasonPatchStale {
		t.Fatalf("replay error = %q, want %q", resp.Error, models.ReasonPatchStale)
	}
	if store.activeSource("proj-1") != drifted {
		t.Fatalf("stale replay touched the active source")
	}
}

func TestReplayRejectsUnreadyRevision(t *testing.T) {
	store := newMemStore()
	seedProject(store)
	svc := newTestService(t, store)

	blocked := &models.Revision{
		ID:           uuid.New(),
		ProjectID:    "proj-1",
		Prompt:       "Bad attempt",
		Summary:      []string{},
		SourceBefore: baselineSource,
		Status:       models.StatusBlocked,
		RunStage:     models.StageValidating,
	}
	if err := store.Create(context.Background(), blocked); err != nil {
		t.Fatalf("seeding revision: %v", err)
	}

	if _, err := svc.ReplayRevisionPatch(context.Background(), "proj-1", blocked.ID); err != ErrNotReplayable {
		t.Fatalf("err = %v, want ErrNotReplayable", err)
	}
	if _, err := svc.ReplayRevisionPatch(context.Background(), "missing", blocked.ID); err != ErrProjectNotFound {
		t.Fatalf("err = %v, want ErrProjectNotFound", err)
	}
}
