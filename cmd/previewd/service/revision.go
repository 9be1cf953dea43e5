package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/previewlab/surgeon/cmd/previewd/repository"
	"github.com/previewlab/surgeon/common/cache"
	"github.com/previewlab/surgeon/common/checks"
	"github.com/previewlab/surgeon/common/clients"
	"github.com/previewlab/surgeon/common/gate"
	"github.com/previewlab/surgeon/common/logger"
	"github.com/previewlab/surgeon/common/models"
	"github.com/previewlab/surgeon/common/patchtext"
	"github.com/previewlab/surgeon/common/telemetry"
	"github.com/previewlab/surgeon/common/validation"
)

const (
	// RestoreTargetBaseline restores the seeded baseline source.
	RestoreTargetBaseline = "baseline"
	// RestoreTargetRevision restores an applied revision's sourceAfter.
	RestoreTargetRevision = "revision"
)

var scopeBlockedSummary = []string{
	"Blocked a request that reached beyond the approved product-page demo surface.",
}

// RestoreRequest names which saved source should become active again.
type RestoreRequest struct {
	Target     string     `json:"target"`
	RevisionID *uuid.UUID `json:"revision_id,omitempty"`
}

// RestoreResponse reports the restore revision recorded for the action.
type RestoreResponse struct {
	RevisionID    uuid.UUID             `json:"revision_id"`
	Status        models.RevisionStatus `json:"status"`
	Summary       []string              `json:"summary"`
	PatchText     string                `json:"patch_text"`
	BlockedReason *string               `json:"blocked_reason,omitempty"`
	TestStatus    models.TestStatus     `json:"test_status"`
	TestOutput    string                `json:"test_output"`
}

// ReplayResponse carries a dry-run patch application. Nothing is persisted.
type ReplayResponse struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	PatchText   string `json:"patch_text,omitempty"`
	SourceAfter string `json:"source_after,omitempty"`
}

// RevisionService drives a revision through generation, validation,
// behavioral testing and promotion. Per-project mutual exclusion is
// enforced through the gate; promotion is atomic with the project's
// active-source swap.
type RevisionService struct {
	projects    ProjectStore
	revisions   RevisionStore
	generator   clients.Generator
	engine      *patchtext.Engine
	validator   *validation.SourceValidator
	runner      *checks.Runner
	gate        gate.Gate
	cache       cache.Cache
	snapshotTTL time.Duration
	telemetry   *telemetry.Telemetry
	log         *logger.Logger

	wg sync.WaitGroup
}

// Deps collects the service's collaborators. Telemetry may be nil.
type Deps struct {
	Projects    ProjectStore
	Revisions   RevisionStore
	Generator   clients.Generator
	Engine      *patchtext.Engine
	Validator   *validation.SourceValidator
	Runner      *checks.Runner
	Gate        gate.Gate
	Cache       cache.Cache
	SnapshotTTL time.Duration
	Telemetry   *telemetry.Telemetry
	Logger      *logger.Logger
}

func NewRevisionService(deps Deps) *RevisionService {
	return &RevisionService{
		projects:    deps.Projects,
		revisions:   deps.Revisions,
		generator:   deps.Generator,
		engine:      deps.Engine,
		validator:   deps.Validator,
		runner:      deps.Runner,
		gate:        deps.Gate,
		cache:       deps.Cache,
		snapshotTTL: deps.SnapshotTTL,
		telemetry:   deps.Telemetry,
		log:         deps.Logger,
	}
}

// StartSurgery records a pending revision and runs the pipeline in the
// background. The returned snapshot is the polling handle; gate.ErrBusy
// means another revision for the project is still in flight.
func (s *RevisionService) StartSurgery(ctx context.Context, req *models.SurgeryRequest) (*models.RevisionSnapshot, error) {
	project, err := s.projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}

	release, err := s.gate.Acquire(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	rev := &models.Revision{
		ID:           uuid.New(),
		ProjectID:    project.ID,
		Prompt:       req.Prompt,
		PresetKey:    req.PresetKey,
		Summary:      []string{},
		SourceBefore: project.ActiveSource,
		TestStatus:   models.TestNotRun,
		Status:       models.StatusPending,
		RunStage:     models.StageGenerating,
	}

	if err := s.revisions.Create(ctx, rev); err != nil {
		release()
		return nil, fmt.Errorf("creating revision: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()
		s.ExecuteRevision(context.Background(), rev, req)
	}()

	return rev.Snapshot(), nil
}

// Wait blocks until all in-flight revision pipelines have finished.
// Used during graceful shutdown.
func (s *RevisionService) Wait() {
	s.wg.Wait()
}

// ExecuteRevision runs the admission pipeline for an already-created
// pending revision, mutating and persisting it at each stage boundary.
func (s *RevisionService) ExecuteRevision(ctx context.Context, rev *models.Revision, req *models.SurgeryRequest) (out *models.Revision) {
	start := time.Now()
	log := s.log.WithProjectID(rev.ProjectID).WithRevisionID(rev.ID.String())
	currentSource := rev.SourceBefore

	defer func() {
		if s.telemetry != nil {
			s.telemetry.RecordDuration("revision_pipeline", start)
		}
	}()

	// The pipeline runs untrusted generated code; any fault that escapes a
	// collaborator must land as a failed revision, never take the process
	// down or strand the revision in pending.
	defer func() {
		if r := recover(); r != nil {
			log.Error("revision pipeline panicked", "panic", r)
			out = s.failRevision(ctx, rev, fmt.Sprintf("%v", r), log)
		}
	}()

	if scope := validation.ValidateRequestedScope(req.Prompt); !scope.OK {
		rev.RunStage = models.StageValidating
		rev.Summary = append([]string(nil), scopeBlockedSummary...)
		return s.blockRevision(ctx, rev, scope.Reason, log)
	}

	resp, err := s.generator.GeneratePatch(ctx, currentSource, req)
	if err != nil {
		log.Error("patch generation failed", "error", err)
		return s.failRevision(ctx, rev, err.Error(), log)
	}

	rev.Summary = models.SanitizeSummary(resp.Summary)
	rev.PatchText = s.engine.CreatePatch(currentSource, resp.SourceAfter)
	rev.RunStage = models.StageValidating
	rev.SourceAfter = &resp.SourceAfter

	if res := s.validator.ValidateGeneratedEdit(currentSource, resp); !res.OK {
		return s.blockRevision(ctx, rev, res.Reason, log)
	}
	if res := s.engine.ValidatePatch(rev.PatchText); !res.OK {
		return s.blockRevision(ctx, rev, res.Reason, log)
	}

	applied, res := s.engine.ApplyPatch(currentSource, rev.PatchText)
	if !res.OK {
		return s.failRevision(ctx, rev, res.Reason, log)
	}
	if applied != resp.SourceAfter {
		return s.failRevision(ctx, rev, models.ReasonReplayMismatch, log)
	}

	rev.RunStage = models.StageTesting
	rev.SourceAfter = &applied
	s.persist(ctx, rev, log)

	status, output := s.runner.Run(applied)
	rev.TestStatus = status
	rev.TestOutput = output

	if status == models.TestFailed {
		log.Warn("behavioral checks failed", "output", output)
		rev.Status = models.StatusFailed
		s.persist(ctx, rev, log)
		s.recordOutcome(rev)
		return rev
	}

	rev.RunStage = models.StageApplying
	s.persist(ctx, rev, log)

	if err := s.revisions.Promote(ctx, rev, applied); err != nil {
		log.Error("promotion failed", "error", err)
		return s.failRevision(ctx, rev, fmt.Sprintf("Failed to promote revision: %v.", err), log)
	}

	rev.Status = models.StatusApplied
	rev.RunStage = models.StageComplete
	if s.cache != nil {
		_ = s.cache.Delete(ctx, snapshotCacheKey(rev.ProjectID, rev.ID))
	}
	log.Info("revision applied", "stage", rev.RunStage, "changed_lines", patchtext.CountChangedLines(currentSource, applied))
	s.recordOutcome(rev)
	return rev
}

// GetRevisionSnapshot returns the polling view of a revision, served from
// a short-lived cache to absorb tight polling loops.
func (s *RevisionService) GetRevisionSnapshot(ctx context.Context, projectID string, revisionID uuid.UUID) (*models.RevisionSnapshot, error) {
	key := snapshotCacheKey(projectID, revisionID)

	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var snap models.RevisionSnapshot
			if err := json.Unmarshal(raw, &snap); err == nil {
				return &snap, nil
			}
		}
	}

	rev, err := s.revisions.GetByProjectAndID(ctx, projectID, revisionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRevisionNotFound
		}
		return nil, fmt.Errorf("loading revision: %w", err)
	}

	snap := rev.Snapshot()
	if s.cache != nil {
		if raw, err := json.Marshal(snap); err == nil {
			_ = s.cache.Set(ctx, key, raw, s.snapshotTTL)
		}
	}
	return snap, nil
}

// RestoreProject swaps the project's active source back to the baseline
// or to an applied revision's result, recording the action as a new
// revision that runs through the same patch and test machinery.
func (s *RevisionService) RestoreProject(ctx context.Context, projectID string, req *RestoreRequest) (*RestoreResponse, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}

	release, err := s.gate.Acquire(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	log := s.log.WithProjectID(projectID)

	var targetSource, prompt string
	var summary []string

	if req.Target == RestoreTargetBaseline {
		targetSource = project.BaselineSource
		prompt = "Restore the original product page version."
		summary = []string{
			"Restored the original seeded product page.",
			"Created a new revision entry for the restore action.",
		}
	} else {
		if req.RevisionID == nil {
			return nil, ErrRevisionNotFound
		}
		target, err := s.revisions.GetByProjectAndID(ctx, projectID, *req.RevisionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrRevisionNotFound
			}
			return nil, fmt.Errorf("loading revision: %w", err)
		}
		if target.Status != models.StatusApplied || target.SourceAfter == nil {
			return nil, ErrNotRestorable
		}
		targetSource = *target.SourceAfter
		prompt = fmt.Sprintf("Restore the saved version from %s.", target.CreatedAt.Format("Jan 2, 2006 3:04 PM"))
		summary = []string{
			"Restored a previously approved product page version.",
			"Created a new revision entry for the restore action.",
		}
	}

	if strings.TrimSpace(project.ActiveSource) == strings.TrimSpace(targetSource) {
		return nil, ErrAlreadyActive
	}

	patchText := s.engine.CreatePatch(project.ActiveSource, targetSource)

	if res := s.engine.ValidatePatch(patchText); !res.OK {
		return s.recordFailedRestore(ctx, project, prompt, summary, patchText, targetSource, models.StageValidating, res.Reason, log)
	}

	applied, res := s.engine.ApplyPatch(project.ActiveSource, patchText)
	if !res.OK {
		return s.recordFailedRestore(ctx, project, prompt, summary, patchText, targetSource, models.StageValidating, res.Reason, log)
	}
	if applied != targetSource {
		return s.recordFailedRestore(ctx, project, prompt, summary, patchText, targetSource, models.StageValidating, models.ReasonReplayMismatch, log)
	}

	status, output := s.runner.Run(applied)
	if status == models.TestFailed {
		rev := s.restoreRevision(project, prompt, summary, patchText, applied)
		rev.RunStage = models.StageTesting
		rev.Status = models.StatusFailed
		rev.TestStatus = models.TestFailed
		rev.TestOutput = output
		if err := s.revisions.Create(ctx, rev); err != nil {
			return nil, fmt.Errorf("recording restore revision: %w", err)
		}
		return restoreResponse(rev), nil
	}

	rev := s.restoreRevision(project, prompt, summary, patchText, applied)
	rev.RunStage = models.StageComplete
	rev.Status = models.StatusApplied
	rev.TestStatus = models.TestPassed
	rev.TestOutput = output

	if err := s.revisions.CreateApplied(ctx, rev, applied); err != nil {
		return nil, fmt.Errorf("applying restore revision: %w", err)
	}

	log.Info("project restored", "target", req.Target, "revision_id", rev.ID)
	return restoreResponse(rev), nil
}

// ReplayRevisionPatch re-applies an applied revision's stored diff to the
// project's current active source without persisting anything.
func (s *RevisionService) ReplayRevisionPatch(ctx context.Context, projectID string, revisionID uuid.UUID) (*ReplayResponse, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}

	rev, err := s.revisions.GetByProjectAndID(ctx, projectID, revisionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRevisionNotFound
		}
		return nil, fmt.Errorf("loading revision: %w", err)
	}

	if rev.Status != models.StatusApplied || rev.PatchText == "" {
		return nil, ErrNotReplayable
	}

	if res := s.engine.ValidatePatch(rev.PatchText); !res.OK {
		return &ReplayResponse{OK: false, Error: res.Reason}, nil
	}

	applied, res := s.engine.ApplyPatch(project.ActiveSource, rev.PatchText)
	if !res.OK {
		return &ReplayResponse{OK: false, Error: res.Reason}, nil
	}

	return &ReplayResponse{OK: true, PatchText: rev.PatchText, SourceAfter: applied}, nil
}

func (s *RevisionService) restoreRevision(project *models.Project, prompt string, summary []string, patchText, sourceAfter string) *models.Revision {
	after := sourceAfter
	return &models.Revision{
		ID:           uuid.New(),
		ProjectID:    project.ID,
		Prompt:       prompt,
		Summary:      summary,
		PatchText:    patchText,
		SourceBefore: project.ActiveSource,
		SourceAfter:  &after,
	}
}

func (s *RevisionService) recordFailedRestore(ctx context.Context, project *models.Project, prompt string, summary []string, patchText, targetSource string, stage models.RunStage, reason string, log *logger.Logger) (*RestoreResponse, error) {
	rev := s.restoreRevision(project, prompt, summary, patchText, targetSource)
	rev.RunStage = stage
	rev.Status = models.StatusFailed
	rev.BlockedReason = &reason
	rev.TestStatus = models.TestFailed
	rev.TestOutput = reason

	if err := s.revisions.Create(ctx, rev); err != nil {
		return nil, fmt.Errorf("recording restore revision: %w", err)
	}

	log.Warn("restore rejected", "reason", reason)
	return restoreResponse(rev), nil
}

func restoreResponse(rev *models.Revision) *RestoreResponse {
	return &RestoreResponse{
		RevisionID:    rev.ID,
		Status:        rev.Status,
		Summary:       rev.Summary,
		PatchText:     rev.PatchText,
		BlockedReason: rev.BlockedReason,
		TestStatus:    rev.TestStatus,
		TestOutput:    rev.TestOutput,
	}
}

func (s *RevisionService) blockRevision(ctx context.Context, rev *models.Revision, reason string, log *logger.Logger) *models.Revision {
	rev.Status = models.StatusBlocked
	rev.BlockedReason = &reason
	log.Warn("revision blocked", "stage", rev.RunStage, "reason", reason)
	s.persist(ctx, rev, log)
	s.recordOutcome(rev)
	return rev
}

func (s *RevisionService) failRevision(ctx context.Context, rev *models.Revision, reason string, log *logger.Logger) *models.Revision {
	rev.Status = models.StatusFailed
	rev.TestStatus = models.TestFailed
	rev.TestOutput = reason
	log.Warn("revision failed", "stage", rev.RunStage, "reason", reason)
	s.persist(ctx, rev, log)
	s.recordOutcome(rev)
	return rev
}

func (s *RevisionService) persist(ctx context.Context, rev *models.Revision, log *logger.Logger) {
	if err := s.revisions.Update(ctx, rev); err != nil {
		log.Error("persisting revision state", "stage", rev.RunStage, "error", err)
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, snapshotCacheKey(rev.ProjectID, rev.ID))
	}
}

func (s *RevisionService) recordOutcome(rev *models.Revision) {
	if s.telemetry == nil {
		return
	}
	s.telemetry.RecordStageOutcome(string(rev.RunStage), string(rev.Status), map[string]any{
		"project_id":  rev.ProjectID,
		"revision_id": rev.ID.String(),
	})
}

func snapshotCacheKey(projectID string, revisionID uuid.UUID) string {
	return "snapshot:" + projectID + ":" + revisionID.String()
}
