package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/previewlab/surgeon/cmd/previewd/repository"
	"github.com/previewlab/surgeon/common/logger"
	"github.com/previewlab/surgeon/common/models"
)

// ErrInvalidProjectName is returned for blank or oversized project names.
var ErrInvalidProjectName = errors.New("Project name was invalid.")

const (
	maxProjectNameLen   = 80
	revisionHistorySize = 50
)

// ProjectUpserter writes projects.
type ProjectUpserter interface {
	Upsert(ctx context.Context, project *models.Project) error
}

// RevisionLister reads a project's revision history, newest first.
type RevisionLister interface {
	ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Revision, error)
}

// ProjectOverview is a project plus its recent revision history.
type ProjectOverview struct {
	Project   *models.Project            `json:"project"`
	Revisions []*models.RevisionSnapshot `json:"revisions"`
}

// ProjectService covers project reads and creation. Every new project
// starts from the same embedded baseline preview source.
type ProjectService struct {
	projects       ProjectStore
	writer         ProjectUpserter
	revisions      RevisionLister
	baselineSource string
	log            *logger.Logger
}

func NewProjectService(projects ProjectStore, writer ProjectUpserter, revisions RevisionLister, baselineSource string, log *logger.Logger) *ProjectService {
	return &ProjectService{
		projects:       projects,
		writer:         writer,
		revisions:      revisions,
		baselineSource: baselineSource,
		log:            log,
	}
}

// Create provisions a project whose active and baseline sources are the
// seeded preview component.
func (s *ProjectService) Create(ctx context.Context, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxProjectNameLen {
		return nil, ErrInvalidProjectName
	}

	project := &models.Project{
		ID:             uuid.NewString(),
		Name:           name,
		BaselineSource: s.baselineSource,
		ActiveSource:   s.baselineSource,
	}

	if err := s.writer.Upsert(ctx, project); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.log.WithProjectID(project.ID).Info("project created", "name", name)
	return project, nil
}

// GetOverview loads a project together with its recent revisions.
func (s *ProjectService) GetOverview(ctx context.Context, projectID string) (*ProjectOverview, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}

	revs, err := s.revisions.ListByProject(ctx, projectID, revisionHistorySize)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}

	snapshots := make([]*models.RevisionSnapshot, 0, len(revs))
	for _, rev := range revs {
		snapshots = append(snapshots, rev.Snapshot())
	}

	return &ProjectOverview{Project: project, Revisions: snapshots}, nil
}
