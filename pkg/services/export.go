package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/export"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// ExportFile is a rendered export ready to download.
type ExportFile struct {
	Filename string `json:"filename"`
	Data     []byte `json:"-"`
	// Location is set when the export was archived.
	Location string `json:"location,omitempty"`
	Prompts  int    `json:"prompts"`
}

// ExportService renders prompts as portable JSON documents.
type ExportService interface {
	ExportPrompt(ctx context.Context, promptID string) (*ExportFile, error)
	// ExportAll renders every prompt. With archive set the document is also
	// uploaded to the configured archive.
	ExportAll(ctx context.Context, archive bool) (*ExportFile, error)
}

type exportService struct {
	repos     *repositories.Repositories
	archiver  export.Archiver
	publisher events.Publisher
	logger    *zap.Logger
}

// NewExportService creates the service. archiver may be nil when archiving
// is not configured.
func NewExportService(repos *repositories.Repositories, archiver export.Archiver, publisher events.Publisher, logger *zap.Logger) ExportService {
	return &exportService{repos: repos, archiver: archiver, publisher: publisher, logger: logger.Named("export")}
}

var _ ExportService = (*exportService)(nil)

func (s *exportService) catalog(ctx context.Context) (*export.Catalog, error) {
	var (
		c   export.Catalog
		err error
	)
	if c.Prompts, err = s.repos.Prompts.List(ctx); err != nil {
		return nil, err
	}
	if c.Versions, err = s.repos.Versions.List(ctx); err != nil {
		return nil, err
	}
	if c.Projects, err = s.repos.Projects.List(ctx); err != nil {
		return nil, err
	}
	if c.Categories, err = s.repos.Categories.List(ctx); err != nil {
		return nil, err
	}
	if c.Tags, err = s.repos.Tags.List(ctx); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *exportService) ExportPrompt(ctx context.Context, promptID string) (*ExportFile, error) {
	p, err := s.repos.Prompts.Get(ctx, promptID)
	if err != nil {
		return nil, err
	}
	c, err := s.catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load export catalog: %w", err)
	}

	data, err := export.Marshal(export.BuildPromptDocument(c, p))
	if err != nil {
		return nil, err
	}
	return &ExportFile{Filename: export.PromptFilename(p.Title, now()), Data: data, Prompts: 1}, nil
}

func (s *exportService) ExportAll(ctx context.Context, archive bool) (*ExportFile, error) {
	c, err := s.catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load export catalog: %w", err)
	}

	ts := now()
	data, err := export.Marshal(export.BuildFullDocument(c, ts))
	if err != nil {
		return nil, err
	}
	file := &ExportFile{Filename: export.FullFilename(ts), Data: data, Prompts: len(c.Prompts)}

	if archive {
		if s.archiver == nil {
			return nil, fmt.Errorf("export archive not configured: %w", apperrors.ErrUnavailable)
		}
		if file.Location, err = s.archiver.Archive(ctx, file.Filename, data); err != nil {
			return nil, fmt.Errorf("archive export: %w", err)
		}
	}

	s.logger.Info("Export completed",
		zap.String("filename", file.Filename),
		zap.Int("prompts", file.Prompts),
		zap.String("location", file.Location))
	publish(ctx, s.publisher, s.logger, events.TopicExportCompleted, events.ExportCompleted{
		Filename: file.Filename,
		Location: file.Location,
		Prompts:  file.Prompts,
	})
	return file, nil
}
