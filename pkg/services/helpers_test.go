package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/auth"
	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/kv"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// testEnv wires every service over an in-memory store.
type testEnv struct {
	repos      *repositories.Repositories
	events     *events.RecordingPublisher
	configs    ScopedConfigService
	resolution ResolutionService
	prompts    PromptService
	comments   CommentService
	catalog    CatalogService
	teams      TeamService
	shares     ShareService
	templates  TemplateService
	seeder     *Seeder
}

// stepClock makes every call to now one second later than the previous one
// so orderings by timestamp are deterministic.
func stepClock(t *testing.T) {
	t.Helper()
	base := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	ticks := 0
	orig := now
	now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}
	t.Cleanup(func() { now = orig })
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stepClock(t)
	logger := zap.NewNop()
	repos := repositories.New(kv.NewMemoryStore())
	pub := &events.RecordingPublisher{}
	prompts := NewPromptService(repos, pub, logger)

	return &testEnv{
		repos:      repos,
		events:     pub,
		configs:    NewScopedConfigService(repos, pub, logger),
		resolution: NewResolutionService(repos, logger),
		prompts:    prompts,
		comments:   NewCommentService(repos, logger),
		catalog:    NewCatalogService(repos, pub, logger),
		teams:      NewTeamService(repos, pub, logger),
		shares:     NewShareService(repos, prompts, pub, logger),
		templates:  NewTemplateService(repos, prompts, logger),
		seeder:     NewSeeder(repos, pub, logger),
	}
}

func userCtx(id, name string) context.Context {
	return auth.WithActor(context.Background(), auth.Actor{ID: id, Name: name})
}

// fixture holds a project with one category and two tags.
type fixture struct {
	project  *models.Project
	category *models.Category
	tagA     *models.Tag
	tagB     *models.Tag
}

func (e *testEnv) fixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	project, err := e.catalog.CreateProject(ctx, ProjectInput{Name: "Acme"})
	require.NoError(t, err)
	category, err := e.catalog.CreateCategory(ctx, CategoryInput{ProjectID: project.ID, Name: "Developer"})
	require.NoError(t, err)
	tagA, err := e.catalog.CreateTag(ctx, TagInput{Name: "alpha"})
	require.NoError(t, err)
	tagB, err := e.catalog.CreateTag(ctx, TagInput{Name: "beta"})
	require.NoError(t, err)

	return fixture{project: project, category: category, tagA: tagA, tagB: tagB}
}

func (e *testEnv) createPrompt(t *testing.T, ctx context.Context, in PromptInput) *models.Prompt {
	t.Helper()
	p, err := e.prompts.CreatePrompt(ctx, in)
	require.NoError(t, err)
	return p
}
