package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/events"
)

func TestShareService_CreateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := userCtx("ada", "Ada")
	fx := env.fixture(t)

	p := env.createPrompt(t, ctx, PromptInput{Title: "Public", Content: "hi", ProjectID: fx.project.ID})

	share, err := env.shares.CreateShare(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, share.ShareToken, shareTokenLength)
	assert.Equal(t, "ada", share.CreatedBy)

	again, err := env.shares.CreateShare(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, share.ShareToken, again.ShareToken)

	found, err := env.shares.GetShareForPrompt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, share.ShareToken, found.ShareToken)

	created := 0
	for _, topic := range env.events.Topics() {
		if topic == events.TopicShareCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)

	_, err = env.shares.CreateShare(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestShareService_SharedView(t *testing.T) {
	env := newTestEnv(t)
	ctx := userCtx("ada", "Ada")
	fx := env.fixture(t)

	p := env.createPrompt(t, ctx, PromptInput{
		Title:      "Public",
		Content:    "v1",
		ProjectID:  fx.project.ID,
		CategoryID: fx.category.ID,
		Tags:       []string{fx.tagB.ID},
	})
	_, err := env.prompts.UpdatePrompt(ctx, p.ID, PromptInput{
		Title:      "Public",
		Content:    "v2",
		ProjectID:  fx.project.ID,
		CategoryID: fx.category.ID,
		Tags:       []string{fx.tagB.ID},
	})
	require.NoError(t, err)

	share, err := env.shares.CreateShare(ctx, p.ID)
	require.NoError(t, err)

	// Viewing a share needs no identity.
	view, err := env.shares.GetSharedView(context.Background(), share.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, "Public", view.Prompt.Title)
	assert.Equal(t, "Acme", view.ProjectName)
	assert.Equal(t, "Developer", view.CategoryName)
	assert.Equal(t, []string{"beta"}, view.TagNames)
	require.NotNil(t, view.LatestVersion)
	assert.Equal(t, 2, view.LatestVersion.VersionNumber)
	assert.Equal(t, "ada", view.SharedBy)
}

func TestShareService_Revoke(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fx := env.fixture(t)

	p := env.createPrompt(t, ctx, PromptInput{Title: "Public", ProjectID: fx.project.ID})
	share, err := env.shares.CreateShare(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, env.shares.RevokeShare(ctx, share.ShareToken))

	_, err = env.shares.GetSharedView(ctx, share.ShareToken)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = env.shares.GetShareForPrompt(ctx, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, env.shares.RevokeShare(ctx, share.ShareToken), apperrors.ErrNotFound)

	// A new share gets a fresh token.
	fresh, err := env.shares.CreateShare(ctx, p.ID)
	require.NoError(t, err)
	assert.NotEqual(t, share.ShareToken, fresh.ShareToken)
}
