package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arqioly/arqioly/pkg/apperrors"
)

func TestCommentService_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ada := userCtx("ada", "Ada")
	bob := userCtx("bob", "Bob")
	fx := env.fixture(t)

	p := env.createPrompt(t, ada, PromptInput{Title: "Discuss", Content: "v1", ProjectID: fx.project.ID})
	v1, err := env.prompts.LatestVersion(ada, p.ID)
	require.NoError(t, err)

	first, err := env.comments.AddComment(ada, p.ID, v1.ID, "  looks good  ")
	require.NoError(t, err)
	assert.Equal(t, "looks good", first.Content)
	assert.Equal(t, "ada", first.UserID)
	assert.Equal(t, "Ada", first.UserName)
	assert.Equal(t, v1.ID, first.VersionID)

	second, err := env.comments.AddComment(bob, p.ID, "", "needs work")
	require.NoError(t, err)

	listed, err := env.comments.ListComments(ada, p.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, second.ID, listed[1].ID)

	// Only the author may edit or delete.
	_, err = env.comments.UpdateComment(bob, first.ID, "hijacked")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.ErrorIs(t, env.comments.DeleteComment(ada, second.ID), apperrors.ErrForbidden)

	edited, err := env.comments.UpdateComment(ada, first.ID, "looks great")
	require.NoError(t, err)
	assert.Equal(t, "looks great", edited.Content)
	assert.True(t, edited.UpdatedAt.After(edited.CreatedAt))

	require.NoError(t, env.comments.DeleteComment(bob, second.ID))
	listed, err = env.comments.ListComments(ada, p.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	assert.ErrorIs(t, env.comments.DeleteComment(bob, second.ID), apperrors.ErrNotFound)
}

func TestCommentService_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fx := env.fixture(t)

	p := env.createPrompt(t, ctx, PromptInput{Title: "One", ProjectID: fx.project.ID})
	other := env.createPrompt(t, ctx, PromptInput{Title: "Two", ProjectID: fx.project.ID})
	otherVersion, err := env.prompts.LatestVersion(ctx, other.ID)
	require.NoError(t, err)

	_, err = env.comments.AddComment(ctx, p.ID, "", "   ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = env.comments.AddComment(ctx, "missing", "", "hello")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = env.comments.AddComment(ctx, p.ID, otherVersion.ID, "wrong version")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	// Anonymous callers still get an author identity.
	c, err := env.comments.AddComment(ctx, p.ID, "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", c.UserID)

	// but cannot edit or delete, since every anonymous caller shares it.
	_, err = env.comments.UpdateComment(ctx, c.ID, "rewritten")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.ErrorIs(t, env.comments.DeleteComment(ctx, c.ID), apperrors.ErrForbidden)

	listed, err := env.comments.ListComments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "hello", listed[0].Content)
}
