package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/models"
)

func sampleCatalog() *Catalog {
	created := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	return &Catalog{
		Prompts: []models.Prompt{{
			ID: "p1", Title: "Blog Writer", Content: "Write about {{topic}}",
			ProjectID: "proj", CategoryID: "cat", Tags: []string{"t2"},
			CreatedBy: "u1", CreatedAt: created, UpdatedAt: created.Add(time.Hour),
			IsArchived: true,
		}},
		Versions: []models.PromptVersion{
			{ID: "v2", PromptID: "p1", VersionNumber: 2, Content: "Write about {{topic}}", ChangeNote: "Updated prompt", CreatedAt: created.Add(time.Hour)},
			{ID: "v1", PromptID: "p1", VersionNumber: 1, Content: "Write", ChangeNote: "Initial version", CreatedAt: created},
			{ID: "vx", PromptID: "other", VersionNumber: 1},
		},
		Projects:   []models.Project{{ID: "proj", Name: "General", Description: "General purpose"}},
		Categories: []models.Category{{ID: "cat", ProjectID: "proj", Name: "Marketing"}},
		Tags:       []models.Tag{{ID: "t1", Name: "draft", Color: "#f59e0b"}, {ID: "t2", Name: "seo", Color: "#10b981"}},
	}
}

func TestBuildPromptDocument(t *testing.T) {
	c := sampleCatalog()
	doc := BuildPromptDocument(c, c.Prompts[0])

	assert.Equal(t, "General", doc.Prompt.Project)
	assert.Equal(t, "Marketing", doc.Prompt.Category)
	assert.Equal(t, []string{"seo"}, doc.Prompt.Tags)
	assert.Nil(t, doc.Prompt.IsArchived)
	require.Len(t, doc.Versions, 2)
	assert.Equal(t, 1, doc.Versions[0].VersionNumber)
	assert.Equal(t, 2, doc.Versions[1].VersionNumber)

	data, err := Marshal(doc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	prompt := raw["prompt"].(map[string]any)
	assert.Equal(t, "2024-05-01T12:30:00.000Z", prompt["createdAt"])
	assert.Equal(t, "2024-05-01T13:30:00.000Z", prompt["updatedAt"])
}

func TestBuildFullDocument(t *testing.T) {
	c := sampleCatalog()
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	doc := BuildFullDocument(c, at)

	require.Len(t, doc.Prompts, 1)
	require.NotNil(t, doc.Prompts[0].IsArchived)
	assert.True(t, *doc.Prompts[0].IsArchived)
	assert.Len(t, doc.Prompts[0].Versions, 2)
	assert.Len(t, doc.Projects, 1)
	assert.Len(t, doc.Categories, 1)
	assert.Len(t, doc.Tags, 2)

	data, err := Marshal(doc)
	require.NoError(t, err)

	var back FullDocument
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, time.Time(back.ExportedAt).Equal(at))
}

func TestFilenames(t *testing.T) {
	at := time.UnixMilli(1717200000123)

	assert.Equal(t, "my_prompt__v2_0__1717200000123.json", PromptFilename("My Prompt (v2.0)", at))
	assert.Equal(t, "arqioly_export_1717200000123.json", FullFilename(at))
	assert.Equal(t, "caf__na_ve", SanitizeTitle("Café naïve"))
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archiver_Archive(t *testing.T) {
	putter := &fakePutter{}
	a := newS3Archiver(putter, "backups", "exports", zap.NewNop())

	loc, err := a.Archive(context.Background(), "arqioly_export_1.json", []byte(`{"prompts":[]}`))
	require.NoError(t, err)

	assert.Equal(t, "s3://backups/exports/arqioly_export_1.json", loc)
	require.NotNil(t, putter.input)
	assert.Equal(t, "backups", *putter.input.Bucket)
	assert.Equal(t, "exports/arqioly_export_1.json", *putter.input.Key)
	assert.Equal(t, "application/json", *putter.input.ContentType)
	assert.JSONEq(t, `{"prompts":[]}`, string(putter.body))
}

func TestS3Archiver_Error(t *testing.T) {
	a := newS3Archiver(&fakePutter{err: errors.New("access denied")}, "b", "", zap.NewNop())
	_, err := a.Archive(context.Background(), "x.json", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
