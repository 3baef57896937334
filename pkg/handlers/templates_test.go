package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/services"
)

func TestTemplatesHandler_List(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/templates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	all := decodeData[[]services.TemplateInfo](t, rec)

	builtIn, err := services.LoadTemplates()
	require.NoError(t, err)
	assert.Len(t, all, len(builtIn))
}

func TestTemplatesHandler_ListByCategory(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/templates?category=marketing", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	templates := decodeData[[]services.TemplateInfo](t, rec)

	require.NotEmpty(t, templates)
	var blog *services.TemplateInfo
	for i := range templates {
		assert.Equal(t, "Marketing", templates[i].Category)
		if templates[i].Title == "Blog Post Writer" {
			blog = &templates[i]
		}
	}
	require.NotNil(t, blog)
	assert.Contains(t, blog.Placeholders, "topic")
	assert.Contains(t, blog.Placeholders, "keyword")
}

func TestTemplatesHandler_Instantiate(t *testing.T) {
	api := newTestAPI(t)
	project := api.project(t, "Content")

	p := mustCreate[models.Prompt](t, api, "/api/templates/instantiate", "", map[string]any{
		"title":      "Blog Post Writer",
		"project_id": project.ID,
	})

	assert.Equal(t, "Blog Post Writer", p.Title)
	assert.Equal(t, project.ID, p.ProjectID)
	assert.Contains(t, p.Content, "{{topic}}")
	assert.Len(t, p.Tags, 3)

	rec := api.do(t, http.MethodGet, "/api/prompts/"+p.ID+"/versions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeData[VersionListResponse](t, rec).Total)
}

func TestTemplatesHandler_InstantiateErrors(t *testing.T) {
	api := newTestAPI(t)
	project := api.project(t, "Content")

	rec := api.do(t, http.MethodPost, "/api/templates/instantiate", "", map[string]any{
		"title":      "No Such Template",
		"project_id": project.ID,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/templates/instantiate", "", map[string]any{
		"title": "Blog Post Writer",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, msg := decodeError(t, rec)
	assert.Equal(t, "validation_error", code)
	assert.Equal(t, "project_id: failed required validation", msg)

	rec = api.do(t, http.MethodPost, "/api/templates/instantiate", "", map[string]any{
		"title":      "Blog Post Writer",
		"project_id": "missing",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
