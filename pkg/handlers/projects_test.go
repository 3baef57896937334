package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/services"
)

func TestCatalogHandler_Projects(t *testing.T) {
	api := newTestAPI(t)

	project := api.project(t, "Acme")
	assert.NotEmpty(t, project.Color, "color comes from the palette")

	rec := api.do(t, http.MethodPost, "/api/projects", "", map[string]any{"name": "Bad", "color": "red"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/projects/"+project.ID, "", map[string]any{"name": "Acme Corp", "color": "#112233"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[models.Project](t, rec)
	assert.Equal(t, "Acme Corp", updated.Name)
	assert.Equal(t, "#112233", updated.Color)

	projects := decodeData[[]models.Project](t, api.do(t, http.MethodGet, "/api/projects", "", nil))
	require.Len(t, projects, 1)

	rec = api.do(t, http.MethodDelete, "/api/projects/"+project.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodGet, "/api/projects/"+project.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogHandler_Categories(t *testing.T) {
	api := newTestAPI(t)
	project := api.project(t, "Acme")

	category := mustCreate[models.Category](t, api, "/api/projects/"+project.ID+"/categories", "",
		map[string]any{"name": "marketing"})
	assert.Equal(t, project.ID, category.ProjectID)

	rec := api.do(t, http.MethodPost, "/api/projects/"+project.ID+"/categories", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	defaults, err := services.LoadDefaults()
	require.NoError(t, err)

	rec = api.do(t, http.MethodPost, "/api/projects/"+project.ID+"/categories/defaults", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	added := decodeData[[]models.Category](t, rec)
	assert.Len(t, added, len(defaults.Categories)-1)

	listed := decodeData[[]models.Category](t, api.do(t, http.MethodGet, "/api/projects/"+project.ID+"/categories", "", nil))
	assert.Len(t, listed, len(defaults.Categories))

	rec = api.do(t, http.MethodPut, "/api/categories/"+category.ID, "", map[string]any{
		"project_id": project.ID, "name": "Growth",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Growth", decodeData[models.Category](t, rec).Name)

	rec = api.do(t, http.MethodDelete, "/api/categories/"+category.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/projects/missing/categories/defaults", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogHandler_Tags(t *testing.T) {
	api := newTestAPI(t)

	tag := mustCreate[models.Tag](t, api, "/api/tags", "", map[string]any{"name": "Alpha"})

	rec := api.do(t, http.MethodPost, "/api/tags", "", map[string]any{"name": "alpha"})
	require.Equal(t, http.StatusConflict, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, "conflict", code)

	rec = api.do(t, http.MethodPut, "/api/tags/"+tag.ID, "", map[string]any{"name": "Beta", "color": "#abcdef"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Beta", decodeData[models.Tag](t, rec).Name)

	rec = api.do(t, http.MethodPut, "/api/tags/missing", "", map[string]any{"name": "Gamma"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	project := api.project(t, "Acme")
	p := mustCreate[models.Prompt](t, api, "/api/prompts", "", map[string]any{
		"title": "Tagged", "project_id": project.ID, "tags": []string{tag.ID},
	})

	rec = api.do(t, http.MethodDelete, "/api/tags/"+tag.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeData[models.Prompt](t, api.do(t, http.MethodGet, "/api/prompts/"+p.ID, "", nil))
	assert.Empty(t, got.Tags)
	assert.Empty(t, decodeData[[]models.Tag](t, api.do(t, http.MethodGet, "/api/tags", "", nil)))
}
