package handlers

import (
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/services"
)

// ProviderLister reports which LLM providers have credentials configured.
type ProviderLister interface {
	AvailableProviders() []models.Provider
}

// ProviderInfo for GET /api/providers
type ProviderInfo struct {
	Provider  models.Provider `json:"provider"`
	Models    []string        `json:"models"`
	Available bool            `json:"available"`
}

// ResolutionResponse for POST /api/resolve and GET /api/prompts/{id}/resolution
type ResolutionResponse struct {
	SystemPrompt *services.ResolvedSystemPrompt `json:"system_prompt"`
	ModelConfig  *services.ResolvedModelConfig  `json:"model_config"`
}

// ConfigHandler handles scoped system prompts and model configs, and
// resolution of the effective pair for a prompt.
type ConfigHandler struct {
	configService     services.ScopedConfigService
	resolutionService services.ResolutionService
	providers         ProviderLister
	logger            *zap.Logger
}

// NewConfigHandler creates a new config handler. providers may be nil, in
// which case every provider is reported unavailable.
func NewConfigHandler(
	configService services.ScopedConfigService,
	resolutionService services.ResolutionService,
	providers ProviderLister,
	logger *zap.Logger,
) *ConfigHandler {
	return &ConfigHandler{
		configService:     configService,
		resolutionService: resolutionService,
		providers:         providers,
		logger:            logger,
	}
}

// RegisterRoutes registers the config routes on the given mux.
func (h *ConfigHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/system-prompts", h.ListSystemPrompts)
	mux.HandleFunc("POST /api/system-prompts", h.CreateSystemPrompt)
	mux.HandleFunc("GET /api/system-prompts/{id}", h.GetSystemPrompt)
	mux.HandleFunc("PUT /api/system-prompts/{id}", h.UpdateSystemPrompt)
	mux.HandleFunc("DELETE /api/system-prompts/{id}", h.DeleteSystemPrompt)

	mux.HandleFunc("GET /api/model-configs", h.ListModelConfigs)
	mux.HandleFunc("POST /api/model-configs", h.CreateModelConfig)
	mux.HandleFunc("GET /api/model-configs/{id}", h.GetModelConfig)
	mux.HandleFunc("PUT /api/model-configs/{id}", h.UpdateModelConfig)
	mux.HandleFunc("DELETE /api/model-configs/{id}", h.DeleteModelConfig)

	mux.HandleFunc("GET /api/providers", h.ListProviders)
	mux.HandleFunc("POST /api/resolve", h.Resolve)
	mux.HandleFunc("GET /api/prompts/{id}/resolution", h.ResolveForPrompt)
}

// scopeFilter reads scope_type and scope_id from the query string.
func (h *ConfigHandler) scopeFilter(w http.ResponseWriter, r *http.Request) (services.ScopeFilter, bool) {
	filter := services.ScopeFilter{
		ScopeType: models.ScopeType(r.URL.Query().Get("scope_type")),
		ScopeID:   r.URL.Query().Get("scope_id"),
	}
	if filter.ScopeType != "" && !filter.ScopeType.IsValid() {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "invalid_scope_type", "Unknown scope_type")
		return filter, false
	}
	return filter, true
}

// ListSystemPrompts handles GET /api/system-prompts?scope_type=&scope_id=
func (h *ConfigHandler) ListSystemPrompts(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.scopeFilter(w, r)
	if !ok {
		return
	}

	prompts, err := h.configService.ListSystemPrompts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, "List system prompts", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, prompts)
}

// CreateSystemPrompt handles POST /api/system-prompts
func (h *ConfigHandler) CreateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var req services.SystemPromptInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	sp, err := h.configService.CreateSystemPrompt(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "Create system prompt", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, sp)
}

// GetSystemPrompt handles GET /api/system-prompts/{id}
func (h *ConfigHandler) GetSystemPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	sp, err := h.configService.GetSystemPrompt(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Get system prompt", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, sp)
}

// UpdateSystemPrompt handles PUT /api/system-prompts/{id}
func (h *ConfigHandler) UpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req services.SystemPromptInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	sp, err := h.configService.UpdateSystemPrompt(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, "Update system prompt", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, sp)
}

// DeleteSystemPrompt handles DELETE /api/system-prompts/{id}
func (h *ConfigHandler) DeleteSystemPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.configService.DeleteSystemPrompt(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Delete system prompt", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, deletedResponse)
}

// ListModelConfigs handles GET /api/model-configs?scope_type=&scope_id=
func (h *ConfigHandler) ListModelConfigs(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.scopeFilter(w, r)
	if !ok {
		return
	}

	configs, err := h.configService.ListModelConfigs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, "List model configs", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, configs)
}

// CreateModelConfig handles POST /api/model-configs
func (h *ConfigHandler) CreateModelConfig(w http.ResponseWriter, r *http.Request) {
	var req services.ModelConfigInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	mc, err := h.configService.CreateModelConfig(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "Create model config", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, mc)
}

// GetModelConfig handles GET /api/model-configs/{id}
func (h *ConfigHandler) GetModelConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	mc, err := h.configService.GetModelConfig(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Get model config", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, mc)
}

// UpdateModelConfig handles PUT /api/model-configs/{id}
func (h *ConfigHandler) UpdateModelConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req services.ModelConfigInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	mc, err := h.configService.UpdateModelConfig(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, "Update model config", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, mc)
}

// DeleteModelConfig handles DELETE /api/model-configs/{id}
func (h *ConfigHandler) DeleteModelConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.configService.DeleteModelConfig(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Delete model config", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, deletedResponse)
}

// ListProviders handles GET /api/providers
func (h *ConfigHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	var available []models.Provider
	if h.providers != nil {
		available = h.providers.AvailableProviders()
	}

	out := make([]ProviderInfo, 0, len(models.ProviderModels))
	for _, p := range []models.Provider{models.ProviderOpenAI, models.ProviderAnthropic, models.ProviderAzure} {
		out = append(out, ProviderInfo{
			Provider:  p,
			Models:    models.ProviderModels[p],
			Available: slices.Contains(available, p),
		})
	}
	writeData(w, h.logger, http.StatusOK, out)
}

// Resolve handles POST /api/resolve
// The body may describe unsaved editor state (project, category, tags).
func (h *ConfigHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req services.ResolveRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	h.writeResolution(w, r, req)
}

// ResolveForPrompt handles GET /api/prompts/{id}/resolution
func (h *ConfigHandler) ResolveForPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}
	h.writeResolution(w, r, services.ResolveRequest{PromptID: id})
}

func (h *ConfigHandler) writeResolution(w http.ResponseWriter, r *http.Request, req services.ResolveRequest) {
	sp, err := h.resolutionService.ResolveSystemPrompt(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "Resolve system prompt", err)
		return
	}
	mc, err := h.resolutionService.ResolveModelConfig(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "Resolve model config", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, ResolutionResponse{SystemPrompt: sp, ModelConfig: mc})
}
