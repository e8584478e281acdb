package httpapi

import (
	"net/http"

	"review_gateway/internal/models"
	"review_gateway/internal/providers"
	"review_gateway/internal/registry"
	"review_gateway/internal/utils"
)

// passwordHeader may carry the provider password instead of the query string.
const passwordHeader = "X-Provider-Password"

// AvailableResponse lists registered providers and environment-configured kinds.
type AvailableResponse struct {
	Providers   []models.ProviderListItem `json:"providers"`
	Environment []providers.Available     `json:"environment"`
	Supported   []models.ProviderKind     `json:"supported"`
}

// VerifyPasswordRequest is the body of POST /api/ai-providers/{id}/verify-password
type VerifyPasswordRequest struct {
	Password string `json:"password"`
}

// VerifyPasswordResponse reports whether the password unlocks the provider.
type VerifyPasswordResponse struct {
	Valid bool `json:"valid"`
}

func requestPassword(r *http.Request) string {
	if p := r.Header.Get(passwordHeader); p != "" {
		return p
	}
	return r.URL.Query().Get("password")
}

// handleListProviders handles GET /api/ai-providers
func (d *Dependencies) handleListProviders(w http.ResponseWriter, r *http.Request) {
	items, err := d.Registry.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, items)
}

// handleCreateProvider handles POST /api/ai-providers
func (d *Dependencies) handleCreateProvider(w http.ResponseWriter, r *http.Request) {
	var in registry.CreateInput
	if err := decodeBody(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	item, err := d.Registry.Create(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, item)
}

// handleAvailableProviders handles GET /api/ai-providers/available
func (d *Dependencies) handleAvailableProviders(w http.ResponseWriter, r *http.Request) {
	items, err := d.Registry.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	env := d.Available
	if env == nil {
		env = []providers.Available{}
	}
	supported := []models.ProviderKind{}
	if d.Kinds != nil {
		supported = d.Kinds.SupportedKinds()
	}
	utils.RespondWithJSON(w, http.StatusOK, AvailableResponse{Providers: items, Environment: env, Supported: supported})
}

// handleGetProvider handles GET /api/ai-providers/{id}. Gated providers need
// their password.
func (d *Dependencies) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := d.Registry.Authorize(r.Context(), id, requestPassword(r)); err != nil {
		respondError(w, r, err)
		return
	}

	item, err := d.Registry.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, item)
}

// handleUpdateProvider handles PUT /api/ai-providers/{id}. Gated providers
// need currentPassword.
func (d *Dependencies) handleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var in registry.UpdateInput
	if err := decodeBody(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	if err := d.Registry.Authorize(r.Context(), id, in.CurrentPassword); err != nil {
		respondError(w, r, err)
		return
	}

	item, err := d.Registry.Update(r.Context(), id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, item)
}

// handleDeleteProvider handles DELETE /api/ai-providers/{id}
func (d *Dependencies) handleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := d.Registry.Authorize(r.Context(), id, requestPassword(r)); err != nil {
		respondError(w, r, err)
		return
	}

	if err := d.Registry.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleActivateProvider handles POST /api/ai-providers/{id}/activate
func (d *Dependencies) handleActivateProvider(w http.ResponseWriter, r *http.Request) {
	item, err := d.Registry.Activate(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, item)
}

// handleVerifyPassword handles POST /api/ai-providers/{id}/verify-password
func (d *Dependencies) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req VerifyPasswordRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	valid, err := d.Registry.VerifyPassword(r.Context(), r.PathValue("id"), req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, VerifyPasswordResponse{Valid: valid})
}
