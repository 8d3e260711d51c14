package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fxledger/fxledger/internal/adapter/http/dto"
	"github.com/fxledger/fxledger/internal/usecase"
)

// AssetHandler handles asset-related HTTP requests.
type AssetHandler struct {
	assetUC *usecase.AssetService
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assetUC *usecase.AssetService) *AssetHandler {
	return &AssetHandler{assetUC: assetUC}
}

// Create registers a new asset.
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	asset, err := h.assetUC.CreateAsset(r.Context(), req.Code, req.Precision)
	if err != nil {
		writeDomainError(w, "failed to create asset", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AssetFromDomain(asset))
}

// Get retrieves an asset by code.
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	asset, err := h.assetUC.GetAsset(r.Context(), code)
	if err != nil {
		writeDomainError(w, "failed to get asset", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AssetFromDomain(asset))
}

// List lists all assets.
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assetUC.ListAssets(r.Context())
	if err != nil {
		writeDomainError(w, "failed to list assets", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AssetsFromDomain(assets))
}

// Update renames an asset or changes its precision.
func (h *AssetHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req dto.UpdateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Precision != nil {
		if err := h.assetUC.SetPrecision(r.Context(), code, *req.Precision); err != nil {
			writeDomainError(w, "failed to set precision", err)
			return
		}
	}

	if req.Code != nil {
		if err := h.assetUC.RenameAsset(r.Context(), code, *req.Code); err != nil {
			writeDomainError(w, "failed to rename asset", err)
			return
		}
		code = *req.Code
	}

	asset, err := h.assetUC.GetAsset(r.Context(), code)
	if err != nil {
		writeDomainError(w, "failed to get asset", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AssetFromDomain(asset))
}

// Delete removes an asset.
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.assetUC.DeleteAsset(r.Context(), code); err != nil {
		writeDomainError(w, "failed to delete asset", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
