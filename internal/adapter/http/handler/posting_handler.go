package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fxledger/fxledger/internal/adapter/http/dto"
	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/usecase"
)

// LedgerEngine defines the movement operations needed by PostingHandler.
type LedgerEngine interface {
	Create(ctx context.Context, input usecase.CreateInput) ([]string, error)
	Move(ctx context.Context, input usecase.MoveInput) ([]string, error)
	Complete(ctx context.Context, ids []string, at *time.Time) error
	Delete(ctx context.Context, ids []string) error
	Copy(ctx context.Context, input usecase.CopyInput) ([]string, error)
	Update(ctx context.Context, id string, upd domain.PostingUpdate) error
	GetPosting(ctx context.Context, id string) (*domain.Posting, error)
	Purge(ctx context.Context) (int64, error)
}

// PostingChainReader reads posting chains for the inspection endpoint.
type PostingChainReader interface {
	GetChain(ctx context.Context, id string) ([]*domain.Posting, error)
}

// PostingHandler handles ledger movement HTTP requests.
type PostingHandler struct {
	engine LedgerEngine
	chains PostingChainReader
}

// NewPostingHandler creates a new PostingHandler.
func NewPostingHandler(engine LedgerEngine, chains PostingChainReader) *PostingHandler {
	return &PostingHandler{engine: engine, chains: chains}
}

// Create records a single-account movement.
func (h *PostingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePostingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ids, err := h.engine.Create(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create posting", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PostingIDsResponse{IDs: ids})
}

// Move records a movement between two accounts.
func (h *PostingHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ids, err := h.engine.Move(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to move", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PostingIDsResponse{IDs: ids})
}

// Get retrieves a posting by id.
func (h *PostingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	posting, err := h.engine.GetPosting(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get posting", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PostingFromDomain(posting))
}

// GetChain retrieves a posting together with its chained legs.
func (h *PostingHandler) GetChain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	chain, err := h.chains.GetChain(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get posting chain", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PostingsFromDomain(chain))
}

// Complete stamps pending postings as completed.
func (h *PostingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req dto.CompletePostingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "no posting ids", nil)
		return
	}

	if err := h.engine.Complete(r.Context(), req.IDs, req.CompletionDate); err != nil {
		writeDomainError(w, "failed to complete postings", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete soft-deletes a posting and its whole chain.
func (h *PostingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.engine.Delete(r.Context(), []string{id}); err != nil {
		writeDomainError(w, "failed to delete posting", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeletedResponse{Deleted: []string{id}})
}

// DeleteBatch soft-deletes several postings and their chains.
func (h *PostingHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.DeletePostingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "no posting ids", nil)
		return
	}

	if err := h.engine.Delete(r.Context(), req.IDs); err != nil {
		writeDomainError(w, "failed to delete postings", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeletedResponse{Deleted: req.IDs})
}

// Copy duplicates postings with fresh ids.
func (h *PostingHandler) Copy(w http.ResponseWriter, r *http.Request) {
	var req dto.CopyPostingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "no posting ids", nil)
		return
	}

	ids, err := h.engine.Copy(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to copy postings", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PostingIDsResponse{IDs: ids})
}

// Update applies a partial posting update.
func (h *PostingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.UpdatePostingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.engine.Update(r.Context(), id, req.ToDomain()); err != nil {
		writeDomainError(w, "failed to update posting", err)
		return
	}

	posting, err := h.engine.GetPosting(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get posting", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PostingFromDomain(posting))
}

// Purge permanently removes soft-deleted and orphaned postings.
func (h *PostingHandler) Purge(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.Purge(r.Context())
	if err != nil {
		writeDomainError(w, "failed to purge postings", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PurgeResponse{Purged: n})
}
