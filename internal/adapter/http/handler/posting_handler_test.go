package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/adapter/http/dto"
	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/usecase"
)

type engineStub struct {
	createFn   func(ctx context.Context, input usecase.CreateInput) ([]string, error)
	moveFn     func(ctx context.Context, input usecase.MoveInput) ([]string, error)
	completeFn func(ctx context.Context, ids []string, at *time.Time) error
	deleteFn   func(ctx context.Context, ids []string) error
	copyFn     func(ctx context.Context, input usecase.CopyInput) ([]string, error)
	updateFn   func(ctx context.Context, id string, upd domain.PostingUpdate) error
	getFn      func(ctx context.Context, id string) (*domain.Posting, error)
	purgeFn    func(ctx context.Context) (int64, error)
}

func (s *engineStub) Create(ctx context.Context, input usecase.CreateInput) ([]string, error) {
	return s.createFn(ctx, input)
}

func (s *engineStub) Move(ctx context.Context, input usecase.MoveInput) ([]string, error) {
	return s.moveFn(ctx, input)
}

func (s *engineStub) Complete(ctx context.Context, ids []string, at *time.Time) error {
	return s.completeFn(ctx, ids, at)
}

func (s *engineStub) Delete(ctx context.Context, ids []string) error {
	return s.deleteFn(ctx, ids)
}

func (s *engineStub) Copy(ctx context.Context, input usecase.CopyInput) ([]string, error) {
	return s.copyFn(ctx, input)
}

func (s *engineStub) Update(ctx context.Context, id string, upd domain.PostingUpdate) error {
	return s.updateFn(ctx, id, upd)
}

func (s *engineStub) GetPosting(ctx context.Context, id string) (*domain.Posting, error) {
	return s.getFn(ctx, id)
}

func (s *engineStub) Purge(ctx context.Context) (int64, error) {
	return s.purgeFn(ctx)
}

type chainReaderStub struct {
	getChainFn func(ctx context.Context, id string) ([]*domain.Posting, error)
}

func (s *chainReaderStub) GetChain(ctx context.Context, id string) ([]*domain.Posting, error) {
	return s.getChainFn(ctx, id)
}

func TestPostingHandler_Move_Success(t *testing.T) {
	var captured usecase.MoveInput
	h := NewPostingHandler(&engineStub{
		moveFn: func(ctx context.Context, input usecase.MoveInput) ([]string, error) {
			captured = input
			return []string{"p-1"}, nil
		},
	}, &chainReaderStub{})

	amount := decimal.RequireFromString("25.50")
	body, _ := json.Marshal(dto.MoveRequest{
		Debit:  "EXPENSES.RENT",
		Credit: "CASH.USD",
		Amount: &amount,
		Tag:    "rent",
	})

	req := httptest.NewRequest(http.MethodPost, "/moves", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Move(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.Debit != "EXPENSES.RENT" || captured.Credit != "CASH.USD" || captured.Tag != "rent" {
		t.Fatalf("unexpected input: %+v", captured)
	}
	if captured.Amount == nil || !captured.Amount.Equal(amount) {
		t.Fatalf("unexpected amount: %v", captured.Amount)
	}

	var resp dto.PostingIDsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.IDs) != 1 || resp.IDs[0] != "p-1" {
		t.Fatalf("unexpected ids: %v", resp.IDs)
	}
}

func TestPostingHandler_Move_Overdraft(t *testing.T) {
	h := NewPostingHandler(&engineStub{
		moveFn: func(ctx context.Context, input usecase.MoveInput) ([]string, error) {
			return nil, &domain.OverdraftError{
				Account: "CASH.USD",
				Amount:  decimal.RequireFromString("900"),
			}
		},
	}, &chainReaderStub{})

	amount := decimal.RequireFromString("900")
	body, _ := json.Marshal(dto.MoveRequest{
		Debit:  "EXPENSES.RENT",
		Credit: "CASH.USD",
		Amount: &amount,
	})

	req := httptest.NewRequest(http.MethodPost, "/moves", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Move(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Code != domain.CodeOverdraft {
		t.Fatalf("expected code %d, got %d", domain.CodeOverdraft, resp.Code)
	}
}

func TestPostingHandler_Create_InvalidParams(t *testing.T) {
	h := NewPostingHandler(&engineStub{
		createFn: func(ctx context.Context, input usecase.CreateInput) ([]string, error) {
			return nil, domain.ErrAmountAndTarget
		},
	}, &chainReaderStub{})

	amount := decimal.NewFromInt(10)
	target := decimal.NewFromInt(20)
	body, _ := json.Marshal(dto.CreatePostingRequest{
		Account: "CASH.USD",
		Amount:  &amount,
		Target:  &target,
	})

	req := httptest.NewRequest(http.MethodPost, "/postings", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPostingHandler_Complete_RequiresIDs(t *testing.T) {
	h := NewPostingHandler(&engineStub{
		completeFn: func(ctx context.Context, ids []string, at *time.Time) error {
			t.Fatalf("engine should not be called")
			return nil
		},
	}, &chainReaderStub{})

	body, _ := json.Marshal(dto.CompletePostingsRequest{})

	req := httptest.NewRequest(http.MethodPost, "/postings/complete", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Complete(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPostingHandler_GetChain(t *testing.T) {
	chainID := "p-credit"
	h := NewPostingHandler(&engineStub{}, &chainReaderStub{
		getChainFn: func(ctx context.Context, id string) ([]*domain.Posting, error) {
			return []*domain.Posting{
				{ID: "p-credit", Amount: decimal.RequireFromString("5.50")},
				{ID: "p-debit", Amount: decimal.NewFromInt(5), ChainPostingID: &chainID},
			}, nil
		},
	})

	rec := routeRequest(http.MethodGet, "/postings/p-credit/chain", nil, func(r chi.Router) {
		r.Get("/postings/{id}/chain", h.GetChain)
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp []*dto.PostingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 chain legs, got %d", len(resp))
	}
	if resp[1].ChainPostingID == nil || *resp[1].ChainPostingID != "p-credit" {
		t.Fatalf("expected debit leg to reference the credit leg")
	}
}

func TestPostingHandler_Purge(t *testing.T) {
	h := NewPostingHandler(&engineStub{
		purgeFn: func(ctx context.Context) (int64, error) { return 3, nil },
	}, &chainReaderStub{})

	req := httptest.NewRequest(http.MethodPost, "/postings/purge", nil)
	rec := httptest.NewRecorder()

	h.Purge(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.PurgeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Purged != 3 {
		t.Fatalf("expected 3 purged, got %d", resp.Purged)
	}
}
