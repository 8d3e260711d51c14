package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/usecase"
)

// PostingRepository implements usecase.PostingRepository.
type PostingRepository struct {
	pool *pgxpool.Pool
}

// NewPostingRepository creates a new PostingRepository.
func NewPostingRepository(pool *pgxpool.Pool) *PostingRepository {
	return &PostingRepository{pool: pool}
}

const postingColumns = `id, credit_account_id, debit_account_id, amount, tag, note,
	created_at, completed_at, chain_posting_id, deleted_at, service`

// chainQuery selects a posting together with everything chain-linked to
// it, following links in both directions transitively.
const chainQuery = `
	WITH RECURSIVE chain AS (
		SELECT p.* FROM postings p WHERE p.id = $1
		UNION
		SELECT p.* FROM postings p
		JOIN chain c ON p.chain_posting_id = c.id OR c.chain_posting_id = p.id
	)
	SELECT ` + postingColumns + ` FROM chain`

// Create inserts a posting inside the given transaction.
func (r *PostingRepository) Create(ctx context.Context, tx usecase.Transaction, posting *domain.Posting) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx,
		`INSERT INTO postings (id, credit_account_id, debit_account_id, amount, tag, note,
			created_at, completed_at, chain_posting_id, deleted_at, service)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		posting.ID,
		posting.CreditAccountID,
		posting.DebitAccountID,
		decimalToNumeric(posting.Amount),
		posting.Tag,
		posting.Note,
		posting.CreatedAt,
		posting.CompletedAt,
		posting.ChainPostingID,
		posting.DeletedAt,
		posting.Service,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}

	return err
}

// GetByID retrieves a posting by id.
func (r *PostingRepository) GetByID(ctx context.Context, id string) (*domain.Posting, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE id = $1`, id)

	return scanPosting(row)
}

// GetChain retrieves the posting and every posting chain-linked to it.
func (r *PostingRepository) GetChain(ctx context.Context, id string) ([]*domain.Posting, error) {
	rows, err := r.pool.Query(ctx, chainQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var postings []*domain.Posting
	for rows.Next() {
		posting, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		postings = append(postings, posting)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(postings) == 0 {
		return nil, domain.ErrPostingNotFound
	}

	return postings, nil
}

// Update applies a partial update. Nil fields are left untouched.
func (r *PostingRepository) Update(ctx context.Context, id string, upd domain.PostingUpdate) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE postings
		 SET tag          = COALESCE($2, tag),
		     note         = COALESCE($3, note),
		     created_at   = COALESCE($4, created_at),
		     completed_at = COALESCE($5, completed_at),
		     amount       = COALESCE($6, amount)
		 WHERE id = $1`,
		id,
		upd.Tag,
		upd.Note,
		upd.CreatedAt,
		upd.CompletedAt,
		decimalPtrToNumeric(upd.Amount),
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrPostingNotFound
	}

	return nil
}

// Complete stamps the completion date inside the given transaction.
func (r *PostingRepository) Complete(ctx context.Context, tx usecase.Transaction, id string, completedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	cmd, err := pgxTx.Exec(ctx,
		`UPDATE postings SET completed_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, completedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrPostingNotFound
	}

	return nil
}

// SoftDeleteChain marks the posting and its chain deleted, skipping
// service postings.
func (r *PostingRepository) SoftDeleteChain(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) (int64, error) {
	pgxTx := tx.(*Tx).PgxTx()

	cmd, err := pgxTx.Exec(ctx,
		`WITH RECURSIVE chain AS (
			SELECT p.id, p.chain_posting_id FROM postings p WHERE p.id = $1
			UNION
			SELECT p.id, p.chain_posting_id FROM postings p
			JOIN chain c ON p.chain_posting_id = c.id OR c.chain_posting_id = p.id
		 )
		 UPDATE postings
		 SET deleted_at = $2
		 WHERE id IN (SELECT id FROM chain) AND NOT service AND deleted_at IS NULL`,
		id, deletedAt,
	)
	if err != nil {
		return 0, err
	}

	return cmd.RowsAffected(), nil
}

// Purge permanently removes soft-deleted postings and postings orphaned
// of both account references.
func (r *PostingRepository) Purge(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM postings
		 WHERE deleted_at IS NOT NULL
		    OR (debit_account_id IS NULL AND credit_account_id IS NULL)`,
	)
	if err != nil {
		return 0, err
	}

	return cmd.RowsAffected(), nil
}

// DebitSum returns the sum of completed, non-deleted debit amounts for
// the account as of the cutoff.
func (r *PostingRepository) DebitSum(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error) {
	var sum pgtype.Numeric

	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM postings
		 WHERE debit_account_id = $1
		   AND deleted_at IS NULL
		   AND completed_at IS NOT NULL
		   AND completed_at <= $2`,
		accountID, asOf,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

// CreditSum returns the sum of all non-deleted credit amounts for the
// account as of the cutoff. Pending postings count from their creation
// date.
func (r *PostingRepository) CreditSum(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error) {
	var sum pgtype.Numeric

	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM postings
		 WHERE credit_account_id = $1
		   AND deleted_at IS NULL
		   AND ((completed_at IS NOT NULL AND completed_at <= $2)
		     OR (completed_at IS NULL AND created_at <= $2))`,
		accountID, asOf,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

// ListByAccount retrieves the account's statement rows, newest first.
// Amounts are signed from the account's point of view, debits positive.
func (r *PostingRepository) ListByAccount(ctx context.Context, accountID string, q usecase.StatementQuery) ([]*domain.StatementRow, error) {
	query := `
		SELECT p.id,
		       CASE WHEN p.debit_account_id = $1 THEN p.amount ELSE -p.amount END,
		       CASE WHEN p.debit_account_id = $1 THEN COALESCE(ca.code, '') ELSE COALESCE(da.code, '') END,
		       p.tag, p.note, p.created_at, p.completed_at
		FROM postings p
		LEFT JOIN accounts da ON da.id = p.debit_account_id
		LEFT JOIN accounts ca ON ca.id = p.credit_account_id
		WHERE (p.debit_account_id = $1 OR p.credit_account_id = $1)
		  AND NOT p.service
		  AND p.deleted_at IS NULL`
	args := []any{accountID}

	dateColumn := "p.completed_at"
	if q.Pending {
		dateColumn = "p.created_at"
	} else {
		query += " AND p.completed_at IS NOT NULL"
	}

	if q.Start != nil {
		args = append(args, *q.Start)
		query += fmt.Sprintf(" AND %s >= $%d", dateColumn, len(args))
	}
	if q.End != nil {
		args = append(args, *q.End)
		query += fmt.Sprintf(" AND %s <= $%d", dateColumn, len(args))
	}
	if q.Tag != "" {
		args = append(args, q.Tag)
		query += fmt.Sprintf(" AND p.tag = $%d", len(args))
	}
	query += " ORDER BY p.created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statement []*domain.StatementRow
	for rows.Next() {
		var (
			row    domain.StatementRow
			amount pgtype.Numeric
		)
		err := rows.Scan(&row.ID, &amount, &row.Counterparty, &row.Tag, &row.Note, &row.CreatedAt, &row.CompletedAt)
		if err != nil {
			return nil, err
		}
		row.Amount = numericToDecimal(amount)
		statement = append(statement, &row)
	}

	return statement, rows.Err()
}

func scanPosting(row pgx.Row) (*domain.Posting, error) {
	var (
		posting domain.Posting
		amount  pgtype.Numeric
	)

	err := row.Scan(
		&posting.ID,
		&posting.CreditAccountID,
		&posting.DebitAccountID,
		&amount,
		&posting.Tag,
		&posting.Note,
		&posting.CreatedAt,
		&posting.CompletedAt,
		&posting.ChainPostingID,
		&posting.DeletedAt,
		&posting.Service,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPostingNotFound
		}

		return nil, err
	}

	posting.Amount = numericToDecimal(amount)

	return &posting, nil
}
