package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, code, asset, type, passive, max_overdraft, max_balance, note, created_at`

// Create inserts a new account inside the given transaction.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx,
		`INSERT INTO accounts (id, code, asset, type, passive, max_overdraft, max_balance, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID,
		account.Code,
		account.Asset,
		int32(account.Type),
		account.Passive,
		decimalPtrToNumeric(account.MaxOverdraft),
		decimalPtrToNumeric(account.MaxBalance),
		account.Note,
		account.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}

	return err
}

// GetByCode retrieves an account by code.
func (r *AccountRepository) GetByCode(ctx context.Context, code string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE code = $1`, code)

	return scanAccount(row)
}

// GetByID retrieves an account by id.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	return scanAccount(row)
}

// List retrieves accounts matching the filter, ordered by code.
func (r *AccountRepository) List(ctx context.Context, filter usecase.AccountFilter) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE true`
	var args []any

	if filter.Asset != "" {
		args = append(args, filter.Asset)
		query += fmt.Sprintf(" AND asset = $%d", len(args))
	}
	if filter.Type != nil {
		args = append(args, int32(*filter.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.CodePrefix != "" {
		args = append(args, filter.CodePrefix+"%")
		query += fmt.Sprintf(" AND code LIKE $%d", len(args))
	}
	query += " ORDER BY code"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// Update applies a partial update. Nil fields are left untouched.
func (r *AccountRepository) Update(ctx context.Context, code string, upd domain.AccountUpdate) error {
	var accountType *int32
	if upd.Type != nil {
		t := int32(*upd.Type)
		accountType = &t
	}

	cmd, err := r.pool.Exec(ctx,
		`UPDATE accounts
		 SET code          = COALESCE($2, code),
		     note          = COALESCE($3, note),
		     type          = COALESCE($4, type),
		     passive       = COALESCE($5, passive),
		     max_overdraft = COALESCE($6, max_overdraft),
		     max_balance   = COALESCE($7, max_balance)
		 WHERE code = $1`,
		code,
		upd.Code,
		upd.Note,
		accountType,
		upd.Passive,
		decimalPtrToNumeric(upd.MaxOverdraft),
		decimalPtrToNumeric(upd.MaxBalance),
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// Delete removes an account inside the given transaction. Its postings
// keep their rows but lose the reference.
func (r *AccountRepository) Delete(ctx context.Context, tx usecase.Transaction, code string) error {
	pgxTx := tx.(*Tx).PgxTx()

	cmd, err := pgxTx.Exec(ctx, `DELETE FROM accounts WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account      domain.Account
		accountType  int32
		maxOverdraft pgtype.Numeric
		maxBalance   pgtype.Numeric
	)

	err := row.Scan(
		&account.ID,
		&account.Code,
		&account.Asset,
		&accountType,
		&account.Passive,
		&maxOverdraft,
		&maxBalance,
		&account.Note,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	account.Type = domain.AccountType(accountType)
	account.MaxOverdraft = numericToDecimalPtr(maxOverdraft)
	account.MaxBalance = numericToDecimalPtr(maxBalance)

	return &account, nil
}
