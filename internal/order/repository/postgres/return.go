package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	cartdomain "github.com/dkarlss/storefront/internal/cart/domain"
	"github.com/dkarlss/storefront/internal/order/domain"
	"github.com/dkarlss/storefront/pkg/database"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

// ReturnRepository implements return request persistence on PostgreSQL.
type ReturnRepository struct {
	pool database.DBTX
}

// NewReturnRepository creates a PostgreSQL-backed return repository.
func NewReturnRepository(pool database.DBTX) *ReturnRepository {
	return &ReturnRepository{pool: pool}
}

const returnColumns = `id, order_id, user_id, reason, comments, method, status,
		items, refund_amount, resolved_at, created_at, updated_at`

// Create inserts the return request. The partial unique index on open
// returns per order surfaces as ErrAlreadyExists.
func (r *ReturnRepository) Create(ctx context.Context, ret *domain.ReturnRequest) error {
	itemsJSON, err := json.Marshal(ret.Items)
	if err != nil {
		return fmt.Errorf("marshal return items: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO return_requests (id, order_id, user_id, reason, comments, method, status,
			items, refund_amount, requested_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		ret.ID, ret.OrderID, ret.OwnerID, ret.Reason, ret.Comments, ret.Method, ret.Status,
		itemsJSON, ret.RefundAmount, ret.CreatedAt, ret.CreatedAt, ret.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("return request", "order_id", ret.OrderID)
		}
		return fmt.Errorf("insert return request: %w", err)
	}

	return nil
}

// GetByID retrieves a return request.
func (r *ReturnRepository) GetByID(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+returnColumns+` FROM return_requests WHERE id = $1`, id)

	ret, err := scanReturn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("return request", id)
		}
		return nil, fmt.Errorf("scan return request: %w", err)
	}
	return ret, nil
}

// ListByOwner returns the owner's return requests, newest first.
func (r *ReturnRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.ReturnRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+returnColumns+` FROM return_requests WHERE user_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list return requests: %w", err)
	}
	defer rows.Close()

	returns := make([]domain.ReturnRequest, 0)
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan return request row: %w", err)
		}
		returns = append(returns, *ret)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate return request rows: %w", err)
	}

	return returns, nil
}

// UpdateStatus moves the return through its lifecycle, enforcing the
// transition graph against the current row.
func (r *ReturnRepository) UpdateStatus(ctx context.Context, id, status string) error {
	var current string
	err := r.pool.QueryRow(ctx, `SELECT status FROM return_requests WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("return request", id)
		}
		return fmt.Errorf("get return status: %w", err)
	}

	if !domain.CanTransitionReturn(current, status) {
		return apperrors.Conflict(fmt.Sprintf("return cannot move from %s to %s", current, status))
	}

	now := time.Now().UTC()
	var resolvedAt *time.Time
	if status == domain.ReturnStatusApproved || status == domain.ReturnStatusRejected {
		resolvedAt = &now
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE return_requests
		SET status = $1, resolved_at = COALESCE($2, resolved_at), updated_at = $3
		WHERE id = $4 AND status = $5`,
		status, resolvedAt, now, id, current,
	)
	if err != nil {
		return fmt.Errorf("update return status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict("return status changed concurrently, please retry")
	}

	return nil
}

func scanReturn(row rowScanner) (*domain.ReturnRequest, error) {
	var ret domain.ReturnRequest
	var itemsJSON []byte

	err := row.Scan(
		&ret.ID, &ret.OrderID, &ret.OwnerID, &ret.Reason, &ret.Comments, &ret.Method,
		&ret.Status, &itemsJSON, &ret.RefundAmount, &ret.ResolvedAt,
		&ret.CreatedAt, &ret.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ret.Items = []cartdomain.Line{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "null" {
		if err := json.Unmarshal(itemsJSON, &ret.Items); err != nil {
			return nil, fmt.Errorf("unmarshal return items: %w", err)
		}
	}

	return &ret, nil
}
