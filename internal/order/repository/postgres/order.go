package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	cartdomain "github.com/dkarlss/storefront/internal/cart/domain"
	checkoutdomain "github.com/dkarlss/storefront/internal/checkout/domain"
	"github.com/dkarlss/storefront/internal/order/domain"
	"github.com/dkarlss/storefront/pkg/database"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

// OrderRepository implements order persistence on PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, user_id, status, subtotal_amount, shipping_amount, tax_amount,
		total_amount, currency, payment_reference, shipping_address,
		tracking_number, carrier, estimated_delivery, created_at, updated_at`

// Create inserts the order and its lines in one transaction. A duplicate
// payment reference maps to ErrAlreadyExists; this is the idempotency guard
// against double-recording a confirmed payment.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, subtotal_amount, shipping_amount, tax_amount,
			total_amount, currency, payment_reference, shipping_address,
			tracking_number, carrier, estimated_delivery, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.OwnerID, o.Status, o.Subtotal, o.Shipping, o.Tax,
		o.Total, o.Currency, o.PaymentReference, addressJSON,
		o.Tracking.Number, o.Tracking.Carrier, o.Tracking.EstimatedDelivery,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "payment_reference", o.PaymentReference)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	// position preserves the cart's line order; created_at cannot, since
	// now() is fixed for the whole transaction.
	for i := range o.Lines {
		line := &o.Lines[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, variant_key, name, size, color, unit_price, quantity, image_url, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			uuid.New().String(), o.ID, line.ProductID, line.VariantKey(),
			line.Name, line.Size, line.Color, line.UnitPrice, line.Quantity,
			line.ImageURL, i,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByPaymentReference retrieves the order recorded for a payment reference.
func (r *OrderRepository) GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1`, reference)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", reference)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByOwner returns the owner's orders newest first, lines included.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load lines for all orders in one query.
	if len(orders) > 0 {
		ids := make([]string, len(orders))
		byID := make(map[string]*domain.Order, len(orders))
		for i := range orders {
			ids[i] = orders[i].ID
			byID[orders[i].ID] = &orders[i]
			orders[i].Lines = []cartdomain.Line{}
		}

		lineRows, err := r.pool.Query(ctx, `
			SELECT order_id, product_id, name, size, color, unit_price, quantity, image_url
			FROM order_items
			WHERE order_id = ANY($1)
			ORDER BY order_id, position`, ids)
		if err != nil {
			return nil, fmt.Errorf("batch load order items: %w", err)
		}
		defer lineRows.Close()

		for lineRows.Next() {
			var orderID string
			var line cartdomain.Line
			if err := lineRows.Scan(&orderID, &line.ProductID, &line.Name, &line.Size,
				&line.Color, &line.UnitPrice, &line.Quantity, &line.ImageURL); err != nil {
				return nil, fmt.Errorf("scan order item: %w", err)
			}
			if o, ok := byID[orderID]; ok {
				o.Lines = append(o.Lines, line)
			}
		}
		if err := lineRows.Err(); err != nil {
			return nil, fmt.Errorf("iterate order item rows: %w", err)
		}
	}

	return orders, nil
}

// UpdateStatus moves the order to a new status, enforcing the transition
// graph in the same statement so concurrent updates cannot skip states.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	if !domain.IsValidStatus(status) {
		return apperrors.InvalidInput("unknown order status: " + status)
	}

	var current string
	err := r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("order", id)
		}
		return fmt.Errorf("get order status: %w", err)
	}

	if !domain.CanTransition(current, status) {
		return apperrors.Conflict(fmt.Sprintf("order cannot move from %s to %s", current, status))
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		status, time.Now().UTC(), id, current,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict("order status changed concurrently, please retry")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var addressJSON []byte

	err := row.Scan(
		&o.ID, &o.OwnerID, &o.Status, &o.Subtotal, &o.Shipping, &o.Tax,
		&o.Total, &o.Currency, &o.PaymentReference, &addressJSON,
		&o.Tracking.Number, &o.Tracking.Carrier, &o.Tracking.EstimatedDelivery,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(addressJSON) > 0 && string(addressJSON) != "null" {
		var addr checkoutdomain.ShippingAddress
		if err := json.Unmarshal(addressJSON, &addr); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
		o.ShippingAddress = addr
	}

	o.Tracking.Status = o.Status
	return &o, nil
}

func (r *OrderRepository) loadLines(ctx context.Context, o *domain.Order) error {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, name, size, color, unit_price, quantity, image_url
		FROM order_items
		WHERE order_id = $1
		ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	lines := make([]cartdomain.Line, 0)
	for rows.Next() {
		var line cartdomain.Line
		if err := rows.Scan(&line.ProductID, &line.Name, &line.Size, &line.Color,
			&line.UnitPrice, &line.Quantity, &line.ImageURL); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order item rows: %w", err)
	}

	o.Lines = lines
	return nil
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
