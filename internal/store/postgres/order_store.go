package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solroute/swapd/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create inserts a new order.
func (s *OrderStore) Create(ctx context.Context, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, order_type, input_token, output_token, amount, limit_price,
			status, venue, tx_hash, execution_price, error_reason,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, string(o.Type), o.InputToken, o.OutputToken, o.Amount,
		nullFloat(o.LimitPrice),
		string(o.Status), nullStr(string(o.Venue)), nullStr(o.TxHash),
		nullFloat(o.ExecutionPrice), nullStr(o.ErrorReason),
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create order %s: %w", o.ID, err)
	}
	return nil
}

const orderSelectCols = `id, order_type, input_token, output_token, amount,
	limit_price, status, venue, tx_hash, execution_price, error_reason, created_at`

func scanOrderFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.Order, error) {
	var o domain.Order
	var orderType, status string
	var limitPrice, executionPrice *float64
	var venue, txHash, errorReason *string

	err := scanner.Scan(
		&o.ID, &orderType, &o.InputToken, &o.OutputToken, &o.Amount,
		&limitPrice, &status, &venue, &txHash, &executionPrice, &errorReason,
		&o.CreatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	o.Type = domain.OrderType(orderType)
	o.Status = domain.OrderStatus(status)
	if limitPrice != nil {
		o.LimitPrice = *limitPrice
	}
	if venue != nil {
		o.Venue = domain.Venue(*venue)
	}
	if txHash != nil {
		o.TxHash = *txHash
	}
	if executionPrice != nil {
		o.ExecutionPrice = *executionPrice
	}
	if errorReason != nil {
		o.ErrorReason = *errorReason
	}
	return o, nil
}

// GetByID retrieves a single order by ID.
func (s *OrderStore) GetByID(ctx context.Context, id string) (domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderSelectCols+` FROM orders WHERE id = $1`, id)

	o, err := scanOrderFromRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %s: %w", id, err)
	}
	return o, nil
}

// ListRecent returns up to limit orders, newest first.
func (s *OrderStore) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderSelectCols+` FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrderFromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan recent orders: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Update applies u if the persisted status permits the move. The guard
// lists every legal source status for u's target, so an illegal move and
// a lost race both surface as ErrConflict, never as a silent overwrite.
func (s *OrderStore) Update(ctx context.Context, id string, u domain.Update) error {
	set, args := updateClause(u)
	args = append(args, id, statusStrings(domain.LegalSources(u.Status())))
	query := fmt.Sprintf(`UPDATE orders SET %s, updated_at = NOW() WHERE id = $%d AND status = ANY($%d)`,
		set, len(args)-1, len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: update order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("postgres: update order %s to %s: %w", id, u.Status(), domain.ErrConflict)
	}
	return nil
}

// Transition applies u only while the persisted status equals from. The
// guard rides in the UPDATE's WHERE clause, so two racing transitions from
// the same status resolve to exactly one winner inside the database.
func (s *OrderStore) Transition(ctx context.Context, id string, from domain.OrderStatus, u domain.Update) error {
	if !domain.CanTransition(from, u.Status()) {
		return fmt.Errorf("postgres: transition order %s from %s to %s: illegal move: %w",
			id, from, u.Status(), domain.ErrConflict)
	}
	set, args := updateClause(u)
	args = append(args, id, string(from))
	query := fmt.Sprintf(`UPDATE orders SET %s, updated_at = NOW() WHERE id = $%d AND status = $%d`,
		set, len(args)-1, len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: transition order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("postgres: transition order %s from %s: %w", id, from, domain.ErrConflict)
	}
	return nil
}

// updateClause maps an update variant to its SET clause and arguments.
// Each variant writes exactly the columns its target status requires.
func updateClause(u domain.Update) (string, []any) {
	switch v := u.(type) {
	case domain.BuildingUpdate:
		return "status = $1, venue = $2",
			[]any{string(v.Status()), string(v.Venue)}
	case domain.ConfirmedUpdate:
		return "status = $1, tx_hash = $2, execution_price = $3",
			[]any{string(v.Status()), v.TxHash, v.ExecutionPrice}
	case domain.FailedUpdate:
		return "status = $1, error_reason = $2",
			[]any{string(v.Status()), v.Reason}
	default:
		return "status = $1", []any{string(u.Status())}
	}
}

func statusStrings(statuses []domain.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

var _ domain.OrderStore = (*OrderStore)(nil)
