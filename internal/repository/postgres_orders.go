package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type PostgresOrders struct {
	db *sql.DB
}

func NewPostgresOrders(db *sql.DB) *PostgresOrders {
	return &PostgresOrders{db: db}
}

const orderColumns = `id, tenant_id, product_ids, is_paid, phone, address, created_at, updated_at`

func (r *PostgresOrders) List(ctx context.Context, tenantID string) ([]Order, error) {
	q := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresOrders) Find(ctx context.Context, tenantID, id string) (Order, error) {
	q := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE tenant_id = $1 AND id = $2
	`
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, tenantID, id).Scan)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PostgresOrders) Insert(ctx context.Context, o Order) error {
	q := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, q,
		o.ID, o.TenantID, pq.Array(o.ProductIDs), o.IsPaid, o.Phone, o.Address,
		o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *PostgresOrders) Update(ctx context.Context, tenantID, id string, fields Fields) (Order, error) {
	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if v, ok := fields["isPaid"].(bool); ok {
		add("is_paid", v)
	}
	if v, ok := fields["phone"].(string); ok && v != "" {
		add("phone", v)
	}
	if v, ok := fields["address"].(string); ok && v != "" {
		add("address", v)
	}
	if _, ok := fields["productIds"]; ok {
		if ids := fieldStrings(fields, "productIds"); len(ids) > 0 {
			add("product_ids", pq.Array(ids))
		}
	}
	set = append(set, "updated_at = NOW()")

	q := fmt.Sprintf(`
		UPDATE orders SET %s
		WHERE tenant_id = $%d AND id = $%d
		RETURNING `+orderColumns+`
	`, strings.Join(set, ", "), len(args)+1, len(args)+2)
	args = append(args, tenantID, id)

	o, err := scanOrder(r.db.QueryRowContext(ctx, q, args...).Scan)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PostgresOrders) Delete(ctx context.Context, tenantID, id string) error {
	return execDelete(ctx, r.db, "orders", tenantID, id)
}

func scanOrder(scan func(...any) error) (Order, error) {
	var o Order
	var ids pq.StringArray
	var phone, address sql.NullString
	err := scan(&o.ID, &o.TenantID, &ids, &o.IsPaid, &phone, &address, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.ProductIDs = []string(ids)
	o.Phone = phone.String
	o.Address = address.String
	return o, nil
}
