package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Postgres implementations of the Durable capability set, one per catalog
// kind. The schema (schema.sql) is an external collaborator: any error here,
// including "relation does not exist" before migration, is absorbed by the
// orchestrating repository's fallback policy.

// --- Billboards ---

type PostgresBillboards struct {
	db *sql.DB
}

func NewPostgresBillboards(db *sql.DB) *PostgresBillboards {
	return &PostgresBillboards{db: db}
}

func (r *PostgresBillboards) List(ctx context.Context, tenantID string) ([]Billboard, error) {
	q := `
		SELECT id, tenant_id, label, image_url, created_at, updated_at
		FROM billboards
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Billboard{}
	for rows.Next() {
		var b Billboard
		if err := rows.Scan(&b.ID, &b.TenantID, &b.Label, &b.ImageURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresBillboards) Find(ctx context.Context, tenantID, id string) (Billboard, error) {
	q := `
		SELECT id, tenant_id, label, image_url, created_at, updated_at
		FROM billboards
		WHERE tenant_id = $1 AND id = $2
	`
	var b Billboard
	err := r.db.QueryRowContext(ctx, q, tenantID, id).
		Scan(&b.ID, &b.TenantID, &b.Label, &b.ImageURL, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return Billboard{}, ErrNotFound
	}
	if err != nil {
		return Billboard{}, err
	}
	return b, nil
}

func (r *PostgresBillboards) Insert(ctx context.Context, b Billboard) error {
	q := `
		INSERT INTO billboards (id, tenant_id, label, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q, b.ID, b.TenantID, b.Label, b.ImageURL, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *PostgresBillboards) Update(ctx context.Context, tenantID, id string, fields Fields) (Billboard, error) {
	set, args := updateClauses(fields, map[string]string{
		"label":    "label",
		"imageUrl": "image_url",
	})
	q := fmt.Sprintf(`
		UPDATE billboards SET %s
		WHERE tenant_id = $%d AND id = $%d
		RETURNING id, tenant_id, label, image_url, created_at, updated_at
	`, strings.Join(set, ", "), len(args)+1, len(args)+2)
	args = append(args, tenantID, id)

	var b Billboard
	err := r.db.QueryRowContext(ctx, q, args...).
		Scan(&b.ID, &b.TenantID, &b.Label, &b.ImageURL, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return Billboard{}, ErrNotFound
	}
	if err != nil {
		return Billboard{}, err
	}
	return b, nil
}

func (r *PostgresBillboards) Delete(ctx context.Context, tenantID, id string) error {
	return execDelete(ctx, r.db, "billboards", tenantID, id)
}

// --- Categories ---

type PostgresCategories struct {
	db *sql.DB
}

func NewPostgresCategories(db *sql.DB) *PostgresCategories {
	return &PostgresCategories{db: db}
}

func (r *PostgresCategories) List(ctx context.Context, tenantID string) ([]Category, error) {
	q := `
		SELECT id, tenant_id, name, billboard_id, created_at, updated_at
		FROM categories
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.BillboardID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresCategories) Find(ctx context.Context, tenantID, id string) (Category, error) {
	q := `
		SELECT id, tenant_id, name, billboard_id, created_at, updated_at
		FROM categories
		WHERE tenant_id = $1 AND id = $2
	`
	var c Category
	err := r.db.QueryRowContext(ctx, q, tenantID, id).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.BillboardID, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return Category{}, ErrNotFound
	}
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

func (r *PostgresCategories) Insert(ctx context.Context, c Category) error {
	q := `
		INSERT INTO categories (id, tenant_id, name, billboard_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.TenantID, c.Name, c.BillboardID, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *PostgresCategories) Update(ctx context.Context, tenantID, id string, fields Fields) (Category, error) {
	set, args := updateClauses(fields, map[string]string{
		"name":        "name",
		"billboardId": "billboard_id",
	})
	q := fmt.Sprintf(`
		UPDATE categories SET %s
		WHERE tenant_id = $%d AND id = $%d
		RETURNING id, tenant_id, name, billboard_id, created_at, updated_at
	`, strings.Join(set, ", "), len(args)+1, len(args)+2)
	args = append(args, tenantID, id)

	var c Category
	err := r.db.QueryRowContext(ctx, q, args...).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.BillboardID, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return Category{}, ErrNotFound
	}
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

func (r *PostgresCategories) Delete(ctx context.Context, tenantID, id string) error {
	return execDelete(ctx, r.db, "categories", tenantID, id)
}

// --- Sizes ---

type PostgresSizes struct {
	db *sql.DB
}

func NewPostgresSizes(db *sql.DB) *PostgresSizes {
	return &PostgresSizes{db: db}
}

func (r *PostgresSizes) List(ctx context.Context, tenantID string) ([]Size, error) {
	q := `
		SELECT id, tenant_id, name, value, created_at, updated_at
		FROM sizes
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Size{}
	for rows.Next() {
		var s Size
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Name, &s.Value, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresSizes) Find(ctx context.Context, tenantID, id string) (Size, error) {
	q := `
		SELECT id, tenant_id, name, value, created_at, updated_at
		FROM sizes
		WHERE tenant_id = $1 AND id = $2
	`
	var s Size
	err := r.db.QueryRowContext(ctx, q, tenantID, id).
		Scan(&s.ID, &s.TenantID, &s.Name, &s.Value, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return Size{}, ErrNotFound
	}
	if err != nil {
		return Size{}, err
	}
	return s, nil
}

func (r *PostgresSizes) Insert(ctx context.Context, s Size) error {
	q := `
		INSERT INTO sizes (id, tenant_id, name, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.TenantID, s.Name, s.Value, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *PostgresSizes) Update(ctx context.Context, tenantID, id string, fields Fields) (Size, error) {
	set, args := updateClauses(fields, map[string]string{
		"name":  "name",
		"value": "value",
	})
	q := fmt.Sprintf(`
		UPDATE sizes SET %s
		WHERE tenant_id = $%d AND id = $%d
		RETURNING id, tenant_id, name, value, created_at, updated_at
	`, strings.Join(set, ", "), len(args)+1, len(args)+2)
	args = append(args, tenantID, id)

	var s Size
	err := r.db.QueryRowContext(ctx, q, args...).
		Scan(&s.ID, &s.TenantID, &s.Name, &s.Value, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return Size{}, ErrNotFound
	}
	if err != nil {
		return Size{}, err
	}
	return s, nil
}

func (r *PostgresSizes) Delete(ctx context.Context, tenantID, id string) error {
	return execDelete(ctx, r.db, "sizes", tenantID, id)
}

// --- Colors ---

type PostgresColors struct {
	db *sql.DB
}

func NewPostgresColors(db *sql.DB) *PostgresColors {
	return &PostgresColors{db: db}
}

func (r *PostgresColors) List(ctx context.Context, tenantID string) ([]Color, error) {
	q := `
		SELECT id, tenant_id, name, value, created_at, updated_at
		FROM colors
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Color{}
	for rows.Next() {
		var c Color
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Value, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresColors) Find(ctx context.Context, tenantID, id string) (Color, error) {
	q := `
		SELECT id, tenant_id, name, value, created_at, updated_at
		FROM colors
		WHERE tenant_id = $1 AND id = $2
	`
	var c Color
	err := r.db.QueryRowContext(ctx, q, tenantID, id).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.Value, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return Color{}, ErrNotFound
	}
	if err != nil {
		return Color{}, err
	}
	return c, nil
}

func (r *PostgresColors) Insert(ctx context.Context, c Color) error {
	q := `
		INSERT INTO colors (id, tenant_id, name, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.TenantID, c.Name, c.Value, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *PostgresColors) Update(ctx context.Context, tenantID, id string, fields Fields) (Color, error) {
	set, args := updateClauses(fields, map[string]string{
		"name":  "name",
		"value": "value",
	})
	q := fmt.Sprintf(`
		UPDATE colors SET %s
		WHERE tenant_id = $%d AND id = $%d
		RETURNING id, tenant_id, name, value, created_at, updated_at
	`, strings.Join(set, ", "), len(args)+1, len(args)+2)
	args = append(args, tenantID, id)

	var c Color
	err := r.db.QueryRowContext(ctx, q, args...).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.Value, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return Color{}, ErrNotFound
	}
	if err != nil {
		return Color{}, err
	}
	return c, nil
}

func (r *PostgresColors) Delete(ctx context.Context, tenantID, id string) error {
	return execDelete(ctx, r.db, "colors", tenantID, id)
}

// --- Products ---

type PostgresProducts struct {
	db *sql.DB
}

func NewPostgresProducts(db *sql.DB) *PostgresProducts {
	return &PostgresProducts{db: db}
}

const productColumns = `id, tenant_id, name, price, images, category_id, size_id, color_id, is_featured, is_archived, created_at, updated_at`

func (r *PostgresProducts) List(ctx context.Context, tenantID string) ([]Product, error) {
	q := `
		SELECT ` + productColumns + `
		FROM products
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresProducts) Find(ctx context.Context, tenantID, id string) (Product, error) {
	q := `
		SELECT ` + productColumns + `
		FROM products
		WHERE tenant_id = $1 AND id = $2
	`
	p, err := scanProduct(r.db.QueryRowContext(ctx, q, tenantID, id).Scan)
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresProducts) Insert(ctx context.Context, p Product) error {
	q := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.TenantID, p.Name, p.Price, pq.Array(p.Images),
		p.CategoryID, p.SizeID, p.ColorID, p.IsFeatured, p.IsArchived,
		p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PostgresProducts) Update(ctx context.Context, tenantID, id string, fields Fields) (Product, error) {
	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if v, ok := fields["name"].(string); ok && v != "" {
		add("name", v)
	}
	if _, ok := fields["price"]; ok {
		add("price", fieldFloat(fields, "price"))
	}
	if _, ok := fields["images"]; ok {
		if imgs := fieldStrings(fields, "images"); len(imgs) > 0 {
			add("images", pq.Array(imgs))
		}
	}
	if v, ok := fields["categoryId"].(string); ok && v != "" {
		add("category_id", v)
	}
	if v, ok := fields["sizeId"].(string); ok && v != "" {
		add("size_id", v)
	}
	if v, ok := fields["colorId"].(string); ok && v != "" {
		add("color_id", v)
	}
	if v, ok := fields["isFeatured"].(bool); ok {
		add("is_featured", v)
	}
	if v, ok := fields["isArchived"].(bool); ok {
		add("is_archived", v)
	}
	set = append(set, "updated_at = NOW()")

	q := fmt.Sprintf(`
		UPDATE products SET %s
		WHERE tenant_id = $%d AND id = $%d
		RETURNING `+productColumns+`
	`, strings.Join(set, ", "), len(args)+1, len(args)+2)
	args = append(args, tenantID, id)

	p, err := scanProduct(r.db.QueryRowContext(ctx, q, args...).Scan)
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresProducts) Delete(ctx context.Context, tenantID, id string) error {
	return execDelete(ctx, r.db, "products", tenantID, id)
}

func scanProduct(scan func(...any) error) (Product, error) {
	var p Product
	var images pq.StringArray
	err := scan(&p.ID, &p.TenantID, &p.Name, &p.Price, &images,
		&p.CategoryID, &p.SizeID, &p.ColorID, &p.IsFeatured, &p.IsArchived,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Images = []string(images)
	return p, nil
}

// --- shared helpers ---

// updateClauses builds SET clauses for the simple string-column kinds from
// the present payload fields, always refreshing updated_at.
func updateClauses(fields Fields, cols map[string]string) ([]string, []any) {
	set := []string{}
	args := []any{}
	for key, col := range cols {
		if v, ok := fields[key].(string); ok && v != "" {
			args = append(args, v)
			set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	set = append(set, "updated_at = NOW()")
	return set, args
}

func execDelete(ctx context.Context, db *sql.DB, table, tenantID, id string) error {
	res, err := db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE tenant_id = $1 AND id = $2", table),
		tenantID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
