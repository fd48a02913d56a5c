package repository

import (
	"fmt"
	"strconv"
	"time"
)

// Fields is the loosely-typed wire payload accepted at the handler boundary.
// It is converted into a typed record here and never flows past this package.
type Fields map[string]any

// Entity is what the fallback store and the orchestrating repository need
// from a catalog record.
type Entity interface {
	EntityID() string
	// Apply merges the present fields into the record and refreshes UpdatedAt.
	Apply(fields Fields, now time.Time)
}

// ValidationError reports a missing or malformed required field. Handlers map
// it to a 400 with the field-specific message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// --- Billboard ---

type Billboard struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Label     string    `json:"label"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewBillboard(tenantID, id string, f Fields, now time.Time) Billboard {
	return Billboard{
		ID:        id,
		TenantID:  tenantID,
		Label:     fieldString(f, "label"),
		ImageURL:  fieldString(f, "imageUrl"),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (b *Billboard) EntityID() string { return b.ID }

func (b *Billboard) Apply(f Fields, now time.Time) {
	if v, ok := f["label"].(string); ok && v != "" {
		b.Label = v
	}
	if v, ok := f["imageUrl"].(string); ok && v != "" {
		b.ImageURL = v
	}
	b.UpdatedAt = now
}

func ValidateBillboard(f Fields) error {
	if fieldString(f, "label") == "" {
		return &ValidationError{Field: "label", Message: "Label is required"}
	}
	if fieldString(f, "imageUrl") == "" {
		return &ValidationError{Field: "imageUrl", Message: "Image URL is required"}
	}
	return nil
}

// --- Category ---

type Category struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	BillboardID string    `json:"billboardId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewCategory(tenantID, id string, f Fields, now time.Time) Category {
	return Category{
		ID:          id,
		TenantID:    tenantID,
		Name:        fieldString(f, "name"),
		BillboardID: fieldString(f, "billboardId"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (c *Category) EntityID() string { return c.ID }

func (c *Category) Apply(f Fields, now time.Time) {
	if v, ok := f["name"].(string); ok && v != "" {
		c.Name = v
	}
	if v, ok := f["billboardId"].(string); ok && v != "" {
		// Dangling references are tolerated: the fallback store has no FK
		// enforcement and views render a placeholder label.
		c.BillboardID = v
	}
	c.UpdatedAt = now
}

func ValidateCategory(f Fields) error {
	if fieldString(f, "name") == "" {
		return &ValidationError{Field: "name", Message: "Name is required"}
	}
	if fieldString(f, "billboardId") == "" {
		return &ValidationError{Field: "billboardId", Message: "Billboard ID is required"}
	}
	return nil
}

/// --- Size / Color (same shape: name + value) ---

type Size struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewSize(tenantID, id string, f Fields, now time.Time) Size {
	return Size{
		ID:        id,
		TenantID:  tenantID,
		Name:      fieldString(f, "name"),
		Value:     fieldString(f, "value"),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Size) EntityID() string { return s.ID }

func (s *Size) Apply(f Fields, now time.Time) {
	if v, ok := f["name"].(string); ok && v != "" {
		s.Name = v
	}
	if v, ok := f["value"].(string); ok && v != "" {
		s.Value = v
	}
	s.UpdatedAt = now
}

type Color struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewColor(tenantID, id string, f Fields, now time.Time) Color {
	return Color{
		ID:        id,
		TenantID:  tenantID,
		Name:      fieldString(f, "name"),
		Value:     fieldString(f, "value"),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Color) EntityID() string { return c.ID }

func (c *Color) Apply(f Fields, now time.Time) {
	if v, ok := f["name"].(string); ok && v != "" {
		c.Name = v
	}
	if v, ok := f["value"].(string); ok && v != "" {
		c.Value = v
	}
	c.UpdatedAt = now
}

// ValidateNameValue covers both sizes and colors.
func ValidateNameValue(f Fields) error {
	if fieldString(f, "name") == "" {
		return &ValidationError{Field: "name", Message: "Name is required"}
	}
	if fieldString(f, "value") == "" {
		return &ValidationError{Field: "value", Message: "Value is required"}
	}
	return nil
}

// --- Product ---

type Product struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Images     []string  `json:"images"`
	CategoryID string    `json:"categoryId"`
	SizeID     string    `json:"sizeId"`
	ColorID    string    `json:"colorId"`
	IsFeatured bool      `json:"isFeatured"`
	IsArchived bool      `json:"isArchived"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func NewProduct(tenantID, id string, f Fields, now time.Time) Product {
	return Product{
		ID:         id,
		TenantID:   tenantID,
		Name:       fieldString(f, "name"),
		Price:      fieldFloat(f, "price"),
		Images:     fieldStrings(f, "images"),
		CategoryID: fieldString(f, "categoryId"),
		SizeID:     fieldString(f, "sizeId"),
		ColorID:    fieldString(f, "colorId"),
		IsFeatured: fieldBool(f, "isFeatured"),
		IsArchived: fieldBool(f, "isArchived"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (p *Product) EntityID() string { return p.ID }

func (p *Product) Apply(f Fields, now time.Time) {
	if v, ok := f["name"].(string); ok && v != "" {
		p.Name = v
	}
	if _, ok := f["price"]; ok {
		p.Price = fieldFloat(f, "price")
	}
	if _, ok := f["images"]; ok {
		if imgs := fieldStrings(f, "images"); len(imgs) > 0 {
			p.Images = imgs
		}
	}
	if v, ok := f["categoryId"].(string); ok && v != "" {
		p.CategoryID = v
	}
	if v, ok := f["sizeId"].(string); ok && v != "" {
		p.SizeID = v
	}
	if v, ok := f["colorId"].(string); ok && v != "" {
		p.ColorID = v
	}
	if v, ok := f["isFeatured"].(bool); ok {
		p.IsFeatured = v
	}
	if v, ok := f["isArchived"].(bool); ok {
		p.IsArchived = v
	}
	p.UpdatedAt = now
}

func ValidateProduct(f Fields) error {
	if fieldString(f, "name") == "" {
		return &ValidationError{Field: "name", Message: "Name is required"}
	}
	if _, ok := f["price"]; !ok {
		return &ValidationError{Field: "price", Message: "Price is required"}
	}
	if fieldString(f, "categoryId") == "" {
		return &ValidationError{Field: "categoryId", Message: "Category id is required"}
	}
	if fieldString(f, "colorId") == "" {
		return &ValidationError{Field: "colorId", Message: "Color id is required"}
	}
	if fieldString(f, "sizeId") == "" {
		return &ValidationError{Field: "sizeId", Message: "Size id is required"}
	}
	if len(fieldStrings(f, "images")) == 0 {
		return &ValidationError{Field: "images", Message: "Image is required"}
	}
	return nil
}

// --- Order ---

type Order struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	ProductIDs []string  `json:"productIds"`
	IsPaid     bool      `json:"isPaid"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func NewOrder(tenantID, id string, f Fields, now time.Time) Order {
	return Order{
		ID:         id,
		TenantID:   tenantID,
		ProductIDs: fieldStrings(f, "productIds"),
		IsPaid:     fieldBool(f, "isPaid"),
		Phone:      fieldString(f, "phone"),
		Address:    fieldString(f, "address"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (o *Order) EntityID() string { return o.ID }

func (o *Order) Apply(f Fields, now time.Time) {
	if v, ok := f["isPaid"].(bool); ok {
		o.IsPaid = v
	}
	if v, ok := f["phone"].(string); ok && v != "" {
		o.Phone = v
	}
	if v, ok := f["address"].(string); ok && v != "" {
		o.Address = v
	}
	if _, ok := f["productIds"]; ok {
		if ids := fieldStrings(f, "productIds"); len(ids) > 0 {
			o.ProductIDs = ids
		}
	}
	o.UpdatedAt = now
}

func ValidateOrder(f Fields) error {
	if len(fieldStrings(f, "productIds")) == 0 {
		return &ValidationError{Field: "productIds", Message: "Product ids are required"}
	}
	return nil
}

// --- payload helpers ---

func fieldString(f Fields, key string) string {
	v, _ := f[key].(string)
	return v
}

func fieldBool(f Fields, key string) bool {
	v, _ := f[key].(bool)
	return v
}

// fieldFloat accepts JSON numbers and numeric strings (the storefront posts
// price either way).
func fieldFloat(f Fields, key string) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return 0
}

// fieldStrings accepts ["a","b"], and for images also [{"url":"a"}, ...].
func fieldStrings(f Fields, key string) []string {
	raw, ok := f[key].([]any)
	if !ok {
		if vs, ok := f[key].([]string); ok {
			out := make([]string, len(vs))
			copy(out, vs)
			return out
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			if v != "" {
				out = append(out, v)
			}
		case map[string]any:
			if u, _ := v["url"].(string); u != "" {
				out = append(out, u)
			} else if u, ok := v["url"]; ok {
				if s := fmt.Sprint(u); s != "" && s != "<nil>" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
