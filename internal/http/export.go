package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"storefront-data/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportHandler streams a tenant's product catalog as an .xlsx workbook.
type ExportHandler struct {
	products *repository.ProductRepo
	logger   *zap.Logger
}

func NewExportHandler(products *repository.ProductRepo, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{products: products, logger: logger}
}

func (h *ExportHandler) Register(r *Router) {
	r.Handle("GET /api/{tenant}/products/export", h.ExportProducts)
}

var productExportHeader = []string{
	"ID", "Name", "Price", "Category ID", "Size ID", "Color ID",
	"Featured", "Archived", "Images", "Created At", "Updated At",
}

func (h *ExportHandler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	if tenant == "" {
		writeText(w, http.StatusBadRequest, "Tenant id is required")
		return
	}

	// Export includes archived rows: it is an admin inventory dump, not a
	// storefront listing.
	products := h.products.List(r.Context(), tenant)

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Products"
	f.SetSheetName(f.GetSheetName(0), sheet)
	for col, title := range productExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
	}
	for i, p := range products {
		row := i + 2
		values := []any{
			p.ID, p.Name, p.Price, p.CategoryID, p.SizeID, p.ColorID,
			p.IsFeatured, p.IsArchived, strings.Join(p.Images, "\n"),
			p.CreatedAt.Format("2006-01-02 15:04:05"),
			p.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="products-%s.xlsx"`, tenant))
	if err := f.Write(w); err != nil {
		h.logger.Warn("product export write failed",
			zap.String("tenant_id", tenant), zap.Error(err))
	}
}
