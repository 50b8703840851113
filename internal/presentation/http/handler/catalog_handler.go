package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	domainRepo "github.com/opentill/terminal/internal/domain/repository"
	"github.com/opentill/terminal/internal/presentation/http/dto/response"
)

// CatalogHandler serves the cached catalog and customer roster. These reads
// never touch the network; the realtime feed keeps the cache current.
type CatalogHandler struct {
	records domainRepo.RecordStore
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(records domainRepo.RecordStore) *CatalogHandler {
	return &CatalogHandler{records: records}
}

// Items lists the cached catalog, optionally filtered by a name substring.
func (h *CatalogHandler) Items(c *gin.Context) {
	search := strings.ToLower(c.Query("search"))

	items, err := decodeAll[entity.Item](c.Request.Context(), h.records, enum.RecordItem)
	if err != nil {
		response.Error(c, err)
		return
	}

	if search != "" {
		filtered := items[:0]
		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Name), search) || item.Code == c.Query("search") {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	response.OK(c, "Items", items)
}

// TaxRules lists the cached tax rules.
func (h *CatalogHandler) TaxRules(c *gin.Context) {
	rules, err := decodeAll[entity.TaxRule](c.Request.Context(), h.records, enum.RecordTaxRule)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Tax rules", rules)
}

// Customers lists the cached customer roster.
func (h *CatalogHandler) Customers(c *gin.Context) {
	customers, err := decodeAll[entity.Customer](c.Request.Context(), h.records, enum.RecordCustomer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Customers", customers)
}

func decodeAll[T any](ctx context.Context, records domainRepo.RecordStore, kind enum.RecordKind) ([]T, error) {
	raw, err := records.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, record := range raw {
		var value T
		if err := record.Decode(&value); err != nil {
			continue
		}
		out = append(out, value)
	}
	return out, nil
}
