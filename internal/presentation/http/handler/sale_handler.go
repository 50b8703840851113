package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opentill/terminal/internal/application/service"
	"github.com/opentill/terminal/internal/domain/enum"
	"github.com/opentill/terminal/internal/presentation/http/dto/request"
	"github.com/opentill/terminal/internal/presentation/http/dto/response"
	"github.com/opentill/terminal/pkg/pagination"
)

// SaleHandler handles sale computation, finalization and lookup on the
// loopback API
type SaleHandler struct {
	transactions *service.TransactionService
	sync         *service.SyncService
	printer      *service.PrintService
	session      *service.Session
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(transactions *service.TransactionService, sync *service.SyncService, printer *service.PrintService, session *service.Session) *SaleHandler {
	return &SaleHandler{transactions: transactions, sync: sync, printer: printer, session: session}
}

// Compute calculates a sale's totals without persisting anything. The UI
// calls this on every basket change; the engine owns all money arithmetic.
func (h *SaleHandler) Compute(c *gin.Context) {
	var req request.SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid sale payload")
		return
	}

	sale, err := h.transactions.ComputeSale(req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Sale computed", sale)
}

// Create computes and persists a sale. Returns 201 when the server accepted
// the upload, 202 when it was durably queued for replay.
func (h *SaleHandler) Create(c *gin.Context) {
	var req request.SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid sale payload")
		return
	}

	sale, err := h.transactions.ComputeSale(req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	result, queued, err := h.sync.SaveSale(c.Request.Context(), sale)
	if err != nil {
		response.Error(c, err)
		return
	}
	if queued {
		response.Accepted(c, "Sale queued for sync", result)
		return
	}
	response.Created(c, "Sale recorded", result)
}

// Get returns one sale by ref, pending copy first.
func (h *SaleHandler) Get(c *gin.Context) {
	sale, err := h.sync.SaleForDisplay(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if sale == nil {
		response.NotFound(c, "Sale not found")
		return
	}
	response.OK(c, "Sale", sale)
}

// Void voids a sale by ref.
func (h *SaleHandler) Void(c *gin.Context) {
	var req request.VoidRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.BadRequest(c, "Invalid void payload")
		return
	}

	sale, queued, err := h.sync.VoidSale(c.Request.Context(), c.Param("ref"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	if queued {
		response.Accepted(c, "Void queued for sync", sale)
		return
	}
	response.OK(c, "Sale voided", sale)
}

// UpdateNotes attaches notes to a sale.
func (h *SaleHandler) UpdateNotes(c *gin.Context) {
	var req request.NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid notes payload")
		return
	}

	if err := h.sync.UpdateNotes(c.Request.Context(), c.Param("ref"), req.Notes); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Notes updated", nil)
}

// Receipt prints a customer receipt for a sale on the configured printer.
func (h *SaleHandler) Receipt(c *gin.Context) {
	sale, err := h.sync.SaleForDisplay(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if sale == nil {
		response.NotFound(c, "Sale not found")
		return
	}

	if err := h.printer.PrintReceipt(sale, h.session.Config()); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Receipt printed", nil)
}

// List pages through the locally known sales, newest first.
func (h *SaleHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))

	var req request.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid search parameters")
		return
	}

	query := service.SalesQuery{
		Ref:        req.Ref,
		CustomerID: req.CustomerID,
	}
	if req.Status != "" {
		for _, s := range []enum.SaleStatus{enum.SaleStatusOrder, enum.SaleStatusCompleted, enum.SaleStatusVoided, enum.SaleStatusRefunded} {
			if s.String() == req.Status {
				status := s
				query.Status = &status
				break
			}
		}
	}

	result, err := h.sync.SearchSales(c.Request.Context(), query, &pagination.Params{Page: page, PerPage: perPage})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPagination(c, 200, "Sales", result)
}
