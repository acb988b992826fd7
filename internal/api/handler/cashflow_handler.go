package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/api/templates"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/service"
)

type CashFlowHandler struct {
	cashflow CashFlowService
	log      zerolog.Logger
}

func NewCashFlowHandler(cashflow CashFlowService, log zerolog.Logger) *CashFlowHandler {
	return &CashFlowHandler{cashflow: cashflow, log: log}
}

type transactionForm struct {
	ID          string `form:"id"`
	Type        string `form:"type"`
	Amount      string `form:"amount"`
	Category    string `form:"category"`
	Description string `form:"description"`
	Date        string `form:"date"`
}

type idForm struct {
	ID string `form:"id"`
}

func (h *CashFlowHandler) Show(c echo.Context) error {
	v, err := h.cashflow.Show(c.Request().Context(), viewer(c))
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, templates.PageCashFlow, newPage(c, "Flujo de Caja", v))
}

// Save creates a transaction, or updates the one named by the form's id.
func (h *CashFlowHandler) Save(c echo.Context) error {
	var f transactionForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.cashflow.Save(c.Request().Context(), viewer(c), service.TransactionInput{
		ID:          f.ID,
		Type:        f.Type,
		Amount:      f.Amount,
		Category:    f.Category,
		Description: f.Description,
		Date:        f.Date,
	}))
}

// Edit opens a transaction in the form; an empty id closes it.
func (h *CashFlowHandler) Edit(c echo.Context) error {
	var f idForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.cashflow.Edit(c.Request().Context(), viewer(c), f.ID))
}

func (h *CashFlowHandler) Delete(c echo.Context) error {
	return h.done(c, h.cashflow.Delete(c.Request().Context(), viewer(c), c.Param("id"), false))
}

func (h *CashFlowHandler) Confirm(c echo.Context) error {
	var f confirmForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	if f.Action != "delete_tx" {
		h.log.Warn().Str("action", f.Action).Msg("unknown confirmation")
		return h.back(c)
	}
	return h.done(c, h.cashflow.Delete(c.Request().Context(), viewer(c), f.Target, true))
}

func (h *CashFlowHandler) Dismiss(c echo.Context) error {
	return h.done(c, h.cashflow.Dismiss(c.Request().Context(), viewer(c)))
}

func (h *CashFlowHandler) done(c echo.Context, err error) error {
	if err != nil {
		return err
	}
	return h.back(c)
}

func (h *CashFlowHandler) back(c echo.Context) error {
	return seeOther(c, identity.RouteCashFlow)
}
