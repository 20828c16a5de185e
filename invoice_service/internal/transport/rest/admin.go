package rest

import (
	"errors"
	"fmt"
	"net/http"

	ierrors "github.com/abgdnv/stockbook/invoice_service/internal/errors"
	"github.com/abgdnv/stockbook/invoice_service/internal/service"
	"github.com/abgdnv/stockbook/invoice_service/internal/store"
	"github.com/abgdnv/stockbook/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const defaultLowStockThreshold = 5

// UpdateStock applies a signed stock delta to a product.
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.StockUpdateDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}

	updated, err := h.services.Products.UpdateStock(r.Context(), id, *dto.Delta)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error updating stock for product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to update stock for product with ID %d", id))
		return
	}
	if updated == nil {
		mLogger.WarnContext(r.Context(), "Product not found for stock update", "ID", id)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("product with ID %d not found", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Stock updated successfully for product", "ID", id, "delta", *dto.Delta, "stock", updated.StockQuantity)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.services.Dashboard.Stats(r.Context()))
}

// DailyRevenue serves the zero filled revenue series between the from and to dates.
func (h *Handler) DailyRevenue(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	from, ok := web.ParseDate(r, w, mLogger, "from")
	if !ok {
		return
	}
	to, ok := web.ParseDate(r, w, mLogger, "to")
	if !ok {
		return
	}

	points := h.services.Dashboard.DailyRevenue(r.Context(), from, to)
	total := decimal.Zero
	for _, p := range points {
		total = total.Add(p.Revenue)
	}
	web.RespondJSON(w, mLogger, http.StatusOK, revenueResponse{
		From:   store.NewDate(from),
		To:     store.NewDate(to),
		Total:  total,
		Points: points,
	})
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	threshold, ok := web.ParseOptionalGte(r, w, mLogger, "threshold", 0, defaultLowStockThreshold)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, h.services.Dashboard.LowStock(r.Context(), threshold))
}

func (h *Handler) Counters(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.services.Counters.Counters(r.Context()))
}

// counterName returns the known counter named in the path, or writes a 400.
func (h *Handler) counterName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if !store.IsCounterName(name) {
		web.RespondError(w, h.loggerWithReqID(r), http.StatusBadRequest, fmt.Sprintf("Unknown counter: %s", name))
		return "", false
	}
	return name, true
}

func (h *Handler) GetCounter(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name, ok := h.counterName(w, r)
	if !ok {
		return
	}
	value := h.services.Counters.GetCounterValue(r.Context(), name)
	web.RespondJSON(w, mLogger, http.StatusOK, service.CounterDto{Name: name, Value: value, NextValue: value + 1})
}

// SetCounter makes the next id handed out by the counter equal nextValue.
func (h *Handler) SetCounter(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name, ok := h.counterName(w, r)
	if !ok {
		return
	}
	var dto service.CounterUpdateDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}

	if err := h.services.Counters.SetCounter(r.Context(), name, dto.NextValue); err != nil {
		if errors.Is(err, ierrors.ErrInvalidCounterValue) || errors.Is(err, ierrors.ErrUnknownCounter) {
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
			return
		}
		mLogger.ErrorContext(r.Context(), "Error setting counter", "counter", name, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to set counter %s", name))
		return
	}
	mLogger.InfoContext(r.Context(), "Counter set successfully", "counter", name, "next_value", dto.NextValue)
	web.RespondJSON(w, mLogger, http.StatusOK, service.CounterDto{Name: name, Value: dto.NextValue - 1, NextValue: dto.NextValue})
}

func (h *Handler) InitializeCounters(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.InitializeCountersDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}

	counters, err := h.services.Counters.InitializeAll(r.Context(), dto)
	if err != nil {
		if errors.Is(err, ierrors.ErrInvalidCounterValue) {
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
			return
		}
		mLogger.ErrorContext(r.Context(), "Error initializing counters", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to initialize counters")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, counters)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	snapshot := h.services.Backup.Export(r.Context())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="stockbook-backup-%s.json"`, snapshot.ExportedAt.Format("20060102T150405Z")))
	web.RespondJSON(w, mLogger, http.StatusOK, snapshot)
}

// Import restores a snapshot. Per-record failures are reported in the body, never as an error status.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var snapshot service.Snapshot
	if !web.DecodeJSON(w, r, mLogger, &snapshot) {
		return
	}
	result := h.services.Backup.Import(r.Context(), snapshot)
	mLogger.InfoContext(r.Context(), "Backup imported", "errors", len(result.Errors))
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}
