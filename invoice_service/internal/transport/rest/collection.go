package rest

import (
	"fmt"
	"net/http"

	"github.com/abgdnv/stockbook/pkg/web"
	"github.com/go-chi/chi/v5"
)

// collection serves the CRUD routes of one record type.
type collection[T any, C any, U any] struct {
	h       *Handler
	name    string
	service CRUDService[T, C, U]
}

func newCollection[T any, C any, U any](h *Handler, name string, svc CRUDService[T, C, U]) *collection[T, C, U] {
	return &collection[T, C, U]{h: h, name: name, service: svc}
}

func (c *collection[T, C, U]) routes(r chi.Router) {
	r.Get("/", c.FindAll)
	r.Post("/", c.Create)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", c.FindByID)
		r.Patch("/", c.Update)
		r.Delete("/", c.DeleteByID)
	})
}

// FindAll lists every record ordered by id.
func (c *collection[T, C, U]) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := c.h.loggerWithReqID(r)
	list := c.service.GetAll(r.Context())
	mLogger.DebugContext(r.Context(), "Successfully retrieved list", "collection", c.name, "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByID retrieves a record by its ID.
func (c *collection[T, C, U]) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := c.h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	found := c.service.GetByID(r.Context(), id)
	if found == nil {
		mLogger.WarnContext(r.Context(), "Record not found", "collection", c.name, "ID", id)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("%s with ID %d not found", c.name, id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Create validates the body and stores it under a freshly allocated id.
func (c *collection[T, C, U]) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := c.h.loggerWithReqID(r)
	var dto C
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	if err := c.h.validate.Struct(dto); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}

	created, err := c.service.Create(r.Context(), dto)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error creating record", "collection", c.name, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to create %s", c.name))
		return
	}
	mLogger.InfoContext(r.Context(), "Record created successfully", "collection", c.name)
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// Update merges the provided fields into an existing record.
func (c *collection[T, C, U]) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := c.h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto U
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	if err := c.h.validate.Struct(dto); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}

	updated, err := c.service.Update(r.Context(), id, dto)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error updating record", "collection", c.name, "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to update %s with ID %d", c.name, id))
		return
	}
	if updated == nil {
		mLogger.WarnContext(r.Context(), "Record not found for update", "collection", c.name, "ID", id)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("%s with ID %d not found", c.name, id))
		return
	}
	mLogger.InfoContext(r.Context(), "Record updated successfully", "collection", c.name, "ID", id)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// DeleteByID removes a record. Related records are left untouched.
func (c *collection[T, C, U]) DeleteByID(w http.ResponseWriter, r *http.Request) {
	mLogger := c.h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	deleted, err := c.service.Delete(r.Context(), id)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error deleting record", "collection", c.name, "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to delete %s with ID %d", c.name, id))
		return
	}
	if !deleted {
		mLogger.WarnContext(r.Context(), "Record not found for deletion", "collection", c.name, "ID", id)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("%s with ID %d not found", c.name, id))
		return
	}
	mLogger.InfoContext(r.Context(), "Record deleted successfully", "collection", c.name, "ID", id)
	w.WriteHeader(http.StatusNoContent)
}
