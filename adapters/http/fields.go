package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/artpar/maintforms/app"
	"github.com/artpar/maintforms/domain/field"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// FieldsHandler serves the field registry and form endpoints.
type FieldsHandler struct {
	registry *app.Registry
	forms    *app.FormService
	logger   zerolog.Logger
}

// NewFieldsHandler creates the field API handler.
func NewFieldsHandler(registry *app.Registry, forms *app.FormService, logger zerolog.Logger) *FieldsHandler {
	return &FieldsHandler{
		registry: registry,
		forms:    forms,
		logger:   logger,
	}
}

// RegisterRoutes mounts the field routes on r. guard wraps every route that
// changes the schema.
func (h *FieldsHandler) RegisterRoutes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Get("/modules", h.ListModules)

	r.Route("/modules/{module}", func(r chi.Router) {
		r.Get("/fields", h.ListFields)
		r.Post("/fields/{id}/validate", h.ValidateField)
		r.Post("/validate", h.ValidateRecord)
		r.Post("/form-data", h.FormData)
		r.Get("/form", h.Form)

		r.Group(func(r chi.Router) {
			r.Use(guard)

			r.Post("/fields", h.AddField)
			r.Put("/fields/order", h.ReorderFields)
			r.Patch("/fields/{id}", h.UpdateField)
			r.Delete("/fields/{id}", h.DeleteField)
			r.Get("/audit", h.AuditTrail)
		})
	})
}

// ModuleSummary describes one module in the module list.
type ModuleSummary struct {
	Module       field.Module `json:"module"`
	Fields       int          `json:"fields"`
	CustomFields int          `json:"customFields"`
}

// ListModules returns every module with its field counts.
func (h *FieldsHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	modules := make([]ModuleSummary, 0, len(field.AllModules()))
	for _, m := range field.AllModules() {
		fields, err := h.registry.ModuleFields(r.Context(), m)
		if err != nil {
			h.serviceError(w, err)
			return
		}
		s := ModuleSummary{Module: m, Fields: len(fields)}
		for _, f := range fields {
			if !f.IsSystem {
				s.CustomFields++
			}
		}
		modules = append(modules, s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"modules": modules})
}

// ListFields returns the ordered fields of a module.
func (h *FieldsHandler) ListFields(w http.ResponseWriter, r *http.Request) {
	m, ok := h.module(w, r)
	if !ok {
		return
	}
	fields, err := h.registry.ModuleFields(r.Context(), m)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"module": m, "fields": fields})
}

// AddField adds a custom field.
func (h *FieldsHandler) AddField(w http.ResponseWriter, r *http.Request) {
	m, ok := h.module(w, r)
	if !ok {
		return
	}
	var f field.Field
	if !decode(w, r, &f) {
		return
	}
	added, err := h.registry.AddCustomField(r.Context(), m, f)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// UpdateField applies a partial update to a field. Members that are absent or
// null are left unchanged; optional attributes are reset by listing them in
// "clear", e.g. {"clear": ["defaultValue", "validation"]}.
func (h *FieldsHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	m, ok := h.module(w, r)
	if !ok {
		return
	}
	var patch field.Patch
	if !decode(w, r, &patch) {
		return
	}
	id := chi.URLParam(r, "id")
	found, err := h.registry.UpdateField(r.Context(), m, id, patch)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "field not found")
		return
	}
	h.writeField(w, r, m, id)
}

// DeleteField removes a custom field.
func (h *FieldsHandler) DeleteField(w http.ResponseWriter, r *http.Request) {
	m, ok := h.module(w, r)
	if !ok {
		return
	}
	deleted, err := h.registry.DeleteCustomField(r.Context(), m, chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "not_found", "custom field not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderRequest is the body of the reorder endpoint.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

// ReorderFields reorders the fields of a module.
func (h *FieldsHandler) ReorderFields(w http.ResponseWriter, r *http.Request) {
	m, ok := h.module(w, r)
	if !ok {
		return
	}
	var req ReorderRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.registry.ReorderFields(r.Context(), m, req.IDs)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reordered": n})
}

// ValidateFieldRequest is the body of the single-field validation endpoint.
type ValidateFieldRequest struct {
	Value any `json:"value"`
}

// ValidateField validates one value against one field.
func (h *FieldsHandler) ValidateField(w http.ResponseWriter, r *http.Request) {
	m, ok := h.module(w, r)
	if !ok {
		return
	}
	var req ValidateFieldRequest
	if !decode(w, r, &req) {
		return
	}
	res, found, err := h.registry.ValidateField(r.Context(), m, chi.URLParam(r, "id"), req.Value)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "field not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ValidateRecord validates a record, keyed by field name.
func (h *FieldsHandler) ValidateRecord(w http.ResponseWriter, r *http.Request) {
	m, ok := h.module(w, r)
	if !ok {
		return
	}
	values := map[string]any{}
	if !decode(w, r, &values) {
		return
	}
	res, err := h.registry.ValidateRecord(r.Context(), m, values)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// FormDataRequest is the body of the form data endpoint.
type FormDataRequest struct {
	Existing map[string]any `json:"existing"`
}

// FormData returns the initial values of a module form.
func (h *FieldsHandler) FormData(w http.ResponseWriter, r *http.Request) {
	m, ok := h.module(w, r)
	if !ok {
		return
	}
	var req FormDataRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	data, err := h.forms.GenerateFormData(r.Context(), m, req.Existing)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// Form returns the render-ready form of a module.
func (h *FieldsHandler) Form(w http.ResponseWriter, r *http.Request) {
	m, ok := h.module(w, r)
	if !ok {
		return
	}
	form, err := h.forms.BuildForm(r.Context(), m, nil)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// AuditEntryResponse represents an audit entry in API responses.
type AuditEntryResponse struct {
	ID       string       `json:"id"`
	FieldID  string       `json:"fieldId"`
	Action   string       `json:"action"`
	Actor    string       `json:"actor"`
	Before   field.Field  `json:"before"`
	After    field.Field  `json:"after"`
	RecordAt string       `json:"recordedAt"`
	Module   field.Module `json:"module"`
}

// AuditTrail lists the system field edits of a module, newest first.
func (h *FieldsHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	m, ok := h.module(w, r)
	if !ok {
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	entries, err := h.registry.AuditTrail(r.Context(), m, limit)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:       e.ID,
			FieldID:  e.FieldID,
			Action:   e.Action,
			Actor:    e.Actor,
			Before:   e.Before,
			After:    e.After,
			RecordAt: e.RecordAt.UTC().Format(time.RFC3339),
			Module:   e.Module,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *FieldsHandler) writeField(w http.ResponseWriter, r *http.Request, m field.Module, id string) {
	fields, err := h.registry.ModuleFields(r.Context(), m)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	for _, f := range fields {
		if f.ID == id {
			writeJSON(w, http.StatusOK, f)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "field not found")
}

func (h *FieldsHandler) module(w http.ResponseWriter, r *http.Request) (field.Module, bool) {
	m, err := field.ParseModule(chi.URLParam(r, "module"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_module", err.Error())
		return "", false
	}
	return m, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return false
	}
	return true
}

// serviceError maps registry errors onto HTTP status codes.
func (h *FieldsHandler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, field.ErrUnknownModule):
		writeError(w, http.StatusNotFound, "unknown_module", err.Error())
	case errors.Is(err, field.ErrDuplicateName), errors.Is(err, field.ErrDuplicateID):
		writeError(w, http.StatusConflict, "duplicate_field", err.Error())
	case errors.Is(err, field.ErrSystemField):
		writeError(w, http.StatusForbidden, "system_field", err.Error())
	case errors.Is(err, field.ErrInvalidField), errors.Is(err, field.ErrInvalidType):
		writeError(w, http.StatusBadRequest, "invalid_field", err.Error())
	default:
		h.logger.Error().Err(err).Msg("field request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
