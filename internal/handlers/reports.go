// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the HTTP API for lost and found reports and
// their public pages.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"lostfound/internal/config"
	"lostfound/internal/models"
	"lostfound/internal/publicref"
	"lostfound/internal/refcode"
	"lostfound/internal/slug"
	"lostfound/internal/store"
)

// ReportStore is the report persistence the handlers need. It is satisfied
// by *store.ReportStore.
type ReportStore interface {
	publicref.Store
	Create(ctx context.Context, r *models.Report) (*models.Report, bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	FindBySlug(ctx context.Context, slug string) (*models.Report, error)
	FindByPublicCode(ctx context.Context, code string) (*models.Report, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) error
}

// PageCache stores rendered public report pages. It is satisfied by
// *cache.ReportCache.
type PageCache interface {
	Get(ctx context.Context, slug string) ([]byte, bool)
	Set(ctx context.Context, slug string, body []byte)
	Invalidate(ctx context.Context, slug string)
}

// CacheLog records and lists public page evictions. It is satisfied by
// *store.CacheLogStore.
type CacheLog interface {
	Log(ctx context.Context, reportID uuid.UUID, slug, reason string)
	ForReport(ctx context.Context, reportID uuid.UUID, limit int) ([]store.CacheLogEntry, error)
}

// cacheLogLimit caps the entries returned by the cache log endpoint.
const cacheLogLimit = 50

// Reports groups the report API and public page handlers.
type Reports struct {
	store    ReportStore
	refs     *publicref.Service
	pages    PageCache
	cacheLog CacheLog
	cfg      *config.Config
}

// NewReports creates the report handler group.
func NewReports(st ReportStore, refs *publicref.Service, pages PageCache, cacheLog CacheLog, cfg *config.Config) *Reports {
	return &Reports{store: st, refs: refs, pages: pages, cacheLog: cacheLog, cfg: cfg}
}

// reportResponse is the staff-facing view of a report.
type reportResponse struct {
	*models.Report
	URL string `json:"url,omitempty"`
}

// publicReport is what anyone holding the link or QR sticker can see. It
// never includes contact details.
type publicReport struct {
	Kind        models.ReportKind   `json:"kind"`
	Status      models.ReportStatus `json:"status"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Context     string              `json:"context,omitempty"`
	City        string              `json:"city"`
	StateCode   string              `json:"state_code"`
	EventDate   string              `json:"event_date,omitempty"`
	PublicCode  string              `json:"public_code,omitempty"`
	Slug        string              `json:"slug"`
	URL         string              `json:"url"`
	QRCodeURL   string              `json:"qr_code_url"`
	CreatedAt   time.Time           `json:"created_at"`
}

func (h *Reports) view(rep *models.Report) reportResponse {
	resp := reportResponse{Report: rep}
	if rep.Slug != nil {
		resp.URL = h.cfg.ReportURL(*rep.Slug)
	}
	return resp
}

func (h *Reports) publicView(rep *models.Report, s string) publicReport {
	rec := publicref.RecordFromReport(rep)
	pv := publicReport{
		Kind:        rep.Kind,
		Status:      rep.Status,
		Title:       rep.Title,
		Description: rep.Description,
		Context:     rec.Fields.Context(),
		City:        rep.City,
		StateCode:   rep.StateCode,
		PublicCode:  rec.PublicCode,
		Slug:        s,
		URL:         h.cfg.ReportURL(s),
		QRCodeURL:   h.cfg.ReportURL(s) + "/qr.png",
		CreatedAt:   rep.CreatedAt,
	}
	if rep.EventDate != nil {
		pv.EventDate = rep.EventDate.Format(eventDateLayout)
	}
	return pv
}

// Create handles POST /api/reports. A resubmission of the same report
// returns the existing record with 200 instead of 201.
func (h *Reports) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.normalize()
	if err := validate.Struct(req); err != nil {
		fields := validationErrors(err)
		if fields == nil {
			slog.Error("validate report request failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": fields,
		})
		return
	}

	rep, created, err := h.store.Create(ctx, req.toReport())
	if err != nil {
		slog.Error("create report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	code, err := h.refs.EnsurePublicCode(ctx, publicref.RecordFromReport(rep))
	if err != nil {
		h.writeRefError(w, err, "assign public code", rep.ID)
		return
	}
	rep.PublicCode = &code

	status := http.StatusCreated
	if created {
		slog.Info("report created", "id", rep.ID, "kind", rep.Kind, "public_code", code)
	} else {
		status = http.StatusOK
		slog.Info("duplicate report submission", "id", rep.ID)
	}
	writeJSON(w, status, h.view(rep))
}

// Get handles GET /api/reports/{id}.
func (h *Reports) Get(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.view(rep))
}

// EnsurePublicCode handles POST /api/reports/{id}/public-code.
func (h *Reports) EnsurePublicCode(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	code, err := h.refs.EnsurePublicCode(r.Context(), publicref.RecordFromReport(rep))
	if err != nil {
		h.writeRefError(w, err, "assign public code", rep.ID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":          rep.ID.String(),
		"public_code": code,
	})
}

// EnsureSlug handles POST /api/reports/{id}/slug.
func (h *Reports) EnsureSlug(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	s, err := h.refs.EnsureSlug(r.Context(), publicref.RecordFromReport(rep))
	if err != nil {
		h.writeRefError(w, err, "assign slug", rep.ID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":   rep.ID.String(),
		"slug": s,
		"url":  h.cfg.ReportURL(s),
	})
}

// Resolve handles POST /api/reports/{id}/resolve. The public page is
// evicted from the cache so the new status shows immediately.
func (h *Reports) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rep, ok := h.loadReport(w, r)
	if !ok {
		return
	}

	if !rep.IsResolved() {
		err := h.store.SetStatus(ctx, rep.ID, models.ReportStatusResolved)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		if err != nil {
			slog.Error("resolve report failed", "error", err, "id", rep.ID)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		rep.Status = models.ReportStatusResolved
		slog.Info("report resolved", "id", rep.ID)
	}

	if rep.Slug != nil {
		h.pages.Invalidate(ctx, *rep.Slug)
		h.cacheLog.Log(ctx, rep.ID, *rep.Slug, "resolved")
	}
	writeJSON(w, http.StatusOK, h.view(rep))
}

// CacheHistory handles GET /api/reports/{id}/cache-log and lists the most
// recent evictions of the report's public page.
func (h *Reports) CacheHistory(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	entries, err := h.cacheLog.ForReport(r.Context(), rep.ID, cacheLogLimit)
	if err != nil {
		slog.Error("list cache log failed", "error", err, "id", rep.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if entries == nil {
		entries = []store.CacheLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ByCode handles GET /api/codes/{code}. Codes are not unique; the most
// recently created report carrying the code is returned.
func (h *Reports) ByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !refcode.Valid(code) {
		writeError(w, http.StatusBadRequest, "public code must be 5 digits")
		return
	}

	rep, err := h.store.FindByPublicCode(r.Context(), code)
	if err != nil {
		slog.Error("find report by code failed", "error", err, "code", code)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if rep == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, h.view(rep))
}

// PublicPage handles GET /r/{slug}, serving from the page cache when
// possible.
func (h *Reports) PublicPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := chi.URLParam(r, "slug")
	if !slug.Valid(s) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	if cached, ok := h.pages.Get(ctx, s); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("X-Cache", "HIT")
		w.Write(cached)
		return
	}

	rep, ok := h.findBySlug(w, r, s)
	if !ok {
		return
	}

	body, err := json.Marshal(h.publicView(rep, s))
	if err != nil {
		slog.Error("encode public report failed", "error", err, "slug", s)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	body = append(body, '\n')
	h.pages.Set(ctx, s, body)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Cache", "MISS")
	w.Write(body)
}

// QRCode handles GET /r/{slug}/qr.png and returns a PNG QR code that links
// to the public page. Slugs never change, so the image is cacheable.
func (h *Reports) QRCode(w http.ResponseWriter, r *http.Request) {
	s := chi.URLParam(r, "slug")
	if !slug.Valid(s) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	if _, ok := h.findBySlug(w, r, s); !ok {
		return
	}

	png, err := qrcode.Encode(h.cfg.ReportURL(s), qrcode.Medium, h.cfg.QRSize)
	if err != nil {
		slog.Error("encode qr code failed", "error", err, "slug", s)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(png)
}

// loadReport resolves the {id} URL parameter to a report, writing the
// error response itself when it cannot.
func (h *Reports) loadReport(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return nil, false
	}

	rep, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find report failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if rep == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return nil, false
	}
	return rep, true
}

func (h *Reports) findBySlug(w http.ResponseWriter, r *http.Request, s string) (*models.Report, bool) {
	rep, err := h.store.FindBySlug(r.Context(), s)
	if err != nil {
		slog.Error("find report by slug failed", "error", err, "slug", s)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if rep == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return nil, false
	}
	return rep, true
}

// writeRefError maps publicref failures to HTTP statuses. Store causes
// wrapped by ErrPersist decide between 404 and 409; everything else is a
// server error.
func (h *Reports) writeRefError(w http.ResponseWriter, err error, op string, id uuid.UUID) {
	switch {
	case errors.Is(err, publicref.ErrPersist) && errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "report not found")
	case errors.Is(err, publicref.ErrPersist) && errors.Is(err, store.ErrConflict):
		slog.Warn(op+" conflict", "error", err, "id", id)
		writeError(w, http.StatusConflict, "slug already taken, retry")
	default:
		slog.Error(op+" failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
