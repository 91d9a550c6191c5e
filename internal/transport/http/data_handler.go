package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"pick4cli/internal/config"
	apierrors "pick4cli/internal/errors"
)

// DataHandler serves the read-only pipeline data endpoints.
type DataHandler struct {
	service DataServiceInterface
	logger  *slog.Logger
}

// NewDataHandler creates a data handler.
func NewDataHandler(service DataServiceInterface, logger *slog.Logger) *DataHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataHandler{
		service: service,
		logger:  logger.With(slog.String("component", "data_handler")),
	}
}

// Routes returns the data routes.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/sources", h.GetSources)
	r.Get("/sources/{source}", h.GetSource)

	r.Route("/cohorts/{cohort}", func(r chi.Router) {
		r.Get("/aggregate", h.GetAggregate)
		r.Get("/validation", h.GetValidation)
	})

	return r
}

// GetSources lists every series with its record count and date range.
func (h *DataHandler) GetSources(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListSources(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"sources": summaries,
		"count":   len(summaries),
	})
}

// GetSource returns one series summary with its recent draw tail.
func (h *DataHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "source")
	if name == "" {
		h.renderAPIError(w, r, apierrors.ErrValidation("source", "source name is required"))
		return
	}

	detail, err := h.service.SourceDetail(r.Context(), name)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, detail)
}

// aggregateRow is the JSON shape of one aggregate table row.
type aggregateRow struct {
	Date   string `json:"date"`
	Target string `json:"target"`
	Counts []int  `json:"counts"`
}

// GetAggregate returns a cohort's persisted aggregate table.
func (h *DataHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	cohort := chi.URLParam(r, "cohort")

	table, err := h.service.AggregateTable(r.Context(), cohort)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	rows := make([]aggregateRow, 0, len(table.Rows))
	for _, row := range table.Rows {
		rows = append(rows, aggregateRow{
			Date:   row.Date.Format(config.ISODateFormat),
			Target: row.Target.String(),
			Counts: row.Counts,
		})
	}
	render.JSON(w, r, map[string]interface{}{
		"cohort":    table.Cohort,
		"reference": table.Reference,
		"rows":      rows,
		"count":     len(rows),
	})
}

// GetValidation revalidates a cohort's aggregate and returns the
// report.
func (h *DataHandler) GetValidation(w http.ResponseWriter, r *http.Request) {
	cohort := chi.URLParam(r, "cohort")

	report, err := h.service.ValidationReport(r.Context(), cohort)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// renderError maps pipeline errors to their HTTP form.
func (h *DataHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))

	if appErr, ok := err.(*apierrors.AppError); ok {
		h.renderAPIError(w, r, apierrors.FromAppError(appErr))
		return
	}
	h.renderAPIError(w, r, apierrors.ErrInternalServer)
}

func (h *DataHandler) renderAPIError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	if err := render.Render(w, r, apierrors.NewErrorResponse(apiErr)); err != nil {
		apierrors.WriteError(w, apiErr)
	}
}
