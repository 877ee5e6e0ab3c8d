package report

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"vitals-cloud/internal/auth"
	"vitals-cloud/internal/measurement/application"
)

// Handler serves weekly report downloads in PDF or XLSX form.
type Handler struct {
	service *application.AggregationService
	logger  *log.Logger
}

// NewHandler constructs a report handler.
func NewHandler(service *application.AggregationService, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("report handler: nil aggregation service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/reports/weekly.{pdf,xlsx}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	identity, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID, allowed := auth.ResolveTargetUser(r, identity)
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	summary, err := h.service.WeeklySummary(r.Context(), userID)
	if err != nil {
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	daily, err := h.service.DailyAggregates(r.Context(), userID, 7)
	if err != nil {
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, ".pdf"):
		payload, err := BuildWeeklyPDF(summary, daily, userID)
		if err != nil {
			h.logger.Printf("weekly report: pdf error: %v", err)
			http.Error(w, "report error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="weekly.pdf"`)
		_, _ = w.Write(payload)
	case strings.HasSuffix(r.URL.Path, ".xlsx"):
		payload, err := BuildWeeklyXLSX(summary, daily, userID)
		if err != nil {
			h.logger.Printf("weekly report: xlsx error: %v", err)
			http.Error(w, "report error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="weekly.xlsx"`)
		_, _ = w.Write(payload)
	default:
		http.NotFound(w, r)
	}
}
