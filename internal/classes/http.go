package classes

import (
	"log/slog"
	"net/http"

	"class-service/common/httputil"
	"class-service/internal/metrics"

	"github.com/go-chi/chi/v5"
)

const errCreateClass = "Unexpected error while creating new class"

type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewHandler(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/classes", h.ListClasses)
	router.Post("/classes", h.CreateClass)
}

// ListClasses serves GET /classes?subject=&week_day=&time=.
func (h *Handler) ListClasses(w http.ResponseWriter, r *http.Request) {
	filter := FilterFromQuery(r.URL.Query())

	h.logger.InfoContext(r.Context(), "listing classes",
		"subject", filter.Subject,
		"week_day", filter.WeekDay,
		"time", filter.Time,
	)

	listings, err := h.service.ListClasses(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list classes", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.metrics.RecordClassesListed(r.Context(), len(listings))

	httputil.RespondWithJSON(w, http.StatusOK, listings)
}

// CreateClass serves POST /classes. Every failure gets the same 400 body.
func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req CreateClassRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.rejectCreate(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "creating class", "subject", stringValue(req.Subject), "slots", len(req.Schedule))
	class, err := h.service.CreateClass(r.Context(), &req)
	if err != nil {
		h.rejectCreate(w, r, err)
		return
	}

	h.metrics.RecordClassCreated(r.Context(), stringValue(class.Subject))
	h.logger.InfoContext(r.Context(), "class created", "class_id", class.ID, "user_id", class.UserID)

	httputil.RespondEmpty(w, http.StatusCreated)
}

func (h *Handler) rejectCreate(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WarnContext(r.Context(), "class creation failed", "error", err)
	h.metrics.RecordClassCreateFailed(r.Context())
	httputil.RespondWithError(w, http.StatusBadRequest, errCreateClass)
}
