package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/core"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/export"
	"github.com/joseph-ayodele/contract-extractor/internal/ingest"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
	"github.com/joseph-ayodele/contract-extractor/internal/utils"
)

const (
	headerTenantID  = "X-Tenant-ID"
	headerUserID    = "X-User-ID"
	headerRequestID = "X-Request-ID"

	maxJSONBody     = 1 << 20
	maxUploadMemory = 32 << 20
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// HealthChecker is satisfied by *repository.DB.
type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Gateway is the JSON/HTTP surface over the same orchestrator the gRPC service uses.
type Gateway struct {
	orch      *core.Orchestrator
	ingestor  ingest.Ingestor
	contracts repository.ContractRepository
	exporter  *export.Service
	health    HealthChecker
	logger    *slog.Logger
}

func NewGateway(logger *slog.Logger, orch *core.Orchestrator, ingestor ingest.Ingestor, contracts repository.ContractRepository, exporter *export.Service, health HealthChecker) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		orch:      orch,
		ingestor:  ingestor,
		contracts: contracts,
		exporter:  exporter,
		health:    health,
		logger:    logger,
	}
}

func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(g.requestLogger)
	r.Use(g.recoverer)

	r.HandleFunc("/health", g.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/analyses", g.handleSubmit).Methods(http.MethodPost)
	v1.HandleFunc("/analyses", g.handleList).Methods(http.MethodGet)
	// registered before {id} so "export" is not parsed as an id
	v1.HandleFunc("/analyses/export", g.handleExport).Methods(http.MethodGet)
	v1.HandleFunc("/analyses/{id}", g.handleGet).Methods(http.MethodGet)
	v1.HandleFunc("/documents", g.handleUpload).Methods(http.MethodPost)
	v1.HandleFunc("/contracts", g.handleCreateContract).Methods(http.MethodPost)
	v1.HandleFunc("/contracts", g.handleListContracts).Methods(http.MethodGet)
	return r
}

type submitRequest struct {
	DocumentID string `json:"document_id"`
	TenantID   string `json:"tenant_id"`
	UserID     string `json:"user_id"`
}

type submitResponse struct {
	AnalysisID uuid.UUID                `json:"analysis_id"`
	Status     constants.AnalysisStatus `json:"status"`
}

func (g *Gateway) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	documentID, err := uuid.Parse(strings.TrimSpace(req.DocumentID))
	if err != nil {
		g.writeError(w, r, invalidArg("document_id must be a UUID"))
		return
	}
	tenantID := firstNonEmpty(strings.TrimSpace(req.TenantID), r.Header.Get(headerTenantID))
	userID := firstNonEmpty(strings.TrimSpace(req.UserID), r.Header.Get(headerUserID))

	rec, err := g.orch.Submit(r.Context(), documentID, userID, tenantID)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{AnalysisID: rec.ID, Status: rec.Status})
}

func (g *Gateway) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		g.writeError(w, r, invalidArg("analysis id must be a UUID"))
		return
	}
	rec, err := g.orch.GetStatus(r.Context(), id)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	if tenantID := r.Header.Get(headerTenantID); tenantID != "" && rec.TenantID != tenantID {
		g.writeError(w, r, common.ErrAnalysisNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (g *Gateway) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID := firstNonEmpty(r.Header.Get(headerTenantID), q.Get("tenant_id"))
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			g.writeError(w, r, invalidArg("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	st := constants.AnalysisStatus(strings.ToUpper(q.Get("status")))
	recs, err := g.orch.List(r.Context(), tenantID, st, limit)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*entity.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": recs, "count": len(recs)})
}

func (g *Gateway) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := export.Request{
		TenantID: firstNonEmpty(r.Header.Get(headerTenantID), q.Get("tenant_id")),
		Status:   constants.AnalysisStatus(strings.ToUpper(q.Get("status"))),
	}
	if req.TenantID == "" {
		g.writeError(w, r, invalidArg("tenant_id is required"))
		return
	}
	if req.Status != "" && !req.Status.IsValid() {
		g.writeError(w, r, invalidArg(fmt.Sprintf("unknown status %q", req.Status)))
		return
	}
	for key, dst := range map[string]**time.Time{"from": &req.From, "to": &req.To} {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			continue
		}
		t, err := utils.ParseYMD(v)
		if err != nil {
			g.writeError(w, r, invalidArg(key+" must be YYYY-MM-DD"))
			return
		}
		*dst = &t
	}

	xlsx, err := g.exporter.ExportAnalysesXLSX(r.Context(), req)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="analyses.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(xlsx); err != nil {
		g.logger.Warn("export.write_failed", "error", err)
	}
}

type uploadResponse struct {
	ingest.IngestionResult
	AnalysisID *uuid.UUID `json:"analysis_id,omitempty"`
}

// handleUpload stores a multipart "file" as a document. With analyze=true it also
// submits an analysis for it.
func (g *Gateway) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		g.writeError(w, r, invalidArg("multipart form expected: "+err.Error()))
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		g.writeError(w, r, invalidArg("file is required"))
		return
	}
	defer file.Close()

	tenantID := firstNonEmpty(r.Header.Get(headerTenantID), r.FormValue("tenant_id"))
	res, err := g.ingestor.Ingest(r.Context(), ingest.Upload{
		TenantID:    tenantID,
		Title:       r.FormValue("title"),
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	out := uploadResponse{IngestionResult: res}
	if analyze, _ := strconv.ParseBool(r.FormValue("analyze")); analyze {
		userID := firstNonEmpty(r.Header.Get(headerUserID), r.FormValue("user_id"))
		rec, err := g.orch.Submit(r.Context(), res.DocumentID, userID, tenantID)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		out.AnalysisID = &rec.ID
	}
	code := http.StatusCreated
	if res.Deduplicated {
		code = http.StatusOK
	}
	writeJSON(w, code, out)
}

type contractRequest struct {
	CounterpartyName string `json:"counterparty_name"`
	Title            string `json:"title"`
	TenantID         string `json:"tenant_id"`
}

func (g *Gateway) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := decodeJSON(r, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	tenantID := firstNonEmpty(strings.TrimSpace(req.TenantID), r.Header.Get(headerTenantID))
	name := strings.TrimSpace(req.CounterpartyName)
	if err := common.NewValidator().
		Field("tenant_id", tenantID, common.Required, common.MaxLength(64)).
		Field("counterparty_name", name, common.Required, common.MaxLength(255)).
		Err(); err != nil {
		g.writeError(w, r, err)
		return
	}
	c, err := g.contracts.Create(r.Context(), &entity.Contract{
		TenantID:         tenantID,
		CounterpartyName: name,
		Title:            strings.TrimSpace(req.Title),
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (g *Gateway) handleListContracts(w http.ResponseWriter, r *http.Request) {
	tenantID := firstNonEmpty(r.Header.Get(headerTenantID), r.URL.Query().Get("tenant_id"))
	if tenantID == "" {
		g.writeError(w, r, invalidArg("tenant_id is required"))
		return
	}
	list, err := g.contracts.ListByTenant(r.Context(), tenantID)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*entity.Contract{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"contracts": list, "count": len(list)})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if g.health != nil {
		if err := g.health.HealthCheck(r.Context(), 2*time.Second); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, reqID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(common.WithRequestID(r.Context(), reqID)))
		g.logger.Info("http.request", "method", r.Method, "path", r.URL.Path, "status", rec.status,
			"req_id", reqID, "elapsed_ms", time.Since(start).Milliseconds())
	})
}

func (g *Gateway) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				g.logger.Error("http.panic", "path", r.URL.Path, "panic", fmt.Sprint(p))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		g.logger.Error("http.error", "path", r.URL.Path, "req_id", common.RequestIDFromContext(r.Context()), "error", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func invalidArg(msg string) error {
	return common.NewAppError("INVALID_ARGUMENT", msg, common.ErrInvalidInput)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(dst); err != nil {
		return invalidArg("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
