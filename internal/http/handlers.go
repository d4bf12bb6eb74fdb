package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"samplace/internal/charts"
	"samplace/internal/core"
	"samplace/internal/export"
	"samplace/internal/log"
)

type indexData struct {
	Currency     string
	Today        string
	Summary      summaryView
	Transactions []transactionView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	txs, err := s.ledger.List(ctx)
	if err != nil {
		s.logFailure(ctx, "List ledger failed", err, log.OpList)
		http.Error(w, "could not load the ledger", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "index.html", indexData{
		Currency:     s.currency,
		Today:        core.Today().String(),
		Summary:      newSummaryView(core.Summarize(txs), s.currency),
		Transactions: newTransactionViews(txs, s.currency),
	})
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.List(r.Context())
	if err != nil {
		s.logFailure(r.Context(), "List ledger failed", err, log.OpList)
		ErrorResponse(http.StatusInternalServerError, "Could not load transactions").Write(w)
		return
	}
	s.render(w, r, "table.html", newTransactionViews(txs, s.currency))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.Summary(r.Context())
	if err != nil {
		s.logFailure(r.Context(), "Summary failed", err, log.OpRead)
		ErrorResponse(http.StatusInternalServerError, "Could not load totals").Write(w)
		return
	}
	s.render(w, r, "summary.html", newSummaryView(summary, s.currency))
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	id, err := ParseID(r.URL.Query().Get("id"))
	if err != nil {
		BadRequestError("Missing or invalid transaction id").Write(w)
		return
	}

	t, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.logFailure(r.Context(), "Load transaction failed", err, log.OpRead)
		}
		ServiceErrorResponse(err).Write(w)
		return
	}
	s.render(w, r, "edit_form.html", newEditView(t))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.Export(r.Context())
	if err != nil {
		s.logFailure(r.Context(), "Export failed", err, log.OpExport)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleBalanceChart answers 204 until there are two points to draw.
func (s *Server) handleBalanceChart(w http.ResponseWriter, r *http.Request) {
	png, err := s.ledger.BalanceChart(r.Context())
	if errors.Is(err, charts.ErrNotEnoughData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.logFailure(r.Context(), "Chart rendering failed", err, log.OpRender)
		http.Error(w, "chart failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports not_ready until templates are loaded and the store
// answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.ledger.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// logFailure logs unexpected errors; rejected input and missing ids are
// logged at warn level.
func (s *Server) logFailure(ctx context.Context, msg string, err error, op string) {
	logger := log.FromContext(ctx)
	if core.IsValidation(err) || errors.Is(err, core.ErrNotFound) {
		logger.WarnContext(ctx, msg, log.FieldError, err, log.FieldOperation, op)
		return
	}
	log.NewStructuredLogger(logger).LogError(ctx, msg, err, op, nil)
}
