package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smartledger/internal/core"
	"smartledger/internal/extract"
	applog "smartledger/internal/log"
	"smartledger/internal/services"
)

const (
	confirmDeleteRange = "DEL"
	confirmDeleteAll   = "DELETE"
	maxJSONBody        = 64 << 10
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	st := s.summaries.Stats()
	checks["cache"] = map[string]any{"entries": st.Entries, "hits": st.Hits, "misses": st.Misses}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.activeClients()}
	ds := s.detector.stats()
	checks["security"] = map[string]any{"suspicious_requests": ds.Suspicious, "blocked_requests": ds.Blocked}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	month, rng := s.filterFrom(ctx, r.URL.Query())
	filter := newFilterView(month, rng)

	months, err := s.svc.Months(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list months", "error", err)
	}
	expenses, err := s.svc.List(ctx, rng)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list expenses", "error", err)
	}
	sum, err := s.summary(ctx, rng)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to summarize expenses", "error", err)
	}

	s.render(w, r, http.StatusOK, "index.html", pageView{
		Today:      s.clock().Format(core.DateLayout),
		Categories: core.Categories(),
		Months:     months,
		Filter:     filter,
		Summary:    newSummaryView(filter, sum),
		Expenses:   newExpensesView(filter, expenses),
	})
}

// filterFrom parses the filter, falling back to every expense when it is invalid.
func (s *Server) filterFrom(ctx context.Context, values url.Values) (string, services.Range) {
	rng, err := parseRange(values)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Ignoring invalid filter", "error", err)
		return "", services.Range{}
	}
	return strings.TrimSpace(values.Get("month")), rng
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month, rng := s.filterFrom(ctx, r.URL.Query())
	sum, err := s.summary(ctx, rng)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Summary error", "error", err)
		http.Error(w, "無法載入統計", http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "summary.html", newSummaryView(newFilterView(month, rng), sum))
}

func (s *Server) handleExpenseTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month, rng := s.filterFrom(ctx, r.URL.Query())
	expenses, err := s.svc.List(ctx, rng)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "List expenses error", "error", err)
		http.Error(w, "無法載入消費紀錄", http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "expenses.html", newExpensesView(newFilterView(month, rng), expenses))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "Parse form error", "error", err)
		s.render(w, r, http.StatusBadRequest, "result.html", resultView{Message: "請求格式錯誤"})
		return
	}

	rec, err := s.svc.Record(ctx, sanitizeInput(r.Form.Get("text")))
	var incomplete *services.IncompleteError
	switch {
	case errors.Is(err, services.ErrEmptyText):
		s.render(w, r, http.StatusBadRequest, "result.html", resultView{Message: "請輸入一句消費描述"})
		return
	case errors.As(err, &incomplete):
		logger.InfoContext(ctx, "Extraction incomplete", "error", incomplete.Err, applog.FieldCalls, incomplete.Result.Calls)
		v := newResultView(incomplete.Result.Record, incomplete.Result.Calls, incomplete.Result.Corrected)
		v.Message = "解析失敗，請再試一次"
		s.render(w, r, http.StatusUnprocessableEntity, "result.html", v)
		return
	case err != nil:
		logger.ErrorContext(ctx, "Failed to record expense", "error", err)
		s.render(w, r, http.StatusInternalServerError, "result.html", resultView{Message: "處理失敗，請稍後再試"})
		return
	}

	e := rec.Expense
	applog.NewStructuredLogger(logger).LogExpenseCreated(ctx, e.ID, e.Date, e.Amount, string(e.Category), rec.Result.Calls, rec.Result.Corrected)
	s.invalidate(w)

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	v := newResultView(rec.Result.Record, rec.Result.Calls, rec.Result.Corrected)
	v.OK = true
	v.Message = "已記錄"
	s.render(w, r, http.StatusOK, "result.html", v)
}

func (s *Server) handleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "result.html", resultView{Message: "請求格式錯誤"})
		return
	}
	ids, err := parseIDs(r.Form["id"])
	if err != nil {
		s.render(w, r, http.StatusBadRequest, "result.html", resultView{Message: err.Error()})
		return
	}
	if len(ids) == 0 {
		s.render(w, r, http.StatusBadRequest, "result.html", resultView{Message: "請先勾選要刪除的紀錄"})
		return
	}
	n, err := s.svc.Delete(r.Context(), ids)
	s.afterDelete(w, r, n, err)
}

func (s *Server) handleDeleteRange(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "result.html", resultView{Message: "請求格式錯誤"})
		return
	}
	if strings.TrimSpace(r.PostForm.Get("confirm")) != confirmDeleteRange {
		s.render(w, r, http.StatusBadRequest, "result.html", resultView{Message: "請輸入 " + confirmDeleteRange + " 確認刪除"})
		return
	}
	rng, err := parseRange(r.PostForm)
	if err == nil && rng.IsZero() {
		err = services.ErrInvalidRange
	}
	if err != nil {
		s.render(w, r, http.StatusBadRequest, "result.html", resultView{Message: "日期區間不正確"})
		return
	}
	n, err := s.svc.DeleteRange(r.Context(), rng)
	s.afterDelete(w, r, n, err)
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "result.html", resultView{Message: "請求格式錯誤"})
		return
	}
	if strings.TrimSpace(r.PostForm.Get("confirm")) != confirmDeleteAll {
		s.render(w, r, http.StatusBadRequest, "result.html", resultView{Message: "請輸入 " + confirmDeleteAll + " 確認刪除全部"})
		return
	}
	n, err := s.svc.DeleteAll(r.Context())
	s.afterDelete(w, r, n, err)
}

func (s *Server) afterDelete(w http.ResponseWriter, r *http.Request, n int64, err error) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Delete failed", "error", err, applog.FieldPath, r.URL.Path)
		s.render(w, r, http.StatusInternalServerError, "result.html", resultView{Message: "刪除失敗"})
		return
	}
	logger.InfoContext(ctx, "Expenses deleted", applog.FieldCount, n, applog.FieldOperation, applog.OpDelete)
	s.invalidate(w)

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "result.html", resultView{OK: true, Message: "已刪除 " + itoa(n) + " 筆"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rng, err := parseRange(r.URL.Query())
	if err != nil {
		http.Error(w, "日期區間不正確", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+services.ExportFilename(rng)+`"`)
	if err := s.svc.ExportCSV(ctx, w, rng); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "CSV export failed", "error", err, applog.FieldOperation, applog.OpExport)
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	extract.Result
	Complete bool   `json:"complete"`
	Problem  string `json:"problem,omitempty"`
}

func (s *Server) handleAPIExtract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req extractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.svc.Preview(ctx, sanitizeInput(req.Text))
	if errors.Is(err, services.ErrEmptyText) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Preview failed", "error", err, applog.FieldOperation, applog.OpExtract)
		writeJSONError(w, http.StatusBadGateway, "generation failed")
		return
	}

	out := extractResponse{Result: res, Complete: true}
	if err := res.Record.Complete(); err != nil {
		out.Complete = false
		out.Problem = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rng, err := parseRange(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	expenses, err := s.svc.List(ctx, rng)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "List expenses error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses, "count": len(expenses)})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	ctx := r.Context()
	if s.templates == nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Template execution failed", "error", err, "template", name)
	}
}
