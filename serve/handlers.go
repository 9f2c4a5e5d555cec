package serve

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	krrs "github.com/sapienskid/KRRS"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AskRequest is the POST /api/ask body.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the POST /api/ask reply.
type AskResponse struct {
	ID             string  `json:"id"`
	Answer         string  `json:"answer"`
	Subject        string  `json:"subject"`
	CritiquePasses int     `json:"critique_passes"`
	ToolRounds     int     `json:"tool_rounds"`
	Documents      int     `json:"documents"`
	CostUSD        float64 `json:"cost_usd"`
	DurationMs     int64   `json:"duration_ms"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	result, err := s.orc.Ask(r.Context(), req.Question)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, krrs.ErrEmptyQuestion) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, ErrorResponse{Error: err.Error()})
		return
	}

	s.persistResult(result)

	writeJSON(w, http.StatusOK, AskResponse{
		ID:             result.ID,
		Answer:         result.Answer,
		Subject:        string(result.Subject),
		CritiquePasses: result.CritiquePasses,
		ToolRounds:     result.ToolRounds,
		Documents:      result.Documents,
		CostUSD:        result.CostUSD,
		DurationMs:     result.Duration.Milliseconds(),
	})
}

// persistResult writes an invocation and its conversation to the store.
// Persistence failures are logged, not surfaced; the answer was delivered.
func (s *Server) persistResult(result *krrs.Result) {
	rec := InvocationRecord{
		ID:             result.ID,
		Question:       result.Question,
		Answer:         result.Answer,
		Subject:        string(result.Subject),
		CritiquePasses: result.CritiquePasses,
		ToolRounds:     result.ToolRounds,
		Documents:      result.Documents,
		InputTokens:    result.InputTokens,
		OutputTokens:   result.OutputTokens,
		CostUSD:        result.CostUSD,
		DurationMs:     result.Duration.Milliseconds(),
	}
	if err := s.store.InsertInvocation(rec); err != nil {
		slog.Error("persist invocation", "id", result.ID, "error", err)
		return
	}

	msgs := make([]MessageRecord, 0, len(result.Messages))
	for i, m := range result.Messages {
		msgs = append(msgs, MessageRecord{
			InvocationID: result.ID,
			Seq:          i,
			Role:         string(m.Role),
			Content:      m.Content,
			ToolCallID:   m.ToolCallID,
			ToolName:     m.Name,
		})
	}
	if err := s.store.InsertMessages(msgs); err != nil {
		slog.Error("persist messages", "id", result.ID, "error", err)
	}
}

// IndexRequest is the POST /api/index body.
type IndexRequest struct {
	URLs []string `json:"urls"`
}

// IndexResponse is the POST /api/index reply.
type IndexResponse struct {
	Indexed int              `json:"indexed"`
	Reports []krrs.URLReport `json:"reports"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	if len(req.URLs) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "urls is required"})
		return
	}

	reports, err := s.indexer.IndexURLs(r.Context(), req.URLs)
	if err != nil && !errors.Is(err, krrs.ErrNoValidDocuments) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	indexed := 0
	for _, rep := range reports {
		if rep.OK {
			indexed++
		}
		if storeErr := s.store.InsertIndexedDoc(IndexedDocRecord{
			URL:   rep.URL,
			Title: rep.Title,
			Chars: rep.Chars,
			OK:    rep.OK,
			Error: rep.Error,
		}); storeErr != nil {
			slog.Error("persist indexed doc", "url", rep.URL, "error", storeErr)
		}
	}

	status := http.StatusOK
	if errors.Is(err, krrs.ErrNoValidDocuments) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, IndexResponse{Indexed: indexed, Reports: reports})
}

func (s *Server) handleListInvocations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListInvocations(50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if recs == nil {
		recs = []InvocationRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetInvocation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, msgs, err := s.store.GetInvocation(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"invocation": rec,
		"messages":   msgs,
	})
}

// StatsResponse is the GET /api/stats reply.
type StatsResponse struct {
	StoreStats
	UptimeSeconds int64 `json:"uptime_seconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		StoreStats:    stats,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
