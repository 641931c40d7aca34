package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coolbeans/redline/pkg/export"
	"github.com/coolbeans/redline/pkg/group"
	"github.com/coolbeans/redline/pkg/records"
	"github.com/coolbeans/redline/pkg/redline"
	"go.uber.org/zap"
)

type groupSummary struct {
	Key                         string   `json:"key"`
	Rows                        int      `json:"rows"`
	SectionNumbers              []string `json:"sectionNumbers"`
	RepresentativeSectionNumber string   `json:"representativeSectionNumber"`
	HasVersions                 bool     `json:"hasVersions"`
	HasFinalText                bool     `json:"hasFinalText"`
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	snapshot := s.Snapshot()
	if snapshot == nil {
		jsonError(w, "no dataset loaded", http.StatusServiceUnavailable)
		return
	}

	summaries := make([]groupSummary, 0, len(snapshot.Groups))
	for _, g := range snapshot.Groups {
		summaries = append(summaries, groupSummary{
			Key:                         g.Key,
			Rows:                        len(g.Rows),
			SectionNumbers:              g.SectionNumbers,
			RepresentativeSectionNumber: g.RepresentativeSectionNumber,
			HasVersions:                 g.HasVersions(),
			HasFinalText:                group.FinalText(g) != "",
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"groups":   summaries,
		"stats":    group.Summarize(snapshot.Groups),
		"loadedAt": snapshot.LoadedAt.Format(time.RFC3339),
	})
}

// handleGroupComparison opens the comparison for one group. The key travels
// as a query parameter since headers contain spaces and slashes.
func (s *Server) handleGroupComparison(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		jsonError(w, "key query parameter is required", http.StatusBadRequest)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	snapshot := s.Snapshot()
	if snapshot == nil {
		jsonError(w, "no dataset loaded", http.StatusServiceUnavailable)
		return
	}
	found, ok := group.Find(snapshot.Groups, key)
	if !ok {
		jsonError(w, fmt.Sprintf("group %q not found", key), http.StatusNotFound)
		return
	}

	s.writePayload(w, s.builder.BuildGroup(found), format)
}

type comparisonRequest struct {
	Sources          []redline.Source `json:"sources"`
	FinalText        string           `json:"finalText"`
	AgreementPhrases records.Phrases  `json:"agreementPhrases"`
}

func (s *Server) handleBuildComparison(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var request comparisonRequest
	if !s.decodeBody(w, r, &request) {
		return
	}

	payload := s.builder.Build(request.Sources, request.FinalText, request.AgreementPhrases)
	s.writePayload(w, payload, format)
}

type compareRequest struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

func (s *Server) handleCompareTwo(w http.ResponseWriter, r *http.Request) {
	var request compareRequest
	if !s.decodeBody(w, r, &request) {
		return
	}
	writeJSON(w, http.StatusOK, s.builder.CompareTwo(request.Before, request.After))
}

type normalizeRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var request normalizeRequest
	if !s.decodeBody(w, r, &request) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"normalized": s.normalizer.Normalize(request.Text)})
}

// decodeBody reads a size-capped JSON body into target and writes the error
// response itself when decoding fails.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	body := http.MaxBytesReader(w, r.Body, s.options.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writePayload(w http.ResponseWriter, payload redline.Payload, format export.Format) {
	if format == export.FormatJSON {
		writeJSON(w, http.StatusOK, payload)
		return
	}

	rendered, err := export.Render(payload, format, s.options.Export)
	if err != nil {
		s.logger.Error("failed to render comparison", zap.String("format", string(format)), zap.Error(err))
		jsonError(w, "failed to render comparison", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rendered))
}
