package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/grandline/oracle/internal/models"
	"github.com/grandline/oracle/internal/service"
)

// maxRequestBody caps request bodies well above any plausible question.
const maxRequestBody = 64 << 10

type askRequest struct {
	Question string `json:"question"`
	Tier     string `json:"tier"`
}

type searchRequest struct {
	Query  string `json:"query"`
	Method string `json:"method"`
	Limit  int    `json:"limit"`
}

type searchResponse struct {
	Panels     []models.Panel    `json:"panels"`
	SBSEntries []models.SBSEntry `json:"sbs_entries"`
	PanelCount int               `json:"panel_count"`
	SBSCount   int               `json:"sbs_count"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", service.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}

	answer, err := s.asker.Ask(r.Context(), req.Question, req.Tier)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if req.Method == "" {
		req.Method = service.MethodSemantic
	}

	result, err := s.searcher.Search(r.Context(), req.Query, req.Method, req.Limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Panels:     result.Panels,
		SBSEntries: result.SBSEntries,
		PanelCount: len(result.Panels),
		SBSCount:   len(result.SBSEntries),
	})
}
