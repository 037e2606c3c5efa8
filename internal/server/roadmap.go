package server

import (
	"net/http"
	"time"

	"github.com/p-n-ai/sat-prep/internal/roadmap"
)

type roadmapResponse struct {
	RoadmapString string         `json:"roadmapString"`
	CurrentLevel  int            `json:"currentLevel"`
	TotalSteps    int            `json:"totalSteps"`
	Percent       int            `json:"percent"`
	Completed     bool           `json:"completed"`
	CurrentStep   *roadmap.Step  `json:"currentStep,omitempty"`
	Proficiency   map[string]int `json:"proficiency,omitempty"`
	Steps         []roadmap.Step `json:"steps"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func viewRoadmap(rm *roadmap.Roadmap) roadmapResponse {
	resp := roadmapResponse{
		RoadmapString: rm.RoadmapString,
		CurrentLevel:  rm.CurrentLevel,
		TotalSteps:    rm.Len(),
		Percent:       rm.Percent(),
		Completed:     rm.Completed(),
		Proficiency:   rm.Proficiency,
		Steps:         rm.Steps,
		UpdatedAt:     rm.UpdatedAt,
	}
	if st, ok := rm.CurrentStep(); ok {
		resp.CurrentStep = &st
	}
	return resp
}

func (s *Server) handleGetRoadmap(w http.ResponseWriter, r *http.Request) {
	learnerID, err := s.learnerID(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rm, err := s.roadmaps.Get(r.Context(), learnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRoadmap(rm))
}

type generateRequest struct {
	Proficiency map[string]int `json:"proficiency" validate:"dive,keys,required,endkeys,gte=0,lte=5"`
}

// handleGenerateRoadmap replaces any existing roadmap. Without proficiency
// ratings the stored ones are reused.
func (s *Server) handleGenerateRoadmap(w http.ResponseWriter, r *http.Request) {
	learnerID, err := s.learnerID(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req generateRequest
	if err := s.validator.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rm, err := s.roadmaps.Regenerate(r.Context(), learnerID, req.Proficiency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewRoadmap(rm))
}

type progressRequest struct {
	CurrentLevel *int `json:"currentLevel" validate:"required,gte=0"`
}

func (s *Server) handleSetProgress(w http.ResponseWriter, r *http.Request) {
	learnerID, err := s.learnerID(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req progressRequest
	if err := s.validator.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rm, err := s.roadmaps.SetProgress(r.Context(), learnerID, *req.CurrentLevel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRoadmap(rm))
}

func (s *Server) handleDeleteRoadmap(w http.ResponseWriter, r *http.Request) {
	learnerID, err := s.learnerID(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.roadmaps.Delete(r.Context(), learnerID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
