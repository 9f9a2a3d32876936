package realtime

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"approval-hub/internal/approval"
	"approval-hub/internal/store"
)

type submitProposalRequest struct {
	Text string `json:"text"`
}

type submitDecisionRequest struct {
	Approved bool `json:"approved"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.store.CreateSession()
	log.Printf("created session %s", sess.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.store.GetSession(id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.store.SessionExists(id) {
		writeError(w, store.ErrSessionNotFound)
		return
	}

	proposals := s.store.ListProposals(id)
	if proposals == nil {
		proposals = []approval.Proposal{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(proposals)
}

func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req submitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	proposal, err := s.store.AddProposal(id, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Printf("proposal %s submitted to session %s", proposal.ID, id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(proposal)
}

func (s *Server) handleSubmitDecision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pid := r.PathValue("pid")

	var req submitDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	updated, err := s.store.UpdateProposal(id, pid, req.Approved)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Printf("proposal %s in session %s was %s", updated.ID, id, updated.Status)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// writeError maps a store error to an HTTP status with a JSON error body.
func writeError(w http.ResponseWriter, err error) {
	http.Error(w, `{"error":"`+err.Error()+`"}`, errorStatus(err))
}

// errorStatus maps store errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrSessionNotFound), errors.Is(err, store.ErrProposalNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrEmptyProposal):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrAlreadyDecided):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
