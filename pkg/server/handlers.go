package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/pipeline"
	"github.com/nstogner/answerpipe/pkg/store"
)

var errNoJournal = errors.New("run journal disabled")

// chatRequest is the body of a chat call and of each WebSocket frame.
type chatRequest struct {
	Messages []domain.Message `json:"messages"`
}

type chatResponse struct {
	RunID   string          `json:"run_id"`
	State   domain.RunState `json:"state"`
	Content string          `json:"content"`
	Sources []domain.Source `json:"sources"`
}

type pipeStatus struct {
	pipeline.PipeInfo
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// statusFor maps run errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrUnknownPipe):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrMissingCredential):
		return http.StatusPreconditionFailed
	case errors.Is(err, pipeline.ErrEmptyConversation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// --- Pipes ---

func (s *Server) handleListPipes(w http.ResponseWriter, r *http.Request) {
	infos := s.pipes.Pipes()
	out := make([]pipeStatus, 0, len(infos))
	for _, info := range infos {
		st := pipeStatus{PipeInfo: info, Ready: true}
		p, _ := s.pipes.Get(info.ID)
		if err := p.Orchestrator.CheckCredentials(); err != nil {
			st.Ready = false
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	s.jsonResponse(w, http.StatusOK, out)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.pipes.Get(id); !ok {
		s.errorResponse(w, http.StatusNotFound, fmt.Errorf("%w: %s", pipeline.ErrUnknownPipe, id))
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}

	resp := chatResponse{Sources: []domain.Source{}}
	deliver := func(_ context.Context, text string) error {
		resp.Content = text
		return nil
	}
	sources := func(_ context.Context, src []domain.Source) error {
		resp.Sources = src
		return nil
	}

	res, err := s.pipes.Chat(r.Context(), id, req.Messages, deliver, sources)
	if err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	resp.RunID = res.RunID
	resp.State = res.State
	s.jsonResponse(w, http.StatusOK, resp)
}

// --- Journal ---

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	journal := s.pipes.Journal()
	if journal == nil {
		s.errorResponse(w, http.StatusNotFound, errNoJournal)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := journal.ListRuns(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	s.jsonResponse(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	journal := s.pipes.Journal()
	if journal == nil {
		s.errorResponse(w, http.StatusNotFound, errNoJournal)
		return
	}

	run, err := journal.GetRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
