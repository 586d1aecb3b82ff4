package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

type chatResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	State     string            `json:"state"`
	Warning   string            `json:"warning,omitempty"`
	Messages  []domain.Message  `json:"messages"`
	Documents []documentPayload `json:"documents"`
}

type documentPayload struct {
	Name string `json:"name"`
}

type summaryPayload struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  int       `json:"messages"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Grounded bool     `json:"grounded"`
}

type renameRequest struct {
	Title string `json:"title"`
}

func (s *Server) sessions(r *http.Request) (driving.SessionManager, func()) {
	id := identityFrom(r.Context())
	unlock := s.lock(id.User)
	return s.ports.Sessions(id), unlock
}

// open makes chatID the open chat of m and returns any load warning.
func open(r *http.Request, m driving.SessionManager) (string, error) {
	chatID := chi.URLParam(r, "chatID")
	if cur := m.Current(); cur != nil && cur.ID == chatID {
		return "", nil
	}
	return m.Load(r.Context(), chatID)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	m, unlock := s.sessions(r)
	defer unlock()

	chats, err := m.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]summaryPayload, len(chats))
	for i, c := range chats {
		out[i] = summaryPayload{ID: c.ID, Title: c.Title, UpdatedAt: c.UpdatedAt, Messages: c.Messages}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": out, "count": len(out)})
}

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request) {
	m, unlock := s.sessions(r)
	defer unlock()

	if _, err := m.NewChat(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chatPayload(m, ""))
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	m, unlock := s.sessions(r)
	defer unlock()

	warning, err := open(r, m)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatPayload(m, warning))
}

func (s *Server) handleRenameChat(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		jsonError(w, "title is required", http.StatusBadRequest)
		return
	}

	m, unlock := s.sessions(r)
	defer unlock()

	if _, err := open(r, m); err != nil {
		writeError(w, err)
		return
	}
	if err := m.Rename(r.Context(), req.Title); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatPayload(m, ""))
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	m, unlock := s.sessions(r)
	defer unlock()

	if err := m.Delete(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	m, unlock := s.sessions(r)
	defer unlock()

	if _, err := open(r, m); err != nil {
		writeError(w, err)
		return
	}
	answer, err := m.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	out := askResponse{Answer: answer.Text, Sources: answer.Sources, Grounded: answer.Grounded}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	writeJSON(w, http.StatusOK, out)
}

func chatPayload(m driving.SessionManager, warning string) chatResponse {
	out := chatResponse{
		State:     string(m.State()),
		Warning:   warning,
		Messages:  []domain.Message{},
		Documents: []documentPayload{},
	}
	if cur := m.Current(); cur != nil {
		out.ID = cur.ID
		out.Title = cur.DisplayTitle()
		out.Messages = append(out.Messages, cur.Messages...)
		for _, f := range cur.ApprovedFiles {
			out.Documents = append(out.Documents, documentPayload{Name: f.Name})
		}
	}
	return out
}
