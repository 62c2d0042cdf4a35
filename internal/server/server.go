// Package server is thin presentation glue: JSON handlers over the services.
// No rating logic lives here.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tennis-tracker/internal/domain"
	"tennis-tracker/internal/repository"
	"tennis-tracker/internal/service"

	"github.com/rs/zerolog"
)

type Server struct {
	playerSvc   *service.PlayerService
	matchSvc    *service.MatchService
	transferSvc *service.TransferService
	logger      zerolog.Logger
}

func New(playerSvc *service.PlayerService, matchSvc *service.MatchService, transferSvc *service.TransferService, logger zerolog.Logger) *Server {
	return &Server{playerSvc: playerSvc, matchSvc: matchSvc, transferSvc: transferSvc, logger: logger}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /players", s.listPlayers)
	mux.HandleFunc("POST /players", s.createPlayer)
	mux.HandleFunc("PUT /players/{id}", s.updatePlayer)
	mux.HandleFunc("DELETE /players/{id}", s.deletePlayer)
	mux.HandleFunc("GET /players/{id}/companionships", s.companionships)

	mux.HandleFunc("GET /matches", s.listMatches)
	mux.HandleFunc("GET /matches/{id}", s.getMatch)
	mux.HandleFunc("POST /matches", s.reportMatch)
	mux.HandleFunc("POST /matches/preview", s.previewMatch)
	mux.HandleFunc("PUT /matches/{id}", s.editMatch)
	mux.HandleFunc("DELETE /matches/{id}", s.deleteMatch)

	mux.HandleFunc("POST /import/players", s.importPlayers)
	mux.HandleFunc("POST /import/matches", s.importMatches)
	mux.HandleFunc("POST /import/all", s.importAll)
	mux.HandleFunc("GET /export", s.exportJSON)
	mux.HandleFunc("GET /export/csv", s.exportCSV)

	return mux
}

type createPlayerRequest struct {
	Name          string  `json:"name"`
	SinglesRating float64 `json:"singlesRating"`
	DoublesRating float64 `json:"doublesRating"`
	OnCurrentTeam bool    `json:"onCurrentTeam"`
}

type matchRequest struct {
	WinnerIDs []string  `json:"winnerIds"`
	LoserIDs  []string  `json:"loserIds"`
	Scores    []int     `json:"scores"`
	Date      time.Time `json:"date"`
}

type importRequest struct {
	URL string `json:"url"`
}

func (s *Server) listPlayers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.playerSvc.Summaries(r.Context()))
}

func (s *Server) createPlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	player, err := s.playerSvc.Create(r.Context(), req.Name, req.SinglesRating, req.DoublesRating, req.OnCurrentTeam)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, player)
}

func (s *Server) updatePlayer(w http.ResponseWriter, r *http.Request) {
	var player domain.Player
	if err := json.NewDecoder(r.Body).Decode(&player); err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	player.PlayerID = r.PathValue("id")
	if err := s.playerSvc.Update(r.Context(), player); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, player)
}

func (s *Server) deletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := s.playerSvc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) companionships(w http.ResponseWriter, r *http.Request) {
	minMatches := 1
	if v := r.URL.Query().Get("min"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			minMatches = n
		}
	}
	s.writeJSON(w, http.StatusOK, s.playerSvc.Companionships(r.Context(), r.PathValue("id"), minMatches))
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.matchSvc.List(r.Context()))
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	match, err := s.matchSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, match)
}

func (s *Server) reportMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	match, err := s.matchSvc.Report(r.Context(), service.MatchProposal{
		Date:      req.Date,
		WinnerIDs: req.WinnerIDs,
		LoserIDs:  req.LoserIDs,
		Scores:    req.Scores,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, match)
}

func (s *Server) previewMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	changes, err := s.matchSvc.PreviewChanges(r.Context(), service.MatchProposal{
		Date:      req.Date,
		WinnerIDs: req.WinnerIDs,
		LoserIDs:  req.LoserIDs,
		Scores:    req.Scores,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"changes": changes})
}

func (s *Server) editMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	match, err := s.matchSvc.Edit(r.Context(), r.PathValue("id"), req.WinnerIDs, req.LoserIDs, req.Scores, s.logProgress(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, match)
}

func (s *Server) deleteMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.matchSvc.Delete(r.Context(), r.PathValue("id"), s.logProgress(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) importPlayers(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	players, err := s.transferSvc.ImportPlayers(r.Context(), req.URL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, players)
}

func (s *Server) importMatches(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	matches, err := s.transferSvc.ImportMatches(r.Context(), req.URL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, matches)
}

func (s *Server) importAll(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.transferSvc.ImportAll(r.Context(), req.URL); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportJSON(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.transferSvc.Export(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="matches.csv"`)
	if err := s.transferSvc.ExportCSV(r.Context(), w); err != nil {
		s.logger.Error().Err(err).Msg("csv export failed")
	}
}

func (s *Server) logProgress(r *http.Request) service.Progress {
	logger := zerolog.Ctx(r.Context())
	return func(completed, total int) {
		logger.Debug().Int("completed", completed).Int("total", total).Msg("rewind-replay progress")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var importErr *service.ImportError
	switch {
	case errors.Is(err, repository.ErrPlayerNotFound), errors.Is(err, service.ErrMatchNotFound):
		s.writeError(w, r, err, http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidTeams):
		s.writeError(w, r, err, http.StatusBadRequest)
	case errors.Is(err, service.ErrPlayerHasMatches):
		s.writeError(w, r, err, http.StatusConflict)
	case errors.As(err, &importErr):
		s.writeError(w, r, err, http.StatusUnprocessableEntity)
	default:
		s.writeError(w, r, err, http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
