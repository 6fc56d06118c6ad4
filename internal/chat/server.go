package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/twitchtv/twirp"

	"github.com/8adimka/Go_Weather_Assistant/internal/chat/model"
	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
	"github.com/8adimka/Go_Weather_Assistant/internal/team"
	weathertool "github.com/8adimka/Go_Weather_Assistant/internal/tools/weather"
)

// Runner answers one query.
type Runner interface {
	Run(ctx context.Context, task string) (*team.Result, error)
}

// ConversationStore persists finished runs.
type ConversationStore interface {
	CreateConversation(ctx context.Context, c *model.Conversation) error
	DescribeConversation(ctx context.Context, runID string) (*model.Conversation, error)
	ListConversations(ctx context.Context, limit int64) ([]*model.Conversation, error)
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query string `json:"query" validate:"required,max=2000"`
	Mode  string `json:"mode" validate:"omitempty,oneof=team single"`
}

// QueryResponse is the reply to POST /v1/query.
type QueryResponse struct {
	ID         string         `json:"id"`
	Reply      string         `json:"reply"`
	StopReason team.Reason    `json:"stop_reason,omitempty"`
	Messages   []team.Message `json:"messages"`
}

const defaultListLimit = 20

type Server struct {
	runners  map[model.Mode]Runner
	repo     ConversationStore
	surface  *weathertool.Surface
	validate *validator.Validate
}

// NewServer wires the handlers. repo may be nil, in which case runs are not
// stored and the conversation endpoints report unimplemented.
func NewServer(runners map[model.Mode]Runner, repo ConversationStore, surface *weathertool.Surface) *Server {
	return &Server{
		runners:  runners,
		repo:     repo,
		surface:  surface,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers the API on r.
func (s *Server) Routes(r *mux.Router) {
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/query", s.Query).Methods(http.MethodPost)
	v1.HandleFunc("/conversations", s.ListConversations).Methods(http.MethodGet)
	v1.HandleFunc("/conversations/{id}", s.DescribeConversation).Methods(http.MethodGet)
	v1.HandleFunc("/tools/weather/{kind}", s.Weather).Methods(http.MethodGet)
	v1.HandleFunc("/tools/cities", s.Cities).Methods(http.MethodGet)
	v1.HandleFunc("/tools/coordinates", s.Coordinates).Methods(http.MethodGet)
}

func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(ctx, w, twirp.NewError(twirp.Malformed, "request body must be a JSON object"))
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := s.validate.Struct(req); err != nil {
		writeError(ctx, w, validationError(err))
		return
	}

	mode, err := model.ParseMode(req.Mode)
	if err != nil {
		writeError(ctx, w, twirp.InvalidArgumentError("mode", err.Error()))
		return
	}
	runner, ok := s.runners[mode]
	if !ok {
		writeError(ctx, w, twirp.NewError(twirp.Unimplemented, "mode "+string(mode)+" is not available"))
		return
	}

	started := time.Now()
	res, runErr := runner.Run(ctx, req.Query)
	s.store(ctx, model.NewConversation(req.Query, mode, res, runErr, started))

	if runErr != nil {
		slog.ErrorContext(ctx, "Query failed", "mode", mode, "error", runErr)
		te := errorsx.ToTwirpError(runErr)
		if res != nil {
			if t, ok := te.(twirp.Error); ok {
				te = t.WithMeta("run_id", res.ID)
			}
		}
		writeError(ctx, w, te)
		return
	}

	writeJSON(w, QueryResponse{
		ID:         res.ID,
		Reply:      res.Reply,
		StopReason: res.StopReason,
		Messages:   res.Messages,
	})
}

// store persists c. Failures are logged; the caller already has its answer.
func (s *Server) store(ctx context.Context, c *model.Conversation) {
	if s.repo == nil || c.RunID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.repo.CreateConversation(ctx, c); err != nil {
		slog.ErrorContext(ctx, "Failed to store conversation", "run_id", c.RunID, "error", err)
	}
}

func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.repo == nil {
		writeError(ctx, w, twirp.NewError(twirp.Unimplemented, "conversation storage is not configured"))
		return
	}

	limit := int64(defaultListLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > 100 {
			writeError(ctx, w, twirp.InvalidArgumentError("limit", "must be between 1 and 100"))
			return
		}
		limit = n
	}

	convs, err := s.repo.ListConversations(ctx, limit)
	if err != nil {
		writeError(ctx, w, twirp.InternalErrorWith(err))
		return
	}
	writeJSON(w, map[string]any{"conversations": convs})
}

func (s *Server) DescribeConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.repo == nil {
		writeError(ctx, w, twirp.NewError(twirp.Unimplemented, "conversation storage is not configured"))
		return
	}

	conv, err := s.repo.DescribeConversation(ctx, mux.Vars(r)["id"])
	if errors.Is(err, model.ErrConversationNotFound) {
		writeError(ctx, w, twirp.NotFoundError(err.Error()))
		return
	}
	if err != nil {
		writeError(ctx, w, twirp.InternalErrorWith(err))
		return
	}
	writeJSON(w, conv)
}

func (s *Server) Weather(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	city := r.URL.Query().Get("city")

	switch mux.Vars(r)["kind"] {
	case "today":
		writeText(w, s.surface.QueryToday(ctx, city))
	case "tomorrow":
		writeText(w, s.surface.QueryTomorrow(ctx, city))
	case "future":
		days := weathertool.DefaultDays
		if raw := r.URL.Query().Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(ctx, w, errorsx.ToTwirpError(errorsx.Wrapf(errorsx.ErrInvalidInput, "days %q is not an integer", raw)))
				return
			}
			days = n
		}
		writeText(w, s.surface.QueryFutureDays(ctx, city, days))
	default:
		writeError(ctx, w, twirp.NotFoundError("unknown forecast kind"))
	}
}

func (s *Server) Cities(w http.ResponseWriter, _ *http.Request) {
	writeText(w, s.surface.ListSupportedCities())
}

func (s *Server) Coordinates(w http.ResponseWriter, r *http.Request) {
	writeText(w, s.surface.GetCityCoordinates(r.Context(), r.URL.Query().Get("city")))
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			return twirp.RequiredArgumentError(field)
		}
		return twirp.InvalidArgumentError(field, "failed "+fe.Tag()+" validation")
	}
	return twirp.InvalidArgumentError("body", err.Error())
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	te, ok := err.(twirp.Error)
	if !ok {
		te = twirp.InternalErrorWith(err)
	}
	if writeErr := twirp.WriteError(w, te); writeErr != nil {
		slog.ErrorContext(ctx, "Failed to write error response", "error", writeErr)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s))
}
