package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"healthsense/internal/domain"
	"healthsense/internal/port"
	"healthsense/internal/usecase"
)

// Server exposes the answering pipeline over HTTP.
type Server struct {
	echo       *echo.Echo
	answer     *usecase.AnswerUseCase
	sessions   port.SessionStore
	index      port.IndexStore
	messageCap int
}

func NewServer(answer *usecase.AnswerUseCase, sessions port.SessionStore, index port.IndexStore, messageCap int) *Server {
	if messageCap <= 0 {
		messageCap = 40
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		echo:       e,
		answer:     answer,
		sessions:   sessions,
		index:      index,
		messageCap: messageCap,
	}

	e.GET("/healthz", s.healthz)
	e.POST("/api/ask", s.ask)
	e.POST("/api/sessions", s.createSession)
	e.POST("/api/sessions/:id/messages", s.sessionMessage)

	return s
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Handler exposes the underlying HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type askRequest struct {
	Question string `json:"question"`
}

type createSessionRequest struct {
	Language string `json:"language,omitempty"`
}

type sessionMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) healthz(c echo.Context) error {
	stats, err := s.index.GetStats()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "index unavailable")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"docs":   stats.TotalDocs,
		"chunks": stats.TotalChunks,
	})
}

func (s *Server) ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	answer, err := s.answer.Answer(c.Request().Context(), req.Question)
	if err != nil {
		if err == usecase.ErrEmptyQuestion {
			return echo.NewHTTPError(http.StatusBadRequest, "question is required")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "answer generation failed")
	}

	return c.JSON(http.StatusOK, answer)
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Language != "" && !analyzerSupported(req.Language) {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported language")
	}

	sess := domain.Session{
		ID:        uuid.NewString(),
		Language:  req.Language,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.PutSession(sess); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session")
	}

	return c.JSON(http.StatusCreated, sess)
}

func (s *Server) sessionMessage(c echo.Context) error {
	sessionID := c.Param("id")

	sess, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	var req sessionMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if len(sess.Turns) >= s.messageCap {
		return echo.NewHTTPError(http.StatusTooManyRequests, "session message limit reached")
	}

	answer, err := s.answer.AnswerIn(c.Request().Context(), req.Message, sess.Language)
	if err != nil {
		if err == usecase.ErrEmptyQuestion {
			return echo.NewHTTPError(http.StatusBadRequest, "message is required")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "answer generation failed")
	}

	now := time.Now().UTC()
	if err := s.sessions.AppendTurn(sessionID, domain.Turn{Role: "user", Content: req.Message, CreatedAt: now}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to persist message")
	}
	if err := s.sessions.AppendTurn(sessionID, domain.Turn{Role: "assistant", Content: answer.Text, CreatedAt: now}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to persist message")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"answer":     answer,
	})
}

func analyzerSupported(lang string) bool {
	for _, tag := range domain.SupportedLanguages {
		if tag == lang {
			return true
		}
	}
	return false
}
