// Package dashboard serves the interactive web surface: summary stats,
// plotly charts derived from the forecast tables, and the chat endpoint
// backed by the assistant.
package dashboard

import (
	"context"
	"embed"
	"html/template"
	"io"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"demandsight/internal/assistant"
	"demandsight/internal/forecast"
	"demandsight/internal/session"
)

//go:embed web
var webFS embed.FS

// Server wires the echo router to the forecast store, the assistant and
// the session store.
type Server struct {
	echo      *echo.Echo
	store     *forecast.Store
	assistant *assistant.Assistant
	sessions  *session.Store
	logger    *zap.Logger

	// sessionID is the dashboard's single running conversation; a reset
	// starts a new one. Chat and reset requests run on separate
	// goroutines, so access goes through the mutex.
	mu        sync.Mutex
	sessionID string
}

func (s *Server) currentSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Server) setSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
}

// templateRenderer adapts html/template to echo's Renderer.
type templateRenderer struct {
	templates *template.Template
}

func (t *templateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

// New builds the server. The session store may be nil; transcripts are
// then not persisted.
func New(store *forecast.Store, asst *assistant.Assistant, sessions *session.Store, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	templates, err := template.ParseFS(webFS, "web/*.html")
	if err != nil {
		return nil, err
	}
	e.Renderer = &templateRenderer{templates: templates}

	s := &Server{
		echo:      e,
		store:     store,
		assistant: asst,
		sessions:  sessions,
		logger:    logger,
	}
	s.routes()

	if sessions != nil {
		id, err := sessions.Create()
		if err != nil {
			return nil, err
		}
		s.sessionID = id
	}

	return s, nil
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/", s.handleIndex)
	e.GET("/api/overview", s.handleOverview)
	e.GET("/api/charts/:product", s.handleCharts)
	e.POST("/api/chat", s.handleChat)
	e.POST("/api/chat/reset", s.handleChatReset)
	e.GET("/api/sessions", s.handleSessions)
	e.GET("/api/table/:kind", s.handleTable)
	e.GET("/download/:kind", s.handleDownload)
}

// Start blocks serving on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("dashboard listening", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
