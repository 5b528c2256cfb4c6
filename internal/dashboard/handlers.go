package dashboard

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"demandsight/internal/query"
)

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Question string `json:"question"`
}

// chatResponse carries the answer plus what the analyzer detected, which
// the page shows in the "detected" panel.
type chatResponse struct {
	Answer      string        `json:"answer"`
	Detected    query.Summary `json:"detected"`
	ContextRows int           `json:"context_rows"`
	SessionID   string        `json:"session_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(c echo.Context) error {
	stats := s.store.Snapshot().Stats()
	return c.Render(http.StatusOK, "index.html", map[string]any{
		"Stats": stats,
	})
}

func (s *Server) handleOverview(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Snapshot().Stats())
}

func (s *Server) handleCharts(c echo.Context) error {
	product := c.Param("product")
	bundle := BuildCharts(s.store.Snapshot(), product)
	return c.JSON(http.StatusOK, bundle)
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.Question == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "question is required"})
	}

	tables := s.store.Snapshot()
	analyzer := query.NewAnalyzer(tables)
	rows, growth := analyzer.RelevantRows(req.Question)
	detected := query.Summarize(req.Question)

	answer, err := s.assistant.Ask(c.Request().Context(), req.Question, rows, growth)
	if err != nil {
		// The external call failed: surface it, do not retry here.
		s.logger.Warn("assistant call failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	}

	sessionID := s.currentSession()
	if s.sessions != nil {
		if err := s.sessions.Append(sessionID, "user", req.Question); err != nil {
			s.logger.Warn("failed to persist question", zap.Error(err))
		}
		if err := s.sessions.Append(sessionID, "assistant", answer); err != nil {
			s.logger.Warn("failed to persist answer", zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, chatResponse{
		Answer:      answer,
		Detected:    detected,
		ContextRows: len(rows) + len(growth),
		SessionID:   sessionID,
	})
}

func (s *Server) handleChatReset(c echo.Context) error {
	s.assistant.Reset()
	if s.sessions != nil {
		id, err := s.sessions.Create()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
		s.setSession(id)
	}
	return c.JSON(http.StatusOK, map[string]string{"session_id": s.currentSession()})
}

func (s *Server) handleSessions(c echo.Context) error {
	if s.sessions == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	sessions, err := s.sessions.Recent(limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, sessions)
}

func (s *Server) handleTable(c echo.Context) error {
	tables := s.store.Snapshot()
	switch c.Param("kind") {
	case "monthly":
		return c.JSON(http.StatusOK, tables.Monthly)
	case "daily":
		return c.JSON(http.StatusOK, tables.Daily)
	default:
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown table"})
	}
}

func (s *Server) handleDownload(c echo.Context) error {
	tables := s.store.Snapshot()
	kind := c.Param("kind")
	if kind != "monthly" && kind != "daily" {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown table"})
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="predictions_%s.csv"`, kind))
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	defer w.Flush()

	switch kind {
	case "monthly":
		if err := w.Write([]string{"Product", "City_State", "Month", "Predicted_Quantity"}); err != nil {
			return err
		}
		for _, row := range tables.Monthly {
			if err := w.Write([]string{row.Product, row.CityState, row.Month, strconv.Itoa(row.Quantity)}); err != nil {
				return err
			}
		}
	case "daily":
		if err := w.Write([]string{"Product", "City_State", "Date", "Predicted_Quantity"}); err != nil {
			return err
		}
		for _, row := range tables.Daily {
			if err := w.Write([]string{row.Product, row.CityState, row.Date.Format("2006-01-02"), strconv.Itoa(row.Quantity)}); err != nil {
				return err
			}
		}
	}
	return nil
}
