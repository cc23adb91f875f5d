package web

import (
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	instructagent "github.com/instructware/instruct-agent-go"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID     string `json:"session_id"`
	Reply         string `json:"reply"`
	StoppedReason string `json:"stopped_reason"`
	Turns         int    `json:"turns"`
	ToolCalls     int    `json:"tool_calls"`
}

// agent resolves the served agent from the registry per request.
func (s *Server) agent() *instructagent.InstructAgent {
	return s.registry.Get(s.cfg.AgentID)
}

func (s *Server) handlePing(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "pong"})
}

func (s *Server) handleIndex(c echo.Context) error {
	agent := s.agent()
	if agent == nil {
		return c.String(http.StatusServiceUnavailable, "no agent registered")
	}
	page, err := renderWidget(agent)
	if err != nil {
		log.Printf("[WebChannel] Widget render failed: %v", err)
		return c.String(http.StatusInternalServerError, "widget render failed")
	}
	return c.HTML(http.StatusOK, page)
}

func (s *Server) handleAgent(c echo.Context) error {
	agent := s.agent()
	if agent == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "no agent registered"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"metadata":  agent.Meta,
		"greeting":  agent.Greeting(),
		"tools":     agent.Tools().Names(),
		"max_turns": agent.MaxTurns(),
	})
}

func (s *Server) handleAgents(c echo.Context) error {
	ids, err := s.catalog.List()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	type agentEntry struct {
		ID     string `json:"id"`
		Valid  bool   `json:"valid"`
		Active bool   `json:"active"`
	}
	entries := make([]agentEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, agentEntry{
			ID:     id,
			Valid:  s.catalog.Validate(id),
			Active: id == s.cfg.AgentID,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"agents": entries})
}

func (s *Server) handleStatus(c echo.Context) error {
	agent := s.agent()
	if agent == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "no agent registered"})
	}
	snap := agent.Stats().Snapshot()
	snap["agent_id"] = s.cfg.AgentID
	snap["model"] = s.appCfg.Model
	snap["api_base"] = s.appCfg.APIBase
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleSessions(c echo.Context) error {
	sessions, err := s.sessions.List()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Server) handleHistory(c echo.Context) error {
	sessionID := strings.TrimSpace(c.QueryParam("session_id"))
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}
	agent := s.agent()
	if agent == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "no agent registered"})
	}
	history := instructagent.NewConversationHistory(s.store, agent.Meta.AgentID, sessionID, s.appCfg.HistoryWindow)
	entries, err := history.Entries()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   entries,
	})
}

// handleChat runs one user turn. A failed turn does not fail the request:
// the reply carries an inline error block so the conversation stays alive.
func (s *Server) handleChat(c echo.Context) error {
	agent := s.agent()
	if agent == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "no agent registered"})
	}

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
		agent.Stats().Sessions.Inc()
		if err := s.sessions.Register(sessionID); err != nil {
			log.Printf("[WebChannel] Session index write failed: %v", err)
		}
		log.Printf("[WebChannel] New session %s", sessionID)
	}

	resp := chatResponse{SessionID: sessionID}
	result, err := agent.Respond(c.Request().Context(), sessionID, req.Message)
	if err != nil {
		resp.Reply = instructagent.FormatError(err, agent.Meta)
		resp.StoppedReason = instructagent.StopLLMError
		if result != nil {
			resp.StoppedReason = result.StoppedReason
			resp.Turns = result.TotalTurns
		}
		return c.JSON(http.StatusOK, resp)
	}

	resp.Reply = instructagent.FormatResponse(result.Output, agent.Meta)
	resp.StoppedReason = result.StoppedReason
	resp.Turns = result.TotalTurns
	resp.ToolCalls = result.ToolCallsCount
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSessionReset(c echo.Context) error {
	agent := s.agent()
	if agent == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "no agent registered"})
	}

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}
	sessionID := strings.TrimSpace(req.SessionID)

	history := instructagent.NewConversationHistory(s.store, agent.Meta.AgentID, sessionID, s.appCfg.HistoryWindow)
	if err := history.Clear(); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if err := s.sessions.Remove(sessionID); err != nil {
		log.Printf("[WebChannel] Session index delete failed: %v", err)
	}
	log.Printf("[WebChannel] Session %s reset", sessionID)
	return c.JSON(http.StatusOK, map[string]string{"status": "reset", "session_id": sessionID})
}
