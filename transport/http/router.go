package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/rpc/jsonrpc"
	"github.com/slighter12/twinscene-go/transport/shared"
)

const maxJSONRPCBodyBytes = 1 << 20

const headerSessionID = "Twin-Session-Id"

func RegisterRoutes(e *echo.Echo, s *Server) {
	e.GET("/", s.handleHTTPInfo)
	e.POST("/rpc", s.handleRPCPost)
	e.DELETE("/rpc", s.handleRPCDelete)
	e.OPTIONS("/rpc", s.handleOptions)
	e.GET("/events", s.handleEvents)
}

func (s *Server) handleHTTPInfo(c echo.Context) error {
	logger.Debug("HTTP info requested", "remote_addr", c.RealIP())
	info := map[string]any{
		"name":            s.info.Name,
		"version":         s.info.Version,
		"transports":      s.transports,
		"rpc_endpoint":    "/rpc",
		"events_endpoint": "/events",
		"commands":        len(s.registry.List()),
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleOptions(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleRPCPost(c echo.Context) error {
	limitedBody := http.MaxBytesReader(c.Response(), c.Request().Body, maxJSONRPCBodyBytes)
	defer limitedBody.Close()

	body, err := io.ReadAll(limitedBody)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			logger.Warn("Request body too large", "limit_bytes", maxJSONRPCBodyBytes, "remote_addr", c.RealIP())
			return c.JSON(http.StatusRequestEntityTooLarge, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrInvalidRequest, "Request body too large", nil))
		}
		logger.Error("Failed to read request body", "error", err)
		return c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrParseError, "", nil))
	}

	requests, prebuiltResponses, acceptedOneWay, err := shared.ParseJSONRPCFrame(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrParseError, "", nil))
	}
	if len(prebuiltResponses) > 0 {
		return c.JSON(http.StatusBadRequest, prebuiltResponses[0])
	}
	if acceptedOneWay || len(requests) == 0 {
		return c.NoContent(http.StatusAccepted)
	}

	request := requests[0]
	sessionID := strings.TrimSpace(c.Request().Header.Get(headerSessionID))
	if request.Method == "initialize" {
		if sessionID == "" || !s.sessionManager.TouchSession(sessionID) {
			sessionID = s.sessionManager.CreateSession()
			logger.Debug("Created session", "session_id", sessionID)
		}
	} else if sessionID != "" && !s.sessionManager.TouchSession(sessionID) {
		return c.JSON(http.StatusNotFound, jsonrpc.NewErrorResponse(request.ID, jsonrpc.ErrInvalidRequest, "Unknown session", nil))
	}

	logger.Debug("RPC request received", "method", request.Method, "id", request.ID)
	response := shared.Dispatch(c.Request().Context(), request, s.registry, s.info, s.transports)

	if sessionID != "" {
		c.Response().Header().Set(headerSessionID, sessionID)
	}
	if request.Method == "initialize" {
		if resp, ok := response.(*jsonrpc.Response); ok {
			if result, ok := resp.Result.(map[string]any); ok {
				result["sessionId"] = sessionID
			}
		}
	}

	if response == nil {
		return c.NoContent(http.StatusAccepted)
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) handleRPCDelete(c echo.Context) error {
	sessionID := strings.TrimSpace(c.Request().Header.Get(headerSessionID))
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrInvalidRequest, "Missing Twin-Session-Id header", nil))
	}
	if !s.sessionManager.HasSession(sessionID) {
		return c.JSON(http.StatusNotFound, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrInvalidRequest, "Unknown session", nil))
	}
	s.sessionManager.RemoveSession(sessionID)
	return c.NoContent(http.StatusNoContent)
}

// handleEvents streams editor events as SSE. Clients without a session get
// one that lives as long as the stream.
func (s *Server) handleEvents(c echo.Context) error {
	if !acceptsEventStream(c.Request().Header.Get(echo.HeaderAccept)) {
		return c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrInvalidRequest, "Accept header must include text/event-stream", nil))
	}

	sessionID := strings.TrimSpace(c.Request().Header.Get(headerSessionID))
	if sessionID == "" {
		sessionID = strings.TrimSpace(c.QueryParam("session"))
	}
	anonymous := sessionID == ""
	if anonymous {
		sessionID = s.sessionManager.CreateSession()
	} else if !s.sessionManager.HasSession(sessionID) {
		return c.JSON(http.StatusNotFound, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrInvalidRequest, "Unknown session", nil))
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusMethodNotAllowed, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrInvalidRequest, "SSE stream is not available", nil))
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set(headerSessionID, sessionID)
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	streamCtx, stopStream := context.WithCancel(c.Request().Context())
	defer stopStream()

	stream := NewEventStream(c.Response().Writer, flusher, stopStream)
	defer stream.Close()
	if !s.sessionManager.SetStream(sessionID, stream) {
		logger.Warn("Session disappeared before stream binding", "session_id", sessionID)
		return nil
	}
	if anonymous {
		defer s.sessionManager.RemoveSession(sessionID)
	} else {
		defer s.sessionManager.ClearStreamIfMatch(sessionID, stream)
	}

	// Writes only happen on this goroutine, so the opening comment cannot
	// interleave with queued events.
	if err := stream.SendComment("stream opened"); err != nil {
		logger.Warn("Failed to write initial SSE comment", "session_id", sessionID, "error", err)
		return nil
	}

	logger.Debug("Event stream opened", "session_id", sessionID)
	if err := stream.Pump(streamCtx, s.keepAlive); err != nil {
		logger.Debug("Event stream ended", "session_id", sessionID, "error", err)
	}
	return nil
}

func acceptsEventStream(acceptHeader string) bool {
	for _, part := range strings.Split(acceptHeader, ",") {
		mime := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if strings.EqualFold(mime, "text/event-stream") {
			return true
		}
	}
	return false
}
