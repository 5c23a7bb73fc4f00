package eyeHandler

import (
	"OcularBiomarker/internal/api/eye"
	"OcularBiomarker/internal/middleware"
	contextPkg "OcularBiomarker/pkg/context"
	"OcularBiomarker/pkg/log"
	"OcularBiomarker/pkg/response"
	"errors"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
	"strings"
	"time"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type wsSession struct {
	SessionID string `json:"session_id"`
}

type wsError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// handleFrameWebSocket streams frames over one connection. Binary messages
// are encoded images, text messages are JSON landmark payloads. The gaze
// trail belongs to the connection unless the client names a session.
func (h *EyeHandler) handleFrameWebSocket(c *websocket.Conn) {
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)

	session := strings.TrimSpace(c.Query(eye.SessionQuery))
	generated := session == ""
	if generated {
		var err error
		session, err = h.utils.NewULIDFromTimestamp(time.Now())
		if err != nil {
			h.log.WithFields(log.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to generate eye session id")
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session id unavailable"))
			return
		}
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": session,
	}).Info("Eye WebSocket client connected")

	defer func() {
		if generated {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := h.eyeService.ResetTrail(ctx, session); err != nil {
				h.log.Errorf("Error resetting trail for session %s: %v", session, err)
			}
			cancel()
		}
		h.log.WithField("session_id", session).Info("Eye WebSocket client disconnected")
	}()

	c.SetPingHandler(func(data string) error {
		h.log.Debug("Received ping, sending pong")
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	if !h.writeJSON(c, wsSession{SessionID: session}) {
		return
	}

	maxReadTimeout := 60 * time.Second

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Eye WebSocket error: %v", err)
			} else {
				h.log.Info("Eye WebSocket connection closed")
			}
			break
		}

		var frame eye.Frame
		switch messageType {
		case websocket.BinaryMessage:
			frame = eye.Frame{Image: message}
		case websocket.TextMessage:
			var req eye.LandmarksRequest
			if err := json.Unmarshal(message, &req); err != nil {
				if !h.writeError(c, response.WithDetail(eye.ErrInvalidInput, err.Error())) {
					return
				}
				continue
			}
			if err := h.validator.Struct(req); err != nil {
				if !h.writeError(c, response.WithDetail(eye.ErrInvalidInput, err.Error())) {
					return
				}
				continue
			}
			frame = eye.Frame{Landmarks: &req}
		default:
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		ctx, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), requestID), requestTimeout)
		result, err := h.eyeService.ProcessFrame(ctx, session, frame)
		cancel()

		if err != nil {
			h.log.Warnf("Error processing eye frame: %v", err)
			if !h.writeError(c, err) {
				return
			}
			continue
		}

		if !h.writeJSON(c, result) {
			return
		}
	}
}

func (h *EyeHandler) writeError(c *websocket.Conn, err error) bool {
	payload := wsError{Error: err.Error()}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		payload.Details = respErr.Detail
	} else if errors.Is(err, context.DeadlineExceeded) {
		payload.Error = "request timeout"
	}

	return h.writeJSON(c, payload)
}

func (h *EyeHandler) writeJSON(c *websocket.Conn, v interface{}) bool {
	if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		h.log.Errorf("Error setting write deadline: %v", err)
		return false
	}

	if err := c.WriteJSON(v); err != nil {
		h.log.Errorf("Error writing JSON response: %v", err)
		return false
	}

	if err := c.SetWriteDeadline(time.Time{}); err != nil {
		h.log.Errorf("Error resetting write deadline: %v", err)
		return false
	}
	return true
}
