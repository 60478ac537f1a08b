package web

import (
	"encoding/base64"
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/voxpipe/voxpipe/pkg/orchestrator"
	"github.com/voxpipe/voxpipe/pkg/stt"
)

// turnRequest is the JSON body for a text turn. Audio turns use multipart
// form data with an "audio" file part instead.
type turnRequest struct {
	Text string `json:"text"`
}

// turnResponse wraps the orchestrator result with the reply audio encoded
// for JSON transport.
type turnResponse struct {
	*orchestrator.Result
	AudioBase64 string `json:"audio_base64,omitempty"`
	AudioFormat string `json:"audio_format,omitempty"`
}

// handleCreateSession mints a new session id.
func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	id := s.service.CreateSession()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session_id": id})
}

// handleTurn runs one conversational turn. The body is either JSON with a
// "text" field or multipart form data with an "audio" file.
func (s *Server) handleTurn(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	in, err := parseTurnInput(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := s.service.ProcessTurn(c.Context(), sessionID, in)
	if err != nil {
		var abort *orchestrator.AbortError
		if errors.As(err, &abort) {
			s.logger.Error("turn aborted",
				"session_id", sessionID,
				"state", abort.State.String(),
				"capability", abort.Capability,
				"error", abort.Err,
			)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":      abort.Error(),
				"state":      abort.State.String(),
				"capability": abort.Capability,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	resp := turnResponse{Result: result}
	if result.Audio != nil {
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(result.Audio.Audio)
		resp.AudioFormat = string(result.Audio.Format.Encoding)
	}
	return c.JSON(resp)
}

// handleHistory returns the session's recent turns, oldest first.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	n := 20
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "n must be a positive integer"})
		}
		n = parsed
	}

	turns, err := s.store.FetchRecent(c.Context(), c.Params("id"), n)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"turns": turns})
}

// handleGetPreferences returns the session preference map.
func (s *Server) handleGetPreferences(c *fiber.Ctx) error {
	prefs, err := s.store.Preferences(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"preferences": prefs})
}

// handleSetPreference stores one preference key for the session.
func (s *Server) handleSetPreference(c *fiber.Ctx) error {
	var body struct {
		Value string `json:"value"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	if err := s.store.SetPreference(c.Context(), c.Params("id"), c.Params("key"), body.Value); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleHealth reports provider health per capability, as tracked by the
// fallback manager.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"providers": s.manager.Status(),
	})
}

// handleHealthReset clears all tracked provider health, re-enabling every
// provider. Meant for operators after an incident is resolved.
func (s *Server) handleHealthReset(c *fiber.Ctx) error {
	s.manager.Reset()
	s.logger.Info("provider health reset")
	return c.JSON(fiber.Map{
		"status":    "reset",
		"providers": s.manager.Status(),
	})
}

// parseTurnInput extracts either text or audio from the request.
func parseTurnInput(c *fiber.Ctx) (orchestrator.Input, error) {
	fileHeader, err := c.FormFile("audio")
	if err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return orchestrator.Input{}, err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return orchestrator.Input{}, err
		}
		return orchestrator.Input{
			Audio: &stt.AudioInput{
				Data:     data,
				MIMEType: fileHeader.Header.Get("Content-Type"),
				FileName: fileHeader.Filename,
			},
		}, nil
	}

	var req turnRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return orchestrator.Input{}, errors.New("request must carry a text field or an audio file")
	}
	return orchestrator.Input{Text: req.Text}, nil
}
