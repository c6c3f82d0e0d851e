package api

import (
	"encoding/json"
	"errors"
	"net/url"
	"sort"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/storage"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RememberRequest is the body of PUT /memories/:key.
type RememberRequest struct {
	Value *string `json:"value"`
}

// ListResponse is the body of GET /memories.
type ListResponse struct {
	Count    int            `json:"count"`
	Memories []memory.Entry `json:"memories"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleList(c *fiber.Ctx) error {
	res, err := s.service.List(c.UserContext(), bearerToken(c))
	if err != nil {
		return s.writeError(c, err)
	}

	entries := make([]memory.Entry, len(res.Entries))
	copy(entries, res.Entries)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})

	return c.JSON(ListResponse{
		Count:    len(entries),
		Memories: entries,
	})
}

func (s *Server) handleRecall(c *fiber.Ctx) error {
	key, err := keyParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	res, err := s.service.Recall(c.UserContext(), bearerToken(c), key)
	if err != nil {
		return s.writeError(c, err)
	}

	if !res.Found {
		return c.Status(fiber.StatusNotFound).JSON(res)
	}

	return c.JSON(res)
}

func (s *Server) handleRemember(c *fiber.Ctx) error {
	key, err := keyParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	var req RememberRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "request body must be a JSON object"})
	}
	if req.Value == nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "value is required"})
	}

	res, err := s.service.Remember(c.UserContext(), bearerToken(c), key, *req.Value)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(res)
}

func (s *Server) handleForget(c *fiber.Ctx) error {
	key, err := keyParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	res, err := s.service.Forget(c.UserContext(), bearerToken(c), key)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(res)
}

// writeError maps service errors onto status codes. Authorization failures
// share one body regardless of cause.
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "not authorized"})

	case errors.Is(err, memory.ErrInvalidArgument):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})

	case errors.Is(err, storage.ErrBackendUnavailable):
		s.logger.Warn("memory backend unavailable",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "memory backend unavailable, try again later"})

	default:
		s.logger.Error("memory request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "memory operation failed"})
	}
}

// keyParam decodes the :key segment. Keys containing "/" arrive as %2F.
func keyParam(c *fiber.Ctx) (string, error) {
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil {
		return "", errors.New("key is not a valid path segment")
	}
	return key, nil
}

func bearerToken(c *fiber.Ctx) string {
	return auth.BearerToken(c.Get(fiber.HeaderAuthorization))
}
