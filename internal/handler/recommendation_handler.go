package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"cultunderground-recommendation-service/internal/apperr"
	"cultunderground-recommendation-service/internal/models"
)

// RecommendationService is the engine surface the handler needs.
type RecommendationService interface {
	GetRecommendations(ctx context.Context, userID int) ([]models.RecommendedMovie, error)
	MarkViewed(ctx context.Context, userID, movieID int) error
}

type RecommendationHandler struct {
	svc RecommendationService
}

func NewRecommendationHandler(svc RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{svc: svc}
}

// Health godoc
// GET /health
func (h *RecommendationHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "recommendation-service",
	})
}

// GetRecommendations godoc
// GET /api/recommendations
func (h *RecommendationHandler) GetRecommendations(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(int)
	if !ok || userID <= 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	recs, err := h.svc.GetRecommendations(c.Context(), userID)
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "user not found",
			})
		}
		slog.Error("failed to get recommendations", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to get recommendations",
		})
	}

	return c.JSON(recs)
}

// movieID accepts both a JSON number and the numeric string the web client
// historically sent.
type movieID int

func (m *movieID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return errors.New("movie id is required")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid movie id %q", s)
	}
	*m = movieID(v)
	return nil
}

type markViewedRequest struct {
	MovieID movieID `json:"movieId"`
}

// MarkViewed godoc
// POST /api/recommendations
func (h *RecommendationHandler) MarkViewed(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(int)
	if !ok || userID <= 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	var req markViewedRequest
	if err := c.Bind().JSON(&req); err != nil || req.MovieID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "movieId is required",
		})
	}

	if err := h.svc.MarkViewed(c.Context(), userID, int(req.MovieID)); err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			// The recommendation was regenerated away since the client
			// fetched it. Expected race; a no-op success for the user.
			slog.Debug("mark-viewed raced with regeneration", "user_id", userID, "movie_id", int(req.MovieID))
			return c.JSON(fiber.Map{"success": true})
		}
		slog.Error("failed to mark recommendation viewed", "user_id", userID, "movie_id", int(req.MovieID), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to mark recommendation as viewed",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}
