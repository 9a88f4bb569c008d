package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cultunderground-recommendation-service/internal/apperr"
	"cultunderground-recommendation-service/internal/models"
)

type fakeService struct {
	recs       []models.RecommendedMovie
	getErr     error
	markErr    error
	markedUser int
	markedID   int
}

func (f *fakeService) GetRecommendations(ctx context.Context, userID int) ([]models.RecommendedMovie, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.recs, nil
}

func (f *fakeService) MarkViewed(ctx context.Context, userID, movieID int) error {
	f.markedUser = userID
	f.markedID = movieID
	return f.markErr
}

func newTestApp(svc *fakeService, userID int) *fiber.App {
	app := fiber.New()
	if userID > 0 {
		app.Use(func(c fiber.Ctx) error {
			c.Locals("user_id", userID)
			return c.Next()
		})
	}
	h := NewRecommendationHandler(svc)
	app.Get("/api/recommendations", h.GetRecommendations)
	app.Post("/api/recommendations", h.MarkViewed)
	return app
}

func TestGetRecommendationsOK(t *testing.T) {
	svc := &fakeService{recs: []models.RecommendedMovie{
		{MovieID: 10, Title: "Movie A", Rating: 4.5, Reason: "matches your interest in Horror movies"},
	}}
	app := newTestApp(svc, 7)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/recommendations", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var got []models.RecommendedMovie
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Movie A", got[0].Title)
	assert.Equal(t, 4.5, got[0].Rating)
}

func TestGetRecommendationsUnauthenticated(t *testing.T) {
	app := newTestApp(&fakeService{}, 0)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/recommendations", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGetRecommendationsUserNotFound(t *testing.T) {
	svc := &fakeService{getErr: apperr.NotFound("user", "7")}
	app := newTestApp(svc, 7)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/recommendations", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetRecommendationsStorageFailure(t *testing.T) {
	svc := &fakeService{getErr: apperr.Storage("query recommendations", errors.New("down"))}
	app := newTestApp(svc, 7)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/recommendations", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestMarkViewed(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		markErr    error
		wantStatus int
		wantMarked int
	}{
		{
			name:       "numeric movie id",
			body:       `{"movieId": 42}`,
			wantStatus: fiber.StatusOK,
			wantMarked: 42,
		},
		{
			name:       "string movie id from legacy client",
			body:       `{"movieId": "42"}`,
			wantStatus: fiber.StatusOK,
			wantMarked: 42,
		},
		{
			name:       "missing movie id",
			body:       `{}`,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "non-numeric movie id",
			body:       `{"movieId": "abc"}`,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "regenerated away is a no-op success",
			body:       `{"movieId": 42}`,
			markErr:    apperr.NotFound("recommendation", "7/42"),
			wantStatus: fiber.StatusOK,
			wantMarked: 42,
		},
		{
			name:       "storage failure",
			body:       `{"movieId": 42}`,
			markErr:    apperr.Storage("update recommendation viewed", errors.New("down")),
			wantStatus: fiber.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{markErr: tt.markErr}
			app := newTestApp(svc, 7)

			req := httptest.NewRequest("POST", "/api/recommendations", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == fiber.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				var out map[string]bool
				require.NoError(t, json.Unmarshal(body, &out))
				assert.True(t, out["success"])
				assert.Equal(t, 7, svc.markedUser)
				assert.Equal(t, tt.wantMarked, svc.markedID)
			}
		})
	}
}
