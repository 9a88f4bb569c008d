package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"cultunderground-recommendation-service/internal/apperr"
	"cultunderground-recommendation-service/internal/config"
	"cultunderground-recommendation-service/internal/models"
)

// SignalStore provides the user signals the engine scores against.
type SignalStore interface {
	UserExists(userID int) (bool, error)
	FindUserSignals(userID int) (*models.UserSignals, error)
}

// MovieCatalog serves the candidate pool. Implementations must filter out
// every movie in the user's viewing history, not just the ids in excludeIDs:
// the engine only holds the recent history slice it scores against.
type MovieCatalog interface {
	FindCandidateMovies(userID int, excludeIDs []int, genreNames []string, limit int) ([]models.Movie, error)
}

// RecommendationStore persists computed batches.
type RecommendationStore interface {
	ReplaceRecommendations(userID int, recs []models.Recommendation) error
	FindRecommendations(userID int) ([]models.Recommendation, error)
	UpdateRecommendationViewed(userID, movieID int) error
}

// RecommendationService computes, caches, and serves per-user movie
// recommendation batches, and tracks their viewed state.
type RecommendationService struct {
	signals SignalStore
	catalog MovieCatalog
	recs    RecommendationStore
	rdb     *redis.Client // nil disables response caching and regen locking

	batchTTL time.Duration
	cacheTTL time.Duration
	lockTTL  time.Duration

	now func() time.Time
}

func NewRecommendationService(
	signals SignalStore,
	catalog MovieCatalog,
	recs RecommendationStore,
	rdb *redis.Client,
	cfg config.EngineConfig,
) *RecommendationService {
	return &RecommendationService{
		signals:  signals,
		catalog:  catalog,
		recs:     recs,
		rdb:      rdb,
		batchTTL: time.Duration(cfg.BatchTTLHours) * time.Hour,
		cacheTTL: time.Duration(cfg.ResponseCacheSec) * time.Second,
		lockTTL:  time.Duration(cfg.RegenLockSec) * time.Second,
		now:      time.Now,
	}
}

// GenerateRecommendations recomputes the user's batch from current signals
// and replaces the persisted one. Zero qualifying candidates is a valid
// outcome and yields an empty batch.
func (s *RecommendationService) GenerateRecommendations(ctx context.Context, userID int) error {
	exists, err := s.signals.UserExists(userID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("user", strconv.Itoa(userID))
	}

	sig, err := s.signals.FindUserSignals(userID)
	if err != nil {
		return err
	}

	affinity := buildAffinityMap(sig)
	favs := favoriteDirectors(sig)

	seen := make([]int, 0, len(sig.ViewingHistory))
	for _, e := range sig.ViewingHistory {
		seen = append(seen, e.MovieID)
	}

	top := topGenres(affinity, topGenreCount)
	topSet := make(map[string]bool, len(top))
	for _, g := range top {
		topSet[g] = true
	}

	var candidates []models.Movie
	if len(top) > 0 {
		candidates, err = s.catalog.FindCandidateMovies(userID, seen, top, candidateLimit)
		if err != nil {
			return err
		}
	}

	scored := make([]models.Recommendation, 0, len(candidates))
	for _, m := range candidates {
		score, reason := scoreMovie(m, affinity, topSet, favs, sig.Preference)
		scored = append(scored, models.Recommendation{
			UserID:  userID,
			MovieID: m.ID,
			Score:   score,
			Reason:  reason,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > batchSize {
		scored = scored[:batchSize]
	}

	if err := s.recs.ReplaceRecommendations(userID, scored); err != nil {
		return err
	}

	slog.Info("recommendations generated", "user_id", userID, "count", len(scored))
	return nil
}

// GetRecommendations returns the user's batch formatted for display,
// regenerating first if it is stale. Repeated calls within the response-cache
// window return the same payload without recomputation.
func (s *RecommendationService) GetRecommendations(ctx context.Context, userID int) ([]models.RecommendedMovie, error) {
	cacheKey := s.responseCacheKey(userID)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var out []models.RecommendedMovie
			if json.Unmarshal([]byte(cached), &out) == nil {
				slog.Debug("recommendations cache hit", "user_id", userID)
				return out, nil
			}
		}
	}

	rows, err := s.recs.FindRecommendations(userID)
	if err != nil {
		return nil, err
	}

	if s.isStale(rows) {
		if err := s.regenerate(ctx, userID); err != nil {
			return nil, err
		}
		rows, err = s.recs.FindRecommendations(userID)
		if err != nil {
			return nil, err
		}
	}

	out := formatRecommendations(rows)

	if s.rdb != nil {
		if data, err := json.Marshal(out); err == nil {
			s.rdb.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}
	return out, nil
}

// MarkViewed flips is_viewed on one recommendation. A NotFound error means
// the row was regenerated away since the client fetched it; callers decide
// whether that race is worth surfacing.
func (s *RecommendationService) MarkViewed(ctx context.Context, userID, movieID int) error {
	if err := s.recs.UpdateRecommendationViewed(userID, movieID); err != nil {
		return err
	}
	if s.rdb != nil {
		s.rdb.Del(ctx, s.responseCacheKey(userID))
	}
	return nil
}

// isStale reports whether the batch must be recomputed before serving: no
// rows at all, or the newest row older than the batch TTL.
func (s *RecommendationService) isStale(rows []models.Recommendation) bool {
	if len(rows) == 0 {
		return true
	}
	newest := rows[0].CreatedAt
	for _, rec := range rows[1:] {
		if rec.CreatedAt.After(newest) {
			newest = rec.CreatedAt
		}
	}
	return s.now().Sub(newest) > s.batchTTL
}

// regenerate serializes regeneration per user so concurrent stale reads
// collapse into a single write. The Redis lock is advisory; if Redis is down
// we regenerate anyway rather than fail the request.
func (s *RecommendationService) regenerate(ctx context.Context, userID int) error {
	if s.rdb == nil {
		return s.GenerateRecommendations(ctx, userID)
	}

	lockKey := fmt.Sprintf("recolock:%d", userID)
	acquired, err := s.rdb.SetNX(ctx, lockKey, "1", s.lockTTL).Result()
	if err != nil {
		slog.Warn("regen lock unavailable, proceeding without it", "user_id", userID, "error", err)
		return s.GenerateRecommendations(ctx, userID)
	}

	if !acquired {
		// Another request holds the lock; wait for its batch instead of
		// racing a second delete-then-insert against the same rows. Hitting
		// the deadline serves whatever batch exists, possibly still stale;
		// the next request finds it stale and tries again.
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		deadline := time.After(s.lockTTL)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-deadline:
				return nil
			case <-ticker.C:
				n, err := s.rdb.Exists(ctx, lockKey).Result()
				if err != nil || n == 0 {
					return nil
				}
			}
		}
	}

	defer s.rdb.Del(ctx, lockKey)
	return s.GenerateRecommendations(ctx, userID)
}

func (s *RecommendationService) responseCacheKey(userID int) string {
	return fmt.Sprintf("recommendations:view:%d", userID)
}

// formatRecommendations shapes persisted rows for display. Rows arrive score
// descending from the store and keep that order.
func formatRecommendations(rows []models.Recommendation) []models.RecommendedMovie {
	out := make([]models.RecommendedMovie, 0, len(rows))
	for _, rec := range rows {
		out = append(out, models.RecommendedMovie{
			MovieID:     rec.MovieID,
			Title:       rec.Movie.Title,
			PosterURL:   rec.Movie.PosterURL,
			ReleaseYear: rec.Movie.ReleaseYear,
			Director:    rec.Movie.Director,
			Rating:      displayRating(rec.Score),
			Reason:      rec.Reason,
		})
	}
	return out
}
