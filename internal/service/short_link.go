package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
)

const (
	// 6 random bytes encode to 8 URL-safe characters
	shortLinkTokenBytes = 6
	maxTokenAttempts    = 5
	shortLinkCacheTTL   = time.Hour
)

// ShortLinkService maps recipes to stable short tokens and back
type ShortLinkService struct {
	db       *gorm.DB
	redis    *redis.Client
	newToken func() (string, error)
}

// NewShortLinkService creates a new ShortLinkService. redisClient may be nil,
// which disables the resolve cache.
func NewShortLinkService(db *gorm.DB, redisClient *redis.Client) *ShortLinkService {
	return &ShortLinkService{
		db:       db,
		redis:    redisClient,
		newToken: randomToken,
	}
}

// GetOrCreateToken returns the recipe's token, creating it on first use.
// The unique indexes on recipe_id and token settle races: losing an insert
// either means another request linked the same recipe, whose token is then
// returned, or the token was taken, in which case a new one is drawn.
func (s *ShortLinkService) GetOrCreateToken(ctx context.Context, recipeID uint) (string, error) {
	db := s.db.WithContext(ctx)

	if token, err := s.existingToken(db, recipeID); err != nil || token != "" {
		return token, err
	}

	var count int64
	if err := db.Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to get recipe: %w", err)
	}
	if count == 0 {
		return "", ErrRecipeNotFound
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", fmt.Errorf("failed to generate token: %w", err)
		}

		var taken int64
		if err := db.Model(&models.ShortLink{}).Where("token = ?", token).Count(&taken).Error; err != nil {
			return "", fmt.Errorf("failed to check token: %w", err)
		}
		if taken > 0 {
			metrics.ShortLinkCollisions.Inc()
			continue
		}

		link := models.ShortLink{RecipeID: recipeID, Token: token}
		err = db.Create(&link).Error
		if err == nil {
			logging.Ctx(ctx).Info().Uint("recipe_id", recipeID).Str("token", token).Msg("short link created")
			return token, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", fmt.Errorf("failed to create short link: %w", err)
		}

		if existing, err := s.existingToken(db, recipeID); err != nil || existing != "" {
			return existing, err
		}
		metrics.ShortLinkCollisions.Inc()
	}

	logging.Ctx(ctx).Error().Uint("recipe_id", recipeID).Int("attempts", maxTokenAttempts).Msg("could not allocate short link token")
	return "", ErrOperationFailed
}

func (s *ShortLinkService) existingToken(db *gorm.DB, recipeID uint) (string, error) {
	var link models.ShortLink
	err := db.Where("recipe_id = ?", recipeID).Take(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get short link: %w", err)
	}
	return link.Token, nil
}

// Resolve returns the recipe id for token or ErrShortLinkNotFound
func (s *ShortLinkService) Resolve(ctx context.Context, token string) (uint, error) {
	if s.redis != nil {
		id, err := s.redis.Get(ctx, shortLinkCacheKey(token)).Uint64()
		if err == nil {
			metrics.ShortLinkCacheHits.Inc()
			return uint(id), nil
		}
		if !errors.Is(err, redis.Nil) {
			logging.Ctx(ctx).Warn().Err(err).Msg("short link cache lookup failed")
		}
	}

	var link models.ShortLink
	if err := s.db.WithContext(ctx).Where("token = ?", token).Take(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrShortLinkNotFound
		}
		return 0, fmt.Errorf("failed to resolve short link: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, shortLinkCacheKey(token), link.RecipeID, shortLinkCacheTTL).Err(); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("short link cache store failed")
		}
	}
	return link.RecipeID, nil
}

// Forget evicts the cached resolution of the recipe's token. It has to run
// while the short link row still exists, so callers invoke it before the
// recipe is deleted.
func (s *ShortLinkService) Forget(ctx context.Context, recipeID uint) error {
	if s.redis == nil {
		return nil
	}

	token, err := s.existingToken(s.db.WithContext(ctx), recipeID)
	if err != nil || token == "" {
		return err
	}
	if err := s.redis.Del(ctx, shortLinkCacheKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to evict short link cache: %w", err)
	}
	return nil
}

func shortLinkCacheKey(token string) string {
	return "shortlink:" + token
}

func randomToken() (string, error) {
	buf := make([]byte, shortLinkTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
