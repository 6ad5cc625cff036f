// Package cache puts a Redis read-through cache in front of quiz lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/mindengage-french/internal/grading"
	"github.com/mind-engage/mindengage-french/internal/store"
)

const keyPrefix = "quiz:"

// QuizCache wraps a store and caches FindQuiz results. Redis failures are
// logged and the call falls through to the wrapped store.
type QuizCache struct {
	store.Store
	rdb *redis.Client
	ttl time.Duration
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func New(next store.Store, rdb *redis.Client, ttl time.Duration) *QuizCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QuizCache{Store: next, rdb: rdb, ttl: ttl}
}

func (c *QuizCache) FindQuiz(ctx context.Context, quizID string) (grading.Quiz, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+quizID).Bytes()
	switch {
	case err == nil:
		var q grading.Quiz
		if err := json.Unmarshal(raw, &q); err == nil {
			return q, nil
		}
		log.Printf("quiz cache: bad entry for %s, reloading", quizID)
	case !errors.Is(err, redis.Nil):
		log.Printf("quiz cache: get %s: %v", quizID, err)
	}

	q, err := c.Store.FindQuiz(ctx, quizID)
	if err != nil {
		return grading.Quiz{}, err
	}
	if buf, err := json.Marshal(q); err == nil {
		if err := c.rdb.Set(ctx, keyPrefix+quizID, buf, c.ttl).Err(); err != nil {
			log.Printf("quiz cache: set %s: %v", quizID, err)
		}
	}
	return q, nil
}

// PutQuiz writes through and drops the cached copy.
func (c *QuizCache) PutQuiz(ctx context.Context, q grading.Quiz) error {
	if err := c.Store.PutQuiz(ctx, q); err != nil {
		return err
	}
	return c.Invalidate(ctx, q.ID)
}

// PutCourse can change which course a quiz id resolves to, so it drops all
// cached quizzes.
func (c *QuizCache) PutCourse(ctx context.Context, co store.Course) error {
	if err := c.Store.PutCourse(ctx, co); err != nil {
		return err
	}
	return c.flush(ctx)
}

func (c *QuizCache) Invalidate(ctx context.Context, quizID string) error {
	if err := c.rdb.Del(ctx, keyPrefix+quizID).Err(); err != nil {
		log.Printf("quiz cache: del %s: %v", quizID, err)
	}
	return nil
}

func (c *QuizCache) flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			log.Printf("quiz cache: scan: %v", err)
			return nil
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				log.Printf("quiz cache: del: %v", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *QuizCache) Close(ctx context.Context) error {
	err := c.Store.Close(ctx)
	if cerr := c.rdb.Close(); err == nil {
		err = cerr
	}
	return err
}
