package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/domain/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ActivityStore keeps the admin activity feed in a capped Redis stream
type ActivityStore struct {
	client *redis.Client
	stream string
	maxLen int64
	log    *zap.Logger
}

// NewActivityStore creates a store writing to stream, trimmed to about maxLen entries
func NewActivityStore(client *redis.Client, stream string, maxLen int64, log *zap.Logger) *ActivityStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActivityStore{
		client: client,
		stream: stream,
		maxLen: maxLen,
		log:    log.Named("activity_store"),
	}
}

// Append adds an activity to the stream
func (s *ActivityStore) Append(ctx context.Context, activity *model.Activity) error {
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":           activity.Type,
			"code":           activity.Code,
			"access_code_id": activity.AccessCodeID,
			"token_prefix":   activity.TokenPrefix,
			"source":         activity.Source,
			"occurred_at":    activity.OccurredAt.UnixMilli(),
		},
	}).Result()
	if err != nil {
		s.log.Error("Failed to append activity",
			zap.String("stream", s.stream),
			zap.String("type", activity.Type),
			zap.Error(err))
		return err
	}

	s.log.Debug("Activity appended",
		zap.String("stream", s.stream),
		zap.String("id", id),
		zap.String("type", activity.Type))
	return nil
}

// Recent returns up to limit activities, newest first
func (s *ActivityStore) Recent(ctx context.Context, limit int64) ([]*model.Activity, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", limit).Result()
	if err != nil {
		if err == redis.Nil {
			return []*model.Activity{}, nil
		}
		s.log.Error("Failed to read activity", zap.String("stream", s.stream), zap.Error(err))
		return nil, err
	}

	out := make([]*model.Activity, 0, len(msgs))
	for _, msg := range msgs {
		activity, err := parseActivity(msg)
		if err != nil {
			s.log.Warn("Skipping malformed activity", zap.String("id", msg.ID), zap.Error(err))
			continue
		}
		out = append(out, activity)
	}
	return out, nil
}

// Ping checks connectivity
func (s *ActivityStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func parseActivity(msg redis.XMessage) (*model.Activity, error) {
	str := func(key string) string {
		if v, ok := msg.Values[key].(string); ok {
			return v
		}
		return ""
	}

	activity := &model.Activity{
		ID:           msg.ID,
		Type:         str("type"),
		Code:         str("code"),
		AccessCodeID: str("access_code_id"),
		TokenPrefix:  str("token_prefix"),
		Source:       str("source"),
	}
	if activity.Type == "" {
		return nil, fmt.Errorf("missing type")
	}

	if raw := str("occurred_at"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid occurred_at %q: %w", raw, err)
		}
		activity.OccurredAt = time.UnixMilli(ms).UTC()
	}
	return activity, nil
}

var _ repository.ActivityStore = (*ActivityStore)(nil)
