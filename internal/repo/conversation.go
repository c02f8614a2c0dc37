package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/ucp-agent-poc/server/internal/agent/model"
	errx "github.com/ucp-agent-poc/server/internal/core/error"
	logx "github.com/ucp-agent-poc/server/pkg/logger"
)

// RedisConversationRepository keeps the transcript and the shopping state of
// each conversation in Redis, both under the same TTL so they expire
// together.
type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationRepository) messagesKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

func (r *RedisConversationRepository) stateKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:state", conversationID)
}

func (r *RedisConversationRepository) AddMessage(ctx context.Context, conversationID string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to marshal message")
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.messagesKey(conversationID)

	// append message
	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation key")
		}
	}
	return nil
}

func (r *RedisConversationRepository) LoadHistory(ctx context.Context, conversationID string) (*model.ConversationHistory, error) {
	key := r.messagesKey(conversationID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return &model.ConversationHistory{ConversationID: conversationID, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("conversationID", conversationID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, conversationID string) error {
	if err := r.rdb.Del(ctx, r.messagesKey(conversationID), r.stateKey(conversationID)).Err(); err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to delete conversation from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) GetMessageCount(ctx context.Context, conversationID string) (int, error) {
	key := r.messagesKey(conversationID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to get message count from redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

// SaveState persists the cart and the active checkout session id for the
// conversation. Call after every completed chat turn so a conversation can
// resume where it left off.
func (r *RedisConversationRepository) SaveState(ctx context.Context, conversationID string, state model.ConversationState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}
	key := r.stateKey(conversationID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save conversation state to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// LoadState returns the saved shopping state, or the zero state when the
// conversation is new or has expired.
func (r *RedisConversationRepository) LoadState(ctx context.Context, conversationID string) (model.ConversationState, error) {
	key := r.stateKey(conversationID)
	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return model.ConversationState{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation state from redis")
		return model.ConversationState{}, errx.WrapRedis(err)
	}

	var state model.ConversationState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return model.ConversationState{}, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	return state, nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
var _ model.ConversationStateRepository = (*RedisConversationRepository)(nil)
