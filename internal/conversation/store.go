package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"bidflow/internal/common/errors"
	"bidflow/internal/common/logger"
)

// lockTTL bounds how long a crashed worker can hold a conversation.
const lockTTL = 5 * time.Second

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Store persists conversation state in Redis and serializes turns for
// the same conversation through a short-lived lock.
type Store struct {
	client    *redis.Client
	ttl       time.Duration
	retries   int
	retryWait time.Duration
	log       logger.Logger
}

func NewStore(client *redis.Client, ttl time.Duration, retries int, retryWait time.Duration, log logger.Logger) *Store {
	return &Store{
		client:    client,
		ttl:       ttl,
		retries:   retries,
		retryWait: retryWait,
		log:       log,
	}
}

func stateKey(userID, projectID string) string {
	return fmt.Sprintf("conversation:%s:%s", userID, projectID)
}

func lockKey(userID, projectID string) string {
	return fmt.Sprintf("conversation:lock:%s:%s", userID, projectID)
}

// Acquire takes the per-conversation lock, retrying a few times before
// reporting the conversation busy. The returned func releases the lock.
func (s *Store) Acquire(ctx context.Context, userID, projectID string) (func(), error) {
	key := lockKey(userID, projectID)
	token := uuid.New().String()

	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryWait):
			}
		}
		ok, err := s.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, errors.NewStateLoadFailedError(err)
		}
		if ok {
			release := func() {
				if _, err := releaseScript.Run(context.Background(), s.client, []string{key}, token).Result(); err != nil {
					s.log.Warn("failed to release conversation lock", map[string]interface{}{
						"user_id":    userID,
						"project_id": projectID,
						"error":      err.Error(),
					})
				}
			}
			return release, nil
		}
	}
	return nil, errors.NewConversationBusyError(userID, projectID)
}

// IsNotFound reports whether err marks a conversation with no stored
// state.
func IsNotFound(err error) bool {
	return errors.IsCode(err, errors.ErrCodeStateNotFound)
}

// Get loads the state for a conversation. A conversation that was never
// saved, or whose TTL expired, yields a STATE_NOT_FOUND error.
func (s *Store) Get(ctx context.Context, userID, projectID string) (*State, error) {
	data, err := s.client.Get(ctx, stateKey(userID, projectID)).Bytes()
	if err == redis.Nil {
		return nil, errors.NewStateNotFoundError(userID, projectID)
	}
	if err != nil {
		return nil, errors.NewStateLoadFailedError(err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.NewStateLoadFailedError(err)
	}
	return &st, nil
}

// Save writes the state back and refreshes its TTL.
func (s *Store) Save(ctx context.Context, st *State) error {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(st)
	if err != nil {
		return errors.NewStateSaveFailedError(err)
	}
	if err := s.client.Set(ctx, stateKey(st.UserID, st.ProjectID), data, s.ttl).Err(); err != nil {
		return errors.NewStateSaveFailedError(err)
	}
	return nil
}
