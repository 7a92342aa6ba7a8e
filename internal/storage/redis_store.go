package storage

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/TimzAjes16/echoID/internal/consent"
)

const consentKeyPrefix = "echoid:consent:"

// RedisConsentStore keeps consent records in Redis as JSON values. Used by
// hosted deployments where the device filesystem is not the home of state.
type RedisConsentStore struct {
	client *redis.Client
}

// NewRedisConsentStore wraps an existing Redis client.
func NewRedisConsentStore(client *redis.Client) *RedisConsentStore {
	return &RedisConsentStore{client: client}
}

// SaveConsent stores a consent record. Records never expire: withdrawn is a
// terminal state, not a deletion.
func (s *RedisConsentStore) SaveConsent(ctx context.Context, c *consent.Consent) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal consent")
	}
	if err := s.client.Set(ctx, consentKeyPrefix+c.ID, data, 0).Err(); err != nil {
		return errors.Wrap(err, "failed to store consent in redis")
	}
	return nil
}

// GetConsent loads a consent by local id.
func (s *RedisConsentStore) GetConsent(ctx context.Context, id string) (*consent.Consent, error) {
	data, err := s.client.Get(ctx, consentKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Wrapf(consent.ErrConsentNotFound, "%s", id)
		}
		return nil, errors.Wrap(err, "failed to load consent from redis")
	}

	var c consent.Consent
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal consent")
	}
	return &c, nil
}

// ListConsents scans all consent keys. SCAN keeps Redis responsive under
// large key counts where KEYS would block.
func (s *RedisConsentStore) ListConsents(ctx context.Context) ([]*consent.Consent, error) {
	var consents []*consent.Consent

	iter := s.client.Scan(ctx, 0, consentKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, errors.Wrapf(err, "failed to load %s", iter.Val())
		}
		var c consent.Consent
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal %s", iter.Val())
		}
		consents = append(consents, &c)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan consent keys")
	}
	return consents, nil
}
