package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veriflow/internal/decision"
	"veriflow/internal/verification/models"
	vendormodels "veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
	"veriflow/pkg/platform/sentinel"
)

const (
	keyPrefix = "veriflow:verification:"
	// maxTxRetries bounds optimistic transaction retries under contention.
	maxTxRetries = 5
)

// RedisStore keeps each request as a JSON document. State transitions run
// in a WATCH/MULTI transaction so two processes cannot both claim a request.
type RedisStore struct {
	client   redis.UniversalClient
	claimTTL time.Duration
	// retention expires stored requests; zero keeps them forever.
	retention time.Duration
}

type RedisOption func(*RedisStore)

// WithRetention expires stored requests after d.
func WithRetention(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.retention = d
	}
}

func NewRedis(client redis.UniversalClient, claimTTL time.Duration, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, claimTTL: claimTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(requestID id.RequestID) string {
	return keyPrefix + requestID.String()
}

func (s *RedisStore) Create(ctx context.Context, req *models.VerificationRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal verification request: %w", err)
	}
	created, err := s.client.SetNX(ctx, key(req.ID), data, s.retention).Result()
	if err != nil {
		return fmt.Errorf("create verification request: %w", err)
	}
	if !created {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, requestID id.RequestID) (*models.VerificationRequest, error) {
	raw, err := s.client.Get(ctx, key(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get verification request: %w", err)
	}
	return decode(raw)
}

func (s *RedisStore) Claim(ctx context.Context, requestID id.RequestID, now time.Time) (*models.VerificationRequest, error) {
	var claimed *models.VerificationRequest
	err := s.update(ctx, requestID, func(req *models.VerificationRequest) error {
		if err := req.Claim(now, s.claimTTL); err != nil {
			return err
		}
		claimed = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *RedisStore) Release(ctx context.Context, requestID id.RequestID) error {
	return s.update(ctx, requestID, func(req *models.VerificationRequest) error {
		return req.Release()
	})
}

func (s *RedisStore) Complete(ctx context.Context, requestID id.RequestID, attempts []vendormodels.Result, d decision.Decision) error {
	return s.update(ctx, requestID, func(req *models.VerificationRequest) error {
		return req.Complete(attempts, d)
	})
}

// update applies fn to the stored request inside an optimistic transaction.
// A concurrent write to the key aborts the transaction and it is retried.
func (s *RedisStore) update(ctx context.Context, requestID id.RequestID, fn func(*models.VerificationRequest) error) error {
	k := key(requestID)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		req, err := decode(raw)
		if err != nil {
			return err
		}
		if err := fn(req); err != nil {
			return err
		}
		data, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("marshal verification request: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, redis.KeepTTL)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update verification request %s: %w", requestID, sentinel.ErrConflict)
}

func decode(raw []byte) (*models.VerificationRequest, error) {
	var req models.VerificationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode verification request: %w", err)
	}
	return &req, nil
}
