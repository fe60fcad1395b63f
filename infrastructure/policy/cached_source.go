// Package policy provides the cached saga-policy source. Policy reads go
// through Redis so that restarts and concurrent instances share one view
// of the engagement policy between refreshes.
package policy

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/insightgrid/platform/domain/collaborator"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

const policyKeyPrefix = "saga_policy:"

// CachedPolicySource is a read-through Redis cache in front of the
// policy service. Cache failures degrade to a direct fetch; a fetch
// failure surfaces to the caller, which falls back to its static policy.
type CachedPolicySource struct {
	source  collaborator.PolicySource
	client  redis.UniversalClient
	ttl     time.Duration
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewCachedPolicySource creates a cached policy source.
func NewCachedPolicySource(source collaborator.PolicySource, client redis.UniversalClient,
	ttl time.Duration, logger *logging.Logger, collector *metrics.Collector) *CachedPolicySource {
	return &CachedPolicySource{
		source:  source,
		client:  client,
		ttl:     ttl,
		logger:  logger.WithComponent("policy_cache"),
		metrics: collector,
	}
}

// GetSagaPolicy returns the cached policy for the orchestrator, fetching
// and caching it on a miss.
func (s *CachedPolicySource) GetSagaPolicy(ctx context.Context, orchestratorName string, reqCtx *types.RequestContext) (*entity.SagaPolicy, error) {
	key := policyKeyPrefix + orchestratorName

	if policy := s.lookup(ctx, key); policy != nil {
		return policy, nil
	}

	policy, err := s.source.GetSagaPolicy(ctx, orchestratorName, reqCtx)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, policy)
	return policy, nil
}

func (s *CachedPolicySource) lookup(ctx context.Context, key string) *entity.SagaPolicy {
	if s.client == nil {
		return nil
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			s.metrics.RecordCacheOperation("get", "miss")
		} else {
			s.metrics.RecordCacheOperation("get", "error")
			s.logger.Warn("Policy cache read failed",
				logging.String("key", key),
				logging.String("error", err.Error()))
		}
		return nil
	}

	var policy entity.SagaPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		s.metrics.RecordCacheOperation("get", "error")
		s.logger.Warn("Discarding corrupt cached policy",
			logging.String("key", key),
			logging.String("error", err.Error()))
		s.client.Del(ctx, key)
		return nil
	}

	s.metrics.RecordCacheOperation("get", "hit")
	return &policy
}

func (s *CachedPolicySource) store(ctx context.Context, key string, policy *entity.SagaPolicy) {
	if s.client == nil {
		return
	}

	data, err := json.Marshal(policy)
	if err != nil {
		return
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.metrics.RecordCacheOperation("set", "error")
		s.logger.Warn("Policy cache write failed",
			logging.String("key", key),
			logging.String("error", err.Error()))
		return
	}
	s.metrics.RecordCacheOperation("set", "success")
}
