package policy

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

type stubSource struct {
	policy *entity.SagaPolicy
	err    error
	calls  int
}

func (s *stubSource) GetSagaPolicy(ctx context.Context, orchestratorName string, reqCtx *types.RequestContext) (*entity.SagaPolicy, error) {
	s.calls++
	return s.policy, s.err
}

func newCachedSource(t *testing.T, source *stubSource) *CachedPolicySource {
	t.Helper()
	logger := logging.NewDevelopmentLogger("policy-test")
	collector := metrics.NewCollector("policy_test_" + t.Name())
	// No Redis client: every read goes straight to the source.
	return NewCachedPolicySource(source, nil, time.Minute, logger, collector)
}

func TestCachedPolicySource_FallsThroughWithoutCache(t *testing.T) {
	source := &stubSource{policy: &entity.SagaPolicy{
		EnableSaga:     true,
		SagaOperations: []string{entity.OperationDataMapping},
	}}
	cached := newCachedSource(t, source)

	policy, err := cached.GetSagaPolicy(context.Background(), "mapping-pipeline", nil)
	require.NoError(t, err)
	assert.True(t, policy.EnableSaga)
	assert.Equal(t, 1, source.calls)

	_, err = cached.GetSagaPolicy(context.Background(), "mapping-pipeline", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestCachedPolicySource_SourceErrorPropagates(t *testing.T) {
	source := &stubSource{err: errors.New("policy service offline")}
	cached := newCachedSource(t, source)

	_, err := cached.GetSagaPolicy(context.Background(), "mapping-pipeline", nil)
	assert.Error(t, err)
}
