package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/insightgrid/platform/domain/collaborator"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

// StepOutcome is the contract a workflow result must satisfy to run under
// saga guarantees: the executor attaches the saga handle to it and reports
// a condensed payload back to the coordinator.
type StepOutcome interface {
	SetSagaID(id types.SagaID)
	StepResult() map[string]interface{}
}

// WorkflowFunc is one saga-wrappable unit of work.
type WorkflowFunc func(ctx context.Context) (StepOutcome, error)

// SagaExecutor wraps workflow execution with coordinator-tracked saga
// guarantees when policy enables them. Every guard in the chain fails
// open to direct execution, so a
// missing policy source, locator, or coordinator never blocks the
// workflow itself.
type SagaExecutor struct {
	policySource collaborator.PolicySource
	locator      collaborator.CoordinatorLocator

	// Deployment-level default used when the policy source is unreachable.
	fallbackPolicy entity.SagaPolicy

	// Compensation handlers are owned by this service, not by the policy
	// source. Keyed by operation, then milestone.
	handlers map[string]map[string]string

	serviceName string
	policyTTL   time.Duration

	logger  *logging.Logger
	metrics *metrics.Collector

	mu       sync.RWMutex
	policy   *entity.SagaPolicy
	policyAt time.Time
	group    singleflight.Group
}

// NewSagaExecutor creates a saga executor. policySource and locator may be
// nil; both degrade to direct execution.
func NewSagaExecutor(
	policySource collaborator.PolicySource,
	locator collaborator.CoordinatorLocator,
	fallbackPolicy entity.SagaPolicy,
	serviceName string,
	policyTTL time.Duration,
	logger *logging.Logger,
	collector *metrics.Collector,
) *SagaExecutor {
	return &SagaExecutor{
		policySource:   policySource,
		locator:        locator,
		fallbackPolicy: fallbackPolicy,
		handlers: map[string]map[string]string{
			entity.OperationDataMapping: entity.DataMappingCompensationHandlers,
		},
		serviceName: serviceName,
		policyTTL:   policyTTL,
		logger:      logger.WithComponent("saga_executor"),
		metrics:     collector,
	}
}

// Execute runs fn, under saga guarantees when the resolved policy enables
// them for operation. Exactly one journey design and one journey execution
// happen per engaged invocation. On workflow failure the failed step is
// reported to the coordinator before the error is returned, so
// compensation always starts ahead of the caller seeing the failure.
func (e *SagaExecutor) Execute(
	ctx context.Context,
	operation string,
	milestones []string,
	reqCtx *types.RequestContext,
	fn WorkflowFunc,
) (StepOutcome, error) {
	policy := e.currentPolicy(ctx, reqCtx)

	if !policy.EnableSaga {
		e.metrics.RecordSagaEngagement(operation, "disabled")
		return fn(ctx)
	}
	if !policy.OperationEnabled(operation) {
		e.metrics.RecordSagaEngagement(operation, "not_in_policy")
		return fn(ctx)
	}

	coordinator, err := e.locate(ctx)
	if err != nil || coordinator == nil {
		e.logger.LogSagaFallback(operation, "coordinator unavailable")
		e.metrics.RecordSagaEngagement(operation, "coordinator_unavailable")
		return fn(ctx)
	}

	journey, err := coordinator.DesignSagaJourney(ctx, entity.DesignJourneyRequest{
		JourneyType:          operation,
		Operation:            operation,
		Milestones:           milestones,
		CompensationHandlers: e.handlers[operation],
		UserContext:          reqCtx,
		Requirements: map[string]interface{}{
			"operation":  operation,
			"milestones": milestones,
		},
	})
	if err != nil || journey == nil || !journey.Success {
		e.logger.LogSagaFallback(operation, "journey design failed")
		e.metrics.RecordSagaEngagement(operation, "design_failed")
		return fn(ctx)
	}

	execution, err := coordinator.ExecuteSagaJourney(ctx, entity.ExecuteJourneyRequest{
		JourneyID:   journey.JourneyID,
		UserID:      reqCtx.UserIDString(),
		Context:     map[string]interface{}{"operation": operation},
		UserContext: reqCtx,
	})
	if err != nil || execution == nil || !execution.Success {
		e.logger.LogSagaFallback(operation, "journey execution start failed")
		e.metrics.RecordSagaEngagement(operation, "start_failed")
		return fn(ctx)
	}

	e.metrics.RecordSagaEngagement(operation, "engaged")
	sagaID := execution.SagaID

	result, err := fn(ctx)
	if err != nil {
		// Report the failed step before the error propagates; this is
		// what triggers coordinator-driven compensation.
		advanceErr := coordinator.AdvanceSagaStep(ctx, entity.AdvanceStepRequest{
			SagaID:      sagaID,
			JourneyID:   journey.JourneyID,
			UserID:      reqCtx.UserIDString(),
			Status:      types.SagaStepFailed,
			StepResult:  map[string]interface{}{"error": err.Error()},
			UserContext: reqCtx,
		})
		if advanceErr != nil {
			e.logger.WithError(advanceErr).Warn("Failed to report failed saga step",
				logging.String("operation", operation),
				logging.String("saga_id", string(sagaID)))
		}
		e.metrics.RecordSagaStep(operation, string(types.SagaStepFailed))
		return nil, err
	}

	if advanceErr := coordinator.AdvanceSagaStep(ctx, entity.AdvanceStepRequest{
		SagaID:      sagaID,
		JourneyID:   journey.JourneyID,
		UserID:      reqCtx.UserIDString(),
		Status:      types.SagaStepComplete,
		StepResult:  result.StepResult(),
		UserContext: reqCtx,
	}); advanceErr != nil {
		e.logger.WithError(advanceErr).Warn("Failed to report completed saga step",
			logging.String("operation", operation),
			logging.String("saga_id", string(sagaID)))
	}
	e.metrics.RecordSagaStep(operation, string(types.SagaStepComplete))

	result.SetSagaID(sagaID)
	return result, nil
}

// currentPolicy returns the memoized saga policy, refreshing it through
// singleflight once the TTL lapses. Policy source failures fall back to
// the deployment default.
func (e *SagaExecutor) currentPolicy(ctx context.Context, reqCtx *types.RequestContext) entity.SagaPolicy {
	e.mu.RLock()
	if e.policy != nil && time.Since(e.policyAt) < e.policyTTL {
		policy := *e.policy
		e.mu.RUnlock()
		return policy
	}
	e.mu.RUnlock()

	if e.policySource == nil {
		return e.fallbackPolicy
	}

	v, err, _ := e.group.Do("saga_policy", func() (interface{}, error) {
		policy, err := e.policySource.GetSagaPolicy(ctx, e.serviceName, reqCtx)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.policy = policy
		e.policyAt = time.Now()
		e.mu.Unlock()
		return policy, nil
	})
	if err != nil {
		e.logger.WithError(err).Warn("Saga policy lookup failed, using fallback policy")
		return e.fallbackPolicy
	}
	return *(v.(*entity.SagaPolicy))
}

func (e *SagaExecutor) locate(ctx context.Context) (collaborator.SagaCoordinator, error) {
	if e.locator == nil {
		return nil, nil
	}
	return e.locator.Locate(ctx)
}
