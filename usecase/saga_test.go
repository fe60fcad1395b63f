package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/insightgrid/platform/domain/collaborator"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

func newTestSagaExecutor(policySource collaborator.PolicySource, locator collaborator.CoordinatorLocator, fallback entity.SagaPolicy) *SagaExecutor {
	logger := logging.NewDevelopmentLogger("saga-test")
	collector := metrics.NewCollector("saga_test")
	return NewSagaExecutor(policySource, locator, fallback, "mapping-pipeline", time.Minute, logger, collector)
}

func testRequestContext() *types.RequestContext {
	return types.NewRequestContext()
}

func TestSagaExecutor_DisabledPolicyExecutesDirectly(t *testing.T) {
	executor := newTestSagaExecutor(nil, nil, entity.SagaPolicy{EnableSaga: false})

	called := false
	outcome, err := executor.Execute(context.Background(), entity.OperationDataMapping,
		entity.DataMappingMilestones, testRequestContext(),
		func(ctx context.Context) (StepOutcome, error) {
			called = true
			return &entity.MappingResult{Success: true}, nil
		})

	require.NoError(t, err)
	assert.True(t, called)
	result := outcome.(*entity.MappingResult)
	assert.Empty(t, result.SagaID)
}

func TestSagaExecutor_OperationNotInPolicyExecutesDirectly(t *testing.T) {
	locator := new(mockCoordinatorLocator)
	executor := newTestSagaExecutor(nil, locator, entity.SagaPolicy{
		EnableSaga:     true,
		SagaOperations: []string{"some_other_operation"},
	})

	outcome, err := executor.Execute(context.Background(), entity.OperationDataMapping,
		entity.DataMappingMilestones, testRequestContext(),
		func(ctx context.Context) (StepOutcome, error) {
			return &entity.MappingResult{Success: true}, nil
		})

	require.NoError(t, err)
	assert.Empty(t, outcome.(*entity.MappingResult).SagaID)
	locator.AssertNotCalled(t, "Locate", mock.Anything)
}

func TestSagaExecutor_CoordinatorUnavailableFailsOpen(t *testing.T) {
	locator := new(mockCoordinatorLocator)
	locator.On("Locate", mock.Anything).Return(nil, errors.New("discovery failed"))

	executor := newTestSagaExecutor(nil, locator, entity.SagaPolicy{
		EnableSaga:     true,
		SagaOperations: []string{entity.OperationDataMapping},
	})

	outcome, err := executor.Execute(context.Background(), entity.OperationDataMapping,
		entity.DataMappingMilestones, testRequestContext(),
		func(ctx context.Context) (StepOutcome, error) {
			return &entity.MappingResult{Success: true}, nil
		})

	require.NoError(t, err)
	assert.True(t, outcome.(*entity.MappingResult).Success)
	assert.Empty(t, outcome.(*entity.MappingResult).SagaID)
}

func TestSagaExecutor_JourneyDesignFailureFailsOpen(t *testing.T) {
	coordinator := new(mockSagaCoordinator)
	coordinator.On("DesignSagaJourney", mock.Anything, mock.Anything).
		Return(&entity.SagaJourney{Success: false, Err: "design rejected"}, nil)

	locator := new(mockCoordinatorLocator)
	locator.On("Locate", mock.Anything).Return(coordinator, nil)

	executor := newTestSagaExecutor(nil, locator, entity.SagaPolicy{
		EnableSaga:     true,
		SagaOperations: []string{entity.OperationDataMapping},
	})

	outcome, err := executor.Execute(context.Background(), entity.OperationDataMapping,
		entity.DataMappingMilestones, testRequestContext(),
		func(ctx context.Context) (StepOutcome, error) {
			return &entity.MappingResult{Success: true}, nil
		})

	require.NoError(t, err)
	assert.Empty(t, outcome.(*entity.MappingResult).SagaID)
	coordinator.AssertNotCalled(t, "ExecuteSagaJourney", mock.Anything, mock.Anything)
	coordinator.AssertNotCalled(t, "AdvanceSagaStep", mock.Anything, mock.Anything)
}

func TestSagaExecutor_EngagedSuccessAttachesSagaID(t *testing.T) {
	coordinator := new(mockSagaCoordinator)
	coordinator.On("DesignSagaJourney", mock.Anything, mock.MatchedBy(func(req entity.DesignJourneyRequest) bool {
		return req.Operation == entity.OperationDataMapping &&
			len(req.Milestones) == len(entity.DataMappingMilestones) &&
			req.CompensationHandlers["validate"] == "mark_as_invalid"
	})).Return(&entity.SagaJourney{Success: true, JourneyID: "journey-1"}, nil)
	coordinator.On("ExecuteSagaJourney", mock.Anything, mock.Anything).
		Return(&entity.SagaExecution{Success: true, SagaID: "saga-1"}, nil)
	coordinator.On("AdvanceSagaStep", mock.Anything, mock.MatchedBy(func(req entity.AdvanceStepRequest) bool {
		return req.Status == types.SagaStepComplete && req.SagaID == "saga-1"
	})).Return(nil)

	locator := new(mockCoordinatorLocator)
	locator.On("Locate", mock.Anything).Return(coordinator, nil)

	executor := newTestSagaExecutor(nil, locator, entity.SagaPolicy{
		EnableSaga:     true,
		SagaOperations: []string{entity.OperationDataMapping},
	})

	outcome, err := executor.Execute(context.Background(), entity.OperationDataMapping,
		entity.DataMappingMilestones, testRequestContext(),
		func(ctx context.Context) (StepOutcome, error) {
			return &entity.MappingResult{Success: true, MappingID: "mapping_1_abc"}, nil
		})

	require.NoError(t, err)
	assert.Equal(t, types.SagaID("saga-1"), outcome.(*entity.MappingResult).SagaID)
	coordinator.AssertNumberOfCalls(t, "DesignSagaJourney", 1)
	coordinator.AssertNumberOfCalls(t, "ExecuteSagaJourney", 1)
}

func TestSagaExecutor_WorkflowFailureReportsFailedStepBeforeReturning(t *testing.T) {
	coordinator := new(mockSagaCoordinator)
	coordinator.On("DesignSagaJourney", mock.Anything, mock.Anything).
		Return(&entity.SagaJourney{Success: true, JourneyID: "journey-1"}, nil)
	coordinator.On("ExecuteSagaJourney", mock.Anything, mock.Anything).
		Return(&entity.SagaExecution{Success: true, SagaID: "saga-1"}, nil)
	coordinator.On("AdvanceSagaStep", mock.Anything, mock.MatchedBy(func(req entity.AdvanceStepRequest) bool {
		return req.Status == types.SagaStepFailed && req.StepResult["error"] == "boom"
	})).Return(nil)

	locator := new(mockCoordinatorLocator)
	locator.On("Locate", mock.Anything).Return(coordinator, nil)

	executor := newTestSagaExecutor(nil, locator, entity.SagaPolicy{
		EnableSaga:     true,
		SagaOperations: []string{entity.OperationDataMapping},
	})

	outcome, err := executor.Execute(context.Background(), entity.OperationDataMapping,
		entity.DataMappingMilestones, testRequestContext(),
		func(ctx context.Context) (StepOutcome, error) {
			return nil, errors.New("boom")
		})

	require.Error(t, err)
	assert.Nil(t, outcome)
	coordinator.AssertCalled(t, "AdvanceSagaStep", mock.Anything, mock.MatchedBy(func(req entity.AdvanceStepRequest) bool {
		return req.Status == types.SagaStepFailed
	}))
}

func TestSagaExecutor_PolicyMemoizedAcrossInvocations(t *testing.T) {
	policySource := new(mockPolicySource)
	policySource.On("GetSagaPolicy", mock.Anything, "mapping-pipeline", mock.Anything).
		Return(&entity.SagaPolicy{EnableSaga: false}, nil).Once()

	executor := newTestSagaExecutor(policySource, nil, entity.SagaPolicy{EnableSaga: false})

	fn := func(ctx context.Context) (StepOutcome, error) {
		return &entity.MappingResult{Success: true}, nil
	}

	_, err := executor.Execute(context.Background(), entity.OperationDataMapping,
		entity.DataMappingMilestones, testRequestContext(), fn)
	require.NoError(t, err)
	_, err = executor.Execute(context.Background(), entity.OperationDataMapping,
		entity.DataMappingMilestones, testRequestContext(), fn)
	require.NoError(t, err)

	policySource.AssertNumberOfCalls(t, "GetSagaPolicy", 1)
}

func TestSagaExecutor_PolicySourceFailureUsesFallback(t *testing.T) {
	policySource := new(mockPolicySource)
	policySource.On("GetSagaPolicy", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("policy service down"))

	executor := newTestSagaExecutor(policySource, nil, entity.SagaPolicy{EnableSaga: false})

	called := false
	_, err := executor.Execute(context.Background(), entity.OperationDataMapping,
		entity.DataMappingMilestones, testRequestContext(),
		func(ctx context.Context) (StepOutcome, error) {
			called = true
			return &entity.MappingResult{Success: true}, nil
		})

	require.NoError(t, err)
	assert.True(t, called)
}
