package external

import (
	"context"
	"fmt"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

// CoordinatorClient talks to the saga coordinator. Its base URL usually
// comes from service discovery rather than static configuration, so the
// constructor takes the resolved address explicitly.
type CoordinatorClient struct {
	client *Client
}

// NewCoordinatorClient creates a saga coordinator client at the given
// base URL. Breaker and rate-limit settings come from cfg.
func NewCoordinatorClient(baseURL string, cfg config.CollaboratorConfig, logger *logging.Logger, collector *metrics.Collector) *CoordinatorClient {
	cfg.BaseURL = baseURL
	return &CoordinatorClient{
		client: NewClient("coordinator", cfg, logger, collector),
	}
}

// DesignSagaJourney asks the coordinator to design a journey.
func (c *CoordinatorClient) DesignSagaJourney(ctx context.Context, req entity.DesignJourneyRequest) (*entity.SagaJourney, error) {
	var out entity.SagaJourney
	if err := c.client.PostJSON(ctx, "/api/v1/journeys/design", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteSagaJourney starts a designed journey.
func (c *CoordinatorClient) ExecuteSagaJourney(ctx context.Context, req entity.ExecuteJourneyRequest) (*entity.SagaExecution, error) {
	var out entity.SagaExecution
	if err := c.client.PostJSON(ctx, "/api/v1/journeys/execute", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdvanceSagaStep reports a step outcome to the coordinator.
func (c *CoordinatorClient) AdvanceSagaStep(ctx context.Context, req entity.AdvanceStepRequest) error {
	return c.client.PostJSON(ctx, "/api/v1/saga-steps/advance", req, nil)
}

// PolicyClient talks to the journey-configuration service, which owns
// the saga engagement policy per orchestrator.
type PolicyClient struct {
	client *Client
}

// NewPolicyClient creates a saga policy client.
func NewPolicyClient(cfg config.CollaboratorConfig, logger *logging.Logger, collector *metrics.Collector) *PolicyClient {
	return &PolicyClient{
		client: NewClient("policy", cfg, logger, collector),
	}
}

// GetSagaPolicy fetches the saga policy for an orchestrator.
func (c *PolicyClient) GetSagaPolicy(ctx context.Context, orchestratorName string, reqCtx *types.RequestContext) (*entity.SagaPolicy, error) {
	if reqCtx != nil {
		ctx = context.WithValue(ctx, types.RequestContextKey, reqCtx)
	}
	var out entity.SagaPolicy
	path := fmt.Sprintf("/api/v1/saga-policies/%s", orchestratorName)
	if err := c.client.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
