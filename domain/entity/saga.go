package entity

import (
	"github.com/insightgrid/platform/shared/types"
)

// OperationDataMapping is the saga operation name of the data-mapping
// pipeline.
const OperationDataMapping = "insights_data_mapping"

// DataMappingMilestones is the fixed milestone sequence of the
// data-mapping operation.
var DataMappingMilestones = []string{
	"analyze_source",
	"analyze_target",
	"generate_mapping",
	"apply_mapping",
	"validate",
}

// DataMappingCompensationHandlers maps each milestone to its compensation
// handler, invoked by the external coordinator on failure.
var DataMappingCompensationHandlers = map[string]string{
	"analyze_source":   "revert_source_analysis",
	"analyze_target":   "revert_target_analysis",
	"generate_mapping": "delete_mapping_rules",
	"apply_mapping":    "revert_transformation",
	"validate":         "mark_as_invalid",
}

// SagaPolicy is externally configured read-only policy controlling saga
// engagement. Capability by design, optional by policy.
type SagaPolicy struct {
	EnableSaga           bool                         `json:"enable_saga"`
	SagaOperations       []string                     `json:"saga_operations"`
	CompensationHandlers map[string]map[string]string `json:"compensation_handlers,omitempty"`
}

// OperationEnabled reports whether the named operation is in the
// policy's enabled-operations list.
func (p *SagaPolicy) OperationEnabled(operation string) bool {
	if p == nil {
		return false
	}
	for _, op := range p.SagaOperations {
		if op == operation {
			return true
		}
	}
	return false
}

// SagaJourney is the coordinator's journey-design response. The pipeline
// only holds it as a correlation handle; the coordinator owns its
// lifecycle.
type SagaJourney struct {
	Success   bool            `json:"success"`
	JourneyID types.JourneyID `json:"journey_id,omitempty"`
	Err       string          `json:"error,omitempty"`
}

// SagaExecution is the coordinator's journey-execution response.
type SagaExecution struct {
	Success bool         `json:"success"`
	SagaID  types.SagaID `json:"saga_id,omitempty"`
	Err     string       `json:"error,omitempty"`
}

// DesignJourneyRequest asks the coordinator to design a journey for one
// operation with its milestone list and compensation-handler map.
type DesignJourneyRequest struct {
	JourneyType          string                 `json:"journey_type"`
	Operation            string                 `json:"operation"`
	Milestones           []string               `json:"milestones"`
	CompensationHandlers map[string]string      `json:"compensation_handlers,omitempty"`
	UserContext          *types.RequestContext  `json:"user_context,omitempty"`
	Requirements         map[string]interface{} `json:"requirements,omitempty"`
}

// ExecuteJourneyRequest starts a designed journey.
type ExecuteJourneyRequest struct {
	JourneyID   types.JourneyID        `json:"journey_id"`
	UserID      string                 `json:"user_id"`
	Context     map[string]interface{} `json:"context,omitempty"`
	UserContext *types.RequestContext  `json:"user_context,omitempty"`
}

// AdvanceStepRequest reports a step outcome back to the coordinator.
// A failed status triggers coordinator-driven compensation.
type AdvanceStepRequest struct {
	SagaID      types.SagaID           `json:"saga_id"`
	JourneyID   types.JourneyID        `json:"journey_id"`
	UserID      string                 `json:"user_id"`
	Status      types.SagaStepStatus   `json:"status"`
	StepResult  map[string]interface{} `json:"step_result,omitempty"`
	UserContext *types.RequestContext  `json:"user_context,omitempty"`
}
