package types

import "time"

// AgentRun records one specialized agent's execution inside an orchestration
// session. Transient; never persisted.
type AgentRun struct {
	AgentName string           `json:"agent_name"`
	Category  OfferingCategory `json:"category"`
	Success   bool             `json:"success"`
	Results   RetrievalResult  `json:"results,omitempty"`
	Error     string           `json:"error,omitempty"`
	Duration  time.Duration    `json:"duration_ms"`
}

// ExecutionSummary aggregates an orchestration session's agent runs.
type ExecutionSummary struct {
	SucceededAgents int           `json:"succeeded_agents"`
	FailedAgents    int           `json:"failed_agents"`
	TotalOfferings  int           `json:"total_offerings"`
	TotalDuration   time.Duration `json:"total_duration_ms"`
}

// OrchestrationResult is the outcome of one AgentOrchestrator.Run. Success
// is false only when zero agents succeeded; partial agent failure is
// reported through the summary and is not an error.
type OrchestrationResult struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message,omitempty"`
	Reply        string           `json:"reply,omitempty"`
	Partners     []Offering       `json:"partners"`
	AgentResults []AgentRun       `json:"agent_results"`
	Summary      ExecutionSummary `json:"execution_summary"`
}
