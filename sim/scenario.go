package sim

// ScenarioEvent is a single static, timed input driving state transitions.
// Events are totally ordered by (TimestampMs, ID).
type ScenarioEvent struct {
	ID              string `json:"id"`
	TimestampMs     int64  `json:"timestamp_ms"`
	Action          string `json:"action"` // fail | recover | degrade | promote | route-request
	TargetID        string `json:"target_id"`
	TargetKind      string `json:"target_kind,omitempty"`
	FailureMessage  string `json:"failure_message,omitempty"`
	FlowID          string `json:"flow_id,omitempty"`
	PromotionRole   string `json:"promotion_role,omitempty"`
}

// PathConstraints narrows the candidate set a PathSelector may choose from.
type PathConstraints struct {
	Candidates    []string `json:"candidates,omitempty"`
	ExcludedNodes []string `json:"excluded_nodes,omitempty"`
	PreferredAZ   string   `json:"preferred_az,omitempty"`
}

// RequestFlow names a reusable route template a route-request event may
// target by id or by matching TargetServiceID.
type RequestFlow struct {
	ID               string            `json:"id"`
	SourceLocation   string            `json:"source_location"`
	TargetServiceID  string            `json:"target_service_id"`
	Path             []string          `json:"path,omitempty"`
	FailoverPath     []string          `json:"failover_path,omitempty"`
	PathConstraints  *PathConstraints  `json:"path_constraints,omitempty"`
	QueueAtNodes     []string          `json:"queue_at_nodes,omitempty"`
}

// EdgeTiming overrides the default edge duration for one specific edge.
type EdgeTiming struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	DurationMs int64  `json:"duration_ms"`
}

// WaitPointConfig describes a throttling queue to install at a node during
// scenario initialization.
type WaitPointConfig struct {
	NodeID             string `json:"node_id"`
	ProcessIntervalMs  int64  `json:"process_interval_ms"`
	Strategy           string `json:"strategy"` // fifo | priority | batch
	Capacity           *int   `json:"capacity,omitempty"`
}

// TokenTypeConfig declares one entry in the scenario's token type palette.
type TokenTypeConfig struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// TokenFlowConfig parameterizes edge durations, wait points, and the token
// type palette for a scenario.
type TokenFlowConfig struct {
	DefaultEdgeDurationMs int64             `json:"default_edge_duration_ms"`
	EdgeTimings           []EdgeTiming      `json:"edge_timings,omitempty"`
	WaitPoints            []WaitPointConfig `json:"wait_points,omitempty"`
	TokenTypes            []TokenTypeConfig `json:"token_types,omitempty"`
}

// FanOutConfig parameterizes the fan-out strategy selected in AlgorithmConfig.
type FanOutConfig struct {
	NodeRoles       []string `json:"node_roles,omitempty"`
	NodeTypes       []string `json:"node_types,omitempty"`
	QuorumRequired  *int     `json:"quorum_required,omitempty"`
	ChildTypeID     string   `json:"child_type_id,omitempty"`
}

// AlgorithmConfig selects, by registered id, which strategy implementation
// each category uses for this scenario, plus any fan-out specific config.
type AlgorithmConfig struct {
	PathSelector string        `json:"path_selector,omitempty"`
	LoadBalancer string        `json:"load_balancer,omitempty"`
	Failover     string        `json:"failover,omitempty"`
	Consensus    string        `json:"consensus,omitempty"`
	FanOut       string        `json:"fan_out,omitempty"`
	FanOutConfig *FanOutConfig `json:"fan_out_config,omitempty"`
}

// Scenario is the full static, declarative input to a ScenarioRunner: a
// topology reference, a duration, an ordered set of events, named request
// flows, token-flow configuration, and algorithm selection.
type Scenario struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	GraphID         string            `json:"graph_id"`
	DurationMs      int64             `json:"duration_ms"`
	Events          []ScenarioEvent   `json:"events"`
	RequestFlows    []RequestFlow     `json:"request_flows"`
	TokenFlowConfig *TokenFlowConfig  `json:"token_flow_config,omitempty"`
	Algorithms      *AlgorithmConfig  `json:"algorithms,omitempty"`
	AWSContext      map[string]string `json:"aws_context,omitempty"`
}
