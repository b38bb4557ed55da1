// Package sim provides a deterministic, seekable discrete-event simulator for
// request flows through a directed graph of infrastructure elements.
package sim

import "github.com/aws/aws-sdk-go/aws/endpoints"

// Graph is the static, immutable topology a Scenario runs against. It is
// supplied whole by the caller and never mutated by the runner.
type Graph struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a single graph vertex: an edge location, region, az, load balancer,
// database, or any other infrastructure element the scenario author chooses
// to model. Kind is a free-form tag; only a handful of values carry special
// meaning to the default strategies (see strategy_*.go).
type Node struct {
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	Kind     string            `json:"kind"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// NodeStatus is the dynamic availability of a node.
type NodeStatus string

const (
	StatusAvailable   NodeStatus = "available"
	StatusUnavailable NodeStatus = "unavailable"
	StatusDegraded    NodeStatus = "degraded"
)

// NodeState is the dynamic, per-node slice of SimulationState. A node absent
// from the nodes slice is implicitly available; NodeState rows are created
// lazily on first write and never removed.
type NodeState struct {
	NodeID            string            `json:"node_id"`
	Status            NodeStatus        `json:"status"`
	Sublabel          string            `json:"sublabel,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	LastStateChangeMs int64             `json:"last_state_change_ms"`
}

// ValidateGraph checks that every edge references a defined node and that
// any node tagged kind=="region" with a metadata["aws_region"] value names a
// real AWS region (via the statically bundled aws-sdk-go endpoints
// partition metadata — no network calls are made). This is a class-1 input
// validation error (§7): it is fatal at construction.
func ValidateGraph(g *Graph) error {
	nodeIDs := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		nodeIDs[n.ID] = struct{}{}
	}

	for _, e := range g.Edges {
		if _, ok := nodeIDs[e.Source]; !ok {
			return &SimError{Message: "edge references unknown source node: " + e.Source, Code: "UNKNOWN_NODE"}
		}
		if _, ok := nodeIDs[e.Target]; !ok {
			return &SimError{Message: "edge references unknown target node: " + e.Target, Code: "UNKNOWN_NODE"}
		}
	}

	for _, n := range g.Nodes {
		if n.Kind != "region" {
			continue
		}
		region, ok := n.Metadata["aws_region"]
		if !ok || region == "" {
			continue
		}
		if !isKnownAWSRegion(region) {
			return &SimError{Message: "unrecognized aws region id: " + region, Code: "UNKNOWN_AWS_REGION"}
		}
	}
	return nil
}

// isKnownAWSRegion looks up region among the SDK's compiled-in partitions
// (aws, aws-cn, aws-us-gov, aws-iso, aws-iso-b) — a static, networkless
// check.
func isKnownAWSRegion(region string) bool {
	for _, p := range endpoints.DefaultPartitions() {
		if _, ok := p.Regions()[region]; ok {
			return true
		}
	}
	return false
}
