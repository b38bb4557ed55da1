package sim

// majorityQuorumConsensus requires a strict majority of the total replica
// count to be available for either operation.
type majorityQuorumConsensus struct{}

func (majorityQuorumConsensus) CanRead(availableNodes int, q ConsensusQuorum) bool {
	return availableNodes > q.Total/2
}

func (majorityQuorumConsensus) CanWrite(availableNodes int, q ConsensusQuorum) bool {
	return availableNodes > q.Total/2
}

// strictQuorumConsensus requires the configured ReadQuorum/WriteQuorum
// sizes exactly, as distinct knobs (e.g. R+W > N style configurations).
type strictQuorumConsensus struct{}

func (strictQuorumConsensus) CanRead(availableNodes int, q ConsensusQuorum) bool {
	return availableNodes >= q.ReadQuorum
}

func (strictQuorumConsensus) CanWrite(availableNodes int, q ConsensusQuorum) bool {
	return availableNodes >= q.WriteQuorum
}

// eventuallyConsistentConsensus requires only a single available replica
// for either operation (stale reads are acceptable); with zero available
// replicas both reads and writes are refused.
type eventuallyConsistentConsensus struct{}

func (eventuallyConsistentConsensus) CanRead(availableNodes int, q ConsensusQuorum) bool {
	return availableNodes > 0
}

func (eventuallyConsistentConsensus) CanWrite(availableNodes int, q ConsensusQuorum) bool {
	return availableNodes > 0
}
