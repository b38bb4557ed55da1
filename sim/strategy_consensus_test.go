package sim

import "testing"

func TestMajorityQuorumConsensus(t *testing.T) {
	c := majorityQuorumConsensus{}
	q := ConsensusQuorum{Total: 5}

	if !c.CanRead(3, q) {
		t.Error("3 of 5 should satisfy strict majority")
	}
	if c.CanRead(2, q) {
		t.Error("2 of 5 should not satisfy strict majority")
	}
	if !c.CanWrite(3, q) {
		t.Error("CanWrite should mirror CanRead's majority rule")
	}
}

func TestStrictQuorumConsensus(t *testing.T) {
	c := strictQuorumConsensus{}
	q := ConsensusQuorum{Total: 5, ReadQuorum: 2, WriteQuorum: 4}

	if !c.CanRead(2, q) {
		t.Error("exactly ReadQuorum available nodes should satisfy CanRead")
	}
	if c.CanRead(1, q) {
		t.Error("fewer than ReadQuorum should fail CanRead")
	}
	if !c.CanWrite(4, q) {
		t.Error("exactly WriteQuorum available nodes should satisfy CanWrite")
	}
	if c.CanWrite(3, q) {
		t.Error("fewer than WriteQuorum should fail CanWrite")
	}
}

func TestEventuallyConsistentConsensus(t *testing.T) {
	c := eventuallyConsistentConsensus{}
	q := ConsensusQuorum{Total: 5}

	if !c.CanRead(1, q) {
		t.Error("a single available node should satisfy CanRead")
	}
	if c.CanRead(0, q) {
		t.Error("zero available nodes cannot satisfy even eventual consistency")
	}
	if !c.CanWrite(1, q) {
		t.Error("a single available node should satisfy CanWrite")
	}
	if c.CanWrite(0, q) {
		t.Error("zero available nodes cannot satisfy CanWrite")
	}
}
