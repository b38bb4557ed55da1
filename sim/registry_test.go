package sim

import "testing"

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.GetPathSelector("static"); ok {
		t.Error("a fresh Registry should have no strategies registered")
	}

	r.RegisterPathSelector("static", staticPathSelector{})
	got, ok := r.GetPathSelector("static")
	if !ok {
		t.Fatal("expected static path selector to be registered")
	}
	if _, isStatic := got.(staticPathSelector); !isStatic {
		t.Error("GetPathSelector returned the wrong concrete type")
	}
}

func TestRegistry_OverwriteIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.RegisterLoadBalancer("rr", roundRobinBalancer{})
	r.RegisterLoadBalancer("rr", leastConnectionsBalancer{})

	got, ok := r.GetLoadBalancer("rr")
	if !ok {
		t.Fatal("expected rr to be registered")
	}
	if _, isLeastConn := got.(leastConnectionsBalancer); !isLeastConn {
		t.Error("re-registering the same id should overwrite, not error or keep the original")
	}
}

func TestDefaultRegistry_HasAllSpecNamedStrategies(t *testing.T) {
	r := DefaultRegistry()

	pathSelectors := []string{"static", "healthiest", "primary-aware", "geo-aware"}
	for _, id := range pathSelectors {
		if _, ok := r.GetPathSelector(id); !ok {
			t.Errorf("DefaultRegistry missing path selector %q", id)
		}
	}

	loadBalancers := []string{"round-robin", "least-connections", "weighted"}
	for _, id := range loadBalancers {
		if _, ok := r.GetLoadBalancer(id); !ok {
			t.Errorf("DefaultRegistry missing load balancer %q", id)
		}
	}

	fanOuts := []string{"quorum-replication", "broadcast-replication", "none"}
	for _, id := range fanOuts {
		if _, ok := r.GetFanOutStrategy(id); !ok {
			t.Errorf("DefaultRegistry missing fan-out strategy %q", id)
		}
	}

	if _, ok := r.GetFailoverStrategy("default"); !ok {
		t.Error("DefaultRegistry missing failover strategy \"default\"")
	}

	consensuses := []string{"majority-quorum", "strict-quorum", "eventually-consistent"}
	for _, id := range consensuses {
		if _, ok := r.GetConsensus(id); !ok {
			t.Errorf("DefaultRegistry missing consensus %q", id)
		}
	}
}

func TestRegistry_UnknownIDReportsFalse(t *testing.T) {
	r := DefaultRegistry()

	if _, ok := r.GetPathSelector("nonexistent"); ok {
		t.Error("expected false for an unregistered path selector id")
	}
	if _, ok := r.GetLoadBalancer("nonexistent"); ok {
		t.Error("expected false for an unregistered load balancer id")
	}
	if _, ok := r.GetFanOutStrategy("nonexistent"); ok {
		t.Error("expected false for an unregistered fan-out id")
	}
	if _, ok := r.GetFailoverStrategy("nonexistent"); ok {
		t.Error("expected false for an unregistered failover id")
	}
	if _, ok := r.GetConsensus("nonexistent"); ok {
		t.Error("expected false for an unregistered consensus id")
	}
}
