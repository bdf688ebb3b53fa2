package mcpsvc

import "testing"

func TestHealthTracker_UnhealthyUntilConnected(t *testing.T) {
	h := newHealthTracker()
	if h.Healthy() {
		t.Error("fresh tracker should not be healthy before any connect")
	}
}

func TestHealthTracker_HealthyAfterConnect(t *testing.T) {
	h := newHealthTracker()
	h.setConnected(true)
	if !h.Healthy() {
		t.Error("expected healthy immediately after connect")
	}
}

func TestHealthTracker_ThreeFailuresMarkUnhealthy(t *testing.T) {
	h := newHealthTracker()
	h.setConnected(true)

	h.recordFailure()
	if !h.Healthy() {
		t.Error("single failure should not yet mark unhealthy")
	}
	h.recordFailure()
	if !h.Healthy() {
		t.Error("two failures should not yet mark unhealthy")
	}
	became := h.recordFailure()
	if !became {
		t.Error("third consecutive failure should report becameUnhealthy")
	}
	if h.Healthy() {
		t.Error("expected unhealthy after three consecutive failures")
	}
}

func TestHealthTracker_SuccessResetsFailureStreak(t *testing.T) {
	h := newHealthTracker()
	h.setConnected(true)
	h.recordFailure()
	h.recordFailure()
	h.recordSuccess()
	h.recordFailure()
	if !h.Healthy() {
		t.Error("failure streak should have reset after a success")
	}
}

func TestHealthTracker_DisconnectIsUnhealthy(t *testing.T) {
	h := newHealthTracker()
	h.setConnected(true)
	h.setConnected(false)
	if h.Healthy() {
		t.Error("expected unhealthy once disconnected")
	}
}
