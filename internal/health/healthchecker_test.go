package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type pinger struct{ err error }

func (p *pinger) HealthPing(context.Context) error { return p.err }

func TestPingCheckerTracksProbe(t *testing.T) {
	p := &pinger{}
	c := NewPingChecker("store", p, zerolog.Nop(), time.Second)
	if c.IsHealthy() {
		t.Fatalf("checker should start unhealthy")
	}
	c.Check(context.Background())
	if !c.IsHealthy() {
		t.Fatalf("expected healthy after successful probe")
	}
	p.err = errors.New("down")
	c.Check(context.Background())
	if c.IsHealthy() {
		t.Fatalf("expected unhealthy after failed probe")
	}
}

func TestServiceHealthRequiresAllDeps(t *testing.T) {
	ok := NewPingChecker("a", &pinger{}, zerolog.Nop(), time.Second)
	bad := NewPingChecker("b", &pinger{err: errors.New("x")}, zerolog.Nop(), time.Second)
	ok.Check(context.Background())
	bad.Check(context.Background())

	svc := NewServiceHealthChecker(zerolog.Nop(), ok, bad)
	svc.Evaluate()
	if svc.IsHealthy() {
		t.Fatalf("service healthy with a failing dependency")
	}

	svc = NewServiceHealthChecker(zerolog.Nop(), ok)
	if changed := svc.Evaluate(); !changed || !svc.IsHealthy() {
		t.Fatalf("expected service to become healthy (changed=%v)", changed)
	}
}
