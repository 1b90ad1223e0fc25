package analytics

import (
	"context"
	"testing"
)

func TestGenerationsSupersede(t *testing.T) {
	g := NewGenerations(nil)
	ctx := context.Background()

	firstCtx, first, firstDone, err := g.Begin(ctx, "provider:p1:tab")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer firstDone()
	secondCtx, second, secondDone, err := g.Begin(ctx, "provider:p1:tab")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer secondDone()

	if second <= first {
		t.Fatalf("generations not increasing: %d then %d", first, second)
	}
	if firstCtx.Err() == nil {
		t.Error("first computation was not cancelled")
	}
	if secondCtx.Err() != nil {
		t.Error("second computation was cancelled")
	}
	if g.Current(ctx, "provider:p1:tab", first) {
		t.Error("first generation still reported current")
	}
	if !g.Current(ctx, "provider:p1:tab", second) {
		t.Error("second generation not current")
	}
}

func TestGenerationsAreIndependentPerKey(t *testing.T) {
	g := NewGenerations(nil)
	ctx := context.Background()

	aCtx, a, aDone, _ := g.Begin(ctx, "provider:a:x")
	defer aDone()
	_, _, bDone, _ := g.Begin(ctx, "provider:b:x")
	defer bDone()

	if aCtx.Err() != nil || !g.Current(ctx, "provider:a:x", a) {
		t.Error("a new key superseded an unrelated one")
	}
}

func TestGenerationsDoneCancels(t *testing.T) {
	g := NewGenerations(nil)
	runCtx, gen, done, _ := g.Begin(context.Background(), "k")
	done()
	if runCtx.Err() == nil {
		t.Error("done() did not cancel the run context")
	}
	if !g.Current(context.Background(), "k", gen) {
		t.Error("finished generation should stay current until superseded")
	}
}

type skewedCounter struct {
	GenerationCounter
	ahead uint64
}

func (c skewedCounter) Latest(ctx context.Context, key string) (uint64, error) {
	n, err := c.GenerationCounter.Latest(ctx, key)
	return n + c.ahead, err
}

func TestGenerationsConsultSharedCounter(t *testing.T) {
	g := NewGenerations(skewedCounter{GenerationCounter: NewLocalCounter(), ahead: 1})
	_, gen, done, _ := g.Begin(context.Background(), "k")
	defer done()
	if g.Current(context.Background(), "k", gen) {
		t.Error("generation current although another replica is ahead")
	}
}
