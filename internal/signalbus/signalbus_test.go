package signalbus

import (
	"errors"
	"sync"
	"testing"

	"github.com/loomworks/loom/pkg/models"
)

func TestPublishAndList(t *testing.T) {
	bus := New()

	first := bus.Publish(models.SignalRequirement, "orchestrator", map[string]any{"text": "build it"})
	bus.Publish(models.SignalQualityIssue, "validator", map[string]any{"issue": "no tests"})

	if first.ID == "" {
		t.Fatal("published signal has no ID")
	}
	if first.CreatedAt.IsZero() {
		t.Fatal("published signal has no timestamp")
	}

	all := bus.List("")
	if len(all) != 2 {
		t.Fatalf("List(\"\") returned %d signals, want 2", len(all))
	}
	if all[0].Type != models.SignalRequirement || all[1].Type != models.SignalQualityIssue {
		t.Errorf("signals out of publish order: %v, %v", all[0].Type, all[1].Type)
	}

	filtered := bus.List(models.SignalQualityIssue)
	if len(filtered) != 1 || filtered[0].Source != "validator" {
		t.Errorf("filtered list = %+v", filtered)
	}
}

func TestResolve(t *testing.T) {
	bus := New()
	sig := bus.Publish(models.SignalDecisionNeeded, "analyst", map[string]any{
		"options": []any{"postgres", "sqlite"},
	})

	resolved, err := bus.Resolve(sig.ID, "sqlite")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !resolved.Resolved || resolved.ChosenOption != "sqlite" {
		t.Errorf("resolved signal = %+v", resolved)
	}
	if resolved.ResolvedAt == nil {
		t.Error("ResolvedAt not set")
	}

	got, err := bus.Get(sig.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Resolved {
		t.Error("resolution not visible through Get")
	}

	if len(bus.Pending()) != 0 {
		t.Error("resolved signal still pending")
	}
}

func TestResolveUnknown(t *testing.T) {
	bus := New()
	if _, err := bus.Resolve("nope", "x"); !errors.Is(err, ErrUnknownSignal) {
		t.Errorf("Resolve unknown = %v, want ErrUnknownSignal", err)
	}
}

func TestResolveTwice(t *testing.T) {
	bus := New()
	sig := bus.Publish(models.SignalDecisionNeeded, "analyst", nil)

	if _, err := bus.Resolve(sig.ID, "a"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if _, err := bus.Resolve(sig.ID, "b"); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("second Resolve = %v, want ErrAlreadyResolved", err)
	}

	got, _ := bus.Get(sig.ID)
	if got.ChosenOption != "a" {
		t.Errorf("second resolve mutated the choice: %q", got.ChosenOption)
	}
}

func TestSubscriberReceivesPublishes(t *testing.T) {
	bus := New()
	var got []models.Signal
	bus.Subscribe(func(sig models.Signal) { got = append(got, sig) })

	bus.Publish(models.SignalInnovationDetected, "reasoner", nil)
	if len(got) != 1 || got[0].Type != models.SignalInnovationDetected {
		t.Fatalf("subscriber saw %+v", got)
	}
}

func TestConcurrentPublish(t *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(models.SignalQualityIssue, "validator", nil)
		}()
	}
	wg.Wait()

	if bus.Len() != 50 {
		t.Errorf("Len() = %d, want 50", bus.Len())
	}
}
