package connector

import (
	"testing"
	"time"
)

func TestAdaptiveTimeoutReturnsMaxBeforeSamples(t *testing.T) {
	at := NewAdaptiveTimeout(10*time.Second, 2*time.Minute, 3.0)
	if got := at.Next(); got != 2*time.Minute {
		t.Errorf("Next() before observations = %v, want %v", got, 2*time.Minute)
	}
}

func TestAdaptiveTimeoutScalesAverage(t *testing.T) {
	at := NewAdaptiveTimeout(time.Second, time.Hour, 3.0)
	at.Observe(10 * time.Second)
	at.Observe(20 * time.Second)

	// avg 15s * 3.0 = 45s
	if got := at.Next(); got != 45*time.Second {
		t.Errorf("Next() = %v, want %v", got, 45*time.Second)
	}
}

func TestAdaptiveTimeoutClampsToBounds(t *testing.T) {
	at := NewAdaptiveTimeout(30*time.Second, time.Minute, 3.0)

	at.Observe(time.Millisecond)
	if got := at.Next(); got != 30*time.Second {
		t.Errorf("fast samples: Next() = %v, want min %v", got, 30*time.Second)
	}

	for i := 0; i < 10; i++ {
		at.Observe(time.Hour)
	}
	if got := at.Next(); got != time.Minute {
		t.Errorf("slow samples: Next() = %v, want max %v", got, time.Minute)
	}
}

func TestAdaptiveTimeoutWindowDropsOldSamples(t *testing.T) {
	at := NewAdaptiveTimeout(time.Second, time.Hour, 1.0)
	at.Observe(time.Hour) // should age out of the window below
	for i := 0; i < 8; i++ {
		at.Observe(10 * time.Second)
	}
	if got := at.Next(); got != 10*time.Second {
		t.Errorf("Next() = %v, want %v after old sample aged out", got, 10*time.Second)
	}
}
