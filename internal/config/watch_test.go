package config

import (
	"testing"
	"time"
)

func TestResetTimerDrainsStaleFire(t *testing.T) {
	timer := time.NewTimer(time.Millisecond)
	// Let the timer expire with its fire unconsumed, the state a Reset in
	// the watch loop can encounter when an fsnotify event wins the select.
	time.Sleep(10 * time.Millisecond)

	resetTimer(timer, 50*time.Millisecond)

	select {
	case <-timer.C:
		t.Fatal("stale fire survived the reset; the debounce window was cut short")
	case <-time.After(20 * time.Millisecond):
	}

	select {
	case <-timer.C:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timer did not fire after the reset window")
	}
}

func TestResetTimerRestartsUnexpiredTimer(t *testing.T) {
	timer := time.NewTimer(time.Hour)
	resetTimer(timer, 10*time.Millisecond)

	select {
	case <-timer.C:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timer did not fire after the reset window")
	}
}
