package core

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	if c.Elapsed() != 0 {
		t.Fatal("a clock that was never started must not advance")
	}

	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Update()
	first := c.Elapsed()
	if first <= 0 {
		t.Fatalf("Elapsed = %v after sleeping", first)
	}

	c.Stop()
	time.Sleep(2 * time.Millisecond)
	c.Update()
	if c.Elapsed() != first {
		t.Error("a stopped clock must keep its elapsed time")
	}
}
