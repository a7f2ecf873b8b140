package safego

import (
	"testing"
	"time"
)

func TestGo_RunsFunction(t *testing.T) {
	done := make(chan struct{})
	Go(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("function never ran")
	}
}

func TestGo_RecoversPanic(t *testing.T) {
	panicked := make(chan struct{})
	Go(func() {
		defer close(panicked)
		panic("boom")
	})

	select {
	case <-panicked:
	case <-time.After(2 * time.Second):
		t.Fatal("function never ran")
	}

	// The panic must not have taken the process down; launching another
	// goroutine still works.
	done := make(chan struct{})
	Go(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("launcher broken after a recovered panic")
	}
}
