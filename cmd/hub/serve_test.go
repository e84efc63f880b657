package main

import (
	"os"
	"testing"
	"time"
)

func TestWaitForShutdownOrReloadReturnsOnShutdownChannel(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	reloadChan := make(chan struct{}, 1)
	shutdownCh := make(chan struct{})
	close(shutdownCh)

	done := make(chan string, 1)
	go func() { done <- waitForShutdownOrReload(sigChan, reloadChan, shutdownCh) }()

	select {
	case reason := <-done:
		if reason != "api request" {
			t.Errorf("expected reason %q, got %q", "api request", reason)
		}
	case <-time.After(time.Second):
		t.Fatal("waitForShutdownOrReload did not return when the shutdown channel closed")
	}
}

func TestWaitForShutdownOrReloadReturnsOnReload(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	reloadChan := make(chan struct{}, 1)
	shutdownCh := make(chan struct{})
	reloadChan <- struct{}{}

	done := make(chan string, 1)
	go func() { done <- waitForShutdownOrReload(sigChan, reloadChan, shutdownCh) }()

	select {
	case reason := <-done:
		if reason != "config_reload" {
			t.Errorf("expected reason %q, got %q", "config_reload", reason)
		}
	case <-time.After(time.Second):
		t.Fatal("waitForShutdownOrReload did not return on reload signal")
	}
}
