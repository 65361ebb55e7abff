package logging

import "testing"

func TestNewReturnsAUsableLogger(t *testing.T) {
	log := New(false)
	if log == nil {
		t.Fatal("New(false) returned nil")
	}
	log.Info("smoke test")

	dev := New(true)
	if dev == nil {
		t.Fatal("New(true) returned nil")
	}
	dev.Debug("smoke test")
}
