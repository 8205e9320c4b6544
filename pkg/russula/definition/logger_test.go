package definition

import "testing"

func TestDefaultLoggerToggleDebug(t *testing.T) {
	l := NewDefaultLogger("test")
	if l.ToggleDebug(false) {
		t.Fatal("expected debug to start disabled after ToggleDebug(false)")
	}
	if !l.ToggleDebug(true) {
		t.Fatal("expected debug to report enabled after ToggleDebug(true)")
	}
}
