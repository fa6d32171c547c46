package gpio

import (
	"errors"
	"testing"
)

func TestFakeLineSet(t *testing.T) {
	f := NewFakeLine()

	if f.Value() {
		t.Error("expected inactive before any write")
	}

	for _, v := range []bool{true, false, true} {
		if err := f.Set(v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(f.Values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(f.Values))
	}
	if !f.Value() {
		t.Error("expected last value true")
	}
}

func TestFakeLineError(t *testing.T) {
	f := NewFakeLine()
	f.SetError = errors.New("simulated error")

	err := f.Set(true)
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
	if len(f.Values) != 0 {
		t.Errorf("expected nothing recorded on error, got %v", f.Values)
	}
}

func TestFakeLineClose(t *testing.T) {
	f := NewFakeLine()

	if f.Closed {
		t.Error("should not be closed initially")
	}

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakeLineReset(t *testing.T) {
	f := NewFakeLine()
	f.Set(true)
	f.Close()
	f.SetError = errors.New("error")

	f.Reset()

	if len(f.Values) != 0 {
		t.Error("values should be cleared")
	}
	if f.Closed {
		t.Error("closed should be reset")
	}
	if f.SetError != nil {
		t.Error("error should be cleared")
	}
}

func TestNopLine(t *testing.T) {
	var l Line = NopLine{}
	if err := l.Set(true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLineImplementations(t *testing.T) {
	var _ Line = (*FakeLine)(nil)
	var _ Line = (*RealLine)(nil)
}
