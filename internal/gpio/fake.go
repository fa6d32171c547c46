package gpio

// FakeLine is a test double that records every value written.
type FakeLine struct {
	// Values contains every value passed to Set, in order.
	Values []bool

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set().
	SetError error
}

// NewFakeLine creates a FakeLine.
func NewFakeLine() *FakeLine {
	return &FakeLine{}
}

// Set records the value.
func (f *FakeLine) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Values = append(f.Values, on)
	return nil
}

// Value returns the last value written (false if none).
func (f *FakeLine) Value() bool {
	if len(f.Values) == 0 {
		return false
	}
	return f.Values[len(f.Values)-1]
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded values.
func (f *FakeLine) Reset() {
	f.Values = nil
	f.Closed = false
	f.SetError = nil
}
