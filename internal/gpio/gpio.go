// Package gpio drives the transmit-request output line with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Line is a single digital output.
type Line interface {
	// Set drives the line: true = active (transmit requested).
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// NopLine discards every write. Used when no pin is configured.
type NopLine struct{}

// Set does nothing.
func (NopLine) Set(bool) error { return nil }

// Close does nothing.
func (NopLine) Close() error { return nil }
