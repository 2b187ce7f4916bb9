package gpio

import "errors"

// FakeReader is a test double that returns scripted button readings.
type FakeReader struct {
	// Samples contains scripted readings. Each call to Read consumes the next one.
	Samples []Buttons

	index int

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, will be returned by Read.
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Buttons) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted reading.
// If samples are exhausted, returns the last one repeatedly.
func (f *FakeReader) Read() (Buttons, error) {
	if f.ReadError != nil {
		return Buttons{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return Buttons{}, errors.New("no samples configured")
	}

	b := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return b, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the reader to the first sample.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}
