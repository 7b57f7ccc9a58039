package sequencer

import "awgctl/sequence"

// Session is the device-facing capability the model drives: the sink
// for containers and waveforms and the actuator for run/stop/position.
// Transport errors come back opaque; the model never retries a command.
type Session interface {
	// Container path
	SendContainer(name string, data []byte) error
	LoadContainer(name string) error

	// Per-waveform path
	SendWaveform(name string, samples []float64, marker1, marker2 []uint8) error
	SetSequenceLength(n int) error
	SetElement(index int, el sequence.Element) error

	// Playback control
	Run() error
	Stop() error
	Position() (int, error)
	SetPosition(index int) error
}
