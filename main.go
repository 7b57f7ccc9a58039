package main

import (
	"fmt"
	"math"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"awgctl/config"
	"awgctl/container"
	"awgctl/sequencer"
	"awgctl/sim"
	"awgctl/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if !cfg.Device.Simulate {
		fmt.Println("Hardware sessions are provided by the transport layer.")
		fmt.Println("Set device.simulate in config.json to use the built-in simulator.")
		os.Exit(1)
	}

	dir := cfg.ContainerDir
	if dir == "" {
		dir, err = container.DefaultDir()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}
	store, err := container.NewStore(dir)
	if err != nil {
		fmt.Printf("Error opening container library: %v\n", err)
		os.Exit(1)
	}

	// Load the last container, or seed the library with a demo sequence
	c, err := store.Load(cfg.UI.LastContainer)
	if err != nil {
		c, err = demoContainer(cfg.Device.Channels, cfg.Device.ClockRate)
		if err != nil {
			fmt.Printf("Error building demo sequence: %v\n", err)
			os.Exit(1)
		}
		if _, err := store.Save(c, "demo"); err != nil {
			fmt.Printf("Error saving demo sequence: %v\n", err)
			os.Exit(1)
		}
	}

	device := sim.NewDevice()
	seq := sequencer.FromContainer(device, c)
	if err := seq.UploadContainer(c, "current"); err != nil {
		fmt.Printf("Error uploading container: %v\n", err)
		os.Exit(1)
	}

	m := tui.NewModel(seq, device)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// demoContainer builds a 6-element sequence: sine bursts on the first
// channel, ramps on the rest, each element repeated twice with the
// last looping back to the first.
func demoContainer(channels []int, clockRate float64) (*container.Container, error) {
	const n = 6
	const samples = 1200

	in := container.BuildInput{
		Channels:     channels,
		Samples:      make([][][]float64, len(channels)),
		Marker1:      make([][][]uint8, len(channels)),
		Marker2:      make([][][]uint8, len(channels)),
		Repeats:      []int{2, 2, 2, 2, 2, 2},
		TriggerWaits: make([]bool, n),
		Gotos:        []int{2, 3, 4, 5, 6, 1},
		EventJumps:   []int{1, 1, 1, 1, 1, 1},
		Settings: container.Settings{
			"clock_rate": container.Float(clockRate),
			"origin":     container.String("awgctl demo"),
		},
	}

	for ci := range channels {
		in.Samples[ci] = make([][]float64, n)
		in.Marker1[ci] = make([][]uint8, n)
		in.Marker2[ci] = make([][]uint8, n)
		for ei := 0; ei < n; ei++ {
			wave := make([]float64, samples)
			m1 := make([]uint8, samples)
			m2 := make([]uint8, samples)
			cycles := float64(ei + 1)
			for s := 0; s < samples; s++ {
				t := float64(s) / samples
				if ci == 0 {
					wave[s] = math.Sin(2 * math.Pi * cycles * t)
				} else {
					wave[s] = 2*math.Mod(cycles*t, 1) - 1
				}
				if s < samples/10 {
					m1[s] = 1 // sync marker at element start
				}
				if int(cycles*t*2)%2 == 0 {
					m2[s] = 1
				}
			}
			in.Samples[ci][ei] = wave
			in.Marker1[ci][ei] = m1
			in.Marker2[ci][ei] = m2
		}
	}

	return container.Build(in)
}
