package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"awgctl/container"
	"awgctl/sequence"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		return
	}

	switch os.Args[1] {
	case "info":
		info(os.Args[2])
	case "verify":
		verify(os.Args[2])
	case "roundtrip":
		roundtrip(os.Args[2])
	default:
		usage()
	}
}

func usage() {
	fmt.Println("AWG container file tool")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  info <file>       - Print channels, elements, and settings")
	fmt.Println("  verify <file>     - Check structure and checksum")
	fmt.Println("  roundtrip <file>  - Decode, re-encode, and compare byte-for-byte")
}

func info(path string) {
	c := mustDecode(path)

	fmt.Printf("channels:  %v\n", c.Channels)
	fmt.Printf("elements:  %d\n", c.Table.Len())
	fmt.Printf("samples:   %d per waveform\n", c.SampleLen)
	fmt.Printf("waveforms: %d stored\n", len(c.Records))

	fmt.Println("\nsequence:")
	for pos := 1; pos <= c.Table.Len(); pos++ {
		el, err := c.Table.Element(pos)
		if err != nil {
			continue
		}
		repeat := fmt.Sprintf("%d", el.Repeat)
		if el.Repeat == sequence.RepeatInfinite {
			repeat = "inf"
		}
		wait := ""
		if el.TriggerWait {
			wait = " wait"
		}
		fmt.Printf("  %2d: repeat=%-4s goto=%d jump=%d%s\n", pos, repeat, el.Goto, el.EventJump, wait)
	}

	if len(c.Settings) > 0 {
		fmt.Println("\nsettings:")
		keys := make([]string, 0, len(c.Settings))
		for k := range c.Settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", k, c.Settings[k].Display())
		}
	}
}

func verify(path string) {
	mustDecode(path)
	fmt.Println("OK")
}

func roundtrip(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	c, err := container.Decode(data)
	if err != nil {
		fmt.Printf("Decode failed: %v\n", err)
		os.Exit(1)
	}

	reencoded, err := c.Encode()
	if err != nil {
		fmt.Printf("Re-encode failed: %v\n", err)
		os.Exit(1)
	}

	if !bytes.Equal(data, reencoded) {
		fmt.Printf("MISMATCH: original %d bytes, re-encoded %d bytes\n", len(data), len(reencoded))
		os.Exit(1)
	}
	fmt.Printf("OK: %d bytes round-trip exactly\n", len(data))
}

func mustDecode(path string) *container.Container {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	c, err := container.Decode(data)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return c
}
