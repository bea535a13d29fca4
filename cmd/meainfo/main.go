// Inspection tool for MEA recordings
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robert-malhotra/go-mearec/mearec"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Println("Usage: meainfo <recording> [/@attr | /data@attr]")
		os.Exit(1)
	}

	f, err := mearec.Open(os.Args[1])
	if err != nil {
		fmt.Printf("ERROR: Failed to open recording: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if len(os.Args) == 3 {
		if err := printAttr(f, os.Args[2]); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("=== %s ===\n\n", os.Args[1])
	printSummary(f)
	printAttrs(f, mearec.ScopeFile, "/")
	printAttrs(f, mearec.ScopeData, "/data")
	if f.HasConfiguration() {
		printConfiguration(f)
	}
}

func printSummary(f *mearec.DataFile) {
	fmt.Printf("UUID:         %s\n", f.UUID())
	fmt.Printf("Shape:        %d channels x %d samples (%s)\n", f.NumChannels(), f.NumSamples(), f.SampleType())
	fmt.Printf("Allocated:    %d samples, block size %d\n", f.DatasetSize(), f.BlockSize())
	fmt.Printf("Length:       %.3f s at %g Hz\n", f.Length(), f.SampleRate())
	fmt.Printf("Conversion:   %g * code + %g\n", f.Gain(), f.Offset())
	fmt.Printf("Live:         %v (last valid sample %d, readable %d)\n", f.Live(), f.LastValidSample(), f.ReadableSamples())
	fmt.Println()
}

func printAttrs(f *mearec.DataFile, scope mearec.Scope, path string) {
	attrs := f.Attrs(scope)
	fmt.Printf("%s:\n", path)
	for _, name := range attrs.Names() {
		v, err := attrs.Get(name)
		if err != nil {
			fmt.Printf("  %-20s ERROR %v\n", name, err)
			continue
		}
		fmt.Printf("  %-20s %-8s %s\n", name, v.Kind(), v)
	}
	fmt.Println()
}

func printConfiguration(f *mearec.DataFile) {
	c, err := f.Configuration()
	if errors.Is(err, mearec.ErrNoConfiguration) {
		fmt.Println("Configuration: none")
		return
	}
	if err != nil {
		fmt.Printf("Configuration: ERROR %v\n", err)
		return
	}
	routed := 0
	for _, e := range c {
		if e.Channel != mearec.Unrouted {
			routed++
		}
	}
	fmt.Printf("Configuration: %d electrodes, %d routed\n", len(c), routed)
	for _, e := range c {
		fmt.Printf("  %6d  pos (%5d, %5d)  grid (%3d, %3d)  label %q  channel %d\n",
			e.Index, e.XPos, e.YPos, e.X, e.Y, e.Label, e.Channel)
	}
}

// printAttr prints a single attribute addressed as "<object>@<name>".
func printAttr(f *mearec.DataFile, spec string) error {
	obj, name, ok := strings.Cut(spec, "@")
	if !ok || name == "" {
		return fmt.Errorf("attribute %q is not of the form /@name or /data@name", spec)
	}
	var scope mearec.Scope
	switch strings.TrimSuffix(obj, "/") {
	case "":
		scope = mearec.ScopeFile
	case "/data", "data":
		scope = mearec.ScopeData
	default:
		return fmt.Errorf("object %q: %w", obj, mearec.ErrNotFound)
	}
	v, err := f.Attrs(scope).Get(name)
	if err != nil {
		return err
	}
	fmt.Println(v)
	return nil
}
