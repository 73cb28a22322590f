// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/calibration/main.go
//
// Guided flex-sensor calibration for the glove wearer.
// Captures:
//  1. Open hand: fingers straight and relaxed
//  2. Fist: every finger fully bent
//
// Output:
//
//	Prints FLEX_MIN / FLEX_MAX lines for glove_config.txt and writes a JSON
//	report (per-pose stats and per-channel confidence) to the current directory.
//
// Run:
//
//	go run ./cmd/calibration
//
// Notes / assumptions:
//   - Reads frames through the configured FRAME_SOURCE, so it works against
//     the glove over SPI, a serial front end, or the mock source.
//   - Stores bounds in raw ADC counts, the unit the classifier normalizes from.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/relabs-tech/sign_glove/internal/app"
	"github.com/relabs-tech/sign_glove/internal/config"
	"github.com/relabs-tech/sign_glove/internal/frame"
)

const (
	sampleHz     = 50
	poseDuration = 5 * time.Second
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	dur := flag.Duration("duration", poseDuration, "capture time per pose")
	flag.Parse()

	fmt.Println("=== Guided Flex Calibration ===")
	fmt.Println("You will hold two poses. Results are printed as config lines and stored as JSON.")
	fmt.Println()

	if err := config.InitGlobal(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	if err := run(config.Get(), os.Stdin, *configPath, *dur); err != nil {
		fatal(err)
	}
}

// openFrameSource is replaced in tests.
var openFrameSource = app.OpenFrameSource

// run owns the frame source so it is closed on every return path.
func run(cfg *config.Config, stdin io.Reader, configPath string, dur time.Duration) error {
	in := bufio.NewReader(stdin)

	src, closer, err := openFrameSource(cfg)
	if err != nil {
		return fmt.Errorf("frame source init failed: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	fmt.Println("Step 1/2: open hand")
	fmt.Println("Straighten all fingers and keep the hand still.")
	waitEnter(in, fmt.Sprintf("Press ENTER to start capture (%s)...", dur))
	open, err := capturePose("open", src, dur)
	if err != nil {
		return err
	}
	printPose(open)

	fmt.Println("Step 2/2: fist")
	fmt.Println("Close the hand into a tight fist and hold it.")
	waitEnter(in, fmt.Sprintf("Press ENTER to start capture (%s)...", dur))
	fist, err := capturePose("fist", src, dur)
	if err != nil {
		return err
	}
	printPose(fist)

	res := bounds(open, fist)
	res.SchemaVersion = 1
	res.CalibrationAt = time.Now().Format(time.RFC3339)

	fmt.Println()
	fmt.Println("Add these lines to", configPath+":")
	fmt.Println(configLine("FLEX_MIN", res.FlexMin))
	fmt.Println(configLine("FLEX_MAX", res.FlexMax))
	fmt.Printf("\nConfidence: %.2f", res.OverallConfidence)
	for ch, c := range res.Confidence {
		fmt.Printf("  f%d=%.2f", ch+1, c)
	}
	fmt.Println()
	for _, n := range res.Notes {
		fmt.Println("  note:", n)
	}

	return writeResult(res)
}

func capturePose(name string, src frame.Source, dur time.Duration) (PoseStats, error) {
	start := time.Now()
	deadline := start.Add(dur)
	period := time.Second / sampleHz

	var frames []frame.RawFrame
	var failures int
	for time.Now().Before(deadline) {
		raw, err := src.ReadRawFrame()
		if err != nil {
			failures++
			if failures > sampleHz {
				return PoseStats{}, fmt.Errorf("%s pose: %w", name, err)
			}
		} else {
			frames = append(frames, raw)
		}
		time.Sleep(period)
	}
	if len(frames) == 0 {
		return PoseStats{}, fmt.Errorf("%s pose: no frames captured", name)
	}
	return computePose(name, frames, time.Since(start).Seconds()), nil
}

func printPose(ps PoseStats) {
	fmt.Printf("  %s: %d samples\n", ps.Pose, ps.Samples)
	for ch, c := range ps.Channels {
		fmt.Printf("    f%d mean=%8.1f sd=%6.1f range=[%d, %d]\n", ch+1, c.Mean, c.StdDev, c.Min, c.Max)
	}
	fmt.Println()
}

func configLine(key string, v [frame.FlexChannels]int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return key + "=" + strings.Join(parts, ",")
}

// ---------- Output ----------

func writeResult(res CalibrationResult) error {
	ts := time.Now().Format("2006-01-02T15-04-05Z07-00")
	name := fmt.Sprintf("%s_flex_calibration.json", ts)

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(name, b, 0o644); err != nil {
		return err
	}
	fmt.Printf("\nWrote: %s\n", name)
	return nil
}

// ---------- Console helpers ----------

func waitEnter(in *bufio.Reader, prompt string) {
	fmt.Print(prompt)
	_, _ = in.ReadString('\n')
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
