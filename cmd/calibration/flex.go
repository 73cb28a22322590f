package main

import (
	"fmt"
	"math"

	"github.com/relabs-tech/sign_glove/internal/frame"
)

const (
	// Spans below this many counts mean the sensor barely moved between
	// poses (loose sensor, wrong channel).
	minSpanCounts = 500

	// Per-pose noise, as a fraction of the span, above which the hand was
	// probably not held still.
	noiseGood = 0.02
	noiseBad  = 0.15

	confFloor = 0.05
)

// ChannelStats summarizes one flex channel over one pose.
type ChannelStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
}

// PoseStats is one captured pose.
type PoseStats struct {
	Pose        string                           `json:"pose"`
	Samples     int                              `json:"samples"`
	DurationSec float64                          `json:"duration_sec"`
	Channels    [frame.FlexChannels]ChannelStats `json:"channels"`
}

// CalibrationResult is written as JSON next to the printed config lines.
type CalibrationResult struct {
	SchemaVersion int    `json:"schema_version"`
	CalibrationAt string `json:"calibration_at"` // RFC3339

	FlexMin [frame.FlexChannels]int `json:"flex_min"`
	FlexMax [frame.FlexChannels]int `json:"flex_max"`

	Confidence        [frame.FlexChannels]float64 `json:"confidence"`
	OverallConfidence float64                     `json:"overall_confidence"`

	Poses []PoseStats `json:"poses"`
	Notes []string    `json:"notes,omitempty"`
}

// computePose reduces raw frames captured in one pose to per-channel stats.
func computePose(name string, frames []frame.RawFrame, durSec float64) PoseStats {
	ps := PoseStats{Pose: name, Samples: len(frames), DurationSec: durSec}
	if len(frames) == 0 {
		return ps
	}
	for ch := 0; ch < frame.FlexChannels; ch++ {
		xs := make([]float64, len(frames))
		lo, hi := frames[0].Flex[ch], frames[0].Flex[ch]
		for i, f := range frames {
			v := f.Flex[ch]
			xs[i] = float64(v)
			lo = min(lo, v)
			hi = max(hi, v)
		}
		mean, sd := meanStd(xs)
		ps.Channels[ch] = ChannelStats{Mean: mean, StdDev: sd, Min: lo, Max: hi}
	}
	return ps
}

// bounds derives FLEX_MIN / FLEX_MAX from the open-hand and fist poses.
// Each channel's range runs between the two pose means, whichever way the
// sensor is wired.
func bounds(open, fist PoseStats) CalibrationResult {
	var res CalibrationResult
	res.Poses = []PoseStats{open, fist}

	var sum float64
	for ch := 0; ch < frame.FlexChannels; ch++ {
		a, b := open.Channels[ch], fist.Channels[ch]
		lo := int(math.Round(math.Min(a.Mean, b.Mean)))
		hi := int(math.Round(math.Max(a.Mean, b.Mean)))
		span := hi - lo
		if span < minSpanCounts {
			res.Notes = append(res.Notes, noteSmallSpan(ch, span))
			// Keep the config valid; normalization still needs max > min.
			if hi <= lo {
				hi = lo + 1
			}
		}
		res.FlexMin[ch] = lo
		res.FlexMax[ch] = hi

		c := channelConfidence(span, math.Max(a.StdDev, b.StdDev))
		res.Confidence[ch] = c
		sum += c
	}
	res.OverallConfidence = sum / frame.FlexChannels
	return res
}

func noteSmallSpan(ch, span int) string {
	return fmt.Sprintf("flex %d: open/fist span only %d counts", ch+1, span)
}

// channelConfidence scores how cleanly a channel separates the two poses.
func channelConfidence(span int, noise float64) float64 {
	if span <= 0 {
		return confFloor
	}
	ratio := noise / float64(span)
	c := 1.0
	switch {
	case ratio <= noiseGood:
	case ratio >= noiseBad:
		c = confFloor
	default:
		c = 1 - (ratio-noiseGood)/(noiseBad-noiseGood)
	}
	if span < minSpanCounts {
		c *= float64(span) / minSpanCounts
	}
	return clamp(c, confFloor, 1)
}

func meanStd(xs []float64) (mean float64, sd float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))
	var s float64
	for _, v := range xs {
		d := v - mean
		s += d * d
	}
	sd = math.Sqrt(s / float64(len(xs)))
	return mean, sd
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
