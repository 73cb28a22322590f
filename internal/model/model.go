// Package model loads the training sets compiled into the binary.
//
// Each model file carries its samples, label names, K, and the scaler tables
// that were used when the samples were prepared. The sentence model also
// carries the recording window geometry it was trained on. If the sentence
// model file is absent from the build, sentence mode is simply unavailable.
package model

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/relabs-tech/sign_glove/internal/frame"
	"github.com/relabs-tech/sign_glove/internal/knn"
	"github.com/relabs-tech/sign_glove/internal/window"
)

//go:embed data/*.yaml
var embedded embed.FS

const (
	gestureFile  = "data/gesture.yaml"
	sentenceFile = "data/sentence.yaml"
)

// UnknownLabel is the name reported for knn.Unknown.
const UnknownLabel = "unknown"

type fileSample struct {
	Label    int       `yaml:"label"`
	Features []float64 `yaml:"features"`
}

type fileWindow struct {
	Samples    int `yaml:"samples"`
	IntervalMS int `yaml:"interval_ms"`
	DurationMS int `yaml:"duration_ms"`
}

type fileScaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

type file struct {
	Name        string       `yaml:"name"`
	K           int          `yaml:"k"`
	MaxDistance float64      `yaml:"max_distance"`
	Labels      []string     `yaml:"labels"`
	Window      *fileWindow  `yaml:"window"`
	Scaler      fileScaler   `yaml:"scaler"`
	Samples     []fileSample `yaml:"samples"`
}

// Model is one immutable training set plus everything needed to build a
// query for it.
type Model struct {
	Name   string
	Labels []string
	Set    *knn.TrainingSet
	Scaler frame.Standardizer

	// MaxDistance, when positive, is the largest mean neighbour distance
	// still reported as a known label.
	MaxDistance float64

	// Window is set for windowed (sentence) models only.
	Window *window.Config
}

// LabelName maps a class index to its name; out-of-range indices and
// knn.Unknown map to UnknownLabel.
func (m *Model) LabelName(label int) string {
	if label < 0 || label >= len(m.Labels) {
		return UnknownLabel
	}
	return m.Labels[label]
}

// Dim is the feature dimension of the training set.
func (m *Model) Dim() int {
	return m.Set.Dim()
}

// Parse decodes and validates one model file.
func Parse(data []byte) (*Model, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("model: decode: %w", err)
	}
	if len(f.Samples) == 0 {
		return nil, fmt.Errorf("model %q: no samples", f.Name)
	}
	if len(f.Labels) == 0 {
		return nil, fmt.Errorf("model %q: no labels", f.Name)
	}

	dim := len(f.Samples[0].Features)
	values := make([]float64, 0, dim*len(f.Samples))
	labels := make([]int, 0, len(f.Samples))
	for i, s := range f.Samples {
		if len(s.Features) != dim {
			return nil, fmt.Errorf("model %q: sample %d has %d features, want %d", f.Name, i, len(s.Features), dim)
		}
		values = append(values, s.Features...)
		labels = append(labels, s.Label)
	}

	scaler := frame.Standardizer{Mean: f.Scaler.Mean, Scale: f.Scaler.Scale}
	if err := scaler.Validate(dim); err != nil {
		return nil, fmt.Errorf("model %q: %w", f.Name, err)
	}
	// Samples are stored in sensor units; queries are standardized with
	// the same tables, so the stored rows are too.
	for i := 0; i < len(values); i += dim {
		scaler.Apply(values[i : i+dim])
	}

	set, err := knn.NewTrainingSet(values, labels, dim, len(f.Labels), f.K)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", f.Name, err)
	}

	m := &Model{
		Name:        f.Name,
		Labels:      f.Labels,
		Set:         set,
		Scaler:      scaler,
		MaxDistance: f.MaxDistance,
	}

	if f.Window != nil {
		wc := window.Config{
			Capacity: f.Window.Samples,
			Interval: time.Duration(f.Window.IntervalMS) * time.Millisecond,
			Duration: time.Duration(f.Window.DurationMS) * time.Millisecond,
		}
		if err := wc.Validate(); err != nil {
			return nil, fmt.Errorf("model %q: %w", f.Name, err)
		}
		if wc.Dim() != dim {
			return nil, fmt.Errorf("model %q: window of %d frames needs %d features, samples have %d",
				f.Name, wc.Capacity, wc.Dim(), dim)
		}
		m.Window = &wc
	} else if dim != frame.FieldsPerFrame {
		return nil, fmt.Errorf("model %q: single-frame model has %d features, want %d", f.Name, dim, frame.FieldsPerFrame)
	}

	return m, nil
}

// Bundle is the set of models available to this build.
type Bundle struct {
	Gesture  *Model
	Sentence *Model // nil when the build carries no sentence model
}

// SentenceAvailable reports whether sentence mode can run.
func (b Bundle) SentenceAvailable() bool {
	return b.Sentence != nil
}

// Load parses the embedded model files.
func Load() (Bundle, error) {
	return LoadFS(embedded)
}

// LoadFS parses model files from fsys using the embedded layout.
func LoadFS(fsys fs.FS) (Bundle, error) {
	var b Bundle

	data, err := fs.ReadFile(fsys, gestureFile)
	if err != nil {
		return Bundle{}, fmt.Errorf("model: read gesture model: %w", err)
	}
	if b.Gesture, err = Parse(data); err != nil {
		return Bundle{}, err
	}
	if b.Gesture.Window != nil {
		return Bundle{}, fmt.Errorf("model %q: gesture model must not declare a window", b.Gesture.Name)
	}

	data, err = fs.ReadFile(fsys, sentenceFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return b, nil
	case err != nil:
		return Bundle{}, fmt.Errorf("model: read sentence model: %w", err)
	}
	if b.Sentence, err = Parse(data); err != nil {
		return Bundle{}, err
	}
	if b.Sentence.Window == nil {
		return Bundle{}, fmt.Errorf("model %q: sentence model needs a window", b.Sentence.Name)
	}
	return b, nil
}
