package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/sign_glove/internal/frame"
	"github.com/relabs-tech/sign_glove/internal/knn"
	"github.com/relabs-tech/sign_glove/internal/model"
	"github.com/relabs-tech/sign_glove/internal/output"
	"github.com/relabs-tech/sign_glove/internal/rawlog"
)

var rawLine string

var classifyCmd = &cobra.Command{
	Use:   "classify [f1 f2 f3 f4 f5 gdp ax ay az gx gy gz]",
	Short: "Classify one frame with the gesture model",
	Long: `classify runs the gesture model on a single frame.

The frame is either twelve feature values in sensor units (normalized flex,
deg/s, g, deg/s) or, with --raw, one raw-log line that is normalized with
the configured calibration first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		feats, err := queryFeatures(cmd.ErrOrStderr(), args)
		if err != nil {
			return err
		}
		models, err := model.Load()
		if err != nil {
			return err
		}
		res, err := classifyFeatures(models.Gesture, feats)
		if err != nil {
			return err
		}
		res.print(cmd.OutOrStdout(), models.Gesture)
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVar(&rawLine, "raw", "", `raw-log line, e.g. "FLEX: 9000 ... | GDP=0.000"`)
}

func queryFeatures(w io.Writer, args []string) ([]float64, error) {
	if rawLine != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("give either --raw or feature values, not both")
		}
		raw, err := rawlog.Parse(rawLine)
		if err != nil {
			return nil, err
		}
		cfg, err := loadConfig(w)
		if err != nil {
			return nil, err
		}
		n, err := normalizer(cfg)
		if err != nil {
			return nil, err
		}
		return n.Normalize(raw).AppendFields(nil), nil
	}
	return parseFeatures(args)
}

func parseFeatures(args []string) ([]float64, error) {
	if len(args) != frame.FieldsPerFrame {
		return nil, fmt.Errorf("need %d feature values, got %d", frame.FieldsPerFrame, len(args))
	}
	feats := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", frame.FieldNames[i], err)
		}
		feats[i] = v
	}
	return feats, nil
}

type neighbour struct {
	Distance float64
	Label    int
}

type classification struct {
	Label      int
	MeanD      float64
	Rejected   bool // beyond the model's max distance
	Neighbours []neighbour
}

// classifyFeatures standardizes a copy of feats with the model's tables and
// runs one KNN query.
func classifyFeatures(m *model.Model, feats []float64) (classification, error) {
	q := append([]float64(nil), feats...)
	m.Scaler.Apply(q)

	c := knn.NewClassifier(m.Set)
	res, err := c.Classify(q)
	if err != nil {
		return classification{}, err
	}
	out := classification{Label: res.Label, MeanD: res.MeanDistance}
	if m.MaxDistance > 0 && res.MeanDistance > m.MaxDistance {
		out.Label = knn.Unknown
		out.Rejected = true
	}
	dists, labels := c.Nearest()
	for i := range dists {
		out.Neighbours = append(out.Neighbours, neighbour{Distance: dists[i], Label: labels[i]})
	}
	return out, nil
}

func (c classification) print(w io.Writer, m *model.Model) {
	fmt.Fprintf(w, "label:      %s\n", m.LabelName(c.Label))
	fmt.Fprintf(w, "meanD:      %.4f", c.MeanD)
	if c.Rejected {
		fmt.Fprintf(w, " (over max distance %.3f)", m.MaxDistance)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "confidence: %.3f\n", output.Confidence(c.MeanD))
	fmt.Fprintln(w, "neighbours:")
	for i, n := range c.Neighbours {
		fmt.Fprintf(w, "  %d. %-16s %.4f\n", i+1, m.LabelName(n.Label), n.Distance)
	}
}
