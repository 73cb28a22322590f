package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/sign_glove/internal/model"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the geometry of the built-in models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		models, err := model.Load()
		if err != nil {
			return err
		}
		describe(cmd.OutOrStdout(), models.Gesture)
		if !models.SentenceAvailable() {
			fmt.Fprintln(cmd.OutOrStdout(), "\nsentence model: not in this build")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout())
		describe(cmd.OutOrStdout(), models.Sentence)
		return nil
	},
}

func describe(w io.Writer, m *model.Model) {
	fmt.Fprintf(w, "model %s\n", m.Name)
	fmt.Fprintf(w, "  samples:      %d\n", m.Set.Len())
	fmt.Fprintf(w, "  dimension:    %d\n", m.Dim())
	fmt.Fprintf(w, "  k:            %d\n", m.Set.K())
	if m.MaxDistance > 0 {
		fmt.Fprintf(w, "  max distance: %.3f\n", m.MaxDistance)
	} else {
		fmt.Fprintln(w, "  max distance: none")
	}
	if m.Window != nil {
		fmt.Fprintf(w, "  window:       %d frames, every %s, at most %s\n",
			m.Window.Capacity, m.Window.Interval, m.Window.Duration)
	}

	counts := make([]int, m.Set.Classes())
	for i := 0; i < m.Set.Len(); i++ {
		counts[m.Set.Label(i)]++
	}
	fmt.Fprintf(w, "  labels:       %d\n", len(counts))
	for label, n := range counts {
		fmt.Fprintf(w, "    %3d %-16s %d\n", label, m.LabelName(label), n)
	}
}
