package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/sign_glove/internal/app"
	"github.com/relabs-tech/sign_glove/internal/mode"
	"github.com/relabs-tech/sign_glove/internal/model"
)

var (
	replayPrediction string
	replayPress      bool
	replayPeriod     time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture.log>",
	Short: "Run a raw-log capture through the controller",
	Long: `replay feeds a raw-log capture, one line per tick, through the same
controller the glove runs and prints the JSON records it would publish.

Lines that are not raw frames are skipped. Use --press to hold the trigger
at the start so a sentence capture is recorded from its first frame.

Captures armed with 'S' on a running glove hold one line per controller
tick and replay as they are. Collect-mode captures were written every
COLLECT_PERIOD_MS; pass --frame-period with that value so the recording
window sees the real spacing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		pred := cfg.PredictionMode
		if replayPrediction != "" {
			pred = replayPrediction
		}
		p, err := mode.ParsePrediction(pred)
		if err != nil {
			return err
		}
		n, err := normalizer(cfg)
		if err != nil {
			return err
		}
		models, err := model.Load()
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		stats, err := app.Replay(f, cmd.OutOrStdout(), models, app.ReplayOptions{
			Prediction:   p,
			Normalizer:   n,
			Debounce:     cfg.Debounce(),
			PressAtStart: replayPress,
			FramePeriod:  replayPeriod,
		})
		fmt.Fprintf(cmd.ErrOrStderr(), "%d frames, %d skipped lines, %d records\n", stats.Frames, stats.Skipped, stats.Records)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayPrediction, "prediction", "", "gesture, sentence or auto (default from config)")
	replayCmd.Flags().BoolVar(&replayPress, "press", false, "hold the trigger at the start of the capture")
	replayCmd.Flags().DurationVar(&replayPeriod, "frame-period", 0, "spacing of the capture lines, e.g. 50ms for collect captures (0: one line per tick)")
}
