package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/sign_glove/internal/config"
	"github.com/relabs-tech/sign_glove/internal/frame"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "modeltool",
	Short: "Inspect and exercise the built-in sign models",
	Long: `modeltool works with the gesture and sentence models compiled into the
glove binary.

Raw frames are normalized with the FLEX_MIN / FLEX_MAX calibration and the
IMU ranges from the glove configuration file, exactly as on the glove.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "glove configuration file (defaults apply if it does not exist)")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(replayCmd)
}

// loadConfig reads the configuration file, falling back to the defaults
// when it does not exist.
func loadConfig(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(w, "%s not found, using default calibration\n", cfgFile)
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func normalizer(cfg *config.Config) (frame.Normalizer, error) {
	return frame.NewNormalizer(frame.Calibration{Min: cfg.FlexMin, Max: cfg.FlexMax}, cfg.IMUAccelRange, cfg.IMUGyroRange)
}
