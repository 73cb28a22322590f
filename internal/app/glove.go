// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/relabs-tech/sign_glove/internal/config"
	"github.com/relabs-tech/sign_glove/internal/frame"
	"github.com/relabs-tech/sign_glove/internal/mode"
	"github.com/relabs-tech/sign_glove/internal/model"
	"github.com/relabs-tech/sign_glove/internal/output"
	"github.com/relabs-tech/sign_glove/internal/rawlog"
)

// RunGlove runs the configured RUN_MODE until ctx is done. Records go to
// the serial link when SERIAL_PORT is set and to stdout otherwise.
func RunGlove(ctx context.Context, cfg *config.Config) error {
	return runGlove(ctx, cfg, os.Stdin, os.Stdout)
}

func runGlove(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	log.Printf("starting sign glove (run=%s prediction=%s source=%s)", cfg.RunMode, cfg.PredictionMode, cfg.FrameSource)

	lnk, err := openLink(cfg, in, out)
	if err != nil {
		return err
	}
	defer lnk.close()

	switch cfg.RunMode {
	case "collect":
		return runCollect(ctx, cfg, lnk)
	case "predict":
		return runPredict(ctx, cfg, lnk)
	}
	return fmt.Errorf("unknown run mode %q", cfg.RunMode)
}

// startEmitter runs an emitter over the link's sinks. The returned stop
// function flushes it and waits until it is done.
func startEmitter(cfg *config.Config, lnk *link) (*output.Emitter, func()) {
	em := output.NewEmitter(cfg.EmitQueueSize, lnk.sinks...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		em.Run(ctx)
		close(done)
	}()
	return em, func() {
		cancel()
		<-done
		if n := em.Dropped(); n > 0 {
			log.Printf("output: %d records dropped", n)
		}
	}
}

func runPredict(ctx context.Context, cfg *config.Config, lnk *link) error {
	em, stop := startEmitter(cfg, lnk)
	defer stop()

	prediction, err := mode.ParsePrediction(cfg.PredictionMode)
	if err != nil {
		return err
	}

	models, err := model.Load()
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	if !models.SentenceAvailable() {
		log.Println("sentence model not built in, sentence prediction unavailable")
	}

	hw, err := openRig(cfg, prediction.String())
	if err != nil {
		em.Publish(output.NewSensorInitFailed(err))
		log.Printf("sensor init failed: %v", err)
		return fmt.Errorf("sensor init: %w", err)
	}
	defer hw.close()

	norm, err := frame.NewNormalizer(frame.Calibration{Min: cfg.FlexMin, Max: cfg.FlexMax}, cfg.IMUAccelRange, cfg.IMUGyroRange)
	if err != nil {
		return err
	}

	deps := mode.Deps{
		Source:     hw.source,
		Normalizer: norm,
		Publisher:  em,
		Models:     models,
		Feedback:   hw.feedback,
		Control:    lnk.control,
		RawLog:     rawlog.NewCapture(cfg.RawLogDir),
	}
	if hw.trigger != nil {
		deps.Trigger = hw.trigger
	}

	opts := mode.Options{
		Prediction:   prediction,
		Debounce:     cfg.Debounce(),
		GestureTick:  cfg.GestureTick(),
		SentenceTick: cfg.SentenceTick(),
	}
	ctrl, err := mode.New(deps, opts)
	if err != nil {
		return err
	}
	log.Printf("controller ready: prediction=%s state=%s", ctrl.Prediction(), ctrl.State())

	hw.start(ctx)
	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	log.Println("sign glove stopped")
	return nil
}

// runCollect streams raw-log lines on the link for the training tools.
func runCollect(ctx context.Context, cfg *config.Config, lnk *link) error {
	hw, err := openRig(cfg, "collect")
	if err != nil {
		line, encErr := output.Encode(output.NewSensorInitFailed(err))
		if encErr == nil {
			deliver(lnk.sinks, line)
		}
		return fmt.Errorf("sensor init: %w", err)
	}
	defer hw.close()
	hw.start(ctx)

	ticker := time.NewTicker(cfg.CollectPeriod())
	defer ticker.Stop()

	log.Printf("collecting raw frames every %s", cfg.CollectPeriod())
	var failures int
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		raw, err := hw.source.ReadRawFrame()
		if err != nil {
			failures++
			if failures == 1 || failures%100 == 0 {
				log.Printf("collect: frame read failed (%d so far): %v", failures, err)
			}
			continue
		}
		// Sinks may hold on to the line, so every frame gets its own.
		deliver(lnk.sinks, rawlog.AppendFormat(nil, raw))
	}
}

func deliver(sinks []output.Sink, line []byte) {
	for _, s := range sinks {
		if err := s.WriteLine(line); err != nil {
			log.Printf("collect: sink error: %v", err)
		}
	}
}
