package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sign_glove/internal/config"
)

var (
	tagStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	labelStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	sentenceStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd866"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f"))
)

const progressBarWidth = 20

// RunConsoleMQTT prints the glove's record stream until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console: MQTT_BROKER is not set")
	}

	client := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, func(c mqtt.Client) {
		token := c.Subscribe(cfg.TopicRecords, 0, func(_ mqtt.Client, msg mqtt.Message) {
			line, err := renderRecord(msg.Payload())
			if err != nil {
				log.Printf("console: %v", err)
				return
			}
			fmt.Println(line)
		})
		token.Wait()
		if token.Error() != nil {
			log.Printf("console: subscribe %s: %v", cfg.TopicRecords, token.Error())
			return
		}
		log.Printf("console: subscribed to %s", cfg.TopicRecords)
	})

	<-ctx.Done()
	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

// renderRecord formats one record as a console line.
func renderRecord(payload []byte) (string, error) {
	r, kind, err := decodeRecord(payload)
	if err != nil {
		return "", err
	}

	switch kind {
	case kindGesture:
		return fmt.Sprintf("%s %s %s",
			tagStyle.Render("[GEST]"),
			labelStyle.Render(fmt.Sprintf("%-10s", r.Label)),
			dimStyle.Render(fmt.Sprintf(
				"meanD=%5.2f gdp=%6.1f flex=%.2f %.2f %.2f %.2f %.2f acc=%5.2f %5.2f %5.2f gyro=%6.1f %6.1f %6.1f",
				r.MeanD, r.GDP, r.F1, r.F2, r.F3, r.F4, r.F5, r.Ax, r.Ay, r.Az, r.Gx, r.Gy, r.Gz)),
		), nil

	case kindProgress:
		return fmt.Sprintf("%s recording %s %3.0f%%",
			tagStyle.Render("[SENT]"), progressBar(r.Progress), r.Progress*100), nil

	case kindSentence:
		return fmt.Sprintf("%s %s %s",
			tagStyle.Render("[SENT]"),
			sentenceStyle.Render(r.Sentence),
			dimStyle.Render(fmt.Sprintf("confidence=%.3f meanD=%.2f", r.Confidence, r.MeanD)),
		), nil

	case kindSentenceStart:
		return fmt.Sprintf("%s sentence started", tagStyle.Render("[EVNT]")), nil

	case kindReady:
		avail := "no sentence model"
		if r.SentenceAvailable {
			avail = "sentence model loaded"
		}
		return fmt.Sprintf("%s glove ready, prediction=%s (%s)",
			tagStyle.Render("[EVNT]"), r.Prediction, avail), nil

	case kindSensorInitFailed:
		return fmt.Sprintf("%s %s",
			errorStyle.Render("[FAIL]"), errorStyle.Render("sensor init failed: "+r.Error)), nil
	}
	return fmt.Sprintf("%s %s", dimStyle.Render("[????]"), strings.TrimSpace(string(payload))), nil
}

func progressBar(p float64) string {
	p = math.Max(0, math.Min(1, p))
	filled := int(math.Round(p * progressBarWidth))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled) + "]"
}
