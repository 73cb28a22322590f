package app

import (
	"io"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sign_glove/internal/config"
	"github.com/relabs-tech/sign_glove/internal/control"
	"github.com/relabs-tech/sign_glove/internal/output"
	"github.com/relabs-tech/sign_glove/internal/sensors"
)

// link is the glove's connection to the outside world: the record stream
// going out and the control bytes coming in.
type link struct {
	sinks   []output.Sink
	control *control.Queue
	client  mqtt.Client
	port    io.Closer
}

// openLink opens the serial record link (or falls back to in/out) and the
// optional MQTT mirror. Control bytes from every inbound path land in one
// queue.
func openLink(cfg *config.Config, in io.Reader, out io.Writer) (*link, error) {
	l := &link{control: control.NewQueue(0)}

	if cfg.SerialPort != "" {
		port, err := sensors.OpenSerial(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return nil, err
		}
		log.Printf("link: records on %s at %d baud", cfg.SerialPort, cfg.SerialBaudRate)
		l.port = port
		in, out = port, port
	}
	l.sinks = append(l.sinks, output.NewLineSink(out))

	if in != nil {
		go func() {
			if err := l.control.Feed(in); err != nil {
				log.Printf("link: control reader stopped: %v", err)
			}
		}()
	}

	if cfg.MQTTBroker != "" {
		l.client = connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGlove, func(c mqtt.Client) {
			if err := l.control.Subscribe(c, cfg.TopicControl); err != nil {
				log.Printf("link: %v", err)
			}
		})
		l.sinks = append(l.sinks, output.NewMQTTSink(l.client, cfg.TopicRecords))
	}
	return l, nil
}

func (l *link) close() {
	if l.client != nil {
		l.client.Disconnect(250)
	}
	if l.port != nil {
		if err := l.port.Close(); err != nil {
			log.Printf("link: close serial: %v", err)
		}
	}
}

// connectMQTT starts a client that keeps retrying in the background, so a
// missing broker never holds up the glove. onConnect runs after every
// (re)connect.
func connectMQTT(broker, clientID string, onConnect mqtt.OnConnectHandler) mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(onConnect)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(2 * time.Second) {
		log.Printf("mqtt: %s not reachable yet, retrying in the background", broker)
	} else if err := token.Error(); err != nil {
		log.Printf("mqtt: connect error: %v", err)
	} else {
		log.Printf("mqtt: connected to %s as %s", broker, clientID)
	}
	return client
}
