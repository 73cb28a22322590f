// Package control collects inbound control bytes from the record link and
// from MQTT so the controller can drain them without blocking.
package control

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// ArmLogging starts raw logging.
	ArmLogging byte = 'S'
	// DisarmLogging stops raw logging.
	DisarmLogging byte = 'E'
)

// Queue is a bounded multi-producer byte queue with a single consumer.
type Queue struct {
	ch      chan byte
	dropped atomic.Uint64
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 16
	}
	return &Queue{ch: make(chan byte, size)}
}

// Push queues b, dropping it when the queue is full.
func (q *Queue) Push(b byte) bool {
	select {
	case q.ch <- b:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Poll returns the next queued byte, if any.
func (q *Queue) Poll() (byte, bool) {
	select {
	case b := <-q.ch:
		return b, true
	default:
		return 0, false
	}
}

func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Feed pushes every byte read from r until r returns an error. It is
// meant to run on its own goroutine; io.EOF is not reported.
func (q *Queue) Feed(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("control: read: %w", err)
		}
		if b == '\r' || b == '\n' {
			continue
		}
		q.Push(b)
	}
}

// Subscribe feeds the queue from an MQTT topic. Every payload byte is
// treated as one control byte.
func (q *Queue) Subscribe(client mqtt.Client, topic string) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		for _, b := range msg.Payload() {
			if b == '\r' || b == '\n' {
				continue
			}
			q.Push(b)
		}
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("control: subscribe %s: %w", topic, err)
	}
	log.Printf("control: subscribed to %s", topic)
	return nil
}
