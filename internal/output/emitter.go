package output

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Sink receives encoded records, one line at a time.
type Sink interface {
	WriteLine(line []byte) error
}

// Emitter queues encoded records for the sinks. Publish never blocks: when
// the queue is full the record is dropped and counted.
type Emitter struct {
	queue   chan []byte
	sinks   []Sink
	dropped atomic.Uint64
}

const DefaultQueueSize = 64

func NewEmitter(queueSize int, sinks ...Sink) *Emitter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Emitter{
		queue: make(chan []byte, queueSize),
		sinks: sinks,
	}
}

// Publish encodes r and queues it. It reports whether the record was queued.
func (e *Emitter) Publish(r Record) bool {
	line, err := Encode(r)
	if err != nil {
		log.Printf("output: encode %s record: %v", r.kind(), err)
		e.dropped.Add(1)
		return false
	}
	select {
	case e.queue <- line:
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

// Dropped is the number of records lost to a full queue or an encode error.
func (e *Emitter) Dropped() uint64 {
	return e.dropped.Load()
}

// Run writes queued lines to every sink until ctx is done, then flushes what
// is still queued. Sink errors are logged and the line is not retried.
func (e *Emitter) Run(ctx context.Context) {
	for {
		select {
		case line := <-e.queue:
			e.deliver(line)
		case <-ctx.Done():
			for {
				select {
				case line := <-e.queue:
					e.deliver(line)
				default:
					return
				}
			}
		}
	}
}

func (e *Emitter) deliver(line []byte) {
	for _, s := range e.sinks {
		if err := s.WriteLine(line); err != nil {
			log.Printf("output: sink write: %v", err)
		}
	}
}

// LineSink writes newline-terminated records to w (a serial port or stdout).
type LineSink struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: w}
}

func (s *LineSink) WriteLine(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(append(s.buf[:0], line...), '\n')
	_, err := s.w.Write(s.buf)
	return err
}

// MQTTSink publishes each record at QoS 0 and does not wait for delivery.
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

func NewMQTTSink(client mqtt.Client, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic}
}

func (s *MQTTSink) WriteLine(line []byte) error {
	if !s.client.IsConnectionOpen() {
		return nil
	}
	s.client.Publish(s.topic, 0, false, line)
	return nil
}
