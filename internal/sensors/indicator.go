package sensors

import (
	"context"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Pattern is a run of identical buzzer beeps.
type Pattern struct {
	Count int
	On    time.Duration
	Off   time.Duration
}

var (
	PatternReady    = Pattern{Count: 1, On: 60 * time.Millisecond}
	PatternStart    = Pattern{Count: 3, On: 100 * time.Millisecond, Off: 50 * time.Millisecond}
	PatternComplete = Pattern{Count: 1, On: 150 * time.Millisecond}
	PatternArmed    = Pattern{Count: 2, On: 80 * time.Millisecond, Off: 80 * time.Millisecond}
	PatternDisarmed = Pattern{Count: 1, On: 60 * time.Millisecond}
)

// Duration is how long the pattern keeps the buzzer busy.
func (p Pattern) Duration() time.Duration {
	if p.Count <= 0 {
		return 0
	}
	return time.Duration(p.Count)*p.On + time.Duration(p.Count-1)*p.Off
}

// outPin is the part of gpio.PinOut the indicator drives.
type outPin interface {
	Out(l gpio.Level) error
}

// Indicator drives the status LED and buzzer. The LED is lit while a
// sentence is recording or raw logging is armed. Buzzer patterns are played
// by Run so callers never wait on them; patterns arriving faster than they
// can be played are dropped.
type Indicator struct {
	led    outPin
	buzzer outPin

	queue chan Pattern
	sleep func(time.Duration)

	mu        sync.Mutex
	recording bool
	armed     bool
}

// NewIndicator returns an Indicator for the given pins. Either may be nil.
func NewIndicator(led, buzzer gpio.PinOut) *Indicator {
	ind := &Indicator{
		queue: make(chan Pattern, 4),
		sleep: time.Sleep,
	}
	// Keep the interfaces nil rather than holding a typed nil.
	if led != nil {
		ind.led = led
	}
	if buzzer != nil {
		ind.buzzer = buzzer
	}
	return ind
}

func (ind *Indicator) Ready() { ind.enqueue(PatternReady) }

func (ind *Indicator) SentenceStarted() {
	ind.setLED(func() { ind.recording = true })
	ind.enqueue(PatternStart)
}

func (ind *Indicator) SentenceCompleted(string) {
	ind.setLED(func() { ind.recording = false })
	ind.enqueue(PatternComplete)
}

func (ind *Indicator) Logging(armed bool) {
	ind.setLED(func() { ind.armed = armed })
	if armed {
		ind.enqueue(PatternArmed)
	} else {
		ind.enqueue(PatternDisarmed)
	}
}

// Run plays queued patterns until ctx is done, then switches both outputs off.
func (ind *Indicator) Run(ctx context.Context) {
	defer func() {
		ind.drive(ind.buzzer, gpio.Low)
		ind.drive(ind.led, gpio.Low)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-ind.queue:
			ind.play(p)
		}
	}
}

func (ind *Indicator) enqueue(p Pattern) {
	select {
	case ind.queue <- p:
	default:
		log.Printf("indicator: buzzer busy, pattern dropped")
	}
}

func (ind *Indicator) setLED(change func()) {
	ind.mu.Lock()
	change()
	on := ind.recording || ind.armed
	ind.mu.Unlock()
	ind.drive(ind.led, gpio.Level(on))
}

func (ind *Indicator) play(p Pattern) {
	for i := 0; i < p.Count; i++ {
		if i > 0 && p.Off > 0 {
			ind.sleep(p.Off)
		}
		ind.drive(ind.buzzer, gpio.High)
		ind.sleep(p.On)
		ind.drive(ind.buzzer, gpio.Low)
	}
}

func (ind *Indicator) drive(p outPin, l gpio.Level) {
	if p == nil {
		return
	}
	if err := p.Out(l); err != nil {
		log.Printf("indicator: gpio write: %v", err)
	}
}
