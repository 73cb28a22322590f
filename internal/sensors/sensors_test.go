package sensors

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/sign_glove/internal/clock"
)

type fakePin struct {
	mu     sync.Mutex
	levels []gpio.Level
}

func (p *fakePin) Out(l gpio.Level) error {
	p.mu.Lock()
	p.levels = append(p.levels, l)
	p.mu.Unlock()
	return nil
}

func (p *fakePin) last() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.levels) == 0 {
		return gpio.Low
	}
	return p.levels[len(p.levels)-1]
}

func newTestIndicator() (*Indicator, *fakePin, *fakePin, *[]time.Duration) {
	led, buz := &fakePin{}, &fakePin{}
	var slept []time.Duration
	ind := &Indicator{
		led:    led,
		buzzer: buz,
		queue:  make(chan Pattern, 4),
		sleep:  func(d time.Duration) { slept = append(slept, d) },
	}
	return ind, led, buz, &slept
}

func TestPatternPlayback(t *testing.T) {
	ind, _, buz, slept := newTestIndicator()

	ind.play(PatternStart)

	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High, gpio.Low, gpio.High, gpio.Low}, buz.levels)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		50 * time.Millisecond, 100 * time.Millisecond,
		50 * time.Millisecond, 100 * time.Millisecond,
	}, *slept)
	assert.Equal(t, 400*time.Millisecond, PatternStart.Duration())
	assert.Equal(t, 240*time.Millisecond, PatternArmed.Duration())
	assert.Zero(t, Pattern{}.Duration())
}

func TestLEDFollowsRecordingAndLogging(t *testing.T) {
	ind, led, _, _ := newTestIndicator()

	ind.SentenceStarted()
	assert.Equal(t, gpio.High, led.last())

	ind.Logging(true)
	ind.SentenceCompleted("hello")
	assert.Equal(t, gpio.High, led.last(), "armed logging keeps the LED on")

	ind.Logging(false)
	assert.Equal(t, gpio.Low, led.last())

	assert.Len(t, ind.queue, 4)
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	ind, _, _, _ := newTestIndicator()
	for i := 0; i < 10; i++ {
		ind.Ready()
	}
	assert.Len(t, ind.queue, cap(ind.queue))
}

func TestIndicatorRunSwitchesOffOnExit(t *testing.T) {
	ind, led, buz, _ := newTestIndicator()
	ind.SentenceStarted()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ind.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(ind.queue) == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, gpio.Low, led.last())
	assert.Equal(t, gpio.Low, buz.last())
}

func TestMockSourceStaysInRange(t *testing.T) {
	clk := clock.NewManual(time.Unix(1000, 0))
	src := NewMockSource(clk, 9000, 21000)

	for i := 0; i < 200; i++ {
		raw, err := src.ReadRawFrame()
		require.NoError(t, err)
		for ch, v := range raw.Flex {
			assert.GreaterOrEqual(t, v, 9000, "flex %d", ch)
			assert.LessOrEqual(t, v, 21000, "flex %d", ch)
		}
		clk.Advance(37 * time.Millisecond)
	}
}

func TestMockSourceReportsGravity(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	raw, err := NewMockSource(clk, 0, 100).ReadRawFrame()
	require.NoError(t, err)

	// At t=0 the pitch is at its peak and the roll is level.
	assert.Zero(t, raw.Ay)
	assert.InDelta(t, 16384, float64(raw.Az)/0.969, 80)
	assert.Negative(t, raw.Ax)
}

func lit(img *image1bit.VerticalLSB, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderScreens(t *testing.T) {
	top := image.Rect(0, 0, 128, 14)
	body := image.Rect(0, 20, 128, 64)

	splash := render(screen{mode: "auto"})
	assert.Zero(t, lit(splash, top), "splash leaves the header row empty")
	assert.Positive(t, lit(splash, body))

	idle := render(screen{mode: "auto", ready: true})
	withLog := render(screen{mode: "auto", ready: true, armed: true})
	assert.Greater(t, lit(withLog, top), lit(idle, top))

	rec := render(screen{mode: "auto", ready: true, recording: true, sentence: "hello"})
	done := render(screen{mode: "auto", ready: true, sentence: "hello"})
	assert.NotEqual(t, rec.Pix, done.Pix)
}
