package rawlog

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sign_glove/internal/frame"
)

var sampleFrame = frame.RawFrame{
	Flex: [frame.FlexChannels]int{512, 600, 700, 800, 900},
	Ax:   -120, Ay: 16000, Az: 300,
	Gx: 3, Gy: -4, Gz: 0,
}

func TestFormat(t *testing.T) {
	assert.Equal(t,
		"FLEX: 512 600 700 800 900 | ACC: -120 16000 300 | GYRO: 3 -4 0 | GDP=5.000",
		Format(sampleFrame))
}

func TestParseRoundTripsFormat(t *testing.T) {
	got, err := Parse(Format(sampleFrame) + "\r\n")
	require.NoError(t, err)
	assert.Equal(t, sampleFrame, got)
}

func TestParseRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"EchoSignRealtime started.",
		"FLEX: 1 2 3 4 | ACC: 1 2 3 | GYRO: 1 2 3 | GDP=1.0",
		"FLEX: 1 2 3 4 5 | ACC: 1 2 40000 | GYRO: 1 2 3 | GDP=1.0",
		`{"mode":"gesture"}`,
	} {
		_, err := Parse(line)
		assert.ErrorIs(t, err, ErrMalformed, "line %q", line)
	}
}

func TestLineSourceSkipsNoise(t *testing.T) {
	input := strings.Join([]string{
		"MPU6050 init FAILED",
		Format(sampleFrame),
		"",
		"garbage",
		Format(frame.RawFrame{Ax: 1}),
	}, "\n")
	src := NewLineSource(strings.NewReader(input))

	f, err := src.ReadRawFrame()
	require.NoError(t, err)
	assert.Equal(t, sampleFrame, f)

	f, err = src.ReadRawFrame()
	require.NoError(t, err)
	assert.Equal(t, int16(1), f.Ax)

	_, err = src.ReadRawFrame()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, src.Skipped())
}

func TestFollowerKeepsLatest(t *testing.T) {
	f := NewFollower()
	_, err := f.ReadRawFrame()
	assert.ErrorIs(t, err, ErrNoFrame)

	input := Format(sampleFrame) + "\n" + Format(frame.RawFrame{Gz: 7}) + "\n"
	err = f.Run(strings.NewReader(input))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = f.ReadRawFrame()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "a dead stream is reported, not replayed")
}

type lineThenBlock struct {
	r    io.Reader
	read chan struct{}
	stop chan struct{}
}

func (l *lineThenBlock) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	if errors.Is(err, io.EOF) {
		close(l.read)
		<-l.stop
		return 0, io.ErrClosedPipe
	}
	return n, err
}

func TestFollowerServesFrameWhileStreaming(t *testing.T) {
	r := &lineThenBlock{
		r:    strings.NewReader(Format(sampleFrame) + "\n"),
		read: make(chan struct{}),
		stop: make(chan struct{}),
	}
	f := NewFollower()
	done := make(chan error, 1)
	go func() { done <- f.Run(r) }()

	<-r.read
	require.Eventually(t, func() bool {
		_, err := f.ReadRawFrame()
		return err == nil
	}, time.Second, time.Millisecond)
	got, err := f.ReadRawFrame()
	require.NoError(t, err)
	assert.Equal(t, sampleFrame, got)

	close(r.stop)
	assert.ErrorIs(t, <-done, io.ErrClosedPipe)
}

func TestCapture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	c := NewCapture(dir)

	require.NoError(t, c.Write(sampleFrame), "writes while disarmed are ignored")
	assert.False(t, c.Armed())

	require.NoError(t, c.Arm())
	assert.True(t, c.Armed())
	first := c.Path()
	require.NoError(t, c.Arm())
	assert.Equal(t, first, c.Path(), "re-arming keeps the session")

	require.NoError(t, c.Write(sampleFrame))
	require.NoError(t, c.Write(sampleFrame))
	require.NoError(t, c.Disarm())
	require.NoError(t, c.Disarm())
	assert.Equal(t, 2, c.Lines())

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat(Format(sampleFrame)+"\n", 2), string(data))
	assert.True(t, strings.HasPrefix(filepath.Base(first), "capture-"))

	require.NoError(t, c.Arm())
	assert.NotEqual(t, first, c.Path())
	require.NoError(t, c.Disarm())
}
