// Package rawlog reads and writes the raw-log line format used by the
// data collection tools:
//
//	FLEX: f1 f2 f3 f4 f5 | ACC: ax ay az | GYRO: gx gy gz | GDP=v.vvv
//
// Counts and ticks are unconverted. GDP is the magnitude of the raw gyro
// ticks with three decimals; it is informational and ignored when parsing.
package rawlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/relabs-tech/sign_glove/internal/frame"
)

// ErrMalformed is wrapped by Parse for lines that are not raw-log lines.
var ErrMalformed = errors.New("rawlog: malformed line")

const lineFormat = "FLEX: %d %d %d %d %d | ACC: %d %d %d | GYRO: %d %d %d | GDP=%f"

// Format renders f as one raw-log line without a line terminator.
func Format(f frame.RawFrame) string {
	return string(AppendFormat(nil, f))
}

// AppendFormat appends Format(f) to dst.
func AppendFormat(dst []byte, f frame.RawFrame) []byte {
	return fmt.Appendf(dst, "FLEX: %d %d %d %d %d | ACC: %d %d %d | GYRO: %d %d %d | GDP=%.3f",
		f.Flex[0], f.Flex[1], f.Flex[2], f.Flex[3], f.Flex[4],
		f.Ax, f.Ay, f.Az,
		f.Gx, f.Gy, f.Gz,
		rawGDP(f),
	)
}

func rawGDP(f frame.RawFrame) float64 {
	x, y, z := float64(f.Gx), float64(f.Gy), float64(f.Gz)
	return math.Sqrt(x*x + y*y + z*z)
}

// Parse decodes one raw-log line.
func Parse(line string) (frame.RawFrame, error) {
	var (
		f   frame.RawFrame
		gdp float64
	)
	line = strings.TrimSpace(line)
	n, err := fmt.Sscanf(line, lineFormat,
		&f.Flex[0], &f.Flex[1], &f.Flex[2], &f.Flex[3], &f.Flex[4],
		&f.Ax, &f.Ay, &f.Az,
		&f.Gx, &f.Gy, &f.Gz,
		&gdp,
	)
	if err != nil {
		return frame.RawFrame{}, fmt.Errorf("%w: %q: %v", ErrMalformed, line, err)
	}
	if n != 12 {
		return frame.RawFrame{}, fmt.Errorf("%w: %q: %d fields", ErrMalformed, line, n)
	}
	return f, nil
}

// LineSource replays raw-log lines from r as frames, in order. Blank and
// malformed lines are skipped and counted. At the end of input it returns
// io.EOF.
type LineSource struct {
	sc      *bufio.Scanner
	skipped int
}

func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{sc: bufio.NewScanner(r)}
}

func (s *LineSource) ReadRawFrame() (frame.RawFrame, error) {
	for s.sc.Scan() {
		line := s.sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		f, err := Parse(line)
		if err != nil {
			s.skipped++
			continue
		}
		return f, nil
	}
	if err := s.sc.Err(); err != nil {
		return frame.RawFrame{}, fmt.Errorf("rawlog: read: %w", err)
	}
	return frame.RawFrame{}, io.EOF
}

// Skipped is the number of malformed lines seen so far.
func (s *LineSource) Skipped() int {
	return s.skipped
}
