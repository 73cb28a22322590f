package sensors

import (
	"fmt"
	"io"

	"github.com/jacobsa/go-serial/serial"
)

// OpenSerial opens a raw 8N1 serial port. Reads block until at least one
// byte is available.
func OpenSerial(port string, baud int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:        port,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}
	rwc, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s at %d baud: %w", port, baud, err)
	}
	return rwc, nil
}
