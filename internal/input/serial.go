package input

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tarm/serial"
)

const serialAck = "ok"

// SerialInjector sends pointer commands to a microcontroller acting as a USB HID
// device. Each command is one line and the device answers every line with "ok".
type SerialInjector struct {
	mu     sync.Mutex
	port   io.ReadWriter
	reader *bufio.Reader
	closer io.Closer
}

// OpenSerialInjector opens the serial port of the HID bridge
func OpenSerialInjector(name string, baud int) (*SerialInjector, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:     name,
		Baud:     baud,
		Parity:   serial.ParityNone,
		StopBits: serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	inj := NewSerialInjector(port)
	inj.closer = port
	return inj, nil
}

// NewSerialInjector speaks the line protocol over an already open stream
func NewSerialInjector(port io.ReadWriter) *SerialInjector {
	return &SerialInjector{port: port, reader: bufio.NewReader(port)}
}

func (s *SerialInjector) MoveTo(x, y int) error {
	return s.send(fmt.Sprintf("move:%d,%d", x, y))
}

func (s *SerialInjector) Click(button Button) error {
	return s.send("click:" + string(button))
}

// Scroll sends whole notches; HID wheel reports carry a notch count
func (s *SerialInjector) Scroll(amount int) error {
	return s.send(fmt.Sprintf("scroll:%d", WheelNotches(amount)))
}

// Close releases the port if this injector opened it
func (s *SerialInjector) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *SerialInjector) send(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.port, command+"\n"); err != nil {
		return fmt.Errorf("write %q: %w", command, err)
	}

	line, err := s.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("waiting for ack of %q: %w", command, err)
	}
	if reply := strings.TrimSpace(line); reply != serialAck {
		return fmt.Errorf("unexpected response to %q: %q", command, reply)
	}
	return nil
}
