// Package governor sends boost and throttle requests to the mpdecision CPU
// governor over its local datagram socket.
package governor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// DefaultSocketPath is where mpdecision listens for power HAL requests.
const DefaultSocketPath = "/dev/socket/mpdecision/pb"

// Opcode identifies a governor action. Requests are sent as "<opcode>:<pid>".
type Opcode int

const (
	OpTouchBoost          Opcode = 1
	OpEncoderBoostRelease Opcode = 5
	OpEncoderBoost        Opcode = 6
	OpCoresRelease        Opcode = 7
	OpCoresAcquire        Opcode = 8
	OpLowPowerOff         Opcode = 9
	OpLowPowerOn          Opcode = 10
)

func (op Opcode) String() string {
	switch op {
	case OpTouchBoost:
		return "touch_boost"
	case OpEncoderBoostRelease:
		return "encoder_boost_release"
	case OpEncoderBoost:
		return "encoder_boost"
	case OpCoresRelease:
		return "cores_release"
	case OpCoresAcquire:
		return "cores_acquire"
	case OpLowPowerOff:
		return "low_power_off"
	case OpLowPowerOn:
		return "low_power_on"
	}
	return "opcode_" + strconv.Itoa(int(op))
}

// ErrNoSocket is returned by Send when the socket could not be created.
var ErrNoSocket = errors.New("boost socket not created")

type socketState int

const (
	socketUnopened socketState = iota
	socketOpen
	socketFailed
)

// Client is a datagram client for the governor socket. The socket is created
// on first use; if creation fails it is not retried.
type Client struct {
	path  string
	pid   int
	fd    int
	state socketState
	log   *slog.Logger

	// OnSend, if set, is called after every successful send.
	OnSend func(Opcode)
}

// NewClient creates a client for the governor socket at path. Requests carry
// the calling process id.
func NewClient(path string, logger *slog.Logger) *Client {
	return &Client{path: path, pid: os.Getpid(), fd: -1, log: logger}
}

// Init creates the socket if it has not been attempted yet.
func (c *Client) Init() {
	if c.state != socketUnopened {
		return
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		c.state = socketFailed
		c.log.Error("failed to open boost socket", "path", c.path, "err", err)
		return
	}
	c.fd = fd
	c.state = socketOpen
}

// Ready reports whether the socket was created.
func (c *Client) Ready() bool {
	return c.state == socketOpen
}

// Send sends op to the governor. Nothing is read back.
func (c *Client) Send(op Opcode) error {
	if c.state != socketOpen {
		c.log.Error("boost socket not created", "op", op)
		return ErrNoSocket
	}

	msg := fmt.Sprintf("%d:%d", op, c.pid)
	if err := unix.Sendto(c.fd, []byte(msg), 0, &unix.SockaddrUnix{Name: c.path}); err != nil {
		c.log.Error("failed to send", "op", op, "path", c.path, "err", err)
		return fmt.Errorf("send %s: %w", op, err)
	}
	c.log.Debug("sent", "op", op, "msg", msg)
	if c.OnSend != nil {
		c.OnSend(op)
	}
	return nil
}

// TouchBoost requests a short frequency boost for user interaction.
func (c *Client) TouchBoost() error {
	return c.Send(OpTouchBoost)
}

// CoresOnline asks the governor to hold cores online when on is true and
// releases that request when on is false.
func (c *Client) CoresOnline(on bool) error {
	if on {
		return c.Send(OpCoresAcquire)
	}
	return c.Send(OpCoresRelease)
}

// EncoderBoost boosts for video encoding when on is true and releases the
// boost when on is false.
func (c *Client) EncoderBoost(on bool) error {
	if on {
		return c.Send(OpEncoderBoost)
	}
	return c.Send(OpEncoderBoostRelease)
}

// LowPower switches the governor's low power mode.
func (c *Client) LowPower(on bool) error {
	if on {
		return c.Send(OpLowPowerOn)
	}
	return c.Send(OpLowPowerOff)
}

// Close releases the socket.
func (c *Client) Close() error {
	if c.state != socketOpen {
		return nil
	}
	c.state = socketFailed
	return unix.Close(c.fd)
}
