package governor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listenGovernor(t *testing.T) (string, *net.UnixConn) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pb")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Fatalf("listen %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return path, conn
}

func readMessage(t *testing.T, conn *net.UnixConn) string {
	t.Helper()

	buf := make([]byte, 64)
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read datagram: %v", err)
	}
	return string(buf[:n])
}

func TestClient_SendBeforeInit(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "pb"), testLogger())

	if err := c.TouchBoost(); !errors.Is(err, ErrNoSocket) {
		t.Fatalf("TouchBoost() error = %v, want ErrNoSocket", err)
	}
	if c.Ready() {
		t.Fatal("Ready() = true before Init")
	}
}

func TestClient_HelpersSendOpcodes(t *testing.T) {
	path, conn := listenGovernor(t)

	c := NewClient(path, testLogger())
	c.pid = 4242
	c.Init()
	t.Cleanup(func() { c.Close() })
	if !c.Ready() {
		t.Fatal("Ready() = false after Init")
	}

	tests := []struct {
		name string
		send func() error
		want string
	}{
		{name: "touch boost", send: c.TouchBoost, want: "1:4242"},
		{name: "cores online", send: func() error { return c.CoresOnline(true) }, want: "8:4242"},
		{name: "cores released", send: func() error { return c.CoresOnline(false) }, want: "7:4242"},
		{name: "encoder boost", send: func() error { return c.EncoderBoost(true) }, want: "6:4242"},
		{name: "encoder boost released", send: func() error { return c.EncoderBoost(false) }, want: "5:4242"},
		{name: "low power on", send: func() error { return c.LowPower(true) }, want: "10:4242"},
		{name: "low power off", send: func() error { return c.LowPower(false) }, want: "9:4242"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.send(); err != nil {
				t.Fatalf("send error = %v", err)
			}
			if got := readMessage(t, conn); got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_DefaultPid(t *testing.T) {
	path, conn := listenGovernor(t)

	c := NewClient(path, testLogger())
	c.Init()
	t.Cleanup(func() { c.Close() })

	if err := c.Send(OpTouchBoost); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	want := fmt.Sprintf("1:%d", c.pid)
	if got := readMessage(t, conn); got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
}

func TestClient_OnSend(t *testing.T) {
	path, conn := listenGovernor(t)

	var sent []Opcode
	c := NewClient(path, testLogger())
	c.OnSend = func(op Opcode) { sent = append(sent, op) }
	c.Init()
	t.Cleanup(func() { c.Close() })

	if err := c.LowPower(true); err != nil {
		t.Fatalf("LowPower() error = %v", err)
	}
	readMessage(t, conn)

	if len(sent) != 1 || sent[0] != OpLowPowerOn {
		t.Fatalf("OnSend calls = %v, want [%v]", sent, OpLowPowerOn)
	}
}

func TestClient_SendToMissingEndpoint(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing"), testLogger())
	c.Init()
	t.Cleanup(func() { c.Close() })

	if err := c.TouchBoost(); err == nil {
		t.Fatal("TouchBoost() error = nil, want send error")
	}
}

func TestClient_InitIsNotRetried(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "pb"), testLogger())
	c.state = socketFailed

	c.Init()
	if c.Ready() {
		t.Fatal("Ready() = true, want failed socket to stay failed")
	}
}

func TestClient_CloseTwice(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "pb"), testLogger())
	c.Init()

	if err := c.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestOpcodeString(t *testing.T) {
	if got := OpEncoderBoost.String(); got != "encoder_boost" {
		t.Fatalf("OpEncoderBoost.String() = %q, want encoder_boost", got)
	}
	if got := Opcode(3).String(); got != "opcode_3" {
		t.Fatalf("Opcode(3).String() = %q, want opcode_3", got)
	}
}
