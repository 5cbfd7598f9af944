package dbus

import (
	"encoding/json"
	"fmt"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/cptspacemanspiff/shamu-power/internal/collector"
	"github.com/cptspacemanspiff/shamu-power/internal/config"
	"github.com/cptspacemanspiff/shamu-power/internal/power"
	"github.com/cptspacemanspiff/shamu-power/internal/storage"
)

// Client calls a running power HAL daemon.
type Client struct {
	conn *godbus.Conn
	obj  godbus.BusObject
}

// Dial connects to the daemon on the system or session bus.
func Dial(bus string) (*Client, error) {
	conn, err := connect(bus)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// connect opens a shared connection to the named bus.
func connect(bus string) (*godbus.Conn, error) {
	var (
		conn *godbus.Conn
		err  error
	)
	if bus == config.BusSession {
		conn, err = godbus.SessionBus()
	} else {
		conn, err = godbus.SystemBus()
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s bus: %w", bus, err)
	}
	return conn, nil
}

// NewClient wraps an existing bus connection.
func NewClient(conn *godbus.Conn) *Client {
	return &Client{conn: conn, obj: conn.Object(BusName, ObjPath)}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(method string, args ...any) *godbus.Call {
	return c.obj.Call(IfaceName+"."+method, 0, args...)
}

func (c *Client) callJSON(v any, method string, args ...any) error {
	var jsonStr string
	if err := c.call(method, args...).Store(&jsonStr); err != nil {
		return err
	}
	return json.Unmarshal([]byte(jsonStr), v)
}

func (c *Client) PowerHint(h power.Hint, data string) error {
	return c.call("PowerHint", int32(h), data).Err
}

func (c *Client) SetInteractive(on bool) error {
	return c.call("SetInteractive", on).Err
}

func (c *Client) SetProfile(p power.Profile) error {
	return c.call("SetProfile", int32(p)).Err
}

func (c *Client) Profile() (power.Profile, error) {
	var p int32
	err := c.call("GetProfile").Store(&p)
	return power.Profile(p), err
}

func (c *Client) SetFeature(f power.Feature, enabled bool) error {
	return c.call("SetFeature", int32(f), enabled).Err
}

func (c *Client) Feature(f power.Feature) (int32, error) {
	var v int32
	err := c.call("GetFeature", int32(f)).Store(&v)
	return v, err
}

func (c *Client) WakeGesture() (string, error) {
	var mode string
	err := c.call("GetWakeGesture").Store(&mode)
	return mode, err
}

func (c *Client) ModuleInfo() (*power.ModuleInfo, error) {
	var info power.ModuleInfo
	if err := c.callJSON(&info, "GetModuleInfo"); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) PlatformLowPowerStats() ([]collector.SleepState, error) {
	var states []collector.SleepState
	if err := c.callJSON(&states, "GetPlatformLowPowerStats"); err != nil {
		return nil, err
	}
	return states, nil
}

func (c *Client) StatsHistory(from, to time.Time) ([]collector.PlatformSnapshot, error) {
	var snaps []collector.PlatformSnapshot
	if err := c.callJSON(&snaps, "GetStatsHistory", from.Unix(), to.Unix()); err != nil {
		return nil, err
	}
	return snaps, nil
}

func (c *Client) HintHistory(from, to time.Time) ([]storage.HintEvent, error) {
	var events []storage.HintEvent
	if err := c.callJSON(&events, "GetHintHistory", from.Unix(), to.Unix()); err != nil {
		return nil, err
	}
	return events, nil
}
