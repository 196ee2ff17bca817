package models

import "time"

type ColorMode int

const (
	// no colour command received yet, reported as xy like the real bridge default
	ColorModeNone ColorMode = iota
	ColorModeHueSaturation
	ColorModeColorTemperature
	// xy coordinates are accepted as a mode flag only
	ColorModeXY
)

// Label is the value reported in the colormode field of a light.
func (m ColorMode) Label() string {
	switch m {
	case ColorModeHueSaturation:
		return "hs"
	case ColorModeColorTemperature:
		return "ct"
	}
	return "xy"
}

// LightState is the controllable part of a light. Field widths follow the
// Hue v1 api: bri and sat are single bytes, hue and ct fit in 16 bits.
type LightState struct {
	On               bool
	Brightness       uint8
	Hue              uint16
	Saturation       uint8
	ColorTemperature uint16
	ColorMode        ColorMode
}

// Device is one emulated light. Index is zero based, the api exposes Index+1.
type Device struct {
	Index    int
	Name     string
	UniqueID string
	State    LightState
}

// Descriptor is the externally visible shape of a device, read fresh on every request.
type Descriptor struct {
	Name             string
	UniqueID         string
	On               bool
	Brightness       uint8
	Hue              uint16
	Saturation       uint8
	ColorTemperature uint16
	ColorMode        string
}

// StateChange is what leaves the bridge after every successful mutation.
type StateChange struct {
	Index    int
	Name     string
	UniqueID string
	State    LightState
	Time     time.Time
}

// LightNumber is the 1 based id used on the wire.
func (c StateChange) LightNumber() int {
	return c.Index + 1
}

// LightEvent is the json form of a state change on the live feed.
type LightEvent struct {
	Light     int       `json:"light"`
	Name      string    `json:"name"`
	UniqueID  string    `json:"uniqueid"`
	On        bool      `json:"on"`
	Bri       uint8     `json:"bri"`
	Hue       uint16    `json:"hue"`
	Sat       uint8     `json:"sat"`
	CT        uint16    `json:"ct"`
	ColorMode string    `json:"colormode"`
	Time      time.Time `json:"time"`
}

func (c StateChange) Event() LightEvent {
	return LightEvent{
		Light:     c.LightNumber(),
		Name:      c.Name,
		UniqueID:  c.UniqueID,
		On:        c.State.On,
		Bri:       c.State.Brightness,
		Hue:       c.State.Hue,
		Sat:       c.State.Saturation,
		CT:        c.State.ColorTemperature,
		ColorMode: c.State.ColorMode.Label(),
		Time:      c.Time,
	}
}
