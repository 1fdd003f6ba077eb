package gamepad

import (
	"errors"
	"math"
)

// ErrNotSupported is returned by a Host whose platform cannot enumerate
// gamepads at all. The session treats it as an empty device list.
var ErrNotSupported = errors.New("gamepad query not supported")

// Device identifies one attached controller. The slot index is stable while
// the device stays connected and may be reused by the host after a disconnect.
type Device struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
}

// Button is the state of a single button as reported by the host.
type Button struct {
	Pressed bool    `json:"pressed"`
	Value   float64 `json:"value"`
	Touched bool    `json:"touched"`
}

// Snapshot is the full state of one device slot at one instant.
type Snapshot struct {
	Device
	Timestamp uint64
	Buttons   []Button
	Axes      []float64
}

type EventType int

const (
	Attached EventType = iota
	Detached
)

func (t EventType) String() string {
	switch t {
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// Event is a host attach/detach notification.
type Event struct {
	Type   EventType
	Device Device
}

// Host is the platform collaborator the session polls. Gamepads returns the
// current state of every device slot, with nil entries for absent slots, or
// ErrNotSupported when the platform lacks the query capability. Subscribe
// registers a channel for attach/detach events and returns an unsubscribe
// function.
type Host interface {
	Gamepads() ([]*Snapshot, error)
	Subscribe(ch chan<- Event) (func(), error)
}

// Update is one published view of the session state. Every map is freshly
// allocated per publish, so consumers may retain it across reads.
type Update struct {
	Connected bool                    `json:"connected"`
	Gamepads  map[int]Device          `json:"gamepads"`
	Buttons   map[int]map[int]Button  `json:"buttons"`
	Axes      map[int]map[int]float64 `json:"axes"`
}

// NormalizeButtons copies the raw button list into a map keyed by button
// index. No deadzone applies to buttons.
func NormalizeButtons(raw []Button) map[int]Button {
	buttons := make(map[int]Button, len(raw))
	for i, b := range raw {
		buttons[i] = b
	}
	return buttons
}

// NormalizeAxes copies the raw axis list into a map keyed by axis index.
// Values whose magnitude does not exceed the deadzone are stored as exactly
// zero; the rest are rounded to 4 decimal places. The boundary is strict: a
// value equal to the deadzone is zeroed.
func NormalizeAxes(raw []float64, deadzone float64) map[int]float64 {
	axes := make(map[int]float64, len(raw))
	for i, v := range raw {
		if math.Abs(v) > deadzone {
			axes[i] = math.Round(v*10000) / 10000
		} else {
			axes[i] = 0
		}
	}
	return axes
}
