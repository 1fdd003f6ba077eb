package gamepad

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeHost struct {
	pads []*Snapshot
	err  error
	subs []chan<- Event
	mu   sync.Mutex
}

func (h *fakeHost) Gamepads() ([]*Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return nil, h.err
	}

	pads := make([]*Snapshot, len(h.pads))
	copy(pads, h.pads)
	return pads, nil
}

func (h *fakeHost) Subscribe(ch chan<- Event) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subs = append(h.subs, ch)
	return func() {}, nil
}

func (h *fakeHost) setPads(pads ...*Snapshot) {
	h.mu.Lock()
	h.pads = pads
	h.mu.Unlock()
}

func (h *fakeHost) emit(e Event) {
	h.mu.Lock()
	subs := make([]chan<- Event, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, ch := range subs {
		ch <- e
	}
}

func (h *fakeHost) attach(pad *Snapshot) {
	h.mu.Lock()
	for len(h.pads) <= pad.Index {
		h.pads = append(h.pads, nil)
	}
	h.pads[pad.Index] = pad
	h.mu.Unlock()

	h.emit(Event{Type: Attached, Device: pad.Device})
}

func (h *fakeHost) detach(slot int) {
	h.mu.Lock()
	var d Device
	if slot < len(h.pads) && h.pads[slot] != nil {
		d = h.pads[slot].Device
		h.pads[slot] = nil
	} else {
		d = Device{Index: slot}
	}
	h.mu.Unlock()

	h.emit(Event{Type: Detached, Device: d})
}

func testConfig() *Config {
	return &Config{
		Deadzone:     0.1,
		PollInterval: time.Millisecond,
	}
}

func TestNoDevices(t *testing.T) {
	assert := assert.New(t)

	svc, err := NewService(testConfig(), &fakeHost{})
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer svc.Close()

	assert.False(svc.Connected())
	assert.False(svc.ButtonPressed(0))
	assert.Equal(0.0, svc.AxisValue(0))
	assert.Empty(svc.Gamepads())
}

func TestHostWithoutQuery(t *testing.T) {
	assert := assert.New(t)

	svc, err := NewService(testConfig(), &fakeHost{err: ErrNotSupported})
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer svc.Close()

	// an absent query capability degrades to an empty device list
	time.Sleep(10 * time.Millisecond)
	assert.False(svc.Connected())
	assert.Equal(0.0, svc.AxisValue(0))
}

func TestPreConnectedDevice(t *testing.T) {
	assert := assert.New(t)

	host := &fakeHost{}
	host.setPads(&Snapshot{
		Device: Device{Index: 0, ID: "pad-0"},
	})

	svc, err := NewService(testConfig(), host)
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer svc.Close()

	// the initial scan is synchronous, no attach event needed
	assert.True(svc.Connected())
	assert.Len(svc.Gamepads(), 1)
	assert.Equal("pad-0", svc.Gamepads()[0].ID)
}

func TestDeadzone(t *testing.T) {
	assert := assert.New(t)

	host := &fakeHost{}
	svc, err := NewService(testConfig(), host)
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer svc.Close()

	host.attach(&Snapshot{Device: Device{Index: 0, ID: "pad-0"}})

	host.setPads(&Snapshot{
		Device:    Device{Index: 0, ID: "pad-0"},
		Timestamp: 1,
		Axes:      []float64{0.05},
	})

	assert.Eventually(func() bool {
		return svc.GamepadAxisValue(0, 0) == 0 && len(svc.Gamepads()) == 1
	}, time.Second, time.Millisecond)

	// below the deadzone reads as exactly zero
	assert.Equal(0.0, svc.AxisValue(0))

	host.setPads(&Snapshot{
		Device:    Device{Index: 0, ID: "pad-0"},
		Timestamp: 2,
		Axes:      []float64{0.23456},
	})

	assert.Eventually(func() bool {
		return svc.AxisValue(0) == 0.2346
	}, time.Second, time.Millisecond)
}

func TestFirstMatchWins(t *testing.T) {
	assert := assert.New(t)

	host := &fakeHost{}
	svc, err := NewService(testConfig(), host)
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer svc.Close()

	host.attach(&Snapshot{Device: Device{Index: 0, ID: "pad-0"}})
	host.attach(&Snapshot{Device: Device{Index: 1, ID: "pad-1"}})

	host.setPads(
		&Snapshot{
			Device:    Device{Index: 0, ID: "pad-0"},
			Timestamp: 1,
			Axes:      []float64{0.5},
		},
		&Snapshot{
			Device:    Device{Index: 1, ID: "pad-1"},
			Timestamp: 1,
			Axes:      []float64{0.75},
		},
	)

	assert.Eventually(func() bool {
		return svc.GamepadAxisValue(1, 0) == 0.75
	}, time.Second, time.Millisecond)

	// the lowest slot wins, not the last writer and not a sum
	assert.Equal(0.5, svc.AxisValue(0))
}

func TestAttachDetachRoundTrip(t *testing.T) {
	assert := assert.New(t)

	host := &fakeHost{}
	svc, err := NewService(testConfig(), host)
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer svc.Close()

	host.attach(&Snapshot{Device: Device{Index: 2, ID: "pad-2"}})

	assert.Eventually(func() bool {
		return svc.Connected()
	}, time.Second, time.Millisecond)

	host.setPads(nil, nil, &Snapshot{
		Device:    Device{Index: 2, ID: "pad-2"},
		Timestamp: 1,
		Buttons:   []Button{{Pressed: true, Value: 1.0}},
	})

	assert.Eventually(func() bool {
		return svc.GamepadButtonPressed(2, 0)
	}, time.Second, time.Millisecond)

	assert.True(svc.ButtonPressed(0))

	host.detach(2)

	assert.Eventually(func() bool {
		return !svc.Connected()
	}, time.Second, time.Millisecond)

	assert.False(svc.GamepadButtonPressed(2, 0))
	assert.False(svc.ButtonPressed(0))
	assert.Equal(0.0, svc.GamepadAxisValue(2, 0))
	assert.Empty(svc.Gamepads())
}

func TestUnchangedTimestampSkipsPublish(t *testing.T) {
	assert := assert.New(t)

	host := &fakeHost{}
	svc, err := NewService(testConfig(), host)
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer svc.Close()

	host.attach(&Snapshot{Device: Device{Index: 0, ID: "pad-0"}})

	host.setPads(&Snapshot{
		Device:    Device{Index: 0, ID: "pad-0"},
		Timestamp: 7,
		Buttons:   []Button{{Pressed: true, Value: 1.0}},
		Axes:      []float64{0.5},
	})

	assert.Eventually(func() bool {
		return svc.GamepadButtonPressed(0, 0)
	}, time.Second, time.Millisecond)

	// let any in-flight publish land, then drain updates published so far
	time.Sleep(10 * time.Millisecond)
	for {
		select {
		case <-svc.Updates():
			continue
		default:
		}
		break
	}

	// the timestamp has not moved, so many polls later nothing new has
	// been published
	select {
	case update := <-svc.Updates():
		assert.Fail("unexpected publish", "%+v", update)
	case <-time.After(50 * time.Millisecond):
	}

	assert.True(svc.GamepadButtonPressed(0, 0))
	assert.Equal(0.5, svc.AxisValue(0))
}

func TestUpdates(t *testing.T) {
	assert := assert.New(t)

	host := &fakeHost{}
	svc, err := NewService(testConfig(), host)
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer svc.Close()

	host.attach(&Snapshot{Device: Device{Index: 0, ID: "pad-0"}})

	var update Update
	select {
	case update = <-svc.Updates():
	case <-time.After(time.Second):
		assert.Fail("no update published")
		return
	}

	assert.True(update.Connected)
	assert.Equal("pad-0", update.Gamepads[0].ID)

	// published maps are fresh copies, mutating one must not leak back
	update.Gamepads[0] = Device{Index: 0, ID: "tampered"}
	assert.Equal("pad-0", svc.Gamepads()[0].ID)
}

func TestCloseIdempotent(t *testing.T) {
	assert := assert.New(t)

	svc, err := NewService(testConfig(), &fakeHost{})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.NoError(svc.Close())
	assert.NoError(svc.Close())
}
