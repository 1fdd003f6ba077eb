// Package sdlhost backs a gamepad session with the SDL game controller API.
package sdlhost

import (
	"context"
	"runtime"
	"sync"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/flarexio/gamepad"
)

// SDL reports controller state through an event pump rather than a
// last-updated field, so the host keeps a version counter per controller and
// bumps it on every button or axis event.

const pumpDelayMS = 4

type controller struct {
	pad  *sdl.GameController
	slot int
	name string
}

type Host struct {
	log         *zap.Logger
	controllers map[sdl.JoystickID]*controller
	stamps      map[sdl.JoystickID]uint64
	subs        []chan<- gamepad.Event
	mu          sync.Mutex
}

func New() *Host {
	return &Host{
		log: zap.L().With(
			zap.String("host", "sdl"),
		),
		controllers: make(map[sdl.JoystickID]*controller),
		stamps:      make(map[sdl.JoystickID]uint64),
	}
}

// Run initializes the SDL game controller subsystem and pumps events until
// the context is cancelled. SDL wants its event loop on one OS thread.
func (h *Host) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := sdl.Init(sdl.INIT_GAMECONTROLLER); err != nil {
		return err
	}
	defer sdl.Quit()

	h.log.Info("game controller subsystem initialized")

	// controllers attached before init
	for i := 0; i < sdl.NumJoysticks(); i++ {
		if sdl.IsGameController(i) {
			h.open(i)
		}
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		default:
		}

		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			h.handle(event)
		}

		sdl.Delay(pumpDelayMS)
	}
}

func (h *Host) handle(event sdl.Event) {
	switch ev := event.(type) {
	case *sdl.ControllerDeviceEvent:
		switch ev.Type {
		case sdl.CONTROLLERDEVICEADDED:
			// Which is a device index here, not an instance ID
			h.open(int(ev.Which))
		case sdl.CONTROLLERDEVICEREMOVED:
			h.close(ev.Which)
		}

	case *sdl.ControllerButtonEvent:
		h.touch(ev.Which)

	case *sdl.ControllerAxisEvent:
		h.touch(ev.Which)
	}
}

func (h *Host) open(index int) {
	pad := sdl.GameControllerOpen(index)
	if pad == nil {
		h.log.Warn("failed to open controller",
			zap.Int("index", index),
			zap.Error(sdl.GetError()))
		return
	}

	id := pad.Joystick().InstanceID()

	h.mu.Lock()
	if _, ok := h.controllers[id]; ok {
		h.mu.Unlock()
		pad.Close()
		return
	}

	ctrl := &controller{
		pad:  pad,
		slot: h.freeSlot(),
		name: pad.Name(),
	}

	h.controllers[id] = ctrl
	h.stamps[id] = 0
	h.mu.Unlock()

	h.log.Info("controller attached",
		zap.Int("slot", ctrl.slot),
		zap.String("name", ctrl.name))

	h.emit(gamepad.Event{
		Type: gamepad.Attached,
		Device: gamepad.Device{
			Index: ctrl.slot,
			ID:    ctrl.name,
		},
	})
}

func (h *Host) close(id sdl.JoystickID) {
	h.mu.Lock()
	ctrl, ok := h.controllers[id]
	if !ok {
		h.mu.Unlock()
		return
	}

	ctrl.pad.Close()
	delete(h.controllers, id)
	delete(h.stamps, id)
	h.mu.Unlock()

	h.log.Info("controller detached",
		zap.Int("slot", ctrl.slot),
		zap.String("name", ctrl.name))

	h.emit(gamepad.Event{
		Type: gamepad.Detached,
		Device: gamepad.Device{
			Index: ctrl.slot,
			ID:    ctrl.name,
		},
	})
}

func (h *Host) closeAll() {
	h.mu.Lock()
	for id, ctrl := range h.controllers {
		ctrl.pad.Close()
		delete(h.controllers, id)
		delete(h.stamps, id)
	}
	h.mu.Unlock()
}

func (h *Host) touch(id sdl.JoystickID) {
	h.mu.Lock()
	if _, ok := h.controllers[id]; ok {
		h.stamps[id]++
	}
	h.mu.Unlock()
}

// freeSlot returns the lowest slot index not held by an open controller.
// Slots are reused after a disconnect. Caller holds the mutex.
func (h *Host) freeSlot() int {
	for slot := 0; ; slot++ {
		taken := false
		for _, ctrl := range h.controllers {
			if ctrl.slot == slot {
				taken = true
				break
			}
		}
		if !taken {
			return slot
		}
	}
}

func (h *Host) emit(e gamepad.Event) {
	h.mu.Lock()
	subs := make([]chan<- gamepad.Event, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			h.log.Warn("dropped event",
				zap.String("type", e.Type.String()),
				zap.Int("slot", e.Device.Index))
		}
	}
}

func (h *Host) Gamepads() ([]*gamepad.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := 0
	for _, ctrl := range h.controllers {
		if ctrl.slot >= size {
			size = ctrl.slot + 1
		}
	}

	pads := make([]*gamepad.Snapshot, size)
	for id, ctrl := range h.controllers {
		if !ctrl.pad.Attached() {
			continue
		}

		buttons := make([]gamepad.Button, sdl.CONTROLLER_BUTTON_MAX)
		for b := range buttons {
			pressed := ctrl.pad.Button(sdl.GameControllerButton(b)) == sdl.PRESSED

			value := 0.0
			if pressed {
				value = 1.0
			}

			buttons[b] = gamepad.Button{
				Pressed: pressed,
				Value:   value,
				Touched: pressed,
			}
		}

		axes := make([]float64, sdl.CONTROLLER_AXIS_MAX)
		for a := range axes {
			v := float64(ctrl.pad.Axis(sdl.GameControllerAxis(a))) / 32767.0
			if v < -1.0 {
				v = -1.0
			}
			axes[a] = v
		}

		pads[ctrl.slot] = &gamepad.Snapshot{
			Device: gamepad.Device{
				Index: ctrl.slot,
				ID:    ctrl.name,
			},
			Timestamp: h.stamps[id],
			Buttons:   buttons,
			Axes:      axes,
		}
	}

	return pads, nil
}

func (h *Host) Subscribe(ch chan<- gamepad.Event) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subs = append(h.subs, ch)

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		for i, sub := range h.subs {
			if sub == ch {
				h.subs = append(h.subs[:i], h.subs[i+1:]...)
				break
			}
		}
	}

	return unsubscribe, nil
}
