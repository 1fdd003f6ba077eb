package gamepad

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Service interface {
	Connected() bool
	Gamepads() map[int]Device

	ButtonPressed(button int) bool
	GamepadButtonPressed(slot, button int) bool
	AxisValue(axis int) float64
	GamepadAxisValue(slot, axis int) float64

	Updates() <-chan Update
	Close() error
}

type ServiceMiddleware func(next Service) Service

// NewService starts a polling session against the host. It subscribes to
// attach/detach notifications, scans for devices the host already reports as
// connected, and begins polling at the configured interval.
func NewService(cfg *Config, host Host) (Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)

	svc := &service{
		log: zap.L().With(
			zap.String("service", "gamepad"),
		),
		cfg:      cfg,
		host:     host,
		gamepads: make(map[int]Device),
		buttons:  make(map[int]map[int]Button),
		axes:     make(map[int]map[int]float64),
		stamps:   make(map[int]uint64),
		events:   make(chan Event, 16),
		updates:  make(chan Update, 64),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	unsubscribe, err := host.Subscribe(svc.events)
	if err != nil {
		cancel()
		return nil, err
	}

	svc.unsubscribe = unsubscribe

	// The host may already report devices connected before the
	// subscription existed, e.g. a button pressed before session start.
	svc.scan()

	go svc.run(ctx)

	return svc, nil
}

type service struct {
	log  *zap.Logger
	cfg  *Config
	host Host

	connected bool
	gamepads  map[int]Device
	buttons   map[int]map[int]Button
	axes      map[int]map[int]float64
	stamps    map[int]uint64

	events      chan Event
	updates     chan Update
	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
	closeOnce   sync.Once
	sync.RWMutex
}

func (svc *service) run(ctx context.Context) {
	defer close(svc.done)

	ticker := time.NewTicker(svc.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case e := <-svc.events:
			switch e.Type {
			case Attached:
				svc.attached(e.Device)
			case Detached:
				svc.detached(e.Device)
			}

		case <-ticker.C:
			svc.poll()
		}
	}
}

func (svc *service) scan() {
	pads, err := svc.host.Gamepads()
	if err != nil {
		return
	}

	found := false

	svc.Lock()
	for _, pad := range pads {
		if pad == nil {
			continue
		}

		svc.gamepads[pad.Index] = pad.Device
		svc.stamps[pad.Index] = 0
		svc.connected = true
		found = true
	}
	svc.Unlock()

	if found {
		svc.publish()
	}
}

func (svc *service) attached(d Device) {
	svc.log.Info("gamepad connected",
		zap.Int("slot", d.Index),
		zap.String("id", d.ID))

	svc.Lock()
	svc.gamepads[d.Index] = d
	svc.stamps[d.Index] = 0 // force the next poll to treat the device as changed
	svc.connected = true
	svc.Unlock()

	svc.publish()
}

func (svc *service) detached(d Device) {
	svc.log.Info("gamepad disconnected",
		zap.Int("slot", d.Index),
		zap.String("id", d.ID))

	svc.Lock()
	delete(svc.gamepads, d.Index)
	delete(svc.buttons, d.Index)
	delete(svc.axes, d.Index)
	delete(svc.stamps, d.Index)

	// The host list is authoritative; an entry remaining in the local
	// store is not proof a device is still attached.
	svc.connected = svc.anyAttached()
	svc.Unlock()

	svc.publish()
}

func (svc *service) anyAttached() bool {
	pads, err := svc.host.Gamepads()
	if err != nil {
		return false
	}

	for _, pad := range pads {
		if pad != nil {
			return true
		}
	}

	return false
}

func (svc *service) poll() {
	pads, err := svc.host.Gamepads()
	if err != nil {
		return
	}

	changed := false

	svc.Lock()
	for _, pad := range pads {
		if pad == nil {
			continue
		}

		// Timestamps are opaque monotonic counters, compared for
		// inequality only. Zero means the host has not reported input
		// for the device yet.
		if pad.Timestamp == 0 || pad.Timestamp == svc.stamps[pad.Index] {
			continue
		}

		if _, ok := svc.gamepads[pad.Index]; !ok {
			svc.gamepads[pad.Index] = pad.Device
			svc.connected = true
		}

		svc.stamps[pad.Index] = pad.Timestamp
		svc.buttons[pad.Index] = NormalizeButtons(pad.Buttons)
		svc.axes[pad.Index] = NormalizeAxes(pad.Axes, svc.cfg.Deadzone)
		changed = true
	}
	svc.Unlock()

	if changed {
		svc.publish()
	}
}

func (svc *service) publish() {
	svc.RLock()
	update := Update{
		Connected: svc.connected,
		Gamepads:  make(map[int]Device, len(svc.gamepads)),
		Buttons:   make(map[int]map[int]Button, len(svc.buttons)),
		Axes:      make(map[int]map[int]float64, len(svc.axes)),
	}

	for slot, d := range svc.gamepads {
		update.Gamepads[slot] = d
	}

	for slot, buttons := range svc.buttons {
		copied := make(map[int]Button, len(buttons))
		for i, b := range buttons {
			copied[i] = b
		}
		update.Buttons[slot] = copied
	}

	for slot, axes := range svc.axes {
		copied := make(map[int]float64, len(axes))
		for i, v := range axes {
			copied[i] = v
		}
		update.Axes[slot] = copied
	}
	svc.RUnlock()

	select {
	case svc.updates <- update:
	default:
		// drop rather than block the session loop on a slow consumer
	}
}

func (svc *service) Connected() bool {
	svc.RLock()
	defer svc.RUnlock()

	return svc.connected
}

func (svc *service) Gamepads() map[int]Device {
	svc.RLock()
	defer svc.RUnlock()

	gamepads := make(map[int]Device, len(svc.gamepads))
	for slot, d := range svc.gamepads {
		gamepads[slot] = d
	}

	return gamepads
}

func (svc *service) ButtonPressed(button int) bool {
	svc.RLock()
	defer svc.RUnlock()

	for _, buttons := range svc.buttons {
		if buttons[button].Pressed {
			return true
		}
	}

	return false
}

func (svc *service) GamepadButtonPressed(slot, button int) bool {
	svc.RLock()
	defer svc.RUnlock()

	return svc.buttons[slot][button].Pressed
}

func (svc *service) AxisValue(axis int) float64 {
	svc.RLock()
	defer svc.RUnlock()

	slots := make([]int, 0, len(svc.axes))
	for slot := range svc.axes {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	// first non-zero value wins, in ascending slot order
	for _, slot := range slots {
		if v := svc.axes[slot][axis]; v != 0 {
			return v
		}
	}

	return 0
}

func (svc *service) GamepadAxisValue(slot, axis int) float64 {
	svc.RLock()
	defer svc.RUnlock()

	return svc.axes[slot][axis]
}

func (svc *service) Updates() <-chan Update {
	return svc.updates
}

func (svc *service) Close() error {
	svc.closeOnce.Do(func() {
		if svc.unsubscribe != nil {
			svc.unsubscribe()
		}

		svc.cancel()
		<-svc.done
	})

	return nil
}
