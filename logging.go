package gamepad

import (
	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	return func(next Service) Service {
		log := log.With(
			zap.String("service", "gamepad"),
		)

		log.Info("service built")

		return &loggingMiddleware{log, next}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

// The read operations run once per frame on the caller's hot path, so they
// pass through unlogged.

func (mw *loggingMiddleware) Connected() bool {
	return mw.next.Connected()
}

func (mw *loggingMiddleware) Gamepads() map[int]Device {
	return mw.next.Gamepads()
}

func (mw *loggingMiddleware) ButtonPressed(button int) bool {
	return mw.next.ButtonPressed(button)
}

func (mw *loggingMiddleware) GamepadButtonPressed(slot, button int) bool {
	return mw.next.GamepadButtonPressed(slot, button)
}

func (mw *loggingMiddleware) AxisValue(axis int) float64 {
	return mw.next.AxisValue(axis)
}

func (mw *loggingMiddleware) GamepadAxisValue(slot, axis int) float64 {
	return mw.next.GamepadAxisValue(slot, axis)
}

func (mw *loggingMiddleware) Updates() <-chan Update {
	return mw.next.Updates()
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	if err := mw.next.Close(); err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("session closed")
	return nil
}
