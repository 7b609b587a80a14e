// Package devices tracks the playback devices the remote service
// reports for the account and mediates handoff between them.
package devices

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"playdeck/internal/core"
)

// Lister is the slice of the Web API the registry needs.
type Lister interface {
	Devices(ctx context.Context) ([]core.Device, error)
	TransferPlayback(ctx context.Context, deviceID string, play bool) error
}

// Registry holds the last fetched device list and the current
// selection. Selection falls back to the first available device when
// the selected one disappears from a refresh.
type Registry struct {
	client Lister
	logger *zap.Logger

	mu       sync.RWMutex
	devices  []core.Device
	selected string
}

func NewRegistry(client Lister, logger *zap.Logger) *Registry {
	return &Registry{
		client: client,
		logger: logger,
	}
}

// Refresh fetches the device list and reconciles the selection: a
// vanished device falls back to the first entry, or to no selection
// when the list is empty.
func (r *Registry) Refresh(ctx context.Context) error {
	devices, err := r.client.Devices(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh devices: %w", err)
	}

	r.mu.Lock()
	r.devices = devices

	previous := r.selected
	if !containsDevice(devices, r.selected) {
		if len(devices) > 0 {
			r.selected = devices[0].ID
		} else {
			r.selected = ""
		}
	}
	selected := r.selected
	r.mu.Unlock()

	if selected != previous {
		r.logger.Info("Device selection changed",
			zap.String("previous", previous),
			zap.String("selected", selected),
			zap.Int("available", len(devices)))
	}
	return nil
}

// Select transfers playback to the target device without forcing
// playback to start, then records the selection.
func (r *Registry) Select(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return core.NewCommandError("select_device", core.ErrValidation,
			fmt.Errorf("device id is empty"))
	}

	if err := r.client.TransferPlayback(ctx, deviceID, false); err != nil {
		return fmt.Errorf("failed to transfer playback: %w", err)
	}

	r.mu.Lock()
	r.selected = deviceID
	r.mu.Unlock()

	r.logger.Info("Playback transferred", zap.String("deviceID", deviceID))
	return nil
}

// Selected returns the currently selected device id, or empty.
func (r *Registry) Selected() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

// Devices returns a copy of the last fetched device list.
func (r *Registry) Devices() []core.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]core.Device(nil), r.devices...)
}

// MarkReady records a device the local player registered itself as,
// even before the next remote refresh reports it.
func (r *Registry) MarkReady(deviceID, name string) {
	if name == "" {
		name = "local player"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == "" {
		r.selected = deviceID
	}
	if !containsDevice(r.devices, deviceID) {
		r.devices = append(r.devices, core.Device{ID: deviceID, Name: name})
	}
}

func containsDevice(devices []core.Device, id string) bool {
	if id == "" {
		return false
	}
	for _, d := range devices {
		if d.ID == id {
			return true
		}
	}
	return false
}
