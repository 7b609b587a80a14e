package devices

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"playdeck/internal/core"
)

type fakeLister struct {
	devices      []core.Device
	devicesErr   error
	transferred  []string
	transferPlay []bool
	transferErr  error
}

func (f *fakeLister) Devices(_ context.Context) ([]core.Device, error) {
	return f.devices, f.devicesErr
}

func (f *fakeLister) TransferPlayback(_ context.Context, deviceID string, play bool) error {
	if f.transferErr != nil {
		return f.transferErr
	}
	f.transferred = append(f.transferred, deviceID)
	f.transferPlay = append(f.transferPlay, play)
	return nil
}

func TestRefreshKeepsExistingSelection(t *testing.T) {
	client := &fakeLister{devices: []core.Device{{ID: "a"}, {ID: "b"}}}
	r := NewRegistry(client, zap.NewNop())

	if err := r.Select(context.Background(), "b"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := r.Selected(); got != "b" {
		t.Errorf("selection = %q, want %q", got, "b")
	}
}

func TestRefreshFallsBackToFirstDevice(t *testing.T) {
	client := &fakeLister{devices: []core.Device{{ID: "a"}, {ID: "b"}}}
	r := NewRegistry(client, zap.NewNop())

	if err := r.Select(context.Background(), "b"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	client.devices = []core.Device{{ID: "c"}, {ID: "d"}}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := r.Selected(); got != "c" {
		t.Errorf("selection = %q, want fallback to first device %q", got, "c")
	}
}

func TestRefreshEmptyListClearsSelection(t *testing.T) {
	client := &fakeLister{devices: []core.Device{{ID: "a"}}}
	r := NewRegistry(client, zap.NewNop())

	if err := r.Select(context.Background(), "a"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	client.devices = nil
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := r.Selected(); got != "" {
		t.Errorf("selection = %q, want empty", got)
	}
}

func TestSelectTransfersWithoutForcingPlayback(t *testing.T) {
	client := &fakeLister{}
	r := NewRegistry(client, zap.NewNop())

	if err := r.Select(context.Background(), "dev"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(client.transferred) != 1 || client.transferred[0] != "dev" {
		t.Fatalf("transferred = %v, want [dev]", client.transferred)
	}
	if client.transferPlay[0] {
		t.Error("transfer forced playback to start, want play=false")
	}
}

func TestSelectEmptyIDIsValidationError(t *testing.T) {
	client := &fakeLister{}
	r := NewRegistry(client, zap.NewNop())

	err := r.Select(context.Background(), "")
	if !core.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(client.transferred) != 0 {
		t.Errorf("transfer issued for empty device id")
	}
}

func TestSelectFailureKeepsPreviousSelection(t *testing.T) {
	client := &fakeLister{devices: []core.Device{{ID: "a"}}}
	r := NewRegistry(client, zap.NewNop())

	if err := r.Select(context.Background(), "a"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	client.transferErr = errors.New("boom")
	if err := r.Select(context.Background(), "b"); err == nil {
		t.Fatal("expected error from failed transfer")
	}
	if got := r.Selected(); got != "a" {
		t.Errorf("selection = %q, want unchanged %q", got, "a")
	}
}

func TestMarkReadyAdoptsDeviceWhenNoneSelected(t *testing.T) {
	r := NewRegistry(&fakeLister{}, zap.NewNop())

	r.MarkReady("local", "Playdeck")
	if got := r.Selected(); got != "local" {
		t.Errorf("selection = %q, want %q", got, "local")
	}

	r.MarkReady("other", "")
	if got := r.Selected(); got != "local" {
		t.Errorf("MarkReady overrode existing selection: %q", got)
	}
}

func TestMarkReadyRecordsDeviceName(t *testing.T) {
	r := NewRegistry(&fakeLister{}, zap.NewNop())

	r.MarkReady("local", "Playdeck")
	devices := r.Devices()
	if len(devices) != 1 || devices[0].Name != "Playdeck" {
		t.Fatalf("devices = %+v, want one named Playdeck", devices)
	}

	r.MarkReady("anon", "")
	for _, d := range r.Devices() {
		if d.ID == "anon" && d.Name != "local player" {
			t.Errorf("unnamed device recorded as %q, want placeholder", d.Name)
		}
	}
}
