package service

import (
	"context"
	"strings"
	"time"

	"github.com/aditus-access/aditus/server/internal/aditus/store"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// DeviceRegistry answers the two questions the engine asks about a
// device: is it active, and which zone does it guard.
type DeviceRegistry struct {
	store store.DeviceStore
}

func NewDeviceRegistry(st store.DeviceStore) *DeviceRegistry {
	return &DeviceRegistry{store: st}
}

func (r *DeviceRegistry) Get(ctx context.Context, deviceID string) (types.Device, bool, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return types.Device{}, false, nil
	}
	return r.store.GetDevice(ctx, deviceID)
}

// NoteSeen touches the device's last-seen timestamp. Best effort: the
// caller ignores the returned error by convention.
func (r *DeviceRegistry) NoteSeen(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil
	}
	return r.store.MarkSeen(ctx, deviceID, time.Now().UTC())
}
