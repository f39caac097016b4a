package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumofit/companion/internal/models"
	"github.com/lumofit/companion/internal/storage"
	"github.com/lumofit/companion/pkg/utils"
)

var ErrDeviceNotFound = errors.New("device not found")

const connectedSinceLayout = "Jan 2, 2006"

// DeviceList is the dashboard's locally kept list of paired wearables
type DeviceList struct {
	store storage.Store
	now   func() time.Time

	mu      sync.RWMutex
	devices []models.Device
}

func NewDeviceList(ctx context.Context, store storage.Store) (*DeviceList, error) {
	d := &DeviceList{store: store, now: time.Now}
	if _, err := storage.GetJSON(ctx, store, storage.DevicesKey, &d.devices); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DeviceList) List() []models.Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Device(nil), d.devices...)
}

func (d *DeviceList) Add(ctx context.Context, name string) (models.Device, error) {
	if err := utils.RequireNonEmpty("name", name); err != nil {
		return models.Device{}, err
	}
	dev := models.Device{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(name),
		ConnectedSince: d.now().Format(connectedSinceLayout),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	next := append(append([]models.Device(nil), d.devices...), dev)
	if err := storage.SetJSON(ctx, d.store, storage.DevicesKey, next); err != nil {
		return models.Device{}, err
	}
	d.devices = next
	return dev, nil
}

func (d *DeviceList) Remove(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.devices {
		if d.devices[i].ID != id {
			continue
		}
		next := append(append([]models.Device(nil), d.devices[:i]...), d.devices[i+1:]...)
		if err := storage.SetJSON(ctx, d.store, storage.DevicesKey, next); err != nil {
			return err
		}
		d.devices = next
		return nil
	}
	return ErrDeviceNotFound
}
