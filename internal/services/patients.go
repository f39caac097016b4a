package services

import (
	"context"
	"errors"
	"sync"

	"github.com/lumofit/companion/internal/models"
	"github.com/lumofit/companion/internal/storage"
	"github.com/lumofit/companion/pkg/utils"
)

var ErrPatientNotFound = errors.New("patient not found")

// PatientCache mirrors the patients the backend has returned, persisted
// under the patients slot. Removal is local only.
type PatientCache struct {
	store storage.Store

	mu       sync.RWMutex
	patients []models.Patient
}

func NewPatientCache(ctx context.Context, store storage.Store) (*PatientCache, error) {
	c := &PatientCache{store: store}
	if _, err := storage.GetJSON(ctx, store, storage.PatientsKey, &c.patients); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *PatientCache) List() []models.Patient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Patient(nil), c.patients...)
}

func (c *PatientCache) Get(id string) (models.Patient, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.patients[i], true
	}
	return models.Patient{}, false
}

// Add caches a patient returned by the backend, replacing one with the same id
func (c *PatientCache) Add(ctx context.Context, p *models.Patient) error {
	if p == nil {
		return &utils.ValidationError{Field: "patient", Message: "patient is required"}
	}
	if err := utils.RequireNonEmpty("id", p.ID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	next := append([]models.Patient(nil), c.patients...)
	if i := c.indexOf(p.ID); i >= 0 {
		next[i] = *p
	} else {
		next = append(next, *p)
	}
	return c.commit(ctx, next)
}

func (c *PatientCache) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return ErrPatientNotFound
	}
	next := append(append([]models.Patient(nil), c.patients[:i]...), c.patients[i+1:]...)
	return c.commit(ctx, next)
}

func (c *PatientCache) ToggleActive(ctx context.Context, id string) (models.Patient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return models.Patient{}, ErrPatientNotFound
	}
	next := append([]models.Patient(nil), c.patients...)
	next[i].IsActive = !next[i].IsActive
	if err := c.commit(ctx, next); err != nil {
		return models.Patient{}, err
	}
	return next[i], nil
}

// commit persists next and only then makes it visible. Caller holds mu.
func (c *PatientCache) commit(ctx context.Context, next []models.Patient) error {
	if err := storage.SetJSON(ctx, c.store, storage.PatientsKey, next); err != nil {
		return err
	}
	c.patients = next
	return nil
}

func (c *PatientCache) indexOf(id string) int {
	for i := range c.patients {
		if c.patients[i].ID == id {
			return i
		}
	}
	return -1
}
