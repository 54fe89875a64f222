package services

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/utils"
)

type memDeviceRepo struct {
	rows    map[string]models.Device
	touched map[string]time.Time
}

func (r *memDeviceRepo) GetByID(_ context.Context, id string) (*models.Device, error) {
	d, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &d, nil
}

func (r *memDeviceRepo) Upsert(_ context.Context, d *models.Device) error {
	r.rows[d.DeviceID] = *d
	return nil
}

func (r *memDeviceRepo) Touch(_ context.Context, id string, at time.Time) error {
	r.touched[id] = at
	return nil
}

type memLocationRepo struct {
	pings []models.LocationPing
}

func (r *memLocationRepo) Insert(_ context.Context, p *models.LocationPing) error {
	r.pings = append(r.pings, *p)
	return nil
}

func (r *memLocationRepo) LatestByDevice(_ context.Context, id string, limit int) ([]models.LocationPing, error) {
	var out []models.LocationPing
	for i := len(r.pings) - 1; i >= 0 && len(out) < limit; i-- {
		if r.pings[i].DeviceID == id {
			out = append(out, r.pings[i])
		}
	}
	return out, nil
}

func newDeviceHarness() (DeviceService, *memDeviceRepo, *memLocationRepo) {
	devices := &memDeviceRepo{rows: map[string]models.Device{}, touched: map[string]time.Time{}}
	locations := &memLocationRepo{}
	return NewDeviceService(devices, locations), devices, locations
}

func TestDevice_UpsertAndGet(t *testing.T) {
	svc, _, _ := newDeviceHarness()
	ctx := context.Background()

	_, err := svc.Upsert(ctx, &models.Device{DeviceID: "pi-1", EmergencyContacts: pq.StringArray{" +91 ", "", "+44"}})
	require.NoError(t, err)

	d, err := svc.Get(ctx, "pi-1")
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"+91", "+44"}, d.EmergencyContacts)
	assert.False(t, d.UpdatedAt.IsZero())

	_, err = svc.Get(ctx, "pi-2")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	_, err = svc.Upsert(ctx, &models.Device{})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestDevice_RecordLocation(t *testing.T) {
	svc, devices, _ := newDeviceHarness()
	ctx := context.Background()

	_, err := svc.RecordLocation(ctx, "pi-1", 12.97, 77.59, 5)
	require.NoError(t, err)
	p, err := svc.RecordLocation(ctx, "pi-1", 12.98, 77.60, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Contains(t, devices.touched, "pi-1")

	got, err := svc.ListLocations(ctx, "pi-1", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 12.98, got[0].Lat)

	for _, bad := range [][2]float64{{91, 0}, {0, 181}, {-90.1, 0}} {
		_, err := svc.RecordLocation(ctx, "pi-1", bad[0], bad[1], 0)
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument), bad)
	}
	_, err = svc.RecordLocation(ctx, "pi-1", 0, 0, -1)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}
