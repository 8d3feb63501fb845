package clinic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDirectory(t *testing.T) {
	dir := NewMemoryDirectory()
	require.NoError(t, dir.AddPatient(Patient{ID: "2", FirstName: "Juan", LastName: "López"}))
	require.NoError(t, dir.AddPatient(Patient{ID: "1", FirstName: "María", LastName: "Pérez"}))
	assert.ErrorIs(t, dir.AddPatient(Patient{ID: "1"}), ErrPatientExists)

	p, err := dir.FindPatient("1")
	require.NoError(t, err)
	assert.Equal(t, "María Pérez", p.FullName())

	_, err = dir.FindPatient("3")
	assert.ErrorIs(t, err, ErrUnknownPatient)

	patients := dir.Patients()
	require.Len(t, patients, 2)
	assert.Equal(t, "2", patients[0].ID)

	require.NoError(t, dir.AddDoctor(Doctor{ID: "D001", FirstName: "Ana", LastName: "García", Slots: []time.Time{eleven, nine}}))
	assert.ErrorIs(t, dir.AddDoctor(Doctor{ID: "D001"}), ErrDoctorExists)

	d, err := dir.FindDoctor("D001")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ana García", d.FullName())
	require.Len(t, d.Slots, 2)
	assert.True(t, d.Slots[0].Equal(nine))

	d.Slots[0] = day
	again, err := dir.FindDoctor("D001")
	require.NoError(t, err)
	assert.True(t, again.Slots[0].Equal(nine))

	_, err = dir.FindDoctor("D404")
	assert.ErrorIs(t, err, ErrUnknownDoctor)
}

func TestSeedDemo(t *testing.T) {
	dir := NewMemoryDirectory()
	now := time.Date(2026, time.October, 17, 16, 45, 0, 0, time.UTC)
	require.NoError(t, SeedDemo(dir, now))

	doctors := dir.Doctors()
	require.Len(t, doctors, 3)
	assert.Equal(t, "D001", doctors[0].ID)
	assert.Equal(t, "Cardiología", doctors[0].Specialty)
	assert.Equal(t, "D003", doctors[2].ID)

	slots := doctors[0].Slots
	require.Len(t, slots, 20)
	assert.Equal(t, time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC), slots[0])
	assert.Equal(t, time.Date(2026, time.October, 17, 15, 0, 0, 0, time.UTC), slots[3])
	assert.Equal(t, time.Date(2026, time.October, 21, 15, 0, 0, 0, time.UTC), slots[19])

	patients := dir.Patients()
	require.Len(t, patients, 3)
	assert.Equal(t, "1723456789", patients[0].ID)
	assert.Equal(t, 35, patients[0].Age)

	// seeding twice collides on ids
	assert.ErrorIs(t, SeedDemo(dir, now), ErrDoctorExists)

	s := NewScheduler(dir)
	appt, err := s.BookAppointment(context.Background(), "1723456789", "D001", slots[0], "checkup")
	require.NoError(t, err)
	assert.Equal(t, "T0001", appt.ID)
}
