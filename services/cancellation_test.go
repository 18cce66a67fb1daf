package services

import (
	"testing"
	"time"

	"barbershop-backend/models"

	"github.com/stretchr/testify/assert"
)

func TestCanCancelAt_LeadBoundary(t *testing.T) {
	f := newFixture(t)
	policy := f.policy()

	tests := []struct {
		name    string
		start   time.Time
		allowed bool
	}{
		{"well ahead", f.now.Add(24 * time.Hour), true},
		{"exactly at the lead", f.now.Add(4 * time.Hour), true},
		{"one minute inside the lead", f.now.Add(4*time.Hour - time.Minute), false},
		{"already started", f.now.Add(-time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := policy.CanCancelAt(tt.start)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, ReasonCancellationWindow, d.ReasonCode)
				assert.Contains(t, d.Reason, "4 horas")
			}
		})
	}
}

func TestCanCancel_RequiresScheduled(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "15:00"), func(a *models.Appointment) { a.Status = models.StatusInProgress })

	d := f.policy().CanCancel(&appt)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotCancellable, d.ReasonCode)
}
