package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campuscare/triage-service/internal/domain"
)

func TestEscalate(t *testing.T) {
	const academicID, crisisID = int64(3), int64(1)

	t.Run("no crisis keeps submitted classification", func(t *testing.T) {
		esc := Escalate(academicID, crisisID, domain.TicketPriorityLow, CrisisResult{})
		assert.Equal(t, academicID, esc.CategoryID)
		assert.Equal(t, domain.TicketPriorityLow, esc.Priority)
		assert.False(t, esc.CrisisFlag)
		assert.Equal(t, 10.0, esc.PriorityScore)
	})

	t.Run("empty priority defaults to medium", func(t *testing.T) {
		esc := Escalate(academicID, crisisID, "", CrisisResult{})
		assert.Equal(t, domain.TicketPriorityMedium, esc.Priority)
		assert.Equal(t, 20.0, esc.PriorityScore)
	})

	t.Run("crisis forces urgent and crisis category", func(t *testing.T) {
		esc := Escalate(academicID, crisisID, domain.TicketPriorityLow, CrisisResult{
			Detected: true,
			Keywords: []string{"suicide"},
		})
		assert.Equal(t, crisisID, esc.CategoryID)
		assert.Equal(t, domain.TicketPriorityUrgent, esc.Priority)
		assert.True(t, esc.CrisisFlag)
		assert.Equal(t, []string{"suicide"}, esc.CrisisKeywords)
		assert.Equal(t, 65.0, esc.PriorityScore)
	})

	t.Run("already in crisis category keeps it", func(t *testing.T) {
		esc := Escalate(crisisID, crisisID, domain.TicketPriorityHigh, CrisisResult{
			Detected: true,
			Keywords: []string{"self harm"},
		})
		assert.Equal(t, crisisID, esc.CategoryID)
		assert.Equal(t, domain.TicketPriorityUrgent, esc.Priority)
	})
}

func TestPriorityScore(t *testing.T) {
	tests := []struct {
		priority domain.TicketPriority
		crisis   bool
		want     float64
	}{
		{domain.TicketPriorityLow, false, 10},
		{domain.TicketPriorityMedium, false, 20},
		{domain.TicketPriorityHigh, false, 30},
		{domain.TicketPriorityUrgent, false, 40},
		{domain.TicketPriorityUrgent, true, 65},
		{domain.TicketPriority("BOGUS"), false, 20},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, PriorityScore(tc.priority, tc.crisis))
	}
}
