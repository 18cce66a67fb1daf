package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlockedSlot is a blackout range. A nil ProfessionalID blocks the whole shop.
type BlockedSlot struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ProfessionalID *uuid.UUID `gorm:"type:uuid;index" json:"professionalId,omitempty"`
	StartsAt       time.Time  `gorm:"column:data_inicio;not null;index" json:"dataInicio"`
	EndsAt         time.Time  `gorm:"column:data_fim;not null" json:"dataFim"`
	Reason         string     `gorm:"column:motivo" json:"motivo,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (b *BlockedSlot) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

func (b BlockedSlot) Global() bool { return b.ProfessionalID == nil }

func (b BlockedSlot) Overlaps(start, end time.Time) bool {
	return Overlaps(b.StartsAt, b.EndsAt, start, end)
}

// Overlaps reports whether the half-open ranges [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching ranges do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
