package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidClock = errors.New("invalid HH:MM value")

// BusinessHours is the shop-wide default window for a weekday (0 = Sunday).
type BusinessHours struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Weekday int       `gorm:"column:dia_semana;uniqueIndex;not null" json:"diaSemana"`
	Opens   string    `gorm:"column:abertura;type:varchar(5);not null" json:"abertura"`
	Closes  string    `gorm:"column:fechamento;type:varchar(5);not null" json:"fechamento"`
	Active  bool      `gorm:"column:ativo;default:true" json:"ativo"`
}

// ProfessionalHours overrides BusinessHours for one professional and weekday.
// An inactive row marks a day off.
type ProfessionalHours struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ProfessionalID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_professional_weekday,priority:1" json:"professionalId"`
	Weekday        int       `gorm:"column:dia_semana;not null;uniqueIndex:idx_professional_weekday,priority:2" json:"diaSemana"`
	Opens          string    `gorm:"column:abertura;type:varchar(5);not null" json:"abertura"`
	Closes         string    `gorm:"column:fechamento;type:varchar(5);not null" json:"fechamento"`
	Active         bool      `gorm:"column:ativo;default:true" json:"ativo"`
}

func (h *BusinessHours) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return
}

func (h *ProfessionalHours) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return
}

// WorkingWindow is a resolved open/close pair anchored on a calendar day.
type WorkingWindow struct {
	Opens  time.Time
	Closes time.Time
}

// ResolveWindow anchors opens/closes ("HH:MM") on day, in day's location.
func ResolveWindow(day time.Time, opens, closes string) (WorkingWindow, error) {
	o, err := ClockOffset(opens)
	if err != nil {
		return WorkingWindow{}, err
	}
	c, err := ClockOffset(closes)
	if err != nil {
		return WorkingWindow{}, err
	}
	y, m, d := day.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return WorkingWindow{
		Opens:  midnight.Add(o),
		Closes: midnight.Add(c),
	}, nil
}

// ClockOffset parses "HH:MM" (or "HH:MM:SS" as stored by Postgres time columns)
// into an offset from midnight. "24:00" closes a window at the end of the day.
func ClockOffset(v string) (time.Duration, error) {
	if v == "24:00" || v == "24:00:00" {
		return 24 * time.Hour, nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidClock, v)
}
