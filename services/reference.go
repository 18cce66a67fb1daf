package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

type ReferenceKind string

const (
	ReferenceAppointment  ReferenceKind = "appointment"
	ReferenceSubscription ReferenceKind = "subscription"
)

// ErrUnknownReference marks a reference this service does not own.
var ErrUnknownReference = errors.New("unknown external reference")

// Reference is the decoded external reference sent to and echoed back by the
// payment gateway.
type Reference struct {
	Kind          ReferenceKind
	AppointmentID uuid.UUID
	ClientID      uuid.UUID
	PlanID        uuid.UUID
}

func AppointmentReference(appointmentID uuid.UUID) string {
	return string(ReferenceAppointment) + "_" + appointmentID.String()
}

func SubscriptionReference(clientID, planID uuid.UUID) string {
	return string(ReferenceSubscription) + "_" + clientID.String() + "_" + planID.String()
}

func (r Reference) String() string {
	if r.Kind == ReferenceAppointment {
		return AppointmentReference(r.AppointmentID)
	}
	return SubscriptionReference(r.ClientID, r.PlanID)
}

// ParseReference decodes "appointment_<id>" and "subscription_<client>_<plan>".
// Unrecognised prefixes yield ErrUnknownReference; a known prefix with bad ids
// is a validation error.
func ParseReference(raw string) (Reference, error) {
	parts := strings.Split(raw, "_")
	switch ReferenceKind(parts[0]) {
	case ReferenceAppointment:
		if len(parts) != 2 {
			return Reference{}, validationError("Referência externa inválida", nil)
		}
		id, err := uuid.Parse(parts[1])
		if err != nil {
			return Reference{}, validationError("Referência externa inválida", err)
		}
		return Reference{Kind: ReferenceAppointment, AppointmentID: id}, nil
	case ReferenceSubscription:
		if len(parts) != 3 {
			return Reference{}, validationError("Referência externa inválida", nil)
		}
		clientID, err := uuid.Parse(parts[1])
		if err != nil {
			return Reference{}, validationError("Referência externa inválida", err)
		}
		planID, err := uuid.Parse(parts[2])
		if err != nil {
			return Reference{}, validationError("Referência externa inválida", err)
		}
		return Reference{Kind: ReferenceSubscription, ClientID: clientID, PlanID: planID}, nil
	}
	return Reference{}, ErrUnknownReference
}
