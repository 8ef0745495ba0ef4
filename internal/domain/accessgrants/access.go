package accessgrants

import (
	"context"
	"errors"
	"strings"
)

var ErrPatientNotFound = errors.New("patient not found")

// PatientOwnerLookup evita importar el paquete patients (rompe ciclos).
type PatientOwnerLookup interface {
	OwnerOf(ctx context.Context, patientID string) (string, error)
}

// Authorizer centraliza la regla owner-bypass / delegado-con-scope que
// repiten los handlers de careplans, medications, carelogs.
type Authorizer struct {
	grants *Service
	owners PatientOwnerLookup
}

func NewAuthorizer(grants *Service, owners PatientOwnerLookup) *Authorizer {
	return &Authorizer{grants: grants, owners: owners}
}

// Authorize devuelve el rol con el que userID actúa sobre patientID.
// Errores: ErrPatientNotFound, ErrForbidden.
func (a *Authorizer) Authorize(ctx context.Context, patientID, userID string, scope Scope) (Role, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrForbidden
	}

	ownerID, err := a.owners.OwnerOf(ctx, patientID)
	if err != nil || strings.TrimSpace(ownerID) == "" {
		return "", ErrPatientNotFound
	}
	if ownerID == userID {
		return RoleOwner, nil
	}

	g, err := a.grants.GetActiveGrant(ctx, patientID, userID)
	if err != nil || !HasScope(g, scope) {
		return "", ErrForbidden
	}
	return RoleDelegate, nil
}
