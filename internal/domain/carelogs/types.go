package carelogs

import "patient-care/internal/domain/accessgrants"

type Kind string

const (
	KindHistory Kind = "HISTORY"
	KindNote    Kind = "NOTE"
	KindVital   Kind = "VITAL"
)

func (k Kind) Valid() bool {
	switch k {
	case KindHistory, KindNote, KindVital:
		return true
	}
	return false
}

type ActorType string

const (
	ActorTypeOwnerUser    ActorType = "OWNER_USER"
	ActorTypeDelegateUser ActorType = "DELEGATE_USER"
)

// ActorTypeFor traduce el rol resuelto por el Authorizer.
func ActorTypeFor(role accessgrants.Role) ActorType {
	if role == accessgrants.RoleDelegate {
		return ActorTypeDelegateUser
	}
	return ActorTypeOwnerUser
}

type Status string

const (
	StatusActive Status = "active"
	StatusVoided Status = "voided"
)
