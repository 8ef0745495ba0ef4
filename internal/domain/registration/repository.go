package registration

import "context"

// Outbox guarda los envíos hechos sin conexión hasta que se sincronizan.
type Outbox interface {
	Enqueue(ctx context.Context, s Submission) error
	Update(ctx context.Context, s Submission) error
	GetByID(ctx context.Context, id string) (Submission, error)
	// ListPending devuelve los pending más antiguos primero ("" = todos los dueños).
	ListPending(ctx context.Context, ownerUserID string, limit int) ([]Submission, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Submission, error)
	// Claim pasa un envío de pending a syncing. false si otro ya lo tomó.
	Claim(ctx context.Context, id string) (bool, error)
	// ReleaseClaims devuelve a pending los syncing que quedaron de una
	// pasada interrumpida.
	ReleaseClaims(ctx context.Context) (int, error)
}
