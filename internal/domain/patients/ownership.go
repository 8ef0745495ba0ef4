package patients

import "context"

// OwnerOf expone el ownerUserID de un paciente.
// Se usa para evitar ciclos de imports (patients <-> accessgrants).
func (s *Service) OwnerOf(ctx context.Context, patientID string) (string, error) {
	p, err := s.GetByID(ctx, patientID)
	if err != nil {
		return "", err
	}
	return p.OwnerUserID, nil
}
