package checklists

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateInstance(ctx context.Context, i *Instance) error
	GetInstanceByID(ctx context.Context, id uuid.UUID) (*Instance, error)
	GetInstance(ctx context.Context, caseID uuid.UUID, kind string) (*Instance, error)
	UpdateInstance(ctx context.Context, i *Instance) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Instance, error)
	HasCompleted(ctx context.Context, caseID uuid.UUID) (bool, error)

	CreateAttestation(ctx context.Context, a *Attestation) error
	GetAttestationByID(ctx context.Context, id uuid.UUID) (*Attestation, error)
	UpdateAttestation(ctx context.Context, a *Attestation) error
	LatestAttestation(ctx context.Context, caseID uuid.UUID) (*Attestation, error)
}
