package service

import (
	"context"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
)

// DelegationsRepository defines the data access the delegations service needs.
type DelegationsRepository interface {
	Upsert(ctx context.Context, taskID int64, personIDs, agentIDs []string) (*models.Delegation, error)
	List(ctx context.Context, params models.ListParams) ([]models.Delegation, error)
}

// DelegationsService exposes stored delegations.
type DelegationsService struct {
	repo DelegationsRepository
}

// NewDelegationsService creates a new delegations service.
func NewDelegationsService(repo DelegationsRepository) *DelegationsService {
	return &DelegationsService{repo: repo}
}

// ListDelegations returns delegations ordered by task id.
func (s *DelegationsService) ListDelegations(ctx context.Context, params models.ListParams) ([]models.Delegation, error) {
	return s.repo.List(ctx, params)
}
