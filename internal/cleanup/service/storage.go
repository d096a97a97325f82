package service

import (
	"context"

	"github.com/claim-deploy/claim-deploy-backend/internal/cleanup/domain"
	provisionsvc "github.com/claim-deploy/claim-deploy-backend/internal/provision/service"
	"github.com/claim-deploy/claim-deploy-backend/internal/vercel"
)

// StoragePrefix marks storage stores created for temporary projects. Stores
// are named after the project they back, so the temporary project prefix is
// embedded in the store name.
const StoragePrefix = "prisma-postgres-" + provisionsvc.TempProjectPrefix

// StorageKind reaps temporary storage stores. The store listing is not
// paginated upstream, so every call returns the full set in one page.
type StorageKind struct {
	client *vercel.Client
}

func NewStorageKind(client *vercel.Client) *StorageKind {
	return &StorageKind{client: client}
}

func (s *StorageKind) Name() string { return "storage" }

func (s *StorageKind) Prefix() string { return StoragePrefix }

func (s *StorageKind) ListPage(ctx context.Context, until int64) ([]domain.Resource, int64, error) {
	if until != 0 {
		return nil, 0, nil
	}

	stores, err := s.client.ListStores(ctx)
	if err != nil {
		return nil, 0, err
	}

	resources := make([]domain.Resource, 0, len(stores))
	for _, store := range stores {
		resources = append(resources, domain.Resource{
			ID:        store.ID,
			Name:      store.Name,
			CreatedAt: int64(store.CreatedAt),
		})
	}
	return resources, 0, nil
}

func (s *StorageKind) Delete(ctx context.Context, id string) error {
	return s.client.DeleteStore(ctx, id)
}
