package usecases

import (
	"context"
	"testing"
	"time"

	"backoffice/internal/entities"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClientService(repo *fakeClientRepo) *ClientService {
	s := NewClientService(repo, "camp-1", zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestClientService_CreateAndRead(t *testing.T) {
	repo := newFakeClientRepo()
	s := newClientService(repo)
	ctx := context.Background()

	created, err := s.Create(ctx, entities.ClientInput{Name: " Ana ", Phone: "(11) 91234-5678", Company: "acme"})
	require.NoError(t, err)
	require.Equal(t, "Ana", *created.Name)
	require.Equal(t, "11912345678", *created.Phone)
	require.Equal(t, "camp-1", *created.CampaignID)
	require.Equal(t, 2024, created.CreatedAt.Year())

	got, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)

	page, err := s.List(ctx, "acme", entities.Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, 1, page.Page)
	require.Equal(t, entities.DefaultPageSize, page.Limit)
	require.False(t, page.HasNext)
}

func TestClientService_CreateOptionalFields(t *testing.T) {
	repo := newFakeClientRepo()
	s := newClientService(repo)

	created, err := s.Create(context.Background(), entities.ClientInput{Company: "acme"})
	require.NoError(t, err)
	require.Nil(t, created.Name)
	require.Nil(t, created.Phone)
}

func TestClientService_RejectsBeforeAnyCall(t *testing.T) {
	repo := newFakeClientRepo()
	s := newClientService(repo)
	ctx := context.Background()

	_, err := s.Create(ctx, entities.ClientInput{Name: "A", Company: "acme"})
	require.True(t, entities.IsValidation(err))

	_, err = s.Create(ctx, entities.ClientInput{Name: "Ana", Phone: "123", Company: "acme"})
	require.True(t, entities.IsValidation(err))

	_, err = s.Create(ctx, entities.ClientInput{Name: "Ana", Company: " "})
	require.True(t, entities.IsValidation(err))

	_, err = s.List(ctx, "", entities.Pagination{})
	require.True(t, entities.IsValidation(err))

	_, err = s.GetByID(ctx, 0)
	require.True(t, entities.IsValidation(err))

	require.Empty(t, repo.inserts)
}

func TestClientService_Update(t *testing.T) {
	repo := newFakeClientRepo()
	s := newClientService(repo)
	ctx := context.Background()

	created, err := s.Create(ctx, entities.ClientInput{Name: "Ana", Phone: "11912345678", Company: "acme"})
	require.NoError(t, err)

	_, err = s.Update(ctx, created.ID, entities.ClientPatch{})
	require.True(t, entities.IsValidation(err))

	name, blank := "Ana Maria", ""
	updated, err := s.Update(ctx, created.ID, entities.ClientPatch{Name: &name, Phone: &blank})
	require.NoError(t, err)
	require.Equal(t, "Ana Maria", *updated.Name)
	require.Nil(t, updated.Phone)
	require.Equal(t, map[string]any{"nome": "Ana Maria", "whatsapp": nil}, repo.updates[0])

	short := "A"
	_, err = s.Update(ctx, created.ID, entities.ClientPatch{Name: &short})
	require.True(t, entities.IsValidation(err))
	require.Len(t, repo.updates, 1)

	_, err = s.Update(ctx, 4242, entities.ClientPatch{Name: &name})
	require.True(t, entities.IsNotFound(err))
}

func TestClientService_DeleteMissingNeverCallsStore(t *testing.T) {
	repo := newFakeClientRepo()
	s := newClientService(repo)

	err := s.Delete(context.Background(), 999999)
	require.True(t, entities.IsNotFound(err))
	require.Empty(t, repo.deletes)
}

func TestClientService_Delete(t *testing.T) {
	repo := newFakeClientRepo()
	s := newClientService(repo)
	ctx := context.Background()

	created, err := s.Create(ctx, entities.ClientInput{Name: "Ana", Company: "acme"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, created.ID))
	require.Equal(t, []int64{created.ID}, repo.deletes)

	got, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestClientService_CountSwallowsFailures(t *testing.T) {
	repo := newFakeClientRepo()
	s := newClientService(repo)
	ctx := context.Background()

	_, err := s.Create(ctx, entities.ClientInput{Company: "acme"})
	require.NoError(t, err)
	require.Equal(t, 1, s.Count(ctx, "acme"))

	repo.countErr = errStoreDown
	require.Equal(t, 0, s.Count(ctx, "acme"))
}
