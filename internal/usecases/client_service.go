package usecases

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/interfaces"

	"go.uber.org/zap"
)

type ClientService struct {
	repo              interfaces.ClientRepository
	defaultCampaignID string
	now               func() time.Time
	logger            *zap.Logger
}

func NewClientService(repo interfaces.ClientRepository, defaultCampaignID string, logger *zap.Logger) *ClientService {
	return &ClientService{
		repo:              repo,
		defaultCampaignID: defaultCampaignID,
		now:               time.Now,
		logger:            logger.With(zap.String("component", "client_service")),
	}
}

// Count never fails: dashboard counters show 0 when the store is unavailable.
func (s *ClientService) Count(ctx context.Context, company string) int {
	n, err := s.repo.Count(ctx, company)
	if err != nil {
		s.logger.Warn("count failed, reporting 0", zap.String("company", company), zap.Error(err))
		return 0
	}
	return n
}

func (s *ClientService) List(ctx context.Context, company string, p entities.Pagination) (entities.Page[entities.Client], error) {
	p = p.Normalize()
	if isBlank(company) {
		return entities.Page[entities.Client]{}, entities.NewValidationError("empresa", "company is required")
	}
	clients, total, err := s.repo.List(ctx, company, p)
	if err != nil {
		s.logger.Error("list failed", zap.String("company", company), zap.Int("page", p.Page), zap.Error(err))
		return entities.Page[entities.Client]{}, fmt.Errorf("list clients: %w", err)
	}
	return entities.NewPage(clients, total, p), nil
}

// Recent returns the n newest clients of company.
func (s *ClientService) Recent(ctx context.Context, company string, n int) ([]entities.Client, error) {
	page, err := s.List(ctx, company, entities.Pagination{Page: 1, Limit: n})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// GetByID returns nil, nil when the client does not exist.
func (s *ClientService) GetByID(ctx context.Context, id int64) (*entities.Client, error) {
	if err := validateClientID(id); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("get failed", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get client %d: %w", id, err)
	}
	return c, nil
}

func (s *ClientService) Create(ctx context.Context, in entities.ClientInput) (*entities.Client, error) {
	company, err := validateCompany(in.Company)
	if err != nil {
		return nil, err
	}
	client := entities.Client{
		CreatedAt:  entities.NewTimestamp(s.now()),
		Company:    company,
		CampaignID: entities.StringPtr(s.defaultCampaignID),
	}
	if !isBlank(in.Name) {
		name, err := validateName(in.Name)
		if err != nil {
			return nil, err
		}
		client.Name = &name
	}
	if !isBlank(in.Phone) {
		phone, err := validatePhone(in.Phone)
		if err != nil {
			return nil, err
		}
		client.Phone = &phone
	}

	created, err := s.repo.Insert(ctx, client)
	if err != nil {
		s.logger.Error("create failed", zap.String("company", company), zap.Error(err))
		return nil, fmt.Errorf("create client: %w", err)
	}
	s.logger.Info("client created", zap.Int64("id", created.ID), zap.String("company", company))
	return created, nil
}

// Update applies the provided fields and returns the row as stored afterwards.
func (s *ClientService) Update(ctx context.Context, id int64, patch entities.ClientPatch) (*entities.Client, error) {
	if err := validateClientID(id); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, entities.NewValidationError("", "no fields to update")
	}

	fields := map[string]any{}
	if patch.Name != nil {
		if isBlank(*patch.Name) {
			fields["nome"] = nil
		} else {
			name, err := validateName(*patch.Name)
			if err != nil {
				return nil, err
			}
			fields["nome"] = name
		}
	}
	if patch.Phone != nil {
		if isBlank(*patch.Phone) {
			fields["whatsapp"] = nil
		} else {
			phone, err := validatePhone(*patch.Phone)
			if err != nil {
				return nil, err
			}
			fields["whatsapp"] = phone
		}
	}
	if patch.Company != nil {
		company, err := validateCompany(*patch.Company)
		if err != nil {
			return nil, err
		}
		fields["empresa"] = company
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		s.logger.Error("update failed", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("update client %d: %w", id, err)
	}
	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload client %d: %w", id, err)
	}
	if updated == nil {
		return nil, &entities.NotFoundError{Resource: "client", ID: strconv.FormatInt(id, 10)}
	}
	return updated, nil
}

func (s *ClientService) Delete(ctx context.Context, id int64) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return &entities.NotFoundError{Resource: "client", ID: strconv.FormatInt(id, 10)}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("delete failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("delete client %d: %w", id, err)
	}
	s.logger.Info("client deleted", zap.Int64("id", id))
	return nil
}
