package usecases

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/interfaces"

	"go.uber.org/zap"
)

type PlanService struct {
	repo   interfaces.PlanRepository
	now    func() time.Time
	logger *zap.Logger
}

func NewPlanService(repo interfaces.PlanRepository, logger *zap.Logger) *PlanService {
	return &PlanService{
		repo:   repo,
		now:    time.Now,
		logger: logger.With(zap.String("component", "plan_service")),
	}
}

// GetByNetwork returns nil, nil when the network has no plan row.
func (s *PlanService) GetByNetwork(ctx context.Context, network string) (*entities.PlanStatus, error) {
	network = strings.TrimSpace(network)
	if network == "" {
		return nil, entities.NewValidationError("rede", "network is required")
	}
	plan, err := s.repo.GetByNetwork(ctx, network)
	if err != nil {
		s.logger.Error("get plan failed", zap.String("network", network), zap.Error(err))
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return plan, nil
}

type PlanSummary struct {
	Plan        *entities.PlanStatus `json:"plano"`
	Active      bool                 `json:"ativo"`
	NextDueDate *time.Time           `json:"proximo_vencimento,omitempty"`
	DaysToDue   *int                 `json:"dias_para_vencimento,omitempty"`
}

// Summary adds the derived active flag and next due date to the plan row.
func (s *PlanService) Summary(ctx context.Context, network string) (*PlanSummary, error) {
	plan, err := s.GetByNetwork(ctx, network)
	if err != nil || plan == nil {
		return nil, err
	}
	summary := &PlanSummary{Plan: plan, Active: planActive(entities.StringValue(plan.Status))}
	if due, ok := NextDueDate(entities.StringValue(plan.DueDay), s.now()); ok {
		days := int(due.Sub(truncateDay(s.now())).Hours() / 24)
		summary.NextDueDate = &due
		summary.DaysToDue = &days
	}
	return summary, nil
}

func planActive(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ativo", "active", "ativado":
		return true
	}
	return false
}

// NextDueDate returns the next date, today included, falling on dueDay of the
// month. Days past the end of a short month fall on its last day.
func NextDueDate(dueDay string, now time.Time) (time.Time, bool) {
	day, err := strconv.Atoi(strings.TrimSpace(dueDay))
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	today := truncateDay(now)
	candidate := dueInMonth(today.Year(), today.Month(), day, today.Location())
	if candidate.Before(today) {
		next := today.AddDate(0, 0, -today.Day()+1).AddDate(0, 1, 0)
		candidate = dueInMonth(next.Year(), next.Month(), day, today.Location())
	}
	return candidate, true
}

func dueInMonth(year int, month time.Month, day int, loc *time.Location) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
