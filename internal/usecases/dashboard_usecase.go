package usecases

import (
	"context"
	"sync"

	"backoffice/internal/entities"

	"go.uber.org/zap"
)

const dashboardRecentLimit = 5

type DashboardUsecase struct {
	clients  *ClientService
	products *ProductService
	logger   *zap.Logger
}

func NewDashboardUsecase(clients *ClientService, products *ProductService, logger *zap.Logger) *DashboardUsecase {
	return &DashboardUsecase{
		clients:  clients,
		products: products,
		logger:   logger.With(zap.String("component", "dashboard")),
	}
}

type DashboardSummary struct {
	TotalClients   int                `json:"total_clientes"`
	TotalProducts  int                `json:"total_produtos"`
	RecentClients  []entities.Client  `json:"clientes_recentes"`
	RecentProducts []entities.Product `json:"produtos_recentes"`
}

// Summary loads the dashboard widgets in parallel. Widgets degrade to empty
// values instead of failing the whole page.
func (u *DashboardUsecase) Summary(ctx context.Context, company string) DashboardSummary {
	out := DashboardSummary{
		RecentClients:  []entities.Client{},
		RecentProducts: []entities.Product{},
	}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		out.TotalClients = u.clients.Count(ctx, company)
	}()
	go func() {
		defer wg.Done()
		out.TotalProducts = u.products.Count(ctx, company)
	}()
	go func() {
		defer wg.Done()
		recent, err := u.clients.Recent(ctx, company, dashboardRecentLimit)
		if err != nil {
			u.logger.Warn("recent clients unavailable", zap.String("company", company), zap.Error(err))
			return
		}
		out.RecentClients = recent
	}()
	go func() {
		defer wg.Done()
		page, err := u.products.List(ctx, company, entities.Pagination{Page: 1, Limit: dashboardRecentLimit})
		if err != nil {
			u.logger.Warn("recent products unavailable", zap.String("company", company), zap.Error(err))
			return
		}
		out.RecentProducts = page.Items
	}()
	wg.Wait()
	return out
}
