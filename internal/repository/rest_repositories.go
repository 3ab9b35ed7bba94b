package repository

import (
	"context"
	"strconv"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/infrastructure"
)

type RestClientRepository struct {
	table        restTable
	countTimeout time.Duration
}

func NewRestClientRepository(rest *infrastructure.RestClient, table string, countTimeout time.Duration) *RestClientRepository {
	return &RestClientRepository{table: restTable{rest: rest, name: table}, countTimeout: countTimeout}
}

func (r *RestClientRepository) List(ctx context.Context, company string, p entities.Pagination) ([]entities.Client, int, error) {
	return restList[entities.Client](ctx, r.table, eqFilter("empresa", company), p, "failed to list clients")
}

func (r *RestClientRepository) Count(ctx context.Context, company string) (int, error) {
	return restCount(ctx, r.table, eqFilter("empresa", company), r.countTimeout, "failed to count clients")
}

func (r *RestClientRepository) GetByID(ctx context.Context, id int64) (*entities.Client, error) {
	return restFirst[entities.Client](ctx, r.table, eqFilter("id", strconv.FormatInt(id, 10)), "failed to load client")
}

func (r *RestClientRepository) Insert(ctx context.Context, c entities.Client) (*entities.Client, error) {
	return restInsert[entities.Client](ctx, r.table, clientColumns(c), "failed to create client")
}

func (r *RestClientRepository) Update(ctx context.Context, id int64, fields map[string]any) error {
	return restUpdate(ctx, r.table, eqFilter("id", strconv.FormatInt(id, 10)), fields, "failed to update client")
}

func (r *RestClientRepository) Delete(ctx context.Context, id int64) error {
	return restDelete(ctx, r.table, eqFilter("id", strconv.FormatInt(id, 10)), "failed to delete client")
}

type RestProductRepository struct {
	table        restTable
	countTimeout time.Duration
}

func NewRestProductRepository(rest *infrastructure.RestClient, table string, countTimeout time.Duration) *RestProductRepository {
	return &RestProductRepository{table: restTable{rest: rest, name: table}, countTimeout: countTimeout}
}

func (r *RestProductRepository) List(ctx context.Context, company string, p entities.Pagination) ([]entities.Product, int, error) {
	return restList[entities.Product](ctx, r.table, eqFilter("empresa", company), p, "failed to list products")
}

func (r *RestProductRepository) Count(ctx context.Context, company string) (int, error) {
	return restCount(ctx, r.table, eqFilter("empresa", company), r.countTimeout, "failed to count products")
}

func (r *RestProductRepository) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	return restFirst[entities.Product](ctx, r.table, eqFilter("id", id), "failed to load product")
}

func (r *RestProductRepository) Insert(ctx context.Context, p entities.Product) (*entities.Product, error) {
	return restInsert[entities.Product](ctx, r.table, productColumns(p), "failed to create product")
}

func (r *RestProductRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	return restUpdate(ctx, r.table, eqFilter("id", id), fields, "failed to update product")
}

func (r *RestProductRepository) Delete(ctx context.Context, id string) error {
	return restDelete(ctx, r.table, eqFilter("id", id), "failed to delete product")
}

type RestPlanRepository struct {
	table restTable
}

func NewRestPlanRepository(rest *infrastructure.RestClient, table string) *RestPlanRepository {
	return &RestPlanRepository{table: restTable{rest: rest, name: table}}
}

func (r *RestPlanRepository) GetByNetwork(ctx context.Context, network string) (*entities.PlanStatus, error) {
	return restFirst[entities.PlanStatus](ctx, r.table, eqFilter("rede", network), "failed to load plan")
}

type RestBotRepository struct {
	table restTable
}

func NewRestBotRepository(rest *infrastructure.RestClient, table string) *RestBotRepository {
	return &RestBotRepository{table: restTable{rest: rest, name: table}}
}

func (r *RestBotRepository) GetByToken(ctx context.Context, token string) (*entities.BotConnection, error) {
	return restFirst[entities.BotConnection](ctx, r.table, eqFilter("token", token), "failed to load bot")
}

type RestUserRepository struct {
	table restTable
}

func NewRestUserRepository(rest *infrastructure.RestClient, table string) *RestUserRepository {
	return &RestUserRepository{table: restTable{rest: rest, name: table}}
}

func (r *RestUserRepository) GetByEmail(ctx context.Context, email string) (*entities.UserRecord, error) {
	return restFirst[entities.UserRecord](ctx, r.table, eqFilter("email", email), "failed to load user")
}

func (r *RestUserRepository) GetByID(ctx context.Context, id string) (*entities.UserRecord, error) {
	return restFirst[entities.UserRecord](ctx, r.table, eqFilter("id", id), "failed to load user")
}

// clientColumns leaves id out so the table assigns it.
func clientColumns(c entities.Client) map[string]any {
	row := map[string]any{
		"nome":        c.Name,
		"whatsapp":    c.Phone,
		"empresa":     c.Company,
		"id_campanha": c.CampaignID,
	}
	if !c.CreatedAt.IsZero() {
		row["created_at"] = c.CreatedAt
	}
	if c.City != nil {
		row["cidade"] = c.City
	}
	return row
}

func productColumns(p entities.Product) map[string]any {
	row := map[string]any{
		"titulo":       p.Title,
		"descricao":    p.Description,
		"valor":        p.Price,
		"tipo_tamanho": p.SizeKind,
		"tamanho":      p.Size,
		"status":       p.Status,
		"url_foto":     p.PhotoURL,
		"empresa":      p.Company,
	}
	if !p.CreatedAt.IsZero() {
		row["created_at"] = p.CreatedAt
	}
	return row
}
