package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/infrastructure"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The pgx repositories talk to the same tables directly when DATABASE_URL is set.

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// setClause renders "col" = $n pairs in a stable order. Casts maps a column to
// the SQL type its text parameter has to be converted to.
func setClause(fields map[string]any, casts map[string]string, first int) (string, []any) {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		placeholder := fmt.Sprintf("$%d", first+i)
		if cast, ok := casts[col]; ok {
			placeholder += "::" + cast
		}
		parts = append(parts, ident(col)+" = "+placeholder)
		args = append(args, fields[col])
	}
	return strings.Join(parts, ", "), args
}

// pgTable is one table behind the pool. Every call runs under its own deadline.
type pgTable struct {
	db      *pgxpool.Pool
	name    string
	timeout time.Duration
}

func newPGTable(db *pgxpool.Pool, name string, timeout time.Duration) pgTable {
	if timeout <= 0 {
		timeout = infrastructure.DefaultRequestTimeout
	}
	return pgTable{db: db, name: ident(name), timeout: timeout}
}

func (t pgTable) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t.timeout)
}

// dbError reports a call that ran past its deadline as entities.ErrTimeout.
func dbError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, entities.ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toTimestamp(t time.Time) entities.Timestamp {
	return entities.Timestamp{Time: t}
}

const clientColumnsSQL = `id, created_at, nome, whatsapp, empresa, id_campanha, cidade`

type PostgresClientRepository struct {
	pgTable
}

func NewPostgresClientRepository(db *pgxpool.Pool, table string, timeout time.Duration) *PostgresClientRepository {
	return &PostgresClientRepository{pgTable: newPGTable(db, table, timeout)}
}

func scanClient(row pgx.Row) (*entities.Client, error) {
	var c entities.Client
	var created time.Time
	if err := row.Scan(&c.ID, &created, &c.Name, &c.Phone, &c.Company, &c.CampaignID, &c.City); err != nil {
		return nil, err
	}
	c.CreatedAt = toTimestamp(created)
	return &c, nil
}

func (r *PostgresClientRepository) List(ctx context.Context, company string, p entities.Pagination) ([]entities.Client, int, error) {
	p = p.Normalize()
	total, err := r.Count(ctx, company)
	if err != nil {
		return nil, 0, err
	}
	ctx, cancel := r.call(ctx)
	defer cancel()
	rows, err := r.db.Query(ctx,
		"SELECT "+clientColumnsSQL+" FROM "+r.name+" WHERE empresa = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		company, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, dbError(ctx, "list clients", err)
	}
	defer rows.Close()

	clients := []entities.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, dbError(ctx, "scan client", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dbError(ctx, "list clients", err)
	}
	return clients, total, nil
}

func (r *PostgresClientRepository) Count(ctx context.Context, company string) (int, error) {
	ctx, cancel := r.call(ctx)
	defer cancel()
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+r.name+" WHERE empresa = $1", company).Scan(&n)
	if err != nil {
		return 0, dbError(ctx, "count clients", err)
	}
	return n, nil
}

func (r *PostgresClientRepository) GetByID(ctx context.Context, id int64) (*entities.Client, error) {
	ctx, cancel := r.call(ctx)
	defer cancel()
	c, err := scanClient(r.db.QueryRow(ctx, "SELECT "+clientColumnsSQL+" FROM "+r.name+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(ctx, fmt.Sprintf("get client %d", id), err)
	}
	return c, nil
}

func (r *PostgresClientRepository) Insert(ctx context.Context, c entities.Client) (*entities.Client, error) {
	ctx, cancel := r.call(ctx)
	defer cancel()
	created := c.CreatedAt.Time
	if created.IsZero() {
		created = time.Now().UTC()
	}
	out, err := scanClient(r.db.QueryRow(ctx,
		"INSERT INTO "+r.name+" (created_at, nome, whatsapp, empresa, id_campanha, cidade) VALUES ($1, $2, $3, $4, $5, $6) RETURNING "+clientColumnsSQL,
		created, c.Name, c.Phone, c.Company, c.CampaignID, c.City))
	if err != nil {
		return nil, dbError(ctx, "insert client", err)
	}
	return out, nil
}

func (r *PostgresClientRepository) Update(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	ctx, cancel := r.call(ctx)
	defer cancel()
	set, args := setClause(fields, nil, 1)
	args = append(args, id)
	_, err := r.db.Exec(ctx, fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", r.name, set, len(args)), args...)
	if err != nil {
		return dbError(ctx, fmt.Sprintf("update client %d", id), err)
	}
	return nil
}

func (r *PostgresClientRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.call(ctx)
	defer cancel()
	if _, err := r.db.Exec(ctx, "DELETE FROM "+r.name+" WHERE id = $1", id); err != nil {
		return dbError(ctx, fmt.Sprintf("delete client %d", id), err)
	}
	return nil
}

const productColumnsSQL = `id::text, created_at, titulo, descricao, valor::text, tipo_tamanho, tamanho, status, url_foto, empresa`

var productCasts = map[string]string{"valor": "numeric"}

type PostgresProductRepository struct {
	pgTable
}

func NewPostgresProductRepository(db *pgxpool.Pool, table string, timeout time.Duration) *PostgresProductRepository {
	return &PostgresProductRepository{pgTable: newPGTable(db, table, timeout)}
}

func scanProduct(row pgx.Row) (*entities.Product, error) {
	var p entities.Product
	var created time.Time
	err := row.Scan(&p.ID, &created, &p.Title, &p.Description, &p.Price, &p.SizeKind, &p.Size, &p.Status, &p.PhotoURL, &p.Company)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = toTimestamp(created)
	return &p, nil
}

func (r *PostgresProductRepository) List(ctx context.Context, company string, p entities.Pagination) ([]entities.Product, int, error) {
	p = p.Normalize()
	total, err := r.Count(ctx, company)
	if err != nil {
		return nil, 0, err
	}
	ctx, cancel := r.call(ctx)
	defer cancel()
	rows, err := r.db.Query(ctx,
		"SELECT "+productColumnsSQL+" FROM "+r.name+" WHERE empresa = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		company, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, dbError(ctx, "list products", err)
	}
	defer rows.Close()

	products := []entities.Product{}
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, 0, dbError(ctx, "scan product", err)
		}
		products = append(products, *prod)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dbError(ctx, "list products", err)
	}
	return products, total, nil
}

func (r *PostgresProductRepository) Count(ctx context.Context, company string) (int, error) {
	ctx, cancel := r.call(ctx)
	defer cancel()
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+r.name+" WHERE empresa = $1", company).Scan(&n)
	if err != nil {
		return 0, dbError(ctx, "count products", err)
	}
	return n, nil
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	ctx, cancel := r.call(ctx)
	defer cancel()
	p, err := scanProduct(r.db.QueryRow(ctx, "SELECT "+productColumnsSQL+" FROM "+r.name+" WHERE id = $1::uuid", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(ctx, fmt.Sprintf("get product %s", id), err)
	}
	return p, nil
}

func (r *PostgresProductRepository) Insert(ctx context.Context, p entities.Product) (*entities.Product, error) {
	ctx, cancel := r.call(ctx)
	defer cancel()
	created := p.CreatedAt.Time
	if created.IsZero() {
		created = time.Now().UTC()
	}
	out, err := scanProduct(r.db.QueryRow(ctx,
		"INSERT INTO "+r.name+" (created_at, titulo, descricao, valor, tipo_tamanho, tamanho, status, url_foto, empresa) "+
			"VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9) RETURNING "+productColumnsSQL,
		created, p.Title, p.Description, p.Price, p.SizeKind, p.Size, p.Status, p.PhotoURL, p.Company))
	if err != nil {
		return nil, dbError(ctx, "insert product", err)
	}
	return out, nil
}

func (r *PostgresProductRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	ctx, cancel := r.call(ctx)
	defer cancel()
	set, args := setClause(fields, productCasts, 1)
	args = append(args, id)
	_, err := r.db.Exec(ctx, fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d::uuid", r.name, set, len(args)), args...)
	if err != nil {
		return dbError(ctx, fmt.Sprintf("update product %s", id), err)
	}
	return nil
}

func (r *PostgresProductRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.call(ctx)
	defer cancel()
	if _, err := r.db.Exec(ctx, "DELETE FROM "+r.name+" WHERE id = $1::uuid", id); err != nil {
		return dbError(ctx, fmt.Sprintf("delete product %s", id), err)
	}
	return nil
}

type PostgresPlanRepository struct {
	pgTable
}

func NewPostgresPlanRepository(db *pgxpool.Pool, table string, timeout time.Duration) *PostgresPlanRepository {
	return &PostgresPlanRepository{pgTable: newPGTable(db, table, timeout)}
}

func (r *PostgresPlanRepository) GetByNetwork(ctx context.Context, network string) (*entities.PlanStatus, error) {
	ctx, cancel := r.call(ctx)
	defer cancel()
	var p entities.PlanStatus
	var created time.Time
	err := r.db.QueryRow(ctx, `
		SELECT id, data_criacao, rede, loja, subrede, valor, "dia_de_Vencimento", status, ultimo_envio,
		       whatsapp, cnpj, email, "mesDeEnvio", "formaPagamento", "servicoProdutos", endereco,
		       "horaFunc", "raioEntrega", "urlFoto"
		FROM `+r.name+` WHERE rede = $1 LIMIT 1`, network).Scan(
		&p.ID, &created, &p.Network, &p.Store, &p.SubNetwork, &p.MonthlyValue, &p.DueDay, &p.Status, &p.LastSend,
		&p.WhatsApp, &p.TaxID, &p.Email, &p.SendMonth, &p.PaymentMethod, &p.Services, &p.Address,
		&p.BusinessHours, &p.DeliveryRange, &p.PhotoURL,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(ctx, fmt.Sprintf("get plan for %s", network), err)
	}
	p.CreatedAt = toTimestamp(created)
	return &p, nil
}

type PostgresBotRepository struct {
	pgTable
}

func NewPostgresBotRepository(db *pgxpool.Pool, table string, timeout time.Duration) *PostgresBotRepository {
	return &PostgresBotRepository{pgTable: newPGTable(db, table, timeout)}
}

func (r *PostgresBotRepository) GetByToken(ctx context.Context, token string) (*entities.BotConnection, error) {
	ctx, cancel := r.call(ctx)
	defer cancel()
	var b entities.BotConnection
	err := r.db.QueryRow(ctx, "SELECT token, status, qrcode, numero, nome FROM "+r.name+" WHERE token = $1", token).
		Scan(&b.Token, &b.Status, &b.QRCode, &b.PhoneNumber, &b.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(ctx, fmt.Sprintf("get bot %s", token), err)
	}
	return &b, nil
}

type PostgresUserRepository struct {
	pgTable
}

func NewPostgresUserRepository(db *pgxpool.Pool, table string, timeout time.Duration) *PostgresUserRepository {
	return &PostgresUserRepository{pgTable: newPGTable(db, table, timeout)}
}

func (r *PostgresUserRepository) getBy(ctx context.Context, column, value string) (*entities.UserRecord, error) {
	ctx, cancel := r.call(ctx)
	defer cancel()
	var u entities.UserRecord
	err := r.db.QueryRow(ctx, `
		SELECT id::text, email, senha, COALESCE(nome, ''), COALESCE(empresa, ''), COALESCE(nivel, ''),
		       COALESCE(permissoes, '{}'::jsonb), COALESCE(instancia, '')
		FROM `+r.name+` WHERE `+ident(column)+`::text = $1 LIMIT 1`, value).Scan(
		&u.ID, &u.Email, &u.Password, &u.Name, &u.Company, &u.Level, &u.Permissions, &u.Instance,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(ctx, fmt.Sprintf("get user by %s", column), err)
	}
	return &u, nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*entities.UserRecord, error) {
	return r.getBy(ctx, "email", email)
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*entities.UserRecord, error) {
	return r.getBy(ctx, "id", id)
}
