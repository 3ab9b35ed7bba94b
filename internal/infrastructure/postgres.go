package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string, logger *zap.Logger) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info("postgres pool ready",
		zap.String("component", "postgres"),
		zap.Int32("max_conns", config.MaxConns),
	)
	return &PostgresClient{Pool: pool}, nil
}

// TableNames lets EnsureSchema follow configured table names.
type TableNames struct {
	Clients  string
	Products string
	Plans    string
	Bots     string
	Users    string
}

// EnsureSchema creates the back-office tables when they do not exist yet.
// Production databases are provisioned by the backend; this is for local
// development and integration tests.
func (p *PostgresClient) EnsureSchema(ctx context.Context, t TableNames) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"clients", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				nome TEXT,
				whatsapp TEXT,
				empresa TEXT NOT NULL,
				id_campanha TEXT,
				cidade TEXT
			)`, pgx.Identifier{t.Clients}.Sanitize())},
		{"products", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				titulo TEXT NOT NULL,
				descricao TEXT NOT NULL DEFAULT '',
				valor NUMERIC(12, 2) NOT NULL DEFAULT 0,
				tipo_tamanho TEXT NOT NULL,
				tamanho TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'ATIVADO',
				url_foto TEXT,
				empresa TEXT NOT NULL
			)`, pgx.Identifier{t.Products}.Sanitize())},
		{"plans", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				data_criacao TIMESTAMPTZ NOT NULL DEFAULT now(),
				rede TEXT, loja TEXT, subrede TEXT,
				valor DOUBLE PRECISION,
				"dia_de_Vencimento" TEXT,
				status TEXT, ultimo_envio TEXT, whatsapp TEXT, cnpj TEXT, email TEXT,
				"mesDeEnvio" TEXT, "formaPagamento" TEXT, "servicoProdutos" TEXT,
				endereco TEXT, "horaFunc" TEXT, "raioEntrega" TEXT, "urlFoto" TEXT
			)`, pgx.Identifier{t.Plans}.Sanitize())},
		{"bots", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				token TEXT PRIMARY KEY,
				status TEXT,
				qrcode TEXT,
				numero TEXT,
				nome TEXT
			)`, pgx.Identifier{t.Bots}.Sanitize())},
		{"users", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				senha TEXT NOT NULL,
				nome TEXT NOT NULL DEFAULT '',
				empresa TEXT,
				nivel TEXT NOT NULL DEFAULT 'user',
				permissoes JSONB NOT NULL DEFAULT '{}'::jsonb,
				instancia TEXT
			)`, pgx.Identifier{t.Users}.Sanitize())},
	}

	for _, st := range statements {
		if _, err := p.Pool.Exec(ctx, st.sql); err != nil {
			return fmt.Errorf("create %s table: %w", st.name, err)
		}
	}
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}

