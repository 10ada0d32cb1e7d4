// Package store provisions the Postgres schema for the pipeline outputs and
// bulk-loads them, recording every row it refuses in import_rejeicoes.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Target tables.
const (
	TableOperators  = "operadoras"
	TableExpenses   = "despesas_consolidadas"
	TableAggregates = "despesas_agregadas"
	TableRejections = "import_rejeicoes"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS operadoras (
	cnpj CHAR(14) PRIMARY KEY,
	razao_social TEXT NOT NULL,
	registro_ans TEXT NULL,
	modalidade TEXT NULL,
	uf CHAR(2) NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_operadoras_uf ON operadoras(uf);
CREATE INDEX IF NOT EXISTS idx_operadoras_razao ON operadoras(razao_social);

CREATE TABLE IF NOT EXISTS despesas_consolidadas (
	cnpj CHAR(14) NOT NULL REFERENCES operadoras(cnpj) ON DELETE CASCADE,
	ano SMALLINT NOT NULL,
	trimestre SMALLINT NOT NULL,
	valor_despesas NUMERIC(18,2) NOT NULL,
	CONSTRAINT pk_despesas_consolidadas PRIMARY KEY (cnpj, ano, trimestre),
	CONSTRAINT ck_trimestre CHECK (trimestre BETWEEN 1 AND 4),
	CONSTRAINT ck_valor CHECK (valor_despesas >= 0)
);

CREATE INDEX IF NOT EXISTS idx_despesas_periodo ON despesas_consolidadas(ano, trimestre);

CREATE TABLE IF NOT EXISTS despesas_agregadas (
	razao_social TEXT NOT NULL,
	uf CHAR(2) NOT NULL,
	total_despesas NUMERIC(18,2) NOT NULL,
	media_por_trimestre NUMERIC(18,2) NULL,
	desvio_padrao NUMERIC(18,2) NULL,
	qtd_registros INTEGER NULL,
	qtd_trimestres INTEGER NULL,
	CONSTRAINT pk_despesas_agregadas PRIMARY KEY (razao_social, uf)
);

CREATE INDEX IF NOT EXISTS idx_agregadas_uf ON despesas_agregadas(uf);

CREATE TABLE IF NOT EXISTS import_rejeicoes (
	id BIGSERIAL PRIMARY KEY,
	tabela_alvo TEXT NOT NULL,
	motivo TEXT NOT NULL,
	detalhe TEXT NULL,
	linha_raw JSONB NOT NULL,
	criado_em TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Provision creates the tables and indexes that do not exist yet.
func Provision(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("provision schema: %w", err)
	}
	return nil
}
