package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/money"
)

// Loader replaces the contents of the target tables with a bundle.
type Loader struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLoader creates a loader over db.
func NewLoader(db *sql.DB, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{db: db, logger: logger.With(slog.String("component", "store"))}
}

// Load plans the bundle and writes it in one transaction: the target tables
// are truncated, then every table is filled through COPY. Nothing is kept
// when any step fails.
func (l *Loader) Load(ctx context.Context, b Bundle) (*Plan, error) {
	plan := BuildPlan(b)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to begin load", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE despesas_consolidadas, despesas_agregadas, operadoras, import_rejeicoes RESTART IDENTITY`); err != nil {
		return nil, apperrors.NewStorageError("failed to truncate targets", err)
	}

	steps := []struct {
		table string
		fn    func(context.Context, *sql.Tx, *Plan) error
	}{
		{TableOperators, copyOperators},
		{TableExpenses, copyExpenses},
		{TableAggregates, copyAggregates},
		{TableRejections, copyRejections},
	}
	for _, step := range steps {
		if err := step.fn(ctx, tx, plan); err != nil {
			return nil, apperrors.NewStorageError("failed to load table", err).WithContext("table", step.table)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewStorageError("failed to commit load", err)
	}

	counts := plan.Counts()
	l.logger.InfoContext(ctx, "bundle loaded",
		slog.Int("operators", counts[TableOperators]),
		slog.Int("expenses", counts[TableExpenses]),
		slog.Int("aggregates", counts[TableAggregates]),
		slog.Int("rejections", counts[TableRejections]))
	return plan, nil
}

// copyRows streams rows into table with COPY FROM STDIN.
func copyRows(ctx context.Context, tx *sql.Tx, table string, columns []string, n int, row func(i int) ([]interface{}, error)) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("prepare copy into %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		args, err := row(i)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("copy row %d into %s: %w", i, table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flush copy into %s: %w", table, err)
	}
	return nil
}

func copyOperators(ctx context.Context, tx *sql.Tx, p *Plan) error {
	return copyRows(ctx, tx, TableOperators,
		[]string{"cnpj", "razao_social", "registro_ans", "modalidade", "uf"},
		len(p.Operators), func(i int) ([]interface{}, error) {
			op := p.Operators[i]
			return []interface{}{op.CNPJ, op.LegalName, op.RegistrationID, op.Category, op.Region}, nil
		})
}

func copyExpenses(ctx context.Context, tx *sql.Tx, p *Plan) error {
	return copyRows(ctx, tx, TableExpenses,
		[]string{"cnpj", "ano", "trimestre", "valor_despesas"},
		len(p.Expenses), func(i int) ([]interface{}, error) {
			e := p.Expenses[i]
			return []interface{}{e.CNPJ, e.Year, e.Quarter, money.FormatPlain(e.Amount)}, nil
		})
}

func copyAggregates(ctx context.Context, tx *sql.Tx, p *Plan) error {
	return copyRows(ctx, tx, TableAggregates,
		[]string{"razao_social", "uf", "total_despesas", "media_por_trimestre", "desvio_padrao", "qtd_registros", "qtd_trimestres"},
		len(p.Aggregates), func(i int) ([]interface{}, error) {
			a := p.Aggregates[i]
			return []interface{}{a.LegalName, a.Region, money.FormatPlain(a.Total), a.Mean, a.StdDev, a.Rows, a.Quarters}, nil
		})
}

func copyRejections(ctx context.Context, tx *sql.Tx, p *Plan) error {
	return copyRows(ctx, tx, TableRejections,
		[]string{"tabela_alvo", "motivo", "detalhe", "linha_raw"},
		len(p.Rejections), func(i int) ([]interface{}, error) {
			r := p.Rejections[i]
			raw, err := json.Marshal(r.Raw)
			if err != nil {
				return nil, fmt.Errorf("encode rejected row %d: %w", i, err)
			}
			detail := sql.NullString{String: r.Detail, Valid: r.Detail != ""}
			return []interface{}{r.Table, r.Reason, detail, string(raw)}, nil
		})
}
