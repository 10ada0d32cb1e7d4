package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimsledger/internal/config"
	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/testutil"
	api "claimsledger/pkg/contracts/api/v1"
)

const (
	alfa = "11444777000161"
	beta = "11222333000181"
	gama = "12345678000100"
)

const operatorsFixture = `CNPJ;RazaoSocial;RegistroANS;Modalidade;UF;Duplicados
11222333000181;Beta Vida;200;Cooperativa Medica;RJ;1
11444777000161;Alfa Saúde;100;Medicina de Grupo;SP;2
12345678000100;Gama Planos;300;Autogestao;MG;1
`

const consolidatedFixture = `CNPJ;RazaoSocial;Trimestre;Ano;ValorDespesas
11444777000161;Alfa Saude;1T;2024;1.500,00
12345678000100;Gama Planos;1T;2024;-20,00
11444777000161;Alfa Saude;4T;2023;1.000,50
11222333000181;Beta Vida;4T;2023;2.000,00
11444777000161;Alfa Saude S.A.;4T;2023;300,00
;;4T;2023;50,00
`

const enrichedFixture = `CNPJ;RazaoSocial;Trimestre;Ano;ValorDespesas;RegistroANS;Modalidade;UF
11444777000161;Alfa Saude;1T;2024;1.500,00;100;Medicina de Grupo;SP
12345678000100;Gama Planos;1T;2024;-20,00;300;Autogestao;MG
11444777000161;Alfa Saude;4T;2023;1.000,50;100;Medicina de Grupo;SP
11222333000181;Beta Vida;4T;2023;2.000,00;200;Cooperativa Medica;RJ
11444777000161;Alfa Saude S.A.;4T;2023;300,00;100;Medicina de Grupo;SP
`

func writeArtifacts(t *testing.T) *config.Paths {
	t.Helper()
	paths, err := config.NewPaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(paths.OutputDir, 0o755))

	for path, body := range map[string]string{
		paths.OperatorsCSV:    operatorsFixture,
		paths.ConsolidatedCSV: consolidatedFixture,
		paths.EnrichedCSV:     enrichedFixture,
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return paths
}

func loadedService(t *testing.T) *LedgerService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	svc := NewLedgerService(writeArtifacts(t), logger)
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func TestLedgerServiceListOperators(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		req       api.OperatorListRequest
		wantCNPJs []string
		wantTotal int
		wantPages int
	}{
		{
			name:      "default page sorted by name",
			req:       api.NewOperatorListRequest(),
			wantCNPJs: []string{alfa, beta, gama},
			wantTotal: 3,
			wantPages: 1,
		},
		{
			name:      "second page",
			req:       api.OperatorListRequest{Page: 2, Limit: 2},
			wantCNPJs: []string{gama},
			wantTotal: 3,
			wantPages: 2,
		},
		{
			name:      "page past the end",
			req:       api.OperatorListRequest{Page: 5, Limit: 2},
			wantCNPJs: []string{},
			wantTotal: 3,
			wantPages: 2,
		},
		{
			name:      "name match ignores case",
			req:       api.OperatorListRequest{Page: 1, Limit: 10, Query: "beta"},
			wantCNPJs: []string{beta},
			wantTotal: 1,
			wantPages: 1,
		},
		{
			name:      "name match ignores accents",
			req:       api.OperatorListRequest{Page: 1, Limit: 10, Query: "saude"},
			wantCNPJs: []string{alfa},
			wantTotal: 1,
			wantPages: 1,
		},
		{
			name:      "digits match the identifier",
			req:       api.OperatorListRequest{Page: 1, Limit: 10, Query: "11.222"},
			wantCNPJs: []string{beta},
			wantTotal: 1,
			wantPages: 1,
		},
		{
			name:      "no match",
			req:       api.OperatorListRequest{Page: 1, Limit: 10, Query: "delta"},
			wantCNPJs: []string{},
			wantTotal: 0,
			wantPages: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListOperators(ctx, tt.req)
			require.NoError(t, err)

			got := make([]string, 0, len(page.Data))
			for _, op := range page.Data {
				got = append(got, op.CNPJ)
			}
			assert.Equal(t, tt.wantCNPJs, got)
			assert.Equal(t, tt.wantTotal, page.Total)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Equal(t, tt.req.Page, page.Page)
			assert.Equal(t, tt.req.Limit, page.Limit)
		})
	}
}

func TestLedgerServiceGetOperator(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	op, err := svc.GetOperator(ctx, beta)
	require.NoError(t, err)
	assert.Equal(t, api.Operator{
		CNPJ:          beta,
		CNPJFormatted: "11.222.333/0001-81",
		RazaoSocial:   "Beta Vida",
		RegistroANS:   "200",
		Modalidade:    "Cooperativa Medica",
		UF:            "RJ",
	}, op)

	_, err = svc.GetOperator(ctx, "99999999000199")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestLedgerServiceExpenses(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	history, err := svc.Expenses(ctx, alfa)
	require.NoError(t, err)
	assert.Equal(t, []api.Expense{
		{Ano: 2023, Trimestre: 4, Valor: 1300.5},
		{Ano: 2024, Trimestre: 1, Valor: 1500},
	}, history)

	history, err = svc.Expenses(ctx, "99999999000199")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLedgerServiceStatistics(t *testing.T) {
	svc := loadedService(t)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 4780.50, stats.TotalDespesas, 0.001)
	assert.InDelta(t, 1593.50, stats.MediaPorOperadora, 0.001)

	require.Len(t, stats.TopOperadoras, 3)
	assert.Equal(t, api.TopOperator{CNPJ: alfa, RazaoSocial: "Alfa Saúde", UF: "SP", TotalDespesas: 2800.5}, stats.TopOperadoras[0])
	assert.Equal(t, beta, stats.TopOperadoras[1].CNPJ)
	assert.Equal(t, gama, stats.TopOperadoras[2].CNPJ)

	assert.Equal(t, []api.RegionBreakdown{
		{UF: "SP", TotalDespesas: 2800.5, QtdOperadoras: 1, MediaPorOperadora: 2800.5},
		{UF: "RJ", TotalDespesas: 2000, QtdOperadoras: 1, MediaPorOperadora: 2000},
		{UF: "MG", TotalDespesas: -20, QtdOperadoras: 1, MediaPorOperadora: -20},
	}, stats.PorUF)
}

func TestLedgerServiceNotLoaded(t *testing.T) {
	paths, err := config.NewPaths(t.TempDir())
	require.NoError(t, err)
	logger, capture := testutil.NewTestLogger(t)
	svc := NewLedgerService(paths, logger)
	ctx := context.Background()

	_, err = svc.ListOperators(ctx, api.NewOperatorListRequest())
	assert.ErrorIs(t, err, ErrLedgerNotLoaded)

	loadErr := svc.Load(ctx)
	require.Error(t, loadErr)
	assert.True(t, apperrors.IsType(loadErr, apperrors.ErrTypeStorage))
	assert.True(t, capture.ContainsMessage("failed to load ledger artifacts"))

	_, err = svc.Statistics(ctx)
	assert.Equal(t, loadErr, err)

	st := svc.Status()
	assert.False(t, st.Loaded)
	assert.NotEmpty(t, st.Error)
}

func TestLedgerServiceFailedReloadKeepsSnapshot(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	paths := writeArtifacts(t)
	svc := NewLedgerService(paths, logger)
	ctx := context.Background()
	require.NoError(t, svc.Load(ctx))

	require.NoError(t, os.Remove(paths.EnrichedCSV))
	require.Error(t, svc.Load(ctx))

	op, err := svc.GetOperator(ctx, alfa)
	require.NoError(t, err)
	assert.Equal(t, "SP", op.UF)

	st := svc.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, 3, st.Operators)
	assert.Equal(t, 5, st.Expenses)
	assert.NotEmpty(t, st.Error)
}
