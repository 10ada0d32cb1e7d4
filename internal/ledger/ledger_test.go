package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/exporter"
	"claimsledger/pkg/contracts/domain"
)

func TestWriteAndRead(t *testing.T) {
	rows := []domain.ConsolidatedRow{
		{
			Identifier: "11222333000181", LegalName: "Alfa Saúde",
			Period: domain.Period{Year: 2024, Quarter: 1},
			Amount: decimal.RequireFromString("1300.505"), AmountOK: true,
			RegistrationID: "123456", Category: "Medicina de Grupo", Region: "SP",
		},
		{
			Identifier: "", LegalName: "",
			Period:    domain.Period{Year: 2023, Quarter: 4},
			AmountRaw: "abc",
		},
	}

	tests := []struct {
		name     string
		enriched bool
		header   string
	}{
		{name: "consolidated", header: "CNPJ;RazaoSocial;Trimestre;Ano;ValorDespesas\n"},
		{name: "enriched", enriched: true, header: "CNPJ;RazaoSocial;Trimestre;Ano;ValorDespesas;RegistroANS;Modalidade;UF\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ledger.csv")
			require.NoError(t, Write(exporter.NewCSVWriter(nil, nil), path, rows, tt.enriched))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.header)
			assert.Contains(t, string(data), "11222333000181;Alfa Saúde;1T;2024;1.300,51")

			got, err := Read(path)
			require.NoError(t, err)
			require.Len(t, got, 2)

			assert.True(t, got[0].AmountOK)
			assert.Equal(t, "1300.51", got[0].Amount.StringFixed(2))
			assert.Equal(t, domain.Period{Year: 2024, Quarter: 1}, got[0].Period)
			if tt.enriched {
				assert.Equal(t, "SP", got[0].Region)
				assert.Equal(t, "123456", got[0].RegistrationID)
			} else {
				assert.Empty(t, got[0].Region)
			}

			assert.False(t, got[1].AmountOK)
			assert.Equal(t, "abc", got[1].AmountRaw)
		})
	}
}

func TestReadMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte("CNPJ;RazaoSocial;Ano\n1;x;2024\n"), 0644))

	_, err := Read(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStructural))
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name    string
		quarter string
		year    string
		want    domain.Period
		wantErr bool
	}{
		{name: "label", quarter: "3T", year: "2023", want: domain.Period{Year: 2023, Quarter: 3}},
		{name: "bare digit", quarter: "2", year: " 2024 ", want: domain.Period{Year: 2024, Quarter: 2}},
		{name: "quarter out of range", quarter: "5T", year: "2024", wantErr: true},
		{name: "bad year", quarter: "1T", year: "ano", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriod(tt.quarter, tt.year)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
