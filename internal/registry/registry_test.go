package registry

import (
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimsledger/internal/config"
	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/exporter"
	"claimsledger/pkg/contracts/domain"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "Relatorio_cadop.csv",
		"Registro_Operadora;CNPJ;Razao_Social;Nome_Fantasia;Modalidade;UF\n"+
			"  123456 ;11.444.777/0001-61; Alfa Saude ;Alfa;Medicina de Grupo;SP\n"+
			"654321;11222333000181;Beta Odonto;;Odontologia de Grupo;\n")

	records, err := LoadCSV(path, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, domain.RegistryRecord{
		Identifier:     "11.444.777/0001-61",
		LegalName:      "Alfa Saude",
		RegistrationID: "123456",
		Category:       "Medicina de Grupo",
		Region:         "SP",
	}, records[0])
	assert.Empty(t, records[1].Region)
}

func TestLoadCSVContainsFallback(t *testing.T) {
	path := writeFile(t, "cadop.csv",
		"Numero do Registro;CNPJ da Operadora;Razão Social Completa\n1;11444777000161;Alfa\n")

	records, err := LoadCSV(path, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0].RegistrationID)
	assert.Equal(t, "Alfa", records[0].LegalName)
}

func TestLoadCSVMissingColumns(t *testing.T) {
	path := writeFile(t, "cadop.csv", "CNPJ;Modalidade;UF\n11444777000161;X;SP\n")

	_, err := LoadCSV(path, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStructural))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{string(RoleRegistrationID), string(RoleLegalName)}, appErr.Context["missing"])
}

func TestDeduplicate(t *testing.T) {
	records := []domain.RegistryRecord{
		{Identifier: "11.444.777/0001-61", LegalName: "Alfa", RegistrationID: "900", Category: "Medicina", Region: "nan"},
		{Identifier: "11444777000161", LegalName: "Alfa", RegistrationID: "120", Category: "Medicina", Region: "SP"},
		{Identifier: "11444777000161", LegalName: "Alfa", RegistrationID: "80", Category: "Medicina", Region: "SP"},
		{Identifier: "11444777000161", LegalName: "Alfa", RegistrationID: "80", Category: "Medicina", Region: "SP"},
		{Identifier: "191", LegalName: "Gama", RegistrationID: "X1", Category: "", Region: "RJ"},
		{Identifier: "191", LegalName: "Gama", RegistrationID: "7", Category: "", Region: "RJ"},
		{Identifier: "sem cnpj", LegalName: "Delta", RegistrationID: "1"},
		{Identifier: "123456789012345", LegalName: "Longo", RegistrationID: "2"},
	}

	canonical, divergences, skipped := Deduplicate(records)
	assert.Equal(t, 2, skipped)
	require.Len(t, canonical, 2)

	assert.Equal(t, "00000000000191", canonical[0].Identifier)
	assert.Equal(t, "7", canonical[0].RegistrationID, "numeric ids sort before non-numeric ones")
	assert.Equal(t, 2, canonical[0].Duplicates)

	assert.Equal(t, "11444777000161", canonical[1].Identifier)
	assert.Equal(t, "80", canonical[1].RegistrationID, "complete records win, then the lowest id")
	assert.Equal(t, "SP", canonical[1].Region)
	assert.Equal(t, 4, canonical[1].Duplicates)

	require.Len(t, divergences, 2)
	assert.Equal(t, "00000000000191", divergences[0].Identifier)
	assert.Equal(t, domain.DivergenceRecord{
		Identifier: "11444777000161",
		Variants: []domain.AttributeTuple{
			{RegistrationID: "900", Category: "Medicina", Region: ""},
			{RegistrationID: "120", Category: "Medicina", Region: "SP"},
			{RegistrationID: "80", Category: "Medicina", Region: "SP"},
		},
	}, divergences[1])
}

func TestDeduplicateSingleVariantIsNotDivergent(t *testing.T) {
	records := []domain.RegistryRecord{
		{Identifier: "11444777000161", RegistrationID: "1", Category: "A", Region: "SP"},
		{Identifier: "11444777000161", RegistrationID: "1", Category: "A", Region: "SP"},
	}
	canonical, divergences, skipped := Deduplicate(records)
	assert.Len(t, canonical, 1)
	assert.Empty(t, divergences)
	assert.Zero(t, skipped)
}

func TestDeduplicateIgnoresInputOrder(t *testing.T) {
	records := []domain.RegistryRecord{
		{Identifier: "11444777000161", LegalName: "Alfa Saude", RegistrationID: "1", Category: "A", Region: "SP"},
		{Identifier: "11444777000161", LegalName: "Alfa Saude SA", RegistrationID: "1", Category: "A", Region: "SP"},
		{Identifier: "11444777000161", LegalName: "Alfa", RegistrationID: "2", Category: "A", Region: "SP"},
		{Identifier: "11222333000181", LegalName: "Beta", RegistrationID: "9", Category: "", Region: "RJ"},
		{Identifier: "11222333000181", LegalName: "Beta Odonto", RegistrationID: "9", Category: "B", Region: "RJ"},
	}

	want, _, _ := Deduplicate(records)
	require.Len(t, want, 2)
	assert.Equal(t, "Beta Odonto", want[0].LegalName)
	assert.Equal(t, "Alfa Saude", want[1].LegalName)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		shuffled := slices.Clone(records)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got, _, skipped := Deduplicate(shuffled)
		assert.Zero(t, skipped)
		assert.Equal(t, want, got, "order %d", i)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  SP ", "SP"},
		{"NaN", ""},
		{"None", ""},
		{"null", ""},
		{"nulo", "nulo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanText(tt.in), tt.in)
	}
}

func TestIndex(t *testing.T) {
	idx := NewIndex([]domain.RegistryRecord{
		{RegistrationID: " 100 ", Identifier: "11.444.777/0001-61", LegalName: " Alfa "},
		{RegistrationID: "100", Identifier: "99999999999999", LegalName: "Outra"},
		{RegistrationID: "", Identifier: "11222333000181", LegalName: "Sem registro"},
		{RegistrationID: "200", Identifier: "191", LegalName: "Gama"},
	})

	assert.Equal(t, 2, idx.Len())

	r, ok := idx.Lookup("100")
	require.True(t, ok)
	assert.Equal(t, "11444777000161", r.Identifier)
	assert.Equal(t, "Alfa", r.LegalName)

	r, ok = idx.Lookup("200 ")
	require.True(t, ok)
	assert.Equal(t, "191", r.Identifier, "identifiers keep their digits without padding")

	_, ok = idx.Lookup("")
	assert.False(t, ok)
}

func TestEnrich(t *testing.T) {
	canonical, _, _ := Deduplicate([]domain.RegistryRecord{
		{Identifier: "11444777000161", LegalName: "Alfa", RegistrationID: "100", Category: "Medicina", Region: "SP"},
		{Identifier: "11222333000181", LegalName: "Beta", RegistrationID: "", Category: "Odonto", Region: "RJ"},
	})
	dir := NewDirectory(canonical)
	assert.Equal(t, 2, dir.Len())

	rows := []domain.ConsolidatedRow{
		{Identifier: "11.444.777/0001-61", LegalName: "Alfa", Amount: decimal.NewFromInt(10), AmountOK: true},
		{Identifier: "11222333000181", LegalName: "Beta"},
		{Identifier: "55555555000155", LegalName: "Desconhecida"},
		{Identifier: "", LegalName: "Sem CNPJ"},
	}

	matched, unmatched := Enrich(rows, dir)
	require.Len(t, matched, 1)
	assert.Equal(t, "11444777000161", matched[0].Identifier)
	assert.Equal(t, "100", matched[0].RegistrationID)
	assert.Equal(t, "Medicina", matched[0].Category)
	assert.Equal(t, "SP", matched[0].Region)

	require.Len(t, unmatched, 3)
	assert.Equal(t, "RJ", unmatched[0].Region, "a record without registration id does not count as a match")
	assert.Equal(t, "55555555000155", unmatched[1].Identifier)
	assert.Empty(t, unmatched[2].Identifier)
}

func TestOperatorsRoundTripThroughCSV(t *testing.T) {
	canonical, divergences, _ := Deduplicate([]domain.RegistryRecord{
		{Identifier: "11444777000161", LegalName: "Alfa", RegistrationID: "100", Category: "Medicina", Region: "SP"},
		{Identifier: "11444777000161", LegalName: "Alfa", RegistrationID: "101", Category: "Medicina", Region: "SP"},
	})

	dir := t.TempDir()
	w := exporter.NewCSVWriter(nil, nil)
	opsPath := filepath.Join(dir, "operadoras.csv")
	require.NoError(t, w.WriteSimpleCSV(opsPath, OperatorsHeader, OperatorRecords(canonical)))

	got, err := ReadOperators(opsPath)
	require.NoError(t, err)
	assert.Equal(t, canonical, got)

	assert.Equal(t, [][]string{
		{"11444777000161", "100", "Medicina", "SP"},
		{"11444777000161", "101", "Medicina", "SP"},
	}, DivergenceRecords(divergences))
}

func TestReadOperatorsMissingColumns(t *testing.T) {
	path := writeFile(t, "operadoras.csv", "CNPJ;RazaoSocial\n11444777000161;Alfa\n")
	_, err := ReadOperators(path)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStructural))
}

func TestRunAndArtifacts(t *testing.T) {
	paths, err := config.NewPaths(t.TempDir())
	require.NoError(t, err)

	rows := []domain.ConsolidatedRow{
		{Identifier: "11444777000161", LegalName: "Alfa", Period: domain.Period{Year: 2024, Quarter: 1},
			Amount: decimal.NewFromInt(5), AmountOK: true},
		{Identifier: "55555555000155", LegalName: "Desconhecida", Period: domain.Period{Year: 2024, Quarter: 1},
			Amount: decimal.NewFromInt(1), AmountOK: true},
	}
	records := []domain.RegistryRecord{
		{Identifier: "11444777000161", LegalName: "Alfa", RegistrationID: "100", Category: "Medicina", Region: "SP"},
		{Identifier: "11444777000161", LegalName: "Alfa", RegistrationID: "100", Category: "Medicina", Region: "RJ"},
		{Identifier: "n/d", LegalName: "Sem CNPJ", RegistrationID: "300"},
	}

	e := Run(rows, records)
	written, err := Artifacts(exporter.NewCSVWriter(paths, nil), paths, e)
	require.NoError(t, err)
	assert.Len(t, written, 5)

	data, err := os.ReadFile(paths.EnrichedCSV)
	require.NoError(t, err)
	assert.Equal(t, "\ufeffCNPJ;RazaoSocial;Trimestre;Ano;ValorDespesas;RegistroANS;Modalidade;UF\n"+
		"11444777000161;Alfa;1T;2024;5,00;100;Medicina;RJ\n", string(data))

	var summary domain.EnrichmentSummary
	data, err = os.ReadFile(paths.EnrichmentSummaryJSON)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, domain.EnrichmentSummary{
		TotalRecords:       2,
		EnrichedRecords:    1,
		UnmatchedRecords:   1,
		DivergentRegistry:  1,
		InvalidRegistryIDs: 1,
		Files:              []string{"enriquecido.csv", "sem_match.csv", "cadastro_divergentes.csv", "operadoras.csv"},
	}, summary)
}
