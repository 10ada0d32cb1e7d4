package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"claimsledger/internal/config"
	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/identifier"
	"claimsledger/internal/ledger"
	"claimsledger/internal/money"
	"claimsledger/internal/registry"
	"claimsledger/internal/schema"
	api "claimsledger/pkg/contracts/api/v1"
	"claimsledger/pkg/contracts/domain"
)

// topOperators is the size of the statistics ranking.
const topOperators = 5

// LedgerService answers operator, expense and statistics queries from the
// pipeline artifacts.
type LedgerService struct {
	paths  *config.Paths
	logger *slog.Logger

	mu       sync.RWMutex
	snapshot *ledgerSnapshot
	loadErr  error
}

// LedgerStatus describes the loaded snapshot for health reporting.
type LedgerStatus struct {
	Loaded    bool      `json:"loaded"`
	LoadedAt  time.Time `json:"loaded_at,omitempty"`
	Operators int       `json:"operators"`
	Expenses  int       `json:"expenses"`
	Error     string    `json:"error,omitempty"`
}

type operatorEntry struct {
	api.Operator
	folded string
}

// ledgerSnapshot is immutable once built.
type ledgerSnapshot struct {
	operators []operatorEntry
	byID      map[string]api.Operator
	expenses  map[string][]api.Expense
	stats     api.Statistics
	rows      int
	loadedAt  time.Time
}

// NewLedgerService creates a service over the artifacts laid out in paths.
// Call Load before serving queries.
func NewLedgerService(paths *config.Paths, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		paths:  paths,
		logger: logger.With(slog.String("service", "ledger")),
	}
}

// Load reads the registry, consolidated and enriched artifacts and swaps in
// a new snapshot. A failed reload keeps the previous snapshot.
func (s *LedgerService) Load(ctx context.Context) error {
	var (
		operators    []domain.CanonicalRegistryRecord
		consolidated []domain.ConsolidatedRow
		enriched     []domain.ConsolidatedRow
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		operators, err = registry.ReadOperators(s.paths.OperatorsCSV)
		return err
	})
	g.Go(func() error {
		var err error
		consolidated, err = ledger.Read(s.paths.ConsolidatedCSV)
		return err
	})
	g.Go(func() error {
		var err error
		enriched, err = ledger.Read(s.paths.EnrichedCSV)
		return err
	})

	if err := g.Wait(); err != nil {
		s.mu.Lock()
		s.loadErr = err
		s.mu.Unlock()
		s.logger.ErrorContext(ctx, "failed to load ledger artifacts",
			slog.String("error", err.Error()))
		return err
	}

	snap := buildSnapshot(operators, consolidated, enriched)

	s.mu.Lock()
	s.snapshot = snap
	s.loadErr = nil
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "ledger loaded",
		slog.Int("operators", len(snap.operators)),
		slog.Int("expense_rows", snap.rows),
		slog.Int("regions", len(snap.stats.PorUF)))
	return nil
}

// Status reports whether a snapshot is available.
func (s *LedgerService) Status() LedgerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st LedgerStatus
	if s.loadErr != nil {
		st.Error = s.loadErr.Error()
	}
	if s.snapshot != nil {
		st.Loaded = true
		st.LoadedAt = s.snapshot.loadedAt
		st.Operators = len(s.snapshot.operators)
		st.Expenses = s.snapshot.rows
	}
	return st
}

func (s *LedgerService) current() (*ledgerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot != nil {
		return s.snapshot, nil
	}
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return nil, ErrLedgerNotLoaded
}

// ListOperators returns one page of operators sorted by legal name.
// A query with digits matches the identifier, anything else matches the
// legal name ignoring case and accents.
func (s *LedgerService) ListOperators(ctx context.Context, req api.OperatorListRequest) (api.OperatorPage, error) {
	snap, err := s.current()
	if err != nil {
		return api.OperatorPage{}, err
	}
	if req.Page < 1 {
		req.Page = api.DefaultPage
	}
	if req.Limit < 1 {
		req.Limit = api.DefaultLimit
	}

	matches := snap.operators
	if q := strings.TrimSpace(req.Query); q != "" {
		matches = filterOperators(snap.operators, q)
	}

	total := len(matches)
	page := api.OperatorPage{
		Data:       []api.Operator{},
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: 1,
	}
	if total > 0 {
		page.TotalPages = (total + req.Limit - 1) / req.Limit
	}

	start := req.Offset()
	if start < total {
		end := start + req.Limit
		if end > total {
			end = total
		}
		for _, e := range matches[start:end] {
			page.Data = append(page.Data, e.Operator)
		}
	}

	s.logger.DebugContext(ctx, "operators listed",
		slog.String("q", req.Query),
		slog.Int("total", total),
		slog.Int("page", req.Page))
	return page, nil
}

func filterOperators(entries []operatorEntry, q string) []operatorEntry {
	var out []operatorEntry
	if digits := identifier.Digits(q); digits != "" {
		for _, e := range entries {
			if strings.Contains(e.CNPJ, digits) {
				out = append(out, e)
			}
		}
		return out
	}
	needle := schema.Fold(q)
	for _, e := range entries {
		if strings.Contains(e.folded, needle) {
			out = append(out, e)
		}
	}
	return out
}

// GetOperator returns the registry row of a 14-digit identifier.
func (s *LedgerService) GetOperator(ctx context.Context, cnpj string) (api.Operator, error) {
	snap, err := s.current()
	if err != nil {
		return api.Operator{}, err
	}
	op, ok := snap.byID[cnpj]
	if !ok {
		return api.Operator{}, apperrors.NewNotFoundError("operadora").WithContext("cnpj", cnpj)
	}
	return op, nil
}

// Expenses returns the quarterly history of an identifier ordered by
// (ano, trimestre). Identifiers without filings get an empty history.
func (s *LedgerService) Expenses(ctx context.Context, cnpj string) ([]api.Expense, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	history := snap.expenses[cnpj]
	out := make([]api.Expense, len(history))
	copy(out, history)
	return out, nil
}

// Statistics returns the precomputed totals of the snapshot.
func (s *LedgerService) Statistics(ctx context.Context) (api.Statistics, error) {
	snap, err := s.current()
	if err != nil {
		return api.Statistics{}, err
	}
	stats := snap.stats
	stats.TopOperadoras = append([]api.TopOperator{}, snap.stats.TopOperadoras...)
	stats.PorUF = append([]api.RegionBreakdown{}, snap.stats.PorUF...)
	return stats, nil
}

type expenseKey struct {
	cnpj    string
	year    int
	quarter int
}

func buildSnapshot(operators []domain.CanonicalRegistryRecord, consolidated, enriched []domain.ConsolidatedRow) *ledgerSnapshot {
	snap := &ledgerSnapshot{
		byID:     make(map[string]api.Operator, len(operators)),
		expenses: make(map[string][]api.Expense),
		loadedAt: time.Now().UTC(),
	}

	for _, rec := range operators {
		op := api.Operator{
			CNPJ:          rec.Identifier,
			CNPJFormatted: identifier.Format(rec.Identifier),
			RazaoSocial:   rec.LegalName,
			RegistroANS:   rec.RegistrationID,
			Modalidade:    rec.Category,
			UF:            rec.Region,
		}
		if _, dup := snap.byID[op.CNPJ]; dup {
			continue
		}
		snap.byID[op.CNPJ] = op
		snap.operators = append(snap.operators, operatorEntry{Operator: op, folded: schema.Fold(op.RazaoSocial)})
	}
	sortOperators(snap.operators)

	amounts := make(map[expenseKey]decimal.Decimal)
	totals := make(map[string]decimal.Decimal)
	for _, row := range consolidated {
		id, ok := identifier.Normalize(row.Identifier)
		if !ok || !row.AmountOK || row.Period.Year == 0 {
			continue
		}
		k := expenseKey{cnpj: id, year: row.Period.Year, quarter: row.Period.Quarter}
		amounts[k] = amounts[k].Add(row.Amount)
		totals[id] = totals[id].Add(row.Amount)
		snap.rows++
	}
	for k, v := range amounts {
		snap.expenses[k.cnpj] = append(snap.expenses[k.cnpj], api.Expense{
			Ano:       k.year,
			Trimestre: k.quarter,
			Valor:     money.Round(v).InexactFloat64(),
		})
	}
	for _, history := range snap.expenses {
		sort.Slice(history, func(i, j int) bool {
			if history[i].Ano != history[j].Ano {
				return history[i].Ano < history[j].Ano
			}
			return history[i].Trimestre < history[j].Trimestre
		})
	}

	snap.stats = operatorStatistics(totals, snap.byID)
	snap.stats.PorUF = regionBreakdown(enriched)
	return snap
}

// sortOperators orders by legal name with pt-BR collation, empty names last.
func sortOperators(entries []operatorEntry) {
	col := collate.New(language.BrazilianPortuguese, collate.IgnoreCase)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if (a.RazaoSocial == "") != (b.RazaoSocial == "") {
			return b.RazaoSocial == ""
		}
		if c := col.CompareString(a.RazaoSocial, b.RazaoSocial); c != 0 {
			return c < 0
		}
		return a.CNPJ < b.CNPJ
	})
}

func operatorStatistics(totals map[string]decimal.Decimal, byID map[string]api.Operator) api.Statistics {
	stats := api.Statistics{
		TopOperadoras: []api.TopOperator{},
		PorUF:         []api.RegionBreakdown{},
	}
	if len(totals) == 0 {
		return stats
	}

	ids := make([]string, 0, len(totals))
	sum := decimal.Zero
	for id, v := range totals {
		ids = append(ids, id)
		sum = sum.Add(v)
	}
	stats.TotalDespesas = money.Round(sum).InexactFloat64()
	stats.MediaPorOperadora = money.Round(sum.Div(decimal.NewFromInt(int64(len(ids))))).InexactFloat64()

	sort.Slice(ids, func(i, j int) bool {
		if c := totals[ids[i]].Cmp(totals[ids[j]]); c != 0 {
			return c > 0
		}
		return ids[i] < ids[j]
	})
	if len(ids) > topOperators {
		ids = ids[:topOperators]
	}
	for _, id := range ids {
		op := byID[id]
		stats.TopOperadoras = append(stats.TopOperadoras, api.TopOperator{
			CNPJ:          id,
			RazaoSocial:   op.RazaoSocial,
			UF:            op.UF,
			TotalDespesas: money.Round(totals[id]).InexactFloat64(),
		})
	}
	return stats
}

// regionBreakdown totals enriched rows per UF, largest total first.
func regionBreakdown(enriched []domain.ConsolidatedRow) []api.RegionBreakdown {
	type bucket struct {
		total     decimal.Decimal
		operators map[string]struct{}
	}
	buckets := make(map[string]*bucket)
	for _, row := range enriched {
		uf := strings.ToUpper(strings.TrimSpace(row.Region))
		id, ok := identifier.Normalize(row.Identifier)
		if uf == "" || !ok || !row.AmountOK {
			continue
		}
		b := buckets[uf]
		if b == nil {
			b = &bucket{operators: make(map[string]struct{})}
			buckets[uf] = b
		}
		b.total = b.total.Add(row.Amount)
		b.operators[id] = struct{}{}
	}

	out := make([]api.RegionBreakdown, 0, len(buckets))
	for uf, b := range buckets {
		n := len(b.operators)
		out = append(out, api.RegionBreakdown{
			UF:                uf,
			TotalDespesas:     money.Round(b.total).InexactFloat64(),
			QtdOperadoras:     n,
			MediaPorOperadora: money.Round(b.total.Div(decimal.NewFromInt(int64(n)))).InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalDespesas != out[j].TotalDespesas {
			return out[i].TotalDespesas > out[j].TotalDespesas
		}
		return out[i].UF < out[j].UF
	})
	return out
}
