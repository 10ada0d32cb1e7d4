package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"claimsledger/internal/identifier"
	"claimsledger/internal/ledger"
	"claimsledger/internal/money"
	"claimsledger/internal/tabular"
)

// Rejection reasons written to import_rejeicoes.motivo.
const (
	ReasonInvalidOperator    = "cnpj invalido/zerado ou razao_social vazia"
	ReasonInvalidRegion      = "uf invalida"
	ReasonInvalidIdentifier  = "cnpj invalido/zerado"
	ReasonUnknownOperator    = "operadora desconhecida"
	ReasonInvalidExpense     = "ano/trimestre/valor invalido ou negativo"
	ReasonDuplicateExpense   = "duplicata por (cnpj,ano,trimestre)"
	ReasonInvalidAggregate   = "razao_social/uf/total invalidos ou negativos"
	ReasonDuplicateAggregate = "duplicata por (razao_social,uf)"
)

const zeroIdentifier = "00000000000000"

// Operator is one operadoras row.
type Operator struct {
	CNPJ           string
	LegalName      string
	RegistrationID sql.NullString
	Category       sql.NullString
	Region         sql.NullString
}

// Expense is one despesas_consolidadas row.
type Expense struct {
	CNPJ    string
	Year    int
	Quarter int
	Amount  decimal.Decimal
}

// Aggregate is one despesas_agregadas row.
type Aggregate struct {
	LegalName string
	Region    string
	Total     decimal.Decimal
	Mean      decimal.NullDecimal
	StdDev    decimal.NullDecimal
	Rows      sql.NullInt64
	Quarters  sql.NullInt64
}

// Rejection is one import_rejeicoes row. Raw holds the source row keyed by
// header, or the offending key for duplicates.
type Rejection struct {
	Table  string
	Reason string
	Detail string
	Raw    map[string]interface{}
}

// Plan is everything one load writes, in insertion order.
type Plan struct {
	Operators  []Operator
	Expenses   []Expense
	Aggregates []Aggregate
	Rejections []Rejection
}

// Counts summarizes a plan per target table.
func (p *Plan) Counts() map[string]int {
	return map[string]int{
		TableOperators:  len(p.Operators),
		TableExpenses:   len(p.Expenses),
		TableAggregates: len(p.Aggregates),
		TableRejections: len(p.Rejections),
	}
}

// BuildPlan cleans the bundle into loadable rows. Operators come from the
// enriched output; expenses must reference one of them. Rows sharing a key
// are reported once as duplicates and folded: repeats of one value keep it,
// differing values are summed.
func BuildPlan(b Bundle) *Plan {
	p := &Plan{}
	p.planOperators(b.Enriched)
	p.planExpenses(b.Consolidated)
	p.planAggregates(b.Aggregated)
	return p
}

func (p *Plan) reject(table, reason, detail string, raw map[string]interface{}) {
	p.Rejections = append(p.Rejections, Rejection{Table: table, Reason: reason, Detail: detail, Raw: raw})
}

func (p *Plan) planOperators(frame tabular.Frame) {
	byID := make(map[string]*Operator)
	var order []string

	for _, rec := range frame.Rows {
		row := rowReader{frame: frame, rec: rec}
		cnpj, ok := cleanIdentifier(row.get(ledger.ColIdentifier))
		name := row.get(ledger.ColLegalName)
		if !ok || name == "" {
			p.reject(TableOperators, ReasonInvalidOperator, "", row.raw())
			continue
		}
		region := strings.ToUpper(row.get(ledger.ColRegion))
		if region != "" && len([]rune(region)) != 2 {
			p.reject(TableOperators, ReasonInvalidRegion, "uf="+region, row.raw())
			continue
		}

		op, seen := byID[cnpj]
		if !seen {
			op = &Operator{CNPJ: cnpj}
			byID[cnpj] = op
			order = append(order, cnpj)
		}
		op.LegalName = maxString(op.LegalName, name)
		op.RegistrationID = maxNull(op.RegistrationID, row.get(ledger.ColRegistrationID))
		op.Category = maxNull(op.Category, row.get(ledger.ColCategory))
		op.Region = maxNull(op.Region, region)
	}

	sort.Strings(order)
	for _, id := range order {
		p.Operators = append(p.Operators, *byID[id])
	}
}

type expenseKey struct {
	cnpj    string
	year    int
	quarter int
}

func (p *Plan) planExpenses(frame tabular.Frame) {
	known := make(map[string]bool, len(p.Operators))
	for _, op := range p.Operators {
		known[op.CNPJ] = true
	}

	groups := make(map[expenseKey][]decimal.Decimal)
	var order []expenseKey

	for _, rec := range frame.Rows {
		row := rowReader{frame: frame, rec: rec}
		cnpj, ok := cleanIdentifier(row.get(ledger.ColIdentifier))
		if !ok {
			p.reject(TableExpenses, ReasonInvalidIdentifier, "", row.raw())
			continue
		}
		period, perr := ledger.ParsePeriod(row.get(ledger.ColQuarter), row.get(ledger.ColYear))
		amount, aerr := money.Parse(row.get(ledger.ColAmount))
		if perr != nil || aerr != nil || amount.IsNegative() {
			p.reject(TableExpenses, ReasonInvalidExpense, "", row.raw())
			continue
		}
		if !known[cnpj] {
			p.reject(TableExpenses, ReasonUnknownOperator, "cnpj="+cnpj, row.raw())
			continue
		}

		key := expenseKey{cnpj: cnpj, year: period.Year, quarter: period.Quarter}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], money.Round(amount))
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.cnpj != b.cnpj {
			return a.cnpj < b.cnpj
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.quarter < b.quarter
	})

	for _, key := range order {
		values := groups[key]
		if len(values) > 1 {
			p.reject(TableExpenses, ReasonDuplicateExpense, duplicateDetail(values), map[string]interface{}{
				"cnpj":      key.cnpj,
				"ano":       key.year,
				"trimestre": key.quarter,
			})
		}
		p.Expenses = append(p.Expenses, Expense{
			CNPJ:    key.cnpj,
			Year:    key.year,
			Quarter: key.quarter,
			Amount:  fold(values),
		})
	}
}

type aggregateKey struct {
	name   string
	region string
}

func (p *Plan) planAggregates(frame tabular.Frame) {
	groups := make(map[aggregateKey][]Aggregate)
	var order []aggregateKey

	for _, rec := range frame.Rows {
		row := rowReader{frame: frame, rec: rec}
		name := row.get(ledger.ColLegalName)
		region := strings.ToUpper(row.get(ledger.ColRegion))
		total, err := money.Parse(row.get(colTotal))
		if name == "" || len([]rune(region)) != 2 || err != nil || total.IsNegative() {
			p.reject(TableAggregates, ReasonInvalidAggregate, "", row.raw())
			continue
		}

		key := aggregateKey{name: name, region: region}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], Aggregate{
			LegalName: name,
			Region:    region,
			Total:     money.Round(total),
			Mean:      nullDecimal(row.get(colMean)),
			StdDev:    nullDecimal(row.get(colStdDev)),
			Rows:      nullInt(row.get(colRows)),
			Quarters:  nullInt(row.get(colQuarters)),
		})
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].name != order[j].name {
			return order[i].name < order[j].name
		}
		return order[i].region < order[j].region
	})

	for _, key := range order {
		rows := groups[key]
		agg := rows[0]
		if len(rows) > 1 {
			totals := make([]decimal.Decimal, len(rows))
			for i, r := range rows {
				totals[i] = r.Total
			}
			p.reject(TableAggregates, ReasonDuplicateAggregate, duplicateDetail(totals), map[string]interface{}{
				"razao_social": key.name,
				"uf":           key.region,
			})
			agg.Total = fold(totals)
		}
		p.Aggregates = append(p.Aggregates, agg)
	}
}

// cleanIdentifier keeps the digits of raw and accepts 13 or 14 of them,
// left-padded to 14. The all-zero identifier is refused.
func cleanIdentifier(raw string) (string, bool) {
	d := identifier.Digits(raw)
	if len(d) < identifier.Length-1 || len(d) > identifier.Length {
		return "", false
	}
	id, _ := identifier.Normalize(d)
	if id == zeroIdentifier {
		return "", false
	}
	return id, true
}

// fold keeps a value repeated across all rows and sums otherwise.
func fold(values []decimal.Decimal) decimal.Decimal {
	if distinct(values) == 1 {
		return values[0]
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum
}

func distinct(values []decimal.Decimal) int {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		seen[money.FormatPlain(v)] = true
	}
	return len(seen)
}

func duplicateDetail(values []decimal.Decimal) string {
	return fmt.Sprintf("qtd_linhas=%d, qtd_valores_distintos=%d", len(values), distinct(values))
}

func maxString(cur, next string) string {
	if next > cur {
		return next
	}
	return cur
}

func maxNull(cur sql.NullString, next string) sql.NullString {
	if next == "" {
		return cur
	}
	if !cur.Valid || next > cur.String {
		return sql.NullString{String: next, Valid: true}
	}
	return cur
}

func nullDecimal(raw string) decimal.NullDecimal {
	d, err := money.Parse(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(money.Round(d))
}

func nullInt(raw string) sql.NullInt64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}

type rowReader struct {
	frame tabular.Frame
	rec   []string
}

func (r rowReader) get(col string) string {
	if i := r.frame.Index(col); i >= 0 && i < len(r.rec) {
		return strings.TrimSpace(r.rec[i])
	}
	return ""
}

func (r rowReader) raw() map[string]interface{} {
	out := make(map[string]interface{}, len(r.frame.Headers))
	for i, h := range r.frame.Headers {
		if i < len(r.rec) {
			out[h] = r.rec[i]
		}
	}
	return out
}
