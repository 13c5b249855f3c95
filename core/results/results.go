// Package results assembles the solve outcome handed back to callers:
// solver status, cost summary, build schedule, quality and hydraulics
// reports, and a by-name query handle over the solved variables.
package results

import (
	"encoding/json"
	"io"

	"github.com/shopspring/decimal"

	"pwnet/core/hydraulics"
	"pwnet/core/model"
	"pwnet/core/quality"
	"pwnet/solvers"
	"pwnet/core/timing"
)

// CostLine is one named component of the cost summary. Amounts are
// decimals so report totals add exactly.
type CostLine struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// CostSummary aggregates the solved cost and credit totals.
type CostSummary struct {
	Lines   []CostLine      `json:"lines"`
	Credits []CostLine      `json:"credits"`
	Total   decimal.Decimal `json:"total"`
	Net     decimal.Decimal `json:"net"`
}

// Result is one finished optimization run.
type Result struct {
	Status    solvers.Status
	Objective float64

	// Model carries the solved variable values for detailed queries.
	Model *model.Model

	Costs         *CostSummary
	BuildSchedule timing.Schedule
	Quality       *quality.Report
	Hydraulics    *hydraulics.Report

	// Warnings carries non-fatal findings: solver-infeasible outcomes,
	// slack activity, absent optional tables.
	Warnings []string
}

// Value returns one solved variable value by family name and index.
func (r *Result) Value(name string, idx ...string) float64 {
	if r.Model == nil {
		return 0
	}
	return r.Model.Value(name, idx...)
}

// Warn appends a non-fatal finding.
func (r *Result) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// costTotals maps the running-total variables to their report labels.
var costTotals = []struct {
	varName string
	label   string
}{
	{model.VarTotalPiping, "piping"},
	{model.VarTotalTrucking, "trucking"},
	{model.VarTotalSourced, "external sourcing"},
	{model.VarTotalDisposal, "disposal"},
	{model.VarTotalTreatment, "treatment"},
	{model.VarTotalResidual, "residual disposal"},
	{model.VarTotalStorage, "storage"},
	{model.VarTotalExpansion, "capacity expansion"},
	{model.VarTotalSlack, "slack penalties"},
	{model.VarTotalPumping, "pumping"},
}

var creditTotals = []struct {
	varName string
	label   string
}{
	{model.VarTotalStorageCredit, "storage withdrawal revenue"},
	{model.VarTotalReuseCredit, "beneficial reuse credit"},
}

// NewCostSummary reads the solved running totals into a summary.
// Absent totals (families the configuration never created) are skipped.
func NewCostSummary(m *model.Model) *CostSummary {
	cs := &CostSummary{Total: decimal.Zero, Net: decimal.Zero}
	credits := decimal.Zero
	for _, ct := range costTotals {
		v := m.Var(ct.varName)
		if v == nil {
			continue
		}
		amount := decimal.NewFromFloat(v.Value).Round(2)
		cs.Lines = append(cs.Lines, CostLine{Name: ct.label, Amount: amount})
		cs.Total = cs.Total.Add(amount)
	}
	for _, ct := range creditTotals {
		v := m.Var(ct.varName)
		if v == nil {
			continue
		}
		amount := decimal.NewFromFloat(v.Value).Round(2)
		cs.Credits = append(cs.Credits, CostLine{Name: ct.label, Amount: amount})
		credits = credits.Add(amount)
	}
	cs.Net = cs.Total.Sub(credits)
	return cs
}

// export is the serialized shape of a result.
type export struct {
	Status        solvers.Status        `json:"status"`
	Objective     float64               `json:"objective"`
	Costs         *CostSummary          `json:"costs,omitempty"`
	BuildSchedule timing.Schedule       `json:"build_schedule,omitempty"`
	Quality       map[string]float64    `json:"quality,omitempty"`
	Hydraulics    *hydraulics.Report    `json:"hydraulics,omitempty"`
	Flows         map[string]float64    `json:"flows,omitempty"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// flowFamilies are the variable families included in the JSON export.
var flowFamilies = []string{
	model.VarPiped, model.VarTrucked, model.VarSourced,
	model.VarDisposal, model.VarReuse, model.VarCompletions,
	model.VarTreated, model.VarResidual,
	model.VarStorageLevel, model.VarPadStorageLevel,
}

// WriteJSON serializes the result. Only nonzero flows are included;
// zero entries carry no information and bloat the export.
func (r *Result) WriteJSON(w io.Writer) error {
	e := export{
		Status:        r.Status,
		Objective:     r.Objective,
		Costs:         r.Costs,
		BuildSchedule: r.BuildSchedule,
		Hydraulics:    r.Hydraulics,
		Warnings:      r.Warnings,
	}
	if r.Quality != nil {
		e.Quality = make(map[string]float64, len(r.Quality.Values))
		for k, v := range r.Quality.Values {
			e.Quality[string(k)] = v
		}
	}
	if r.Model != nil {
		e.Flows = make(map[string]float64)
		for _, fam := range flowFamilies {
			for _, v := range r.Model.VarsNamed(fam) {
				if v.Value > 1e-9 {
					e.Flows[v.ID()] = v.Value
				}
			}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
