// Package highs drives the HiGHS command-line solver when the binary is
// on PATH. The model is exported as a CPLEX LP file, solved in a
// scratch directory, and the solution file is read back. The backend
// registers itself under the name "highs".
package highs

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pwnet/core/model"
	"pwnet/solvers"
	"pwnet/internal/errors"
	"pwnet/internal/logging"
)

// Name is the registry name of this backend.
const Name = "highs"

// binary is the executable looked up on PATH.
const binary = "highs"

func init() {
	solvers.Register(&Backend{})
}

// Backend shells out to the HiGHS executable.
type Backend struct{}

// Name identifies the backend.
func (*Backend) Name() string { return Name }

// Available reports whether the HiGHS binary is on PATH.
func (*Backend) Available() bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

// Solve writes the model to an LP file, runs HiGHS on it, and maps the
// solution file back onto the model's columns.
func (b *Backend) Solve(ctx context.Context, m *model.Model, opt solvers.Options) (*solvers.Solution, error) {
	p, err := solvers.Export(m)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "pwnet-highs-")
	if err != nil {
		return nil, errors.Wrap(errors.TypeSolver, "creating solver scratch directory", err)
	}
	defer os.RemoveAll(dir)

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")
	if err := writeLP(lpPath, m.Name, p); err != nil {
		return nil, err
	}

	args := []string{"--solution_file", solPath}
	if opt.TimeLimit > 0 {
		args = append(args, "--time_limit", strconv.FormatFloat(opt.TimeLimit.Seconds(), 'f', 3, 64))
	}
	if optPath, err := writeOptions(dir, opt); err != nil {
		return nil, err
	} else if optPath != "" {
		args = append(args, "--options_file", optPath)
	}
	args = append(args, lpPath)

	start := time.Now()
	cmd := exec.CommandContext(ctx, binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errors.Wrapf(errors.TypeSolver, err,
			"highs failed: %s", strings.TrimSpace(string(out)))
	}

	sol, err := readSolution(solPath, p)
	if err != nil {
		return nil, err
	}
	logging.Debug("highs backend finished",
		zap.String("model", m.Name),
		zap.String("status", string(sol.Status)),
		zap.Duration("elapsed", time.Since(start)))
	return sol, nil
}

// writeOptions emits a HiGHS options file when any option needs one.
func writeOptions(dir string, opt solvers.Options) (string, error) {
	var b strings.Builder
	if opt.RelativeGap > 0 {
		fmt.Fprintf(&b, "mip_rel_gap = %g\n", opt.RelativeGap)
	}
	if opt.NumericFocus {
		b.WriteString("primal_feasibility_tolerance = 1e-9\n")
		b.WriteString("dual_feasibility_tolerance = 1e-9\n")
	}
	if b.Len() == 0 {
		return "", nil
	}
	path := filepath.Join(dir, "highs.opt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errors.Wrap(errors.TypeSolver, "writing solver options file", err)
	}
	return path, nil
}

// colName is the LP-file name of a column. Model variable names carry
// commas and parentheses, so columns are addressed positionally.
func colName(col int) string {
	return "x" + strconv.Itoa(col)
}

// writeTerms renders a sparse linear expression in LP syntax.
func writeTerms(w *bufio.Writer, coefs map[int]float64) {
	cols := make([]int, 0, len(coefs))
	for c := range coefs {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	first := true
	for _, c := range cols {
		coef := coefs[c]
		if coef == 0 {
			continue
		}
		switch {
		case first && coef < 0:
			fmt.Fprintf(w, "- %s %s", num(-coef), colName(c))
		case first:
			fmt.Fprintf(w, "%s %s", num(coef), colName(c))
		case coef < 0:
			fmt.Fprintf(w, " - %s %s", num(-coef), colName(c))
		default:
			fmt.Fprintf(w, " + %s %s", num(coef), colName(c))
		}
		first = false
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// writeLP writes the problem in CPLEX LP format. Ranged rows are split
// into a pair of one-sided rows, which every LP reader accepts.
func writeLP(path, name string, p *solvers.Problem) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.TypeSolver, "creating LP file", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "\\ %s\n", name)
	w.WriteString("Minimize\n obj: ")
	writeTerms(w, map[int]float64{p.ObjCol: 1})
	w.WriteString("\nSubject To\n")

	for i, r := range p.Rows {
		switch {
		case r.Lo == r.Hi:
			fmt.Fprintf(w, " c%d: ", i)
			writeTerms(w, r.Coefs)
			fmt.Fprintf(w, " = %s\n", num(r.Lo))
		default:
			if !math.IsInf(r.Hi, 1) {
				fmt.Fprintf(w, " c%d_u: ", i)
				writeTerms(w, r.Coefs)
				fmt.Fprintf(w, " <= %s\n", num(r.Hi))
			}
			if !math.IsInf(r.Lo, -1) {
				fmt.Fprintf(w, " c%d_l: ", i)
				writeTerms(w, r.Coefs)
				fmt.Fprintf(w, " >= %s\n", num(r.Lo))
			}
		}
	}

	w.WriteString("Bounds\n")
	var binaries, integers []int
	for i, v := range p.Cols {
		switch v.Kind {
		case model.Binary:
			binaries = append(binaries, i)
		case model.Integer:
			integers = append(integers, i)
		}
		switch {
		case math.IsInf(v.Lo, -1) && math.IsInf(v.Hi, 1):
			fmt.Fprintf(w, " %s free\n", colName(i))
		case math.IsInf(v.Lo, -1):
			fmt.Fprintf(w, " -infinity <= %s <= %s\n", colName(i), num(v.Hi))
		case math.IsInf(v.Hi, 1):
			fmt.Fprintf(w, " %s >= %s\n", colName(i), num(v.Lo))
		default:
			fmt.Fprintf(w, " %s <= %s <= %s\n", num(v.Lo), colName(i), num(v.Hi))
		}
	}

	if len(integers) > 0 {
		w.WriteString("General\n")
		for _, i := range integers {
			fmt.Fprintf(w, " %s\n", colName(i))
		}
	}
	if len(binaries) > 0 {
		w.WriteString("Binary\n")
		for _, i := range binaries {
			fmt.Fprintf(w, " %s\n", colName(i))
		}
	}
	w.WriteString("End\n")
	if err := w.Flush(); err != nil {
		return errors.Wrap(errors.TypeSolver, "writing LP file", err)
	}
	return nil
}

// readSolution parses a HiGHS solution file back into a Solution whose
// value vector follows the problem's column order.
func readSolution(path string, p *solvers.Problem) (*solvers.Solution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.TypeSolver, "highs produced no solution file", err)
	}
	defer f.Close()

	sol := &solvers.Solution{Status: solvers.StatusError}
	values := make([]float64, len(p.Cols))
	haveValues := false

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "Model status":
			if sc.Scan() {
				sol.Status = mapStatus(strings.TrimSpace(sc.Text()))
			}
		case strings.HasPrefix(line, "Objective "):
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "Objective")), 64)
			if err == nil {
				sol.Objective = v
			}
		case strings.HasPrefix(line, "# Columns "):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "# Columns")))
			if err != nil {
				return nil, errors.Wrap(errors.TypeSolver, "malformed solution file column header", err)
			}
			for i := 0; i < n && sc.Scan(); i++ {
				fields := strings.Fields(sc.Text())
				if len(fields) != 2 {
					continue
				}
				col, err := strconv.Atoi(strings.TrimPrefix(fields[0], "x"))
				if err != nil || col < 0 || col >= len(values) {
					continue
				}
				if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
					values[col] = v
				}
			}
			haveValues = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.TypeSolver, "reading solution file", err)
	}

	if haveValues && (sol.Status == solvers.StatusOptimal || sol.Status == solvers.StatusTimeLimit) {
		sol.Values = values
	}
	return sol, nil
}

// mapStatus translates HiGHS model-status strings.
func mapStatus(s string) solvers.Status {
	switch strings.ToLower(s) {
	case "optimal":
		return solvers.StatusOptimal
	case "infeasible":
		return solvers.StatusInfeasible
	case "unbounded", "primal unbounded":
		return solvers.StatusUnbounded
	case "time limit reached":
		return solvers.StatusTimeLimit
	default:
		return solvers.StatusError
	}
}

var _ solvers.Solver = (*Backend)(nil)
