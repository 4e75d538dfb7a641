package exec

import (
	"context"
	"fmt"

	"github.com/corvusdb/corvus/pkg/dict"
	"github.com/corvusdb/corvus/pkg/plan"
	"github.com/corvusdb/corvus/pkg/store"
)

// Engine builds and owns the runtime dependencies an Operator tree
// needs: the triple store it scans, the dictionary it decodes terms
// through, the BIND function table, and an optional hash-join
// accelerator. Grounded on the teacher's Executor struct
// (pkg/sparql/executor/executor.go), widened to carry the extra
// dependencies this executor's operators need beyond a bare store
// reference.
type Engine struct {
	Store       *store.TripleStore
	Dict        *dict.Dictionary
	Funcs       FunctionTable
	Accelerator HashJoinAccelerator
}

// NewEngine creates an Engine with the default BIND function table.
func NewEngine(s *store.TripleStore, d *dict.Dictionary) *Engine {
	return &Engine{Store: s, Dict: d, Funcs: DefaultFunctions()}
}

// Build translates a physical plan into a runnable Operator tree.
func (e *Engine) Build(phys plan.Physical) (Operator, error) {
	switch p := phys.(type) {
	case plan.IndexScan:
		return newScanOp(e.Store, p.Pattern), nil

	case plan.PhysicalSelection:
		input, err := e.Build(p.Input)
		if err != nil {
			return nil, err
		}
		return newSelectionOp(input, p.Condition, e.Dict), nil

	case plan.PhysicalProjection:
		input, err := e.Build(p.Input)
		if err != nil {
			return nil, err
		}
		return newProjectionOp(input, p.Vars, p.Distinct), nil

	case plan.HashJoin:
		build, err := e.Build(p.Build)
		if err != nil {
			return nil, err
		}
		probe, err := e.Build(p.Probe)
		if err != nil {
			return nil, err
		}
		return newHashJoinOp(build, probe, p.SharedVars, p.Kind, e.Accelerator), nil

	case plan.NestedLoopJoin:
		left, err := e.Build(p.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.Build(p.Right)
		if err != nil {
			return nil, err
		}
		return newNestedLoopJoinOp(left, right, p.Kind), nil

	case plan.ParallelJoin:
		build, err := e.Build(p.Build)
		if err != nil {
			return nil, err
		}
		probe, err := e.Build(p.Probe)
		if err != nil {
			return nil, err
		}
		if p.Kind != plan.JoinInner {
			// Optional/Minus need per-probe-row match bookkeeping that
			// isn't safe to parallelize across goroutines without
			// reintroducing the ordering the caller gave up by asking
			// for a ParallelJoin; fall back to the sequential hash join.
			return newHashJoinOp(build, probe, p.SharedVars, p.Kind, e.Accelerator), nil
		}
		return newParallelJoinOp(build, probe, p.SharedVars, p.Workers), nil

	case plan.PhysicalSubquery:
		inner, err := e.Build(p.Inner)
		if err != nil {
			return nil, err
		}
		return newProjectionOp(inner, p.ProjectedVars, false), nil

	case plan.PhysicalBind:
		input, err := e.Build(p.Input)
		if err != nil {
			return nil, err
		}
		return newBindOp(input, p.FuncName, p.Args, p.OutVar, e.Dict, e.Funcs), nil

	case plan.PhysicalValues:
		return newValuesOp(p.Vars, p.Rows), nil

	case plan.PhysicalOrderBy:
		input, err := e.Build(p.Input)
		if err != nil {
			return nil, err
		}
		return newOrderByOp(input, p.Keys, e.Dict), nil

	case plan.PhysicalLimit:
		input, err := e.Build(p.Input)
		if err != nil {
			return nil, err
		}
		return newLimitOp(input, p.N), nil

	case plan.PhysicalOffset:
		input, err := e.Build(p.Input)
		if err != nil {
			return nil, err
		}
		return newOffsetOp(input, p.N), nil

	case plan.PhysicalGroupBy:
		input, err := e.Build(p.Input)
		if err != nil {
			return nil, err
		}
		return newGroupByOp(input, p.GroupVars, p.Aggregates, e.Dict), nil

	default:
		return nil, fmt.Errorf("exec: unhandled physical node %T", phys)
	}
}

// Run executes phys to completion, collecting every emitted binding.
// Intended for tests and small result sets; streaming callers should
// Build + pull Next directly instead.
func (e *Engine) Run(phys plan.Physical) ([]map[string]string, error) {
	op, err := e.Build(phys)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	if err := op.Open(ctx); err != nil {
		op.Close()
		return nil, err
	}
	var out []map[string]string
	for op.Next(ctx) {
		row := op.Binding()
		m := make(map[string]string, len(row))
		for k, id := range row {
			lex, _ := e.Dict.Decode(id)
			m[k] = lex
		}
		out = append(out, m)
	}
	err = op.Err()
	if cerr := op.Close(); err == nil {
		err = cerr
	}
	return out, err
}
