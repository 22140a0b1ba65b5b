package mapping

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Formula is a scalar correction expression over the single variable x,
// where x is bound to the post-affine signal value. It is compiled once at
// mapping load, never per frame.
type Formula struct {
	src     string
	program *vm.Program
}

// formulaEnv is a struct so that any identifier other than x is rejected
// at compile time.
type formulaEnv struct {
	X float64 `expr:"x"`
}

func compileFormula(src string) (*Formula, error) {
	program, err := expr.Compile(src,
		expr.Env(formulaEnv{}),
		expr.AsFloat64(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile formula %q: %w", src, err)
	}

	return &Formula{
		src:     src,
		program: program,
	}, nil
}

func (f *Formula) String() string {
	return f.src
}

func (f *Formula) Eval(x float64) (float64, error) {
	out, err := expr.Run(f.program, formulaEnv{X: x})
	if err != nil {
		return 0, fmt.Errorf("eval formula %q: %w", f.src, err)
	}

	return out.(float64), nil
}
