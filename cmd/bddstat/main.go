// Command bddstat builds a Manager from flags, runs a small canned
// workload exercising the core operators, and prints Manager.Stats().
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/bddcore/bdd"
)

var cli struct {
	InitialNodes uint32 `help:"Initial node pool capacity." default:"524288"`
	CacheRatio   uint32 `help:"Pool capacity / cache size ratio." default:"16"`
	GCMinCutoff  uint32 `help:"Minimum pool size before automatic GC." default:"1048576"`
	Debug        bool   `help:"Emit structured GC/resize log lines." default:"false"`
	Vars         int    `help:"Number of boolean variables in the canned workload." default:"8"`
}

func main() {
	kong.Parse(&cli, kong.Description("Build a BDD manager from flags and print its stats."))

	m, err := bdd.New(
		bdd.WithInitialNodes(cli.InitialNodes),
		bdd.WithCacheRatio(cli.CacheRatio),
		bdd.WithGCMinCutoff(cli.GCMinCutoff),
		bdd.WithPrintDebug(cli.Debug),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bddstat:", err)
		os.Exit(1)
	}

	if err := runWorkload(m, cli.Vars); err != nil {
		fmt.Fprintln(os.Stderr, "bddstat:", err)
		os.Exit(1)
	}

	fmt.Println(m.Stats())
}

// runWorkload builds v0 ∧ (v0 => v1) ∧ ... ∧ (v(n-2) => v(n-1)) over n
// variables and reports its satisfying-assignment count, exercising Var,
// And, Implies, SatCount, and Display.
func runWorkload(m *bdd.Manager, n int) error {
	if n < 2 {
		n = 2
	}
	vars := make([]*bdd.Handle, n)
	for i := 0; i < n; i++ {
		h, err := m.Var(uint32(i))
		if err != nil {
			return err
		}
		vars[i] = h
	}

	chain := vars[0]
	for i := 1; i < n; i++ {
		imp, err := m.Implies(vars[i-1], vars[i])
		if err != nil {
			return err
		}
		chain, err = m.And(chain, imp)
		if err != nil {
			return err
		}
	}

	count, err := m.SatCount(chain)
	if err != nil {
		return err
	}
	fmt.Printf("satcount: %.0f\n", count)

	display, err := m.Display(chain)
	if err != nil {
		return err
	}
	fmt.Println("display:", display)
	return nil
}
