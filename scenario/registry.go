package scenario

import (
	"fmt"
	"sort"
	"strings"
)

// Procedures lists every built-in procedure in execution order.
func Procedures() []Procedure {
	procs := []Procedure{loginProcedure(), signupProcedure(), createQuizProcedure()}
	procs = append(procs, uploadProcedures()...)
	return append(procs, downloadProcedure())
}

// Lookup returns the named procedure.
func Lookup(name string) (Procedure, error) {
	var names []string
	for _, p := range Procedures() {
		if p.Name == name {
			return p, nil
		}
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return Procedure{}, fmt.Errorf("unknown procedure %q (known: %s)", name, strings.Join(names, ", "))
}
