/*
Package covering builds 0/1 models deciding whether a covering system exists.

A covering system is a finite set of arithmetic progressions r (mod m) whose union
contains every integer. When every modulus divides some integer L, it is enough to
check that every integer in [0, L) is covered, since all progressions are periodic
modulo L.

Describing a problem

Two builders are available. A FixedSet gets an explicit list of moduli:

    b := covering.FixedSet{
        LCM:     35,
        Presets: []covering.Progression{{Residue: 4, Modulus: 5}},
        Moduli:  []int{7},
    }

A DivisorSweep uses every divisor of the LCM that is at least MinModulus:

    b := covering.DivisorSweep{LCM: 12, MinModulus: 2}

Presets are progressions that are part of the solution before the search begins.
They are never represented by variables: the integers they contain do not need to
be covered, and the variables of any multiple of their modulus that lie inside
them are fixed to false.

Solving a problem

The model itself does not know how to solve anything. It is handed to a Solver,
for instance the pseudo-boolean one from the pb package:

    m, err := b.Build()
    if err != nil {
        return err
    }
    sol, err := pb.New().Solve(ctx, m)
    if err != nil {
        return err
    }
    out, err := covering.Interpret(m, sol)

Solve does these three steps at once. The Outcome says whether a covering system
exists, does not exist, or whether the solver could not tell.
*/
package covering
