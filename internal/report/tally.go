package report

import "github.com/papapumpkin/rulecover/internal/engine"

// Tally accumulates run totals. Rule usage counts segments of LRLM
// coverages, the ones a left-to-right longest-match transfer would apply.
type Tally struct {
	Lines     int
	Covered   int
	Uncovered int
	Failed    int
	Coverages int
	RuleUse   map[int]int
}

// Add counts one result.
func (t *Tally) Add(r engine.Result) {
	t.Lines++
	switch {
	case r.Err != nil:
		t.Failed++
		return
	case r.Covered():
		t.Covered++
	default:
		t.Uncovered++
	}
	t.Coverages += len(r.All)
	if t.RuleUse == nil {
		t.RuleUse = make(map[int]int)
	}
	for _, c := range r.LRLM {
		for _, s := range c {
			t.RuleUse[s.Rule.RuleID]++
		}
	}
}

// Unused returns the ids in [0, rules) never used by an LRLM coverage,
// ascending.
func (t *Tally) Unused(rules int) []int {
	var out []int
	for id := 0; id < rules; id++ {
		if t.RuleUse[id] == 0 {
			out = append(out, id)
		}
	}
	return out
}
