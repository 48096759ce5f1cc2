// Package pattern compiles the ordered rule list of a transfer file into a
// prefix automaton over category names. Each accepting node records the rule
// that ends there.
package pattern

import (
	"sort"
	"strings"
)

// Rule is a declared rule: its ordered pattern of category names and its
// free-text comment. A rule's identity is its position in the rule list.
type Rule struct {
	Categories []string
	Comment    string
}

// Accept identifies the rule that ends at an automaton node.
type Accept struct {
	RuleID  int
	Comment string
}

// Node is a state of the automaton.
type Node struct {
	children map[string]*Node
	accept   *Accept
}

func newNode() *Node {
	return &Node{children: make(map[string]*Node)}
}

// Child returns the node reached from n on category, or nil.
func (n *Node) Child(category string) *Node {
	return n.children[category]
}

// Accept returns the rule ending at n, if any.
func (n *Node) Accept() (Accept, bool) {
	if n.accept == nil {
		return Accept{}, false
	}
	return *n.accept, true
}

// Categories returns the labels of n's outgoing edges in ascending order.
func (n *Node) Categories() []string {
	out := make([]string, 0, len(n.children))
	for c := range n.children {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Shadow records a rule that can never be reached because a later rule
// declares the same pattern and replaced it at the shared node.
type Shadow struct {
	RuleID     int
	ReplacedBy int
	Categories []string
}

// Automaton is the trie built from a rule list. It is read-only once built
// and safe for concurrent use.
type Automaton struct {
	root     *Node
	rules    int
	shadowed []Shadow
}

// Build inserts the rules in declaration order. When two rules share the same
// pattern the later one overwrites the accept of the earlier one, which is
// then reported by Shadowed. A rule with an empty pattern accepts at the root.
func Build(rules []Rule) *Automaton {
	a := &Automaton{root: newNode(), rules: len(rules)}
	for id, r := range rules {
		node := a.root
		for _, c := range r.Categories {
			next, ok := node.children[c]
			if !ok {
				next = newNode()
				node.children[c] = next
			}
			node = next
		}
		if node.accept != nil {
			a.shadowed = append(a.shadowed, Shadow{
				RuleID:     node.accept.RuleID,
				ReplacedBy: id,
				Categories: append([]string(nil), r.Categories...),
			})
		}
		node.accept = &Accept{RuleID: id, Comment: r.Comment}
	}
	return a
}

// Root returns the start state.
func (a *Automaton) Root() *Node {
	return a.root
}

// Rules returns the number of declared rules, shadowed ones included.
func (a *Automaton) Rules() int {
	return a.rules
}

// Shadowed returns the rules lost to a later identical pattern, in the order
// they were replaced.
func (a *Automaton) Shadowed() []Shadow {
	return a.shadowed
}

// Entry is one reachable rule reconstructed from the automaton.
type Entry struct {
	Categories []string
	RuleID     int
	Comment    string
}

// Pattern returns the categories joined by single spaces.
func (e Entry) Pattern() string {
	return strings.Join(e.Categories, " ")
}

// Listing enumerates every root-to-accept path, sorted by rule ID.
func (a *Automaton) Listing() []Entry {
	var out []Entry
	type frame struct {
		node *Node
		path []string
	}
	stack := []frame{{node: a.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if acc, ok := f.node.Accept(); ok {
			out = append(out, Entry{
				Categories: append([]string(nil), f.path...),
				RuleID:     acc.RuleID,
				Comment:    acc.Comment,
			})
		}
		for _, c := range f.node.Categories() {
			path := make([]string, len(f.path)+1)
			copy(path, f.path)
			path[len(f.path)] = c
			stack = append(stack, frame{node: f.node.children[c], path: path})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out
}
