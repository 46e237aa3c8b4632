package liveness

import (
	"fmt"

	"github.com/samber/lo"
)

// LivenessAnalysis runs AnalyzeBlock over every block of a CFG and then
// iterates the backward dataflow equations to a fixed point.
type LivenessAnalysis struct {
	Debug bool
}

// NewLivenessAnalysis returns an analyzer; set Debug on the returned value
// to trace malformed-CFG warnings to stdout (mirrors --trace-liveness).
func NewLivenessAnalysis(debug bool) *LivenessAnalysis {
	return &LivenessAnalysis{Debug: debug}
}

func (l *LivenessAnalysis) warnf(format string, args ...any) {
	if l.Debug {
		fmt.Printf("liveness: "+format+"\n", args...)
	}
}

// RunDataFlowAnalysis computes Use/Def for every block, then iterates
//
//	out[B] = union of in[S] for every successor S
//	in[B]  = use[B] ∪ (out[B] ∖ def[B])
//
// to a fixed point. Block/successor references that don't resolve in the
// graph are tolerated with a trace warning rather than treated as errors,
// per spec — order of block visitation does not affect the final result.
func (l *LivenessAnalysis) RunDataFlowAnalysis(c *CFG) error {
	if c == nil {
		l.warnf("RunDataFlowAnalysis called with a nil CFG")
		return nil
	}

	for _, b := range c.Blocks {
		if b == nil {
			l.warnf("nil block encountered in CFG %q", c.FunctionName)
			continue
		}
		if err := AnalyzeBlock(b); err != nil {
			return err
		}
	}

	for {
		changed := false
		for _, b := range c.Blocks {
			if b == nil {
				continue
			}

			var outSet []string
			seen := map[string]bool{}
			for _, succ := range c.successorBlocks(b) {
				for _, name := range succ.In {
					if !seen[name] {
						seen[name] = true
						outSet = append(outSet, name)
					}
				}
			}
			for _, id := range b.Successors {
				if _, ok := c.Blocks[id]; !ok {
					l.warnf("block %q references unknown successor %q", b.ID, id)
				}
			}

			defSet := map[string]bool{}
			for _, d := range b.Def {
				defSet[d] = true
			}
			inSet := append([]string{}, b.Use...)
			inSeen := map[string]bool{}
			for _, name := range inSet {
				inSeen[name] = true
			}
			for _, name := range outSet {
				if defSet[name] || inSeen[name] {
					continue
				}
				inSeen[name] = true
				inSet = append(inSet, name)
			}

			if !sameSet(b.In, inSet) {
				b.In = inSet
				changed = true
			}
			if !sameSet(b.Out, outSet) {
				b.Out = outSet
			}
		}
		if !changed {
			break
		}
	}
	return nil
}

// IsLiveAt reports whether name is live on entry to block id.
func (c *CFG) IsLiveAt(id, name string) bool {
	b, ok := c.Blocks[id]
	if !ok {
		return false
	}
	return lo.Contains(b.In, name)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[string]bool{}
	for _, n := range a {
		seen[n] = true
	}
	for _, n := range b {
		if !seen[n] {
			return false
		}
	}
	return true
}
