// Package liveness builds a per-function control-flow graph and runs
// backward fixed-point liveness analysis over it, grounded on
// original_source's analysis pairing of LivenessAnalysis with
// CallFrameManager and RegisterManager's need to know which spilled
// variables are still live across a basic-block boundary.
package liveness

import "github.com/nativecg/bcplarm64/ast"

// BasicBlock is a single-entry, single-exit run of statements within a
// function's control-flow graph.
type BasicBlock struct {
	ID           string
	Statements   []ast.Node
	Predecessors []string
	Successors   []string

	Use []string
	Def []string
	In  []string
	Out []string
}

// CFG is a function's control-flow graph, keyed by block ID.
type CFG struct {
	FunctionName string
	Entry        string
	Blocks       map[string]*BasicBlock
}

// NewCFG returns an empty graph for functionName.
func NewCFG(functionName string) *CFG {
	return &CFG{FunctionName: functionName, Blocks: map[string]*BasicBlock{}}
}

// AddBlock registers b in the graph, keyed by its ID.
func (c *CFG) AddBlock(b *BasicBlock) {
	c.Blocks[b.ID] = b
}

// successorBlocks resolves b.Successors against the graph, silently
// dropping any ID that isn't present — a malformed-CFG condition the
// dataflow pass tolerates rather than rejects.
func (c *CFG) successorBlocks(b *BasicBlock) []*BasicBlock {
	var out []*BasicBlock
	for _, id := range b.Successors {
		if succ, ok := c.Blocks[id]; ok {
			out = append(out, succ)
		}
	}
	return out
}
