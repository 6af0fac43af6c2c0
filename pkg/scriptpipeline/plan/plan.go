// Package plan tracks the dependency DAG of an OperationGroup list and
// hands out batches of groups that are ready to execute, in the shape the
// group executor drives it (see SPEC_FULL.md §4.7, C7).
package plan

import (
	"sync"

	"github.com/aomilabs/agentcore/internal/agent"
)

// node is the scheduler's per-group bookkeeping.
type node struct {
	group agent.OperationGroup
	state agent.GroupState
}

// ExecutionPlan is a mutex-protected DAG scheduler over a fixed set of
// OperationGroups, indexed by their position in the original list — the
// same indices OperationGroup.Dependencies refers to.
type ExecutionPlan struct {
	mu    sync.Mutex
	nodes []*node
}

// New builds an ExecutionPlan from groups. Each group's Index is set to its
// position in the list, overriding whatever the caller supplied, so it
// always matches the slice position other groups' Dependencies reference.
func New(groups []agent.OperationGroup) *ExecutionPlan {
	nodes := make([]*node, len(groups))
	for i, g := range groups {
		g.Index = i
		nodes[i] = &node{group: g, state: agent.GroupPending}
	}
	return &ExecutionPlan{nodes: nodes}
}

// Len returns the total number of groups tracked.
func (p *ExecutionPlan) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.nodes)
}

// dependenciesSatisfied reports whether every dependency of n is Done.
// Must be called with p.mu held.
func (p *ExecutionPlan) dependenciesSatisfied(n *node) bool {
	for _, idx := range n.group.Dependencies {
		if idx < 0 || idx >= len(p.nodes) {
			return false
		}
		if p.nodes[idx].state != agent.GroupDone {
			return false
		}
	}
	return true
}

// dependencyFailed reports whether any dependency of n is Failed. A group
// whose dependency failed can never become ready and is itself marked
// Failed without ever being scheduled.
func (p *ExecutionPlan) dependencyFailed(n *node) bool {
	for _, idx := range n.group.Dependencies {
		if idx < 0 || idx >= len(p.nodes) {
			continue
		}
		if p.nodes[idx].state == agent.GroupFailed {
			return true
		}
	}
	return false
}

// NextReadyBatch returns every Pending group whose dependencies are all
// Done, transitioning them to InProgress atomically with the scan so two
// callers never receive the same group. Groups whose dependencies have
// failed are marked Failed in the same pass and never returned.
func (p *ExecutionPlan) NextReadyBatch() []agent.OperationGroup {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Propagate failure first so a just-failed dependency's dependents
	// are not mistaken for "still waiting" forever.
	changed := true
	for changed {
		changed = false
		for _, n := range p.nodes {
			if n.state == agent.GroupPending && p.dependencyFailed(n) {
				n.state = agent.GroupFailed
				changed = true
			}
		}
	}

	var batch []agent.OperationGroup
	for _, n := range p.nodes {
		if n.state == agent.GroupPending && p.dependenciesSatisfied(n) {
			n.state = agent.GroupInProgress
			batch = append(batch, n.group)
		}
	}
	return batch
}

// MarkDone transitions a previously InProgress group (identified by its
// OperationGroup.Index) to Done.
func (p *ExecutionPlan) MarkDone(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index >= 0 && index < len(p.nodes) {
		p.nodes[index].state = agent.GroupDone
	}
}

// MarkFailed transitions a previously InProgress group to Failed. Its
// dependents are marked Failed on the next NextReadyBatch call rather than
// here, so a single failure only ever propagates forward through the DAG.
func (p *ExecutionPlan) MarkFailed(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index >= 0 && index < len(p.nodes) {
		p.nodes[index].state = agent.GroupFailed
	}
}

// Quiescent reports whether no group remains Pending or InProgress — every
// group has settled into Done or Failed.
func (p *ExecutionPlan) Quiescent() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.nodes {
		if n.state == agent.GroupPending || n.state == agent.GroupInProgress {
			return false
		}
	}
	return true
}

// State returns the current state of a group, for callers that need to
// classify final results (e.g. distinguishing Done from Failed groups once
// Quiescent is true).
func (p *ExecutionPlan) State(index int) (agent.GroupState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.nodes) {
		return 0, false
	}
	return p.nodes[index].state, true
}
