package agent

import "fmt"

// Roster is the ordered set of agents registered with a run. Roster order is
// load-bearing: the engine commits round proposals in roster order, which is
// what makes replay of identical seeds reproduce identical fact sequences.
type Roster struct {
	agents []Agent
}

// NewRoster builds a roster from the given agents, preserving order.
// Agent names must be unique and descriptors must validate.
func NewRoster(agents ...Agent) (*Roster, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("roster must contain at least one agent")
	}

	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		desc := a.Descriptor()
		if err := desc.Validate(); err != nil {
			return nil, err
		}
		if seen[desc.Name] {
			return nil, fmt.Errorf("duplicate agent name %q: all agents in a roster must have unique names", desc.Name)
		}
		seen[desc.Name] = true
	}

	roster := make([]Agent, len(agents))
	copy(roster, agents)
	return &Roster{agents: roster}, nil
}

// Agents returns the agents in registration order.
func (r *Roster) Agents() []Agent {
	return r.agents
}

// Len returns the number of registered agents.
func (r *Roster) Len() int {
	return len(r.agents)
}

// Names returns the agent names in registration order.
func (r *Roster) Names() []string {
	names := make([]string, len(r.agents))
	for i, a := range r.agents {
		names[i] = a.Descriptor().Name
	}
	return names
}

// Deterministic reports whether every agent in the roster is deterministic.
// Replay-equivalence guarantees only hold for fully deterministic rosters.
func (r *Roster) Deterministic() bool {
	for _, a := range r.agents {
		if a.Descriptor().Nondeterministic {
			return false
		}
	}
	return true
}
