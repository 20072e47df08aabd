package machine

// Definition is the sealed, immutable graph of states and transitions shared
// by all engines of one protocol. It is read-only after sealing and may be
// shared across goroutines without synchronization.
type Definition struct {
	states map[string]*state
	order  []string
	start  string
}

// StartState returns the name of the definition's start state.
func (d *Definition) StartState() string {
	return d.start
}

// States returns the names of all states in declaration order,
// including states materialized at seal time.
func (d *Definition) States() []string {
	names := make([]string, len(d.order))
	copy(names, d.order)
	return names
}

func (d *Definition) state(name string) *state {
	return d.states[name]
}
