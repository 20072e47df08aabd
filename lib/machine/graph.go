package machine

import (
	"fmt"
	"strings"

	"github.com/stoewer/go-strcase"
)

// Edge is one transition of a Definition, as exposed by Transitions.
type Edge struct {
	State     string
	Action    Action
	Identity  Identity
	NextState string
}

// Transitions flattens the definition into its full transition set:
// states in declaration order, send edges before recv edges per state,
// identities in first-registration order within a direction.
// It is a pure projection and performs no validation.
func (d *Definition) Transitions() []Edge {
	var edges []Edge
	for _, name := range d.order {
		s := d.states[name]
		for _, identity := range s.sends.order {
			edges = append(edges, Edge{
				State:     name,
				Action:    Send,
				Identity:  identity,
				NextState: s.sends.targets[identity],
			})
		}
		for _, identity := range s.recvs.order {
			edges = append(edges, Edge{
				State:     name,
				Action:    Recv,
				Identity:  identity,
				NextState: s.recvs.targets[identity],
			})
		}
	}
	return edges
}

// GraphOptions controls the output of RenderGraph.
// Zero values select the defaults noted on each field.
type GraphOptions struct {
	// Name is the graph name, "protocol" by default.
	Name string
	// SendEdge holds the DOT attributes of send edges, a solid blue line by default.
	SendEdge string
	// RecvEdge holds the DOT attributes of recv edges, a dashed line by default.
	RecvEdge string
	// StateText transforms state names before rendering, identity by default.
	StateText func(string) string
	// MessageText transforms message identities before rendering, identity by default.
	MessageText func(string) string
}

// SnakeLabels is a text transform for GraphOptions that strips a leading
// dot-separated qualifier (such as a protobuf package) and converts the
// rest to snake case.
func SnakeLabels(text string) string {
	if i := strings.LastIndex(text, "."); i >= 0 {
		text = text[i+1:]
	}
	return strcase.SnakeCase(text)
}

// RenderGraph renders the definition as a graphviz DOT digraph.
// The start state is drawn with a double border; send and recv edges are
// drawn in two distinct styles configured through the options.
func (d *Definition) RenderGraph(options GraphOptions) string {
	name := options.Name
	if name == "" {
		name = "protocol"
	}
	sendEdge := options.SendEdge
	if sendEdge == "" {
		sendEdge = `color="#2060c0"`
	}
	recvEdge := options.RecvEdge
	if recvEdge == "" {
		recvEdge = "style=dashed"
	}
	stateText := options.StateText
	if stateText == nil {
		stateText = func(text string) string { return text }
	}
	messageText := options.MessageText
	if messageText == nil {
		messageText = func(text string) string { return text }
	}

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", name)
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=circle];\n\n")

	for _, stateName := range d.order {
		shape := ""
		if stateName == d.start {
			shape = ", shape=doublecircle"
		}
		fmt.Fprintf(&b, "  %q [label=%q%s];\n", stateName, stateText(stateName), shape)
	}
	b.WriteByte('\n')

	for _, edge := range d.Transitions() {
		style := recvEdge
		if edge.Action == Send {
			style = sendEdge
		}
		fmt.Fprintf(&b, "  %q -> %q [label=%q, %s];\n",
			edge.State, edge.NextState, messageText(string(edge.Identity)), style)
	}

	b.WriteString("}\n")
	return b.String()
}
