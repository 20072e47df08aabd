// Renders the echo protocol definition as a graphviz DOT digraph on stdout.
// Pipe it into dot to get a picture:
//
//	graph | dot -Tsvg -o echo.svg
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"projekt/machine/cmd/base"
	"projekt/machine/lib/machine"
)

func main() {
	argName := flag.String("name", "echo", "graph name")
	argSide := flag.String("side", "server", "which side to render, server or client")
	flag.Parse()

	var definition *machine.Definition
	switch *argSide {
	case "server":
		definition = base.ServerDefinition()
	case "client":
		definition = base.ClientDefinition(make(chan string))
	default:
		log.Fatalf("unknown side %q, expected server or client\n", *argSide)
	}

	fmt.Fprint(os.Stdout, definition.RenderGraph(machine.GraphOptions{
		Name:        *argName,
		StateText:   machine.SnakeLabels,
		MessageText: machine.SnakeLabels,
	}))
}
