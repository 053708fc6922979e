package pxeboot

import (
	"github.com/emicklei/dot"
)

// DescribeAsJSON returns a JSON description of the boot attempt statemachine.
func DescribeAsJSON() ([]byte, error) {
	return newStateMachine(&handler{}).AsJSON()
}

// Graph returns the boot attempt stages as a dot graph.
func Graph() *dot.Graph {
	g := dot.NewGraph(dot.Directed)

	init := g.Node(string(stateInit))
	media := g.Node(string(stateMediaInjected))
	triggered := g.Node(string(stateBootTriggered))
	consoleOpen := g.Node(string(stateConsoleOpen))
	menu := g.Node(string(stateMenuComplete))
	done := g.Node(string(stateDone))
	failed := g.Node(string(stateFailed))

	g.Edge(init, media, "Inject boot media")
	g.Edge(media, triggered, "Trigger boot")
	g.Edge(triggered, consoleOpen, "Open console session")
	g.Edge(consoleOpen, menu, "Navigate boot menu or interactive wait")
	g.Edge(menu, done, "Keyed verification or indefinite wait")

	for _, n := range []dot.Node{init, media, triggered, consoleOpen, menu} {
		g.Edge(n, failed, "Stage failure")
	}

	return g
}
