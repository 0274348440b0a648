// Command debatectl is the reference transport shell around the debate
// execution engine: a thin JSON-over-HTTP and WebSocket server, plus a
// catalog-printing utility, both built on the engine's internal
// packages.
package main

func main() {
	execute()
}
