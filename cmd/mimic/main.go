// Command mimic loads an SVG mimic drawing and drives it with telemetry.
package main

func main() {
	Execute()
}
