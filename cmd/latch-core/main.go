// Command latch-core runs the policy-enforcement core as a standalone
// loopback daemon: a desktop supervisor normally embeds the packages
// under internal/ directly, but this binary exists for local development,
// manual testing, and scripting harness config generation.
package main

import "github.com/latchagent/latch-core/cmd/latch-core/cmd"

func main() {
	cmd.Execute()
}
