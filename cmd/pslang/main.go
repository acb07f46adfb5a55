// pslang annotates prompts and documents with visibility zones and projects
// them for the audience that receives them.
package main

import "github.com/ppiankov/pslang/internal/cli"

func main() {
	cli.Execute()
}
