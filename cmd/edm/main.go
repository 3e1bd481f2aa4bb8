package main

import "github.com/OpenTraceLab/OpenTraceEDM/cmd/edm/cmd"

func main() {
	cmd.Execute()
}
