package main

import (
	"os"

	"smartclient/cmd"
	"smartclient/pkg/ui"
)

func main() {
	os.Exit(ui.ExitCode(cmd.Execute()))
}
