package main

import (
	"github.com/robotalks/sensorhub/pkg/cli/sh"

	_ "github.com/robotalks/sensorhub/pkg/cli/cmds/hub"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
