package main

import (
	"flag"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/sensorhub/pkg/framework"
	"github.com/robotalks/sensorhub/pkg/hub"
	"github.com/robotalks/sensorhub/pkg/transport"
)

//go-build: CGO_ENABLED=0

var (
	configFile string
	listPorts  bool
)

func init() {
	hub.SetupFlags()
	flag.StringVar(&configFile, "config", configFile, "YAML config file, overrides flags")
	flag.BoolVar(&listPorts, "list-ports", listPorts, "List serial ports and exit")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if listPorts {
		ports, err := transport.SerialPorts()
		if err != nil {
			glog.Exitln(err)
		}
		for _, port := range ports {
			fmt.Println(port)
		}
		return
	}

	conf := hub.NewConfig()
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			glog.Exitln(err)
		}
	}
	h, err := conf.NewHub()
	if err != nil {
		glog.Exitln(err)
	}
	if err := framework.NewRunner().HandleSignals().Add(h).Wait(); err != nil {
		glog.Errorln(err)
	}
}
