package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/sensorhub/pkg/framework"
	"github.com/robotalks/sensorhub/pkg/sim"
)

var (
	mqttURL = "mqtt://localhost:1883/sensorhub/"
	count   = 1
	prefix  = "sim"
)

func init() {
	if val := os.Getenv("SENSORHUB_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL")
	flag.IntVar(&count, "n", count, "Number of simulated nodes")
	flag.StringVar(&prefix, "prefix", prefix, "Node ID prefix")
	flag.Float64Var(&sim.DefaultMotion.YawRate, "yaw-rate", sim.DefaultMotion.YawRate, "Rotation in degrees per second")
}

// keep runs a node until the context is done; a node dropped by the hub
// stays offline without stopping the others.
func keep(node *sim.Node) framework.Runnable {
	return framework.NamedRun(node.Name(), framework.RunnableFunc(func(ctx context.Context) error {
		err := node.Run(ctx)
		if errors.Is(err, sim.ErrDisconnected) {
			glog.Infof("%s offline", node.Name())
			<-ctx.Done()
			return ctx.Err()
		}
		return err
	}))
}

func main() {
	flag.Parse()
	defer glog.Flush()

	runner := framework.NewRunner().HandleSignals()
	for i := 0; i < count; i++ {
		node, err := sim.NewNode(mqttURL, fmt.Sprintf("%s%d", prefix, i))
		if err != nil {
			glog.Exitln(err)
		}
		node.Motion.YawRate *= float64(i + 1)
		runner.Go(keep(node))
	}
	if err := runner.Wait(); err != nil {
		glog.Errorln(err)
	}
}
