package main

//go-build: CGO_ENABLED=0

import (
	"github.com/golang/glog"

	"github.com/robotalks/telechain/pkg/env"
	fx "github.com/robotalks/telechain/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	conf, err := env.Load()
	if err != nil {
		glog.Exit(err)
	}
	defer glog.Flush()

	dev := conf.MustNewDevice()
	defer dev.Close()
	glog.Infof("device %s starting", conf.Device)

	err = fx.NewRunner().
		HandleSignals().
		Go(dev.Runnables()...).
		Wait()
	if err != nil {
		glog.Error(err)
	}
}
