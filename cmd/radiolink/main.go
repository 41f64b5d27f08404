package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/radio.go/pkg/env"
	fx "github.com/robotalks/radio.go/pkg/framework"
	"github.com/robotalks/radio.go/pkg/link"
	"github.com/robotalks/radio.go/pkg/radio"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.NewConfig()
	endpoint := conf.MustNewEndpoint()
	port := conf.MustOpenSerial()
	defer port.Close()

	runner := fx.NewRunner(context.Background()).HandleSignals()
	tr := conf.MustOpenRadio(runner.Context())
	defer radio.Close(tr)

	station := link.NewStation(endpoint, port, tr)
	pub, err := conf.NewStatusPublisher()
	if err != nil {
		log.Fatalln(err)
	}
	if pub != nil {
		station.Notifier = pub
		runner.Go(pub)
	}
	if err := runner.Go(station).Wait(); err != nil {
		glog.Errorf("%s stopped: %v", station.Name(), err)
		glog.Flush()
		log.Fatalln(err)
	}
}
