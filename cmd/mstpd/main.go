package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"

	"github.com/golang/glog"

	"github.com/robotalks/mstp.go/pkg/bridge"
	"github.com/robotalks/mstp.go/pkg/bridge/mqtt"
	"github.com/robotalks/mstp.go/pkg/bridge/websocket"
	"github.com/robotalks/mstp.go/pkg/env"
	fx "github.com/robotalks/mstp.go/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func listenStream(b *bridge.Bridge, addr string) fx.Runnable {
	return fx.NamedRun("stream", fx.RunnableFunc(func(ctx context.Context) error {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		glog.Infof("stream bridge on %s", l.Addr())
		return b.ServeListener(ctx, l)
	}))
}

func listenWebsocket(b *bridge.Bridge, addr string) fx.Runnable {
	return fx.NamedRun("websocket", fx.RunnableFunc(func(ctx context.Context) error {
		server := &http.Server{Addr: addr, Handler: websocket.NewHandler(ctx, b)}
		glog.Infof("websocket bridge on %s", addr)
		return fx.RunWithContextCancel(ctx, func() { server.Close() }, func() error {
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}))
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.Default()
	d, port := conf.MustOpenDatalink()
	defer port.Close()

	b := bridge.New(d.Port.Station(), d)
	d.SetHandler(b)

	runner := fx.NewRunner().HandleSignals()
	runner.Go(d)
	if conf.MQTTBrokerURL != "" {
		meta := mqtt.Meta{
			Station:       d.Port.Station(),
			MaxMaster:     d.Port.MaxMaster(),
			MaxInfoFrames: d.Port.MaxInfoFrames(),
			Device:        conf.Device,
		}
		ep, err := mqtt.NewEndpoint(conf.MQTTBrokerURL, conf.NodeID, meta, b)
		if err != nil {
			log.Fatalln(err)
		}
		runner.Go(ep)
	}
	if conf.Listen != "" {
		runner.Go(listenStream(b, conf.Listen))
	}
	if conf.WebsocketListen != "" {
		runner.Go(listenWebsocket(b, conf.WebsocketListen))
	}
	if err := runner.Wait(); err != nil {
		glog.Flush()
		log.Fatalln(err)
	}
}
