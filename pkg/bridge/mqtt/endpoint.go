package mqtt

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	"github.com/robotalks/mstp.go/pkg/bridge"
)

// Meta describes a node, published retained on its meta topic.
type Meta struct {
	Station       byte   `json:"station"`
	MaxMaster     byte   `json:"max_master"`
	MaxInfoFrames byte   `json:"max_info_frames"`
	Device        string `json:"device,omitempty"`
}

// Endpoint serves a bridge through an MQTT broker.
type Endpoint struct {
	Client *Client
	Node   string
	Bridge *bridge.Bridge

	metaJSON []byte
}

// NewEndpoint creates an Endpoint for node. The retained meta is cleared
// by the broker if the connection is lost.
func NewEndpoint(brokerURL, node string, meta Meta, b *bridge.Bridge) (*Endpoint, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+metaTopic(node), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("mstp:" + node)
	}
	e := &Endpoint{
		Client:   NewClient(opts, topicPrefix),
		Node:     node,
		Bridge:   b,
		metaJSON: metaJSON,
	}
	e.Client.OnConnect = func(*Client) { e.publishMeta(e.metaJSON) }
	return e, nil
}

// Name implements framework.Named.
func (e *Endpoint) Name() string {
	return "mqtt"
}

// Run implements Runnable.
func (e *Endpoint) Run(ctx context.Context) error {
	token := e.Client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	defer e.Client.Close()

	rw := NewPacketReadWriter(e.Client).ForNode(e.Node)
	rwCtx, cancel := context.WithCancel(ctx)
	rwDone := make(chan struct{})
	go func() {
		rw.Run(rwCtx)
		close(rwDone)
	}()
	err := e.Bridge.Serve(ctx, "mqtt:"+e.Node, rw)
	cancel()
	<-rwDone
	e.publishMeta(nil)
	return err
}

func (e *Endpoint) publishMeta(meta []byte) {
	token := e.Client.PubWith(metaTopic(e.Node), meta, 1, true)
	token.Wait()
	if err := token.Error(); err != nil {
		glog.Warningf("mqtt: publish meta of %s: %v", e.Node, err)
	}
}
