package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/mstp.go/pkg/bridge/mqtt"
	"github.com/robotalks/mstp.go/pkg/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/"
)

func init() {
	if val := os.Getenv("MSTP_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	c, err := mqtt.NewClientFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	c.Sub("mstp/#", func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/meta") {
			if len(payload) == 0 {
				log.Printf("%s: gone", topic)
			} else {
				log.Printf("%s: %s", topic, string(payload))
			}
			return
		}
		m, err := msgs.Decode(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: %d -> %d reply=%v % X", topic, m.Source, m.Destination, m.ExpectingReply, m.Data)
	})
	token := c.Connect()
	if token.Wait(); token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
