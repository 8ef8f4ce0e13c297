// Package env provides the common configuration of MS/TP commands from
// environment variables and command line flags.
package env

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/mstp.go/pkg/mstp"
	"github.com/robotalks/mstp.go/pkg/serial"
)

// Config provides common options to open a datalink and its bridges.
type Config struct {
	// Device is the serial port of the RS-485 line.
	Device string
	// Baud is the line data rate.
	Baud int
	// Station is the MAC address of this node.
	Station int
	// MaxMaster is the highest master address polled.
	MaxMaster int
	// MaxInfoFrames is the number of frames sent per token.
	MaxInfoFrames int
	// ReadTimeout bounds a single read from the serial port.
	ReadTimeout time.Duration

	// NodeID names this node on the bridges. Defaults to the machine ID.
	NodeID string
	// MQTTBrokerURL specifies the MQTT broker to bridge through.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// Listen is the TCP address of the stream bridge.
	Listen string
	// WebsocketListen is the HTTP address of the websocket bridge.
	WebsocketListen string
}

var defaultConfig = Config{
	Device:        "/dev/ttyUSB0",
	Baud:          serial.DefaultBaud,
	Station:       int(mstp.DefaultConfig().Station),
	MaxMaster:     int(mstp.MaxMasterAddress),
	MaxInfoFrames: 1,
	ReadTimeout:   serial.DefaultReadTimeout,
}

func init() {
	if val := os.Getenv("MSTP_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	envInt("MSTP_BAUD", &defaultConfig.Baud)
	envInt("MSTP_MAC", &defaultConfig.Station)
	envInt("MSTP_MAX_MASTER", &defaultConfig.MaxMaster)
	envInt("MSTP_MAX_INFO_FRAMES", &defaultConfig.MaxInfoFrames)
	if val := os.Getenv("MSTP_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("MSTP_LISTEN"); val != "" {
		defaultConfig.Listen = val
	}
	if val := os.Getenv("MSTP_WS_LISTEN"); val != "" {
		defaultConfig.WebsocketListen = val
	}
	defaultConfig.NodeID = MachineID()
}

func envInt(name string, v *int) {
	val := os.Getenv(name)
	if val == "" {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		glog.Warningf("ignored %s=%q: %v", name, val, err)
		return
	}
	*v = n
}

// MachineID retrieves the unique ID identifying the machine, or the host
// name if it's unavailable.
func MachineID() string {
	if id, err := machineid.ProtectedID("mstp"); err == nil {
		return id[:16]
	}
	host, _ := os.Hostname()
	return host
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Serial port of the RS-485 line.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Baud rate.")
	flag.IntVar(&defaultConfig.Station, "mac", defaultConfig.Station, "MAC address of this node.")
	flag.IntVar(&defaultConfig.MaxMaster, "max-master", defaultConfig.MaxMaster, "Highest master address polled.")
	flag.IntVar(&defaultConfig.MaxInfoFrames, "max-info-frames", defaultConfig.MaxInfoFrames, "Frames sent per token.")
	flag.StringVar(&defaultConfig.NodeID, "node", defaultConfig.NodeID, "Node ID on bridges.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.Listen, "listen", defaultConfig.Listen, "TCP address of the stream bridge.")
	flag.StringVar(&defaultConfig.WebsocketListen, "ws-listen", defaultConfig.WebsocketListen, "HTTP address of the websocket bridge.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

func byteValue(name string, v int) (byte, error) {
	if v < 0 || v > 0xFF {
		return 0, fmt.Errorf("%s %d out of range", name, v)
	}
	return byte(v), nil
}

// DatalinkConfig builds the datalink configuration.
func (c *Config) DatalinkConfig() (conf mstp.Config, err error) {
	conf = mstp.DefaultConfig()
	if conf.Station, err = byteValue("mac", c.Station); err != nil {
		return
	}
	if conf.MaxMaster, err = byteValue("max-master", c.MaxMaster); err != nil {
		return
	}
	if conf.MaxInfoFrames, err = byteValue("max-info-frames", c.MaxInfoFrames); err != nil {
		return
	}
	err = conf.Validate()
	return
}

// SerialConfig builds the serial port configuration.
func (c *Config) SerialConfig() *serial.Config {
	conf := serial.DefaultConfig(c.Device)
	conf.Baud = c.Baud
	if c.ReadTimeout > 0 {
		conf.ReadTimeout = c.ReadTimeout
	}
	return conf
}

// OpenDatalink opens the serial port and creates a Datalink on it. The
// port must be closed by the caller.
func (c *Config) OpenDatalink() (*mstp.Datalink, serial.Port, error) {
	conf, err := c.DatalinkConfig()
	if err != nil {
		return nil, nil, err
	}
	port, err := serial.Open(c.SerialConfig())
	if err != nil {
		return nil, nil, err
	}
	d, err := mstp.NewDatalink(port, conf)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	glog.Infof("mstp station %d on %s at %d baud", conf.Station, c.Device, c.Baud)
	return d, port, nil
}

// MustOpenDatalink opens the datalink and fails on error.
func (c *Config) MustOpenDatalink() (*mstp.Datalink, serial.Port) {
	d, port, err := c.OpenDatalink()
	if err != nil {
		log.Fatalln(err)
	}
	return d, port
}
