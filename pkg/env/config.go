// Package env sets up a station from flags and environment variables.
package env

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/radio.go/pkg/flash"
	"github.com/robotalks/radio.go/pkg/link"
	"github.com/robotalks/radio.go/pkg/radio"
	"github.com/robotalks/radio.go/pkg/radio/mqtt"
	"github.com/robotalks/radio.go/pkg/radio/stream"
	"github.com/robotalks/radio.go/pkg/radio/websocket"
	"github.com/robotalks/radio.go/pkg/serialport"
)

// Config provides common options to set up a station.
type Config struct {
	Role       string
	SerialPath string
	Baud       int

	// RadioURL specifies the transport carrying the frames, e.g.
	//   mqtt://host:port/topic-prefix/
	//   ws://host:port/path
	//   ws-listen://:port/path
	//   tcp://host:port
	//   tcp-listen://:port
	//   serial:///dev/ttyUSB1?baud=115200
	RadioURL string

	// FlashPath is the file persisting the settings.
	// Settings aren't persisted if empty.
	FlashPath string

	// MQTTBrokerURL is where the station status is published, optional.
	MQTTBrokerURL string

	// ID identifies the station on the broker.
	ID string
}

var defaultConfig = Config{
	Role:     "device",
	Baud:     serialport.DefaultBaud,
	RadioURL: "mqtt://localhost:1883/radio/",
}

func init() {
	if val := os.Getenv("RADIO_ROLE"); val != "" {
		defaultConfig.Role = val
	}
	if val := os.Getenv("RADIO_SERIAL"); val != "" {
		defaultConfig.SerialPath = val
	}
	if val := os.Getenv("RADIO_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Baud = baud
		}
	}
	if val := os.Getenv("RADIO_URL"); val != "" {
		defaultConfig.RadioURL = val
	}
	if val := os.Getenv("RADIO_FLASH"); val != "" {
		defaultConfig.FlashPath = val
	}
	if val := os.Getenv("RADIO_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	defaultConfig.ID = MachineID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Role, "role", defaultConfig.Role, "Link role: host or device")
	flag.StringVar(&defaultConfig.SerialPath, "serial", defaultConfig.SerialPath, "Local serial port")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Local serial speed")
	flag.StringVar(&defaultConfig.RadioURL, "radio", defaultConfig.RadioURL, "Radio transport URL")
	flag.StringVar(&defaultConfig.FlashPath, "flash", defaultConfig.FlashPath, "File persisting radio settings")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for status")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Station ID")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewEndpoint creates the Endpoint with settings from the flash file.
func (c *Config) NewEndpoint() (*link.Endpoint, error) {
	role, err := link.ParseRole(c.Role)
	if err != nil {
		return nil, err
	}
	var storage flash.Storage
	if c.FlashPath != "" {
		f, err := flash.OpenFile(c.FlashPath)
		if err != nil {
			return nil, err
		}
		storage = f
	} else {
		glog.Warning("no flash file, settings are lost on exit")
		storage = flash.NewMem(flash.PageSize)
	}
	return link.NewEndpoint(role, link.NewConfigStore(storage))
}

// OpenSerial opens the local serial port.
func (c *Config) OpenSerial() (*serialport.Port, error) {
	if c.SerialPath == "" {
		return nil, fmt.Errorf("serial port must be specified")
	}
	return serialport.Open(c.SerialPath, c.Baud)
}

// OpenRadio opens the radio transport from RadioURL.
// The listening schemes block until the peer connects.
func (c *Config) OpenRadio(ctx context.Context) (radio.Transport, error) {
	u, err := url.Parse(c.RadioURL)
	if err != nil {
		return nil, fmt.Errorf("invalid radio URL: %w", err)
	}
	switch u.Scheme {
	case "mqtt":
		return mqtt.DialTransport(c.RadioURL, strings.ToLower(c.Role))
	case "ws", "wss":
		return websocket.Dial(c.RadioURL, "http://"+c.ID)
	case "ws-listen":
		path := u.Path
		if path == "" {
			path = "/"
		}
		return websocket.Accept(ctx, u.Host, path)
	case "tcp":
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return stream.New(conn), nil
	case "tcp-listen":
		return acceptTCP(ctx, u.Host)
	case "serial":
		baud := serialport.DefaultBaud
		if val := u.Query().Get("baud"); val != "" {
			if baud, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud %q: %w", val, err)
			}
		}
		port, err := serialport.Open(u.Path, baud)
		if err != nil {
			return nil, err
		}
		return stream.New(port), nil
	default:
		return nil, fmt.Errorf("unknown radio URL scheme: %q", u.Scheme)
	}
}

func acceptTCP(ctx context.Context, addr string) (radio.Transport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	glog.Infof("waiting for peer on %s", ln.Addr())
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	glog.Infof("peer %s connected", conn.RemoteAddr())
	return stream.New(conn), nil
}

// NewStatusPublisher creates the status publisher, nil if no broker
// is configured.
func (c *Config) NewStatusPublisher() (*mqtt.StatusPublisher, error) {
	if c.MQTTBrokerURL == "" {
		return nil, nil
	}
	return mqtt.NewStatusPublisher(c.MQTTBrokerURL, c.ID)
}

// MustNewEndpoint creates the Endpoint and fails on error.
func (c *Config) MustNewEndpoint() *link.Endpoint {
	e, err := c.NewEndpoint()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// MustOpenSerial opens the serial port and fails on error.
func (c *Config) MustOpenSerial() *serialport.Port {
	p, err := c.OpenSerial()
	if err != nil {
		log.Fatalln(err)
	}
	return p
}

// MustOpenRadio opens the radio transport and fails on error.
func (c *Config) MustOpenRadio(ctx context.Context) radio.Transport {
	t, err := c.OpenRadio(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	return t
}
