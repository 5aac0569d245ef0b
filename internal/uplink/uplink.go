// Package uplink bridges the in-process event bus onto an external MQTT
// broker so other systems can follow camera status, recordings and
// plate reads without touching the HTTP surface.
package uplink

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sentra-video/sentra/internal/bus"
	"github.com/sentra-video/sentra/internal/config"
)

const subscriberID = "mqtt-uplink"

// Uplink forwards every bus event to the broker under
// <base topic>/<event topic>.
type Uplink struct {
	client    mqtt.Client
	bus       *bus.Bus
	baseTopic string
	sub       *bus.Subscriber
	done      chan struct{}
}

// New connects to the broker and registers the bus subscriber.
func New(cfg config.UplinkConfig, b *bus.Bus) (*Uplink, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "sentra"
	}
	baseTopic := cfg.BaseTopic
	if baseTopic == "" {
		baseTopic = "sentra"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if ok := token.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect timeout for %s", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect failed: %w", err)
	}

	sub, err := b.Subscribe(subscriberID)
	if err != nil {
		client.Disconnect(250)
		return nil, err
	}

	u := &Uplink{
		client:    client,
		bus:       b,
		baseTopic: baseTopic,
		sub:       sub,
		done:      make(chan struct{}),
	}
	go u.forward()

	log.Printf("mqtt uplink connected to %s, base topic %s", cfg.BrokerURL, baseTopic)
	return u, nil
}

func (u *Uplink) forward() {
	defer close(u.done)

	for ev := range u.sub.C() {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Printf("mqtt uplink: failed to encode %s event: %v", ev.Topic, err)
			continue
		}

		topic := u.baseTopic + "/" + ev.Topic
		token := u.client.Publish(topic, 0, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("mqtt uplink: publish to %s failed: %v", topic, err)
		}
	}
}

// Close unsubscribes from the bus and disconnects from the broker.
func (u *Uplink) Close() {
	u.bus.Unsubscribe(subscriberID)
	<-u.done
	u.client.Disconnect(250)
}
