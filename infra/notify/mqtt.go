// Package notify provides push delivery adapters for call invitations.
package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/telecare/oncall/core/logger"
	"github.com/telecare/oncall/core/model"
	corenotify "github.com/telecare/oncall/core/notify"
)

// MQTTConfig defines the connection parameters for the Paho MQTT sender.
type MQTTConfig struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	UseTLS      bool   `json:"use_tls"`
	CABundle    string `json:"ca_bundle"`
	ClientCert  string `json:"client_cert"`
	ClientKey   string `json:"client_key"`
}

// pahoClient is the subset of paho.Client the sender uses, extracted for
// tests.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTSender publishes invitations to per-device topics. The delivery
// address is used as the topic suffix under the configured prefix.
type MQTTSender struct {
	cli    pahoClient
	prefix string
	qos    byte
	log    logger.Logger
}

// NewMQTTSender connects to the broker.
func NewMQTTSender(cfg MQTTConfig, log logger.Logger) (*MQTTSender, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "oncall/push"
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker)
	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := newTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	opts.SetAutoReconnect(true)
	cli := newMQTTClient(opts)
	tok := cli.Connect()
	if !tok.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &MQTTSender{cli: cli, prefix: cfg.TopicPrefix, qos: cfg.QoS, log: log}, nil
}

func newTLSConfig(cfg MQTTConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.CABundle != "" {
		pem, err := os.ReadFile(cfg.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CABundle)
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// Send publishes the invitation JSON to the device topic. Failures are
// reported as transient: the broker says nothing about token validity.
func (s *MQTTSender) Send(ctx context.Context, address string, inv model.Invitation) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return &corenotify.Error{Kind: corenotify.Transient, Err: err}
	}
	topic := s.prefix + "/" + address
	tok := s.cli.Publish(topic, s.qos, false, payload)
	done := make(chan struct{})
	go func() {
		tok.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return &corenotify.Error{Kind: corenotify.Transient, Err: ctx.Err()}
	}
	if err := tok.Error(); err != nil {
		return &corenotify.Error{Kind: corenotify.Transient, Err: err}
	}
	s.log.Debugf("published invite %s to %s", inv.RequestID, topic)
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSender) Close() error {
	s.cli.Disconnect(250)
	return nil
}
