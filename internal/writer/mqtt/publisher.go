// internal/writer/mqtt/publisher.go
package mqtt

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/tamzrod/keithley-scan/internal/config"
	"github.com/tamzrod/keithley-scan/internal/poller"
	"github.com/tamzrod/keithley-scan/internal/scpi"
)

const (
	DefaultClientID = "keithley-scan"

	publishTimeout = 5 * time.Second
	disconnectMs   = 250
)

// client is the part of paho.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher sends one JSON document per poll.
type Publisher struct {
	cli      client
	conn     paho.Client // nil when built around a bare client
	topic    string
	retained bool
}

// Connect opens a broker connection for the configured server.
func Connect(cfg config.MQTTConfig) (*Publisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Server).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)

	c := paho.NewClient(opts)
	token := c.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "mqtt connect %s", cfg.Server)
	}

	p := newPublisher(c, cfg)
	p.conn = c
	return p, nil
}

func newPublisher(c client, cfg config.MQTTConfig) *Publisher {
	topic := cfg.Topic
	if topic == "" {
		topic = config.DefaultMQTTTopic
	}
	return &Publisher{cli: c, topic: topic, retained: cfg.Retained}
}

// Topic returns the state topic of an instrument.
func (p *Publisher) Topic(instrumentID string) string {
	return strings.ReplaceAll(p.topic, "%s", instrumentID)
}

// Write publishes the poll result, failed polls included.
func (p *Publisher) Write(res poller.PollResult) error {
	b, err := Payload(res)
	if err != nil {
		return err
	}
	topic := p.Topic(res.InstrumentID)
	token := p.cli.Publish(topic, 0, p.retained, b)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Errorf("mqtt publish %s: timed out after %s", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "mqtt publish %s", topic)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	if p.conn != nil {
		p.conn.Disconnect(disconnectMs)
	}
	return nil
}

type document struct {
	Instrument string     `json:"instrument"`
	Model      string     `json:"model"`
	Time       time.Time  `json:"time"`
	Series     []series   `json:"series,omitempty"`
	Timestamps []float64  `json:"timestamps,omitempty"`
	Error      *failureJS `json:"error,omitempty"`
}

type series struct {
	Name     string     `json:"name"`
	Mode     string     `json:"mode"`
	Labels   []string   `json:"labels"`
	Channels []int      `json:"channels,omitempty"`
	Values   []*float64 `json:"values"` // null for a channel the scan did not read
}

type failureJS struct {
	Code    uint16 `json:"code"`
	Message string `json:"message"`
}

func jsonValues(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i := range vs {
		if !math.IsNaN(vs[i]) {
			out[i] = &vs[i]
		}
	}
	return out
}

// Payload renders the JSON document published for a poll result.
func Payload(res poller.PollResult) ([]byte, error) {
	doc := document{
		Instrument: res.InstrumentID,
		Model:      res.Model,
		Time:       res.At.UTC(),
		Timestamps: res.Timestamps,
	}
	for _, s := range res.Series {
		doc.Series = append(doc.Series, series{
			Name:     s.Name,
			Mode:     s.Mode.String(),
			Labels:   s.Labels,
			Channels: s.Channels,
			Values:   jsonValues(s.Values),
		})
	}
	if res.Err != nil {
		doc.Error = &failureJS{Code: scpi.Code(res.Err), Message: res.Err.Error()}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "mqtt payload")
	}
	return b, nil
}
