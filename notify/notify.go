package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pbudner/halfhour/segmenter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	WriteTimeout time.Duration `yaml:"write-timeout"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}

// Message is published once per processed file.
type Message struct {
	ID     string           `json:"id"`
	Site   string           `json:"site"`
	RunID  string           `json:"run_id"`
	SentAt time.Time        `json:"sent_at"`
	Report segmenter.Report `json:"report"`
}

var publishedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "halfhour_notify_kafka",
	Name:      "published_messages",
	Help:      "Total number of published file reports by result.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(publishedMessages)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends file reports to a kafka topic. It implements segmenter.Sink.
type Publisher struct {
	site   string
	runID  string
	writer messageWriter
	log    *zap.SugaredLogger
}

func NewPublisher(config KafkaConfig, site, runID string) *Publisher {
	timeout := config.WriteTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: timeout,
		RequiredAcks: kafka.RequireOne,
	}, site, runID)
}

func newPublisher(w messageWriter, site, runID string) *Publisher {
	return &Publisher{
		site:   site,
		runID:  runID,
		writer: w,
		log:    zap.L().Sugar().With("service", "kafka-publisher"),
	}
}

func (p *Publisher) Handle(ctx context.Context, report segmenter.Report) error {
	msg := Message{
		ID:     uuid.NewString(),
		Site:   p.site,
		RunID:  p.runID,
		SentAt: time.Now().UTC(),
		Report: report,
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	// keyed by file so all reports of one file land on the same partition
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(report.Name), Value: value}); err != nil {
		publishedMessages.WithLabelValues("error").Inc()
		return err
	}

	publishedMessages.WithLabelValues("ok").Inc()
	p.log.Debugw("published file report", "file", report.Name, "id", msg.ID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
