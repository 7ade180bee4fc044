// Package notification publishes job completion events.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	port "github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// JobCompletionEvent is the message body published when a job execution ends.
type JobCompletionEvent struct {
	JobName     string                 `json:"job_name"`
	ExecutionID string                 `json:"execution_id"`
	Status      string                 `json:"status"`
	ExitStatus  string                 `json:"exit_status"`
	StartTime   time.Time              `json:"start_time"`
	EndTime     *time.Time             `json:"end_time,omitempty"`
	Failures    []string               `json:"failures,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// NewJobCompletionEvent builds the event for execution. The job execution context is included,
// so consumers see the artifacts the run produced.
func NewJobCompletionEvent(execution *model.JobExecution) JobCompletionEvent {
	return JobCompletionEvent{
		JobName:     execution.JobName,
		ExecutionID: execution.ID,
		Status:      execution.Status.String(),
		ExitStatus:  execution.ExitStatus.String(),
		StartTime:   execution.StartTime,
		EndTime:     execution.EndTime,
		Failures:    execution.Failures,
		Context:     execution.ExecutionContext,
	}
}

// LoggingNotifier writes a one-line summary of every finished job.
type LoggingNotifier struct{}

// NewLoggingNotifier creates a LoggingNotifier.
func NewLoggingNotifier() *LoggingNotifier {
	return &LoggingNotifier{}
}

func (n *LoggingNotifier) OnJobCompletion(ctx context.Context, execution *model.JobExecution) {
	duration := time.Duration(0)
	if execution.EndTime != nil {
		duration = execution.EndTime.Sub(execution.StartTime)
	}
	message := fmt.Sprintf(
		"Job Notification: Job '%s' (ID: %s) finished with Status: %s, ExitStatus: %s. Duration: %s, Failures: %d",
		execution.JobName, execution.ID, execution.Status, execution.ExitStatus, duration, len(execution.Failures),
	)
	if execution.Status == model.BatchStatusCompleted {
		logger.Infof("%s", message)
	} else {
		logger.Warnf("%s", message)
	}
}

// Publisher is the part of *amqp.Channel used by AMQPNotifier.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes a JobCompletionEvent as JSON to a topic exchange.
// The routing key is "<routing_key>.<job name>.<status>", e.g. "weather.job.weatherJob.COMPLETED".
type AMQPNotifier struct {
	publisher  Publisher
	conn       *amqp.Connection
	exchange   string
	routingKey string
}

// NewAMQPNotifier dials the broker and declares the durable topic exchange.
func NewAMQPNotifier(cfg config.NotificationConfig) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	n := NewAMQPNotifierWithPublisher(ch, cfg.Exchange, cfg.RoutingKey)
	n.conn = conn
	return n, nil
}

// NewAMQPNotifierWithPublisher creates a notifier over an already opened channel.
func NewAMQPNotifierWithPublisher(publisher Publisher, exchange, routingKey string) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher, exchange: exchange, routingKey: routingKey}
}

// OnJobCompletion publishes the event. Failures are logged; a notification never fails the job.
func (n *AMQPNotifier) OnJobCompletion(ctx context.Context, execution *model.JobExecution) {
	body, err := json.Marshal(NewJobCompletionEvent(execution))
	if err != nil {
		logger.Errorf("Failed to encode job completion event for '%s': %v", execution.JobName, err)
		return
	}
	key := fmt.Sprintf("%s.%s.%s", n.routingKey, execution.JobName, execution.Status)
	err = n.publisher.PublishWithContext(ctx, n.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    execution.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		logger.Warnf("Failed to publish job completion event to exchange '%s' (key %s): %v", n.exchange, key, err)
		return
	}
	logger.Debugf("Published job completion event to exchange '%s' (key %s).", n.exchange, key)
}

// Close closes the broker connection, if this notifier owns one.
func (n *AMQPNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

var (
	_ port.NotificationListener = (*LoggingNotifier)(nil)
	_ port.NotificationListener = (*AMQPNotifier)(nil)
)
