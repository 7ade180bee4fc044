package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/listener/notification"
)

type capturedPublish struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakePublisher struct {
	published []capturedPublish
	err       error
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, capturedPublish{exchange: exchange, key: key, msg: msg})
	return nil
}

func finishedExecution() *model.JobExecution {
	je := model.NewJobExecution("instance-1", "weatherJob", model.NewJobParameters())
	je.MarkAsStarted()
	je.ExecutionContext.Put("weather.processed_artifact", "/data/processed/weather_processed_Hanoi_20240101_000000.csv")
	je.MarkAsCompleted()
	return je
}

func TestAMQPNotifier_PublishesJobCompletionEvent(t *testing.T) {
	publisher := &fakePublisher{}
	n := notification.NewAMQPNotifierWithPublisher(publisher, "weather.events", "weather.job")
	je := finishedExecution()

	n.OnJobCompletion(context.Background(), je)

	require.Len(t, publisher.published, 1)
	got := publisher.published[0]
	assert.Equal(t, "weather.events", got.exchange)
	assert.Equal(t, "weather.job.weatherJob.COMPLETED", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, je.ID, got.msg.MessageId)

	var event notification.JobCompletionEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &event))
	assert.Equal(t, "weatherJob", event.JobName)
	assert.Equal(t, je.ID, event.ExecutionID)
	assert.Equal(t, "COMPLETED", event.Status)
	assert.NotNil(t, event.EndTime)
	assert.Equal(t, "/data/processed/weather_processed_Hanoi_20240101_000000.csv", event.Context["weather.processed_artifact"])
}

func TestAMQPNotifier_PublishFailureIsNotFatal(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("channel closed")}
	n := notification.NewAMQPNotifierWithPublisher(publisher, "weather.events", "weather.job")

	assert.NotPanics(t, func() { n.OnJobCompletion(context.Background(), finishedExecution()) })
	assert.Empty(t, publisher.published)
	assert.NoError(t, n.Close())
}

func TestNewJobCompletionEvent_Failed(t *testing.T) {
	je := model.NewJobExecution("instance-1", "weatherJob", model.NewJobParameters())
	je.MarkAsStarted()
	je.MarkAsFailed(errors.New("boom"))
	end := je.StartTime.Add(3 * time.Second)
	je.EndTime = &end

	event := notification.NewJobCompletionEvent(je)

	assert.Equal(t, "FAILED", event.Status)
	assert.Equal(t, "FAILED", event.ExitStatus)
	assert.Len(t, event.Failures, 1)
	assert.Equal(t, end, *event.EndTime)

	assert.NotPanics(t, func() { notification.NewLoggingNotifier().OnJobCompletion(context.Background(), je) })
}
