package sns

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/medibox-api/internal/config"
	"github.com/medibox-api/internal/domain"
)

// Publisher pushes critical alerts to an SNS topic so subscribers (SMS,
// mobile push) hear about empty pillboxes without polling the API.
type Publisher struct {
	client   *sns.Client
	topicARN string
}

func NewPublisher(cfg *config.Config) (*Publisher, error) {
	if cfg.SNSTopicARN == "" {
		return nil, fmt.Errorf("SNS_TOPIC_ARN not configured")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: sns.NewFromConfig(awsCfg), topicARN: cfg.SNSTopicARN}, nil
}

// Notify publishes out-of-stock and refill alerts; everything else is
// in-app only.
func (p *Publisher) Notify(ctx context.Context, alerts []domain.Alert) error {
	var firstErr error
	for i := range alerts {
		a := &alerts[i]
		if a.Type != domain.AlertOutOfStock && a.Type != domain.AlertRefillNeeded {
			continue
		}
		subject := fmt.Sprintf("Medicine alert: %s", a.MedicineName)
		_, err := p.client.Publish(ctx, &sns.PublishInput{
			TopicArn: &p.topicARN,
			Subject:  &subject,
			Message:  &a.Message,
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
