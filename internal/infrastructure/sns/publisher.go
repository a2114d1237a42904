package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-email-relay/internal/config"
)

// PublishAPI is the subset of the SNS client used by AlertPublisher.
type PublishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AlertPublisher posts operational alerts (failed deliveries) to an SNS topic.
type AlertPublisher struct {
	client   PublishAPI
	topicARN string
}

// NewAlertPublisher builds a publisher for cfg.SNSAlertTopicARN.
func NewAlertPublisher(ctx context.Context, cfg *config.Config) (*AlertPublisher, error) {
	if cfg.SNSAlertTopicARN == "" {
		return nil, fmt.Errorf("SNS_ALERT_TOPIC_ARN not set")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for SNS: %w", err)
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	})
	return NewAlertPublisherWithClient(client, cfg.SNSAlertTopicARN), nil
}

func NewAlertPublisherWithClient(client PublishAPI, topicARN string) *AlertPublisher {
	return &AlertPublisher{client: client, topicARN: topicARN}
}

func (p *AlertPublisher) Publish(ctx context.Context, subject, message string) error {
	// SNS rejects subjects longer than 100 characters.
	if len(subject) > 100 {
		subject = subject[:100]
	}
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
