package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// TopicPublisher publishes messages to an SNS topic.
type TopicPublisher interface {
	Publish(ctx context.Context, subject, message string, attrs map[string]string) error
}

// PublishAPI is the slice of the SNS client used here.
type PublishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type publisher struct {
	client   PublishAPI
	topicARN string
}

// NewClient creates an SNS client from a resolved AWS config, honouring a
// LocalStack endpoint when one is set.
func NewClient(awsCfg aws.Config, endpointURL string) *sns.Client {
	var opts []func(*sns.Options)
	if endpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(endpointURL)
		})
	}
	return sns.NewFromConfig(awsCfg, opts...)
}

func NewPublisher(client PublishAPI, topicARN string) (TopicPublisher, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("sns topic ARN is not configured")
	}
	return &publisher{client: client, topicARN: topicARN}, nil
}

func (p *publisher) Publish(ctx context.Context, subject, message string, attrs map[string]string) error {
	in := &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(truncate(subject, 100)),
		Message:  aws.String(message),
	}
	if len(attrs) > 0 {
		in.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			in.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}
	if _, err := p.client.Publish(ctx, in); err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

// truncate keeps SNS subjects within the service's 100 character limit.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
