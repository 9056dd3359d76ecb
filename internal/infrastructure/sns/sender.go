package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// TopicMailer hands outbound messages to an SNS topic. A subscriber (email
// subscription or a delivery worker) reads the "recipient" attribute.
type TopicMailer struct {
	client   publisher
	topicARN string
}

// NewTopicMailer builds a mailer on the shared AWS config. region overrides the
// config's region when set.
func NewTopicMailer(awsCfg aws.Config, region, topicARN string) *TopicMailer {
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if region != "" {
			o.Region = region
		}
	})
	return &TopicMailer{client: client, topicARN: topicARN}
}

func (m *TopicMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	_, err := m.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(m.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"recipient": {DataType: aws.String("String"), StringValue: aws.String(to)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
