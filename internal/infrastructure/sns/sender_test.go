package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	return &sns.PublishOutput{}, args.Error(0)
}

func TestSendEmail_PublishesToTopic(t *testing.T) {
	pub := new(mockPublisher)
	m := &TopicMailer{client: pub, topicARN: "arn:aws:sns:us-east-1:000000000000:auth"}

	pub.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.TopicArn) == m.topicARN &&
			aws.ToString(in.Subject) == "Reset your password" &&
			aws.ToString(in.MessageAttributes["recipient"].StringValue) == "ada@shop.test"
	})).Return(nil)

	require.NoError(t, m.SendEmail(context.Background(), "ada@shop.test", "Reset your password", "body"))
	pub.AssertExpectations(t)
}

func TestSendEmail_PublishError(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("throttled"))
	m := &TopicMailer{client: pub, topicARN: "arn"}
	assert.ErrorContains(t, m.SendEmail(context.Background(), "a@b.c", "s", "b"), "throttled")
}
