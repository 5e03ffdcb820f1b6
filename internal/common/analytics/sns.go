package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"funnel-orders/internal/common/aws"
)

// SNSPublisher fans purchase events out to an SNS topic instead of a
// RudderStack data plane. The payload is the event name plus properties
// as a single JSON document.
type SNSPublisher struct {
	client   *aws.SNSClient
	topicARN string
}

func NewSNSPublisher(client *aws.SNSClient, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

func (p *SNSPublisher) Track(ctx context.Context, event string, properties map[string]interface{}) error {
	doc := map[string]interface{}{
		"event":      event,
		"properties": properties,
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := string(jsonData)
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &p.topicARN,
		Message:  &message,
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"event": {
				DataType:    strPtr("String"),
				StringValue: &event,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish failed: %w", err)
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
