package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awsv2xray "github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
	"sponsor-portal/internal/domain"
)

// API is the subset of the DynamoDB client the repository uses.
type API interface {
	GetItem(ctx context.Context, in *awsv2dynamodb.GetItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *awsv2dynamodb.PutItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *awsv2dynamodb.DeleteItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.DeleteItemOutput, error)
}

type Client struct {
	db        API
	tableName string
}

func NewClient(ctx context.Context, region, tableName string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	awsv2xray.AWSV2Instrumentor(&cfg.APIOptions)
	return NewClientWithAPI(awsv2dynamodb.NewFromConfig(cfg), tableName), nil
}

func NewClientWithAPI(db API, tableName string) *Client {
	return &Client{db: db, tableName: tableName}
}

const credentialName = "auth_token"

func browserPK(sessionID string) string { return "BROWSER#" + sessionID }
func credentialSK() string              { return "CREDENTIAL#" + credentialName }

func (c *Client) key(sessionID string) map[string]awsv2types.AttributeValue {
	return map[string]awsv2types.AttributeValue{
		"PK": &awsv2types.AttributeValueMemberS{Value: browserPK(sessionID)},
		"SK": &awsv2types.AttributeValueMemberS{Value: credentialSK()},
	}
}

// CredentialRepository keeps one credential per browser session under a
// fixed sort key. Items carry ExpiresAt in epoch seconds, the table's TTL
// attribute, so slots of abandoned sessions are removed by DynamoDB.
type CredentialRepository struct {
	client *Client
	ttl    time.Duration
	now    func() time.Time
}

func NewCredentialRepository(client *Client, ttl time.Duration) *CredentialRepository {
	return &CredentialRepository{client: client, ttl: ttl, now: time.Now}
}

type credentialItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Credential string `dynamodbav:"Credential"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
	ExpiresAt  int64  `dynamodbav:"ExpiresAt,omitempty"`
}

func (r *CredentialRepository) Load(ctx context.Context, sessionID string) (domain.Credential, error) {
	if sessionID == "" {
		return "", domain.ErrInvalidInput
	}
	var out *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, "DynamoDB.GetCredential", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName:      aws.String(r.client.tableName),
			Key:            r.client.key(sessionID),
			ConsistentRead: aws.Bool(true),
		})
		return e
	})
	if err != nil {
		return "", err
	}
	if out == nil || out.Item == nil {
		return "", domain.ErrNotFound
	}
	var raw credentialItem
	if err := attributevalue.UnmarshalMap(out.Item, &raw); err != nil {
		return "", err
	}
	// TTL deletion lags, so an expired item may still be returned.
	if raw.Credential == "" || (raw.ExpiresAt > 0 && r.now().Unix() >= raw.ExpiresAt) {
		return "", domain.ErrNotFound
	}
	return domain.Credential(raw.Credential), nil
}

func (r *CredentialRepository) Save(ctx context.Context, sessionID string, credential domain.Credential) error {
	if sessionID == "" || credential == "" {
		return domain.ErrInvalidInput
	}
	now := r.now()
	item := credentialItem{
		PK:         browserPK(sessionID),
		SK:         credentialSK(),
		EntityType: "CREDENTIAL",
		Credential: string(credential),
		UpdatedAt:  now.UTC().Format(time.RFC3339),
	}
	if r.ttl > 0 {
		item.ExpiresAt = now.Add(r.ttl).Unix()
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.PutCredential", func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName: aws.String(r.client.tableName),
			Item:      av,
		})
		return err
	})
}

func (r *CredentialRepository) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.ErrInvalidInput
	}
	return xray.Capture(ctx, "DynamoDB.DeleteCredential", func(ctx context.Context) error {
		_, err := r.client.db.DeleteItem(ctx, &awsv2dynamodb.DeleteItemInput{
			TableName:           aws.String(r.client.tableName),
			Key:                 r.client.key(sessionID),
			ConditionExpression: aws.String("attribute_exists(PK)"),
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrNotFound
		}
		return err
	})
}

func isConditionalCheckFailure(err error) bool {
	var condErr *awsv2types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}
