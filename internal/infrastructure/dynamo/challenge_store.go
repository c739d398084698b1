package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
)

const (
	attrEmail    = "email"
	attrPurpose  = "purpose"
	attrToken    = "token"
	attrAttempts = "attempts"

	// optimistic retries per Consume before giving up on a hot key
	maxConsumeRetries = 8
)

var errContended = errors.New("challenge is being modified concurrently")

// challengeItem is the stored shape. ttl is epoch seconds for DynamoDB's own
// expiry sweep; expires_at_ms is what reads are checked against.
type challengeItem struct {
	Email       string                       `dynamodbav:"email"`
	Purpose     string                       `dynamodbav:"purpose"`
	Token       string                       `dynamodbav:"token"`
	Payload     *account.RegistrationPayload `dynamodbav:"payload,omitempty"`
	Attempts    int                          `dynamodbav:"attempts"`
	ExpiresAtMs int64                        `dynamodbav:"expires_at_ms"`
	CreatedAtMs int64                        `dynamodbav:"created_at_ms"`
	TTL         int64                        `dynamodbav:"ttl"`
}

func (it *challengeItem) toChallenge() *challenge.Challenge {
	return &challenge.Challenge{
		Email:     it.Email,
		Token:     it.Token,
		Payload:   it.Payload,
		Attempts:  it.Attempts,
		ExpiresAt: time.UnixMilli(it.ExpiresAtMs).UTC(),
		CreatedAt: time.UnixMilli(it.CreatedAtMs).UTC(),
	}
}

// ChallengeStore keeps challenges in a DynamoDB table keyed by (email, purpose).
// Each write is a single item operation; Consume uses conditional writes guarded
// on token and attempt count so concurrent submissions cannot both succeed.
type ChallengeStore struct {
	api     API
	table   string
	purpose challenge.Purpose
	grace   time.Duration
}

var _ ports.ChallengeStore = (*ChallengeStore)(nil)

func NewChallengeStore(api API, table string, purpose challenge.Purpose, grace time.Duration) *ChallengeStore {
	return &ChallengeStore{api: api, table: table, purpose: purpose, grace: grace}
}

func (s *ChallengeStore) key(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrEmail:   &types.AttributeValueMemberS{Value: email},
		attrPurpose: &types.AttributeValueMemberS{Value: s.purpose.String()},
	}
}

func (s *ChallengeStore) marshal(c *challenge.Challenge) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(&challengeItem{
		Email:       c.Email,
		Purpose:     s.purpose.String(),
		Token:       challenge.NormalizeCode(c.Token),
		Payload:     c.Payload,
		Attempts:    c.Attempts,
		ExpiresAtMs: c.ExpiresAt.UnixMilli(),
		CreatedAtMs: c.CreatedAt.UnixMilli(),
		TTL:         c.ExpiresAt.Add(s.grace).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal challenge: %w", err)
	}
	return item, nil
}

func (s *ChallengeStore) Put(ctx context.Context, c *challenge.Challenge) error {
	item, err := s.marshal(c)
	if err != nil {
		return err
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to put challenge: %w", err)
	}
	return nil
}

// Restore writes c only when no item exists for its key.
func (s *ChallengeStore) Restore(ctx context.Context, c *challenge.Challenge) (bool, error) {
	item, err := s.marshal(c)
	if err != nil {
		return false, err
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#em)"),
		ExpressionAttributeNames: map[string]string{"#em": attrEmail},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to restore challenge: %w", err)
	}
	return true, nil
}

func (s *ChallengeStore) Get(ctx context.Context, email string) (*challenge.Challenge, error) {
	it, err := s.load(ctx, email)
	if err != nil {
		return nil, err
	}
	return it.toChallenge(), nil
}

func (s *ChallengeStore) load(ctx context.Context, email string) (*challengeItem, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	if out.Item == nil {
		return nil, challenge.ErrNoPendingChallenge
	}
	var it challengeItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return &it, nil
}

func (s *ChallengeStore) Delete(ctx context.Context, email string) error {
	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(email),
	}); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

func (s *ChallengeStore) Consume(ctx context.Context, email, code string, now time.Time, maxAttempts int) (*challenge.Challenge, error) {
	for i := 0; i < maxConsumeRetries; i++ {
		it, err := s.load(ctx, email)
		if err != nil {
			return nil, err
		}
		c := it.toChallenge()
		seenAttempts := c.Attempts

		verdict := c.Evaluate(code, now, maxAttempts)
		if verdict == challenge.VerdictMismatch && c.Attempts == seenAttempts {
			return nil, verdict.Err()
		}
		if verdict == challenge.VerdictMismatch {
			err = s.recordAttempt(ctx, email, it.Token, seenAttempts, c.Attempts)
		} else {
			err = s.conditionalDelete(ctx, email, it.Token, seenAttempts)
		}

		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// someone else wrote first; re-read and decide again
			continue
		}
		if err != nil {
			return nil, err
		}
		if verdict == challenge.VerdictMatch {
			return c, nil
		}
		return nil, verdict.Err()
	}
	return nil, errContended
}

// matchCondition guards a write on the record still being the one we read.
func matchCondition(token string, attempts int) (*string, map[string]string, map[string]types.AttributeValue) {
	return aws.String("#tok = :tok AND #att = :att"),
		map[string]string{"#tok": attrToken, "#att": attrAttempts},
		map[string]types.AttributeValue{
			":tok": &types.AttributeValueMemberS{Value: token},
			":att": &types.AttributeValueMemberN{Value: strconv.Itoa(attempts)},
		}
}

func (s *ChallengeStore) conditionalDelete(ctx context.Context, email, token string, attempts int) error {
	cond, names, values := matchCondition(token, attempts)
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.key(email),
		ConditionExpression:       cond,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

func (s *ChallengeStore) recordAttempt(ctx context.Context, email, token string, seen, next int) error {
	cond, names, values := matchCondition(token, seen)
	values[":next"] = &types.AttributeValueMemberN{Value: strconv.Itoa(next)}
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.key(email),
		UpdateExpression:          aws.String("SET #att = :next"),
		ConditionExpression:       cond,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

// DeleteExpired is a no-op: the table's TTL attribute handles cleanup.
func (s *ChallengeStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
