package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/univio-api/internal/domain"
)

const (
	challengeKeyAttr = "challenge_key"
	maxMutateRetries = 8
)

// challengeItem is the stored shape of one challenge key. Version guards
// concurrent writers; expires_at drives native TTL.
type challengeItem struct {
	Key       string                `dynamodbav:"challenge_key"`
	State     domain.ChallengeState `dynamodbav:"state"`
	Version   int64                 `dynamodbav:"version"`
	ExpiresAt int64                 `dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// ChallengeStore keeps verification state in the verification_challenges table.
// Mutations are optimistic: read, apply, conditional write on the version seen.
type ChallengeStore struct {
	client    API
	tableName string
	retention time.Duration
	now       func() time.Time
}

// NewChallengeStore creates the store. retention is how long issuance history
// must outlive its newest entry.
func NewChallengeStore(client API, tableName string, retention time.Duration) *ChallengeStore {
	return &ChallengeStore{client: client, tableName: tableName, retention: retention, now: time.Now}
}

func (s *ChallengeStore) Get(ctx context.Context, key string) (*domain.ChallengeState, error) {
	item, found, err := s.load(ctx, key)
	if err != nil || !found {
		return nil, err
	}
	return &item.State, nil
}

func (s *ChallengeStore) Mutate(ctx context.Context, key string, fn func(*domain.ChallengeState) error) error {
	for attempt := 0; attempt < maxMutateRetries; attempt++ {
		item, found, err := s.load(ctx, key)
		if err != nil {
			return err
		}
		state := item.State
		if err := fn(&state); err != nil {
			return err
		}

		if state.Empty() {
			if !found {
				return nil
			}
			_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName:                 aws.String(s.tableName),
				Key:                       strKey(challengeKeyAttr, key),
				ConditionExpression:       aws.String("#ver = :ver"),
				ExpressionAttributeNames:  map[string]string{"#ver": fieldVersion},
				ExpressionAttributeValues: map[string]types.AttributeValue{":ver": versionValue(item.Version)},
			})
		} else {
			err = s.put(ctx, key, state, item.Version, found)
		}
		if isConditionFailed(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("write challenge: %w", err)
		}
		return nil
	}
	return fmt.Errorf("challenge %s: write contention: %w", key, domain.ErrUnavailable)
}

func (s *ChallengeStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       strKey(challengeKeyAttr, key),
	})
	return err
}

// Scan walks every key in the table, page by page.
func (s *ChallengeStore) Scan(ctx context.Context, fn func(key string) error) error {
	var start map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                aws.String(s.tableName),
			ProjectionExpression:     aws.String("#k"),
			ExpressionAttributeNames: map[string]string{"#k": challengeKeyAttr},
			ExclusiveStartKey:        start,
		})
		if err != nil {
			return fmt.Errorf("scan challenges: %w", err)
		}
		for _, it := range out.Items {
			if k, ok := it[challengeKeyAttr].(*types.AttributeValueMemberS); ok {
				if err := fn(k.Value); err != nil {
					return err
				}
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		start = out.LastEvaluatedKey
	}
}

func (s *ChallengeStore) load(ctx context.Context, key string) (challengeItem, bool, error) {
	var item challengeItem
	found, err := getItem(ctx, s.client, s.tableName, strKey(challengeKeyAttr, key), &item)
	return item, found, err
}

func (s *ChallengeStore) put(ctx context.Context, key string, state domain.ChallengeState, version int64, exists bool) error {
	horizon := state.Horizon(s.retention)
	if horizon.IsZero() {
		horizon = s.now().Add(s.retention)
	}
	av, err := attributevalue.MarshalMap(challengeItem{
		Key:       key,
		State:     state,
		Version:   version + 1,
		ExpiresAt: horizon.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	in := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}
	if exists {
		in.ConditionExpression = aws.String("#ver = :ver")
		in.ExpressionAttributeNames = map[string]string{"#ver": fieldVersion}
		in.ExpressionAttributeValues = map[string]types.AttributeValue{":ver": versionValue(version)}
	} else {
		in.ConditionExpression = aws.String("attribute_not_exists(" + challengeKeyAttr + ")")
	}
	_, err = s.client.PutItem(ctx, in)
	return err
}

func versionValue(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}
