package metastore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"photobucket/internal/config"
	"photobucket/internal/models"
)

type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

func NewClient(ctx context.Context, cfg config.DynamoConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return client, nil
}

func NewDynamoStore(client *dynamodb.Client, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

func (s *DynamoStore) Put(ctx context.Context, photo models.Photo) error {
	item, err := attributevalue.MarshalMap(photo)
	if err != nil {
		return fmt.Errorf("marshal photo: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: partitionKey(photo.OwnerID)}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put photo %s: %w", photo.PhotoID, err)
	}
	return nil
}

func (s *DynamoStore) Get(ctx context.Context, ownerID, sortKey string) (models.Photo, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(ownerID, sortKey),
	})
	if err != nil {
		return models.Photo{}, fmt.Errorf("get photo: %w", err)
	}
	if out.Item == nil {
		return models.Photo{}, ErrPhotoNotFound
	}

	var photo models.Photo
	if err := attributevalue.UnmarshalMap(out.Item, &photo); err != nil {
		return models.Photo{}, fmt.Errorf("unmarshal photo: %w", err)
	}
	return photo, nil
}

// List returns one page of an owner's photos, newest first. The cursor
// round-trips the table's LastEvaluatedKey so pagination stays stable
// under concurrent inserts.
func (s *DynamoStore) List(ctx context.Context, ownerID string, limit int32, cursor string) (Page, error) {
	startKey, err := decodeCursor(cursor)
	if err != nil {
		return Page{}, err
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: partitionKey(ownerID)},
		},
		ScanIndexForward:  aws.Bool(false),
		Limit:             aws.Int32(limit),
		ExclusiveStartKey: startKey,
	})
	if err != nil {
		return Page{}, fmt.Errorf("query photos: %w", err)
	}

	photos := make([]models.Photo, 0, len(out.Items))
	for _, item := range out.Items {
		var photo models.Photo
		if err := attributevalue.UnmarshalMap(item, &photo); err != nil {
			return Page{}, fmt.Errorf("unmarshal photo: %w", err)
		}
		photos = append(photos, photo)
	}

	next, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return Page{}, err
	}
	return Page{Photos: photos, NextCursor: next}, nil
}

// FindByPhotoID locates a record by photo id alone with a filtered scan
// of the owner partition. The filter applies after the read, so the
// query pages through the partition until it hits a match.
func (s *DynamoStore) FindByPhotoID(ctx context.Context, ownerID, photoID string) (models.Photo, error) {
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("PK = :pk"),
			FilterExpression:       aws.String("photoId = :photoId"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":      &types.AttributeValueMemberS{Value: partitionKey(ownerID)},
				":photoId": &types.AttributeValueMemberS{Value: photoID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return models.Photo{}, fmt.Errorf("query photo by id: %w", err)
		}
		if len(out.Items) > 0 {
			var photo models.Photo
			if err := attributevalue.UnmarshalMap(out.Items[0], &photo); err != nil {
				return models.Photo{}, fmt.Errorf("unmarshal photo: %w", err)
			}
			return photo, nil
		}
		if out.LastEvaluatedKey == nil {
			return models.Photo{}, ErrPhotoNotFound
		}
		startKey = out.LastEvaluatedKey
	}
}

func (s *DynamoStore) UpdateStatus(ctx context.Context, ownerID, sortKey string, status models.PhotoStatus, processingError string) error {
	expr := "SET #status = :status"
	names := map[string]string{"#status": "status"}
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(status)},
	}
	if processingError != "" {
		expr += ", #error = :error"
		names["#error"] = "processingError"
		values[":error"] = &types.AttributeValueMemberS{Value: processingError}
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.key(ownerID, sortKey),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

func (s *DynamoStore) UpdateEnrichment(ctx context.Context, ownerID, sortKey, title, description string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(ownerID, sortKey),
		UpdateExpression: aws.String(
			"SET #status = :status, #title = :title, #description = :description",
		),
		ExpressionAttributeNames: map[string]string{
			"#status":      "status",
			"#title":       "title",
			"#description": "description",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":      &types.AttributeValueMemberS{Value: string(models.PhotoStatusCompleted)},
			":title":       &types.AttributeValueMemberS{Value: title},
			":description": &types.AttributeValueMemberS{Value: description},
		},
	})
	if err != nil {
		return fmt.Errorf("update enrichment: %w", err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, ownerID, sortKey string) (bool, error) {
	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.table),
		Key:          s.key(ownerID, sortKey),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("delete photo: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

// ScanStuck reports records across all partitions that are still in
// pending or processing and were created before the cutoff. Used by the
// operational sweep, never by request paths; RFC3339 timestamps compare
// lexicographically so the cutoff is a plain string condition.
func (s *DynamoStore) ScanStuck(ctx context.Context, cutoff time.Time) ([]models.Photo, error) {
	var stuck []models.Photo
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.table),
			FilterExpression: aws.String("(#status = :pending OR #status = :processing) AND createdAt < :cutoff"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pending":    &types.AttributeValueMemberS{Value: string(models.PhotoStatusPending)},
				":processing": &types.AttributeValueMemberS{Value: string(models.PhotoStatusProcessing)},
				":cutoff":     &types.AttributeValueMemberS{Value: cutoff.UTC().Format(time.RFC3339)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan stuck photos: %w", err)
		}
		for _, item := range out.Items {
			var photo models.Photo
			if err := attributevalue.UnmarshalMap(item, &photo); err != nil {
				return nil, fmt.Errorf("unmarshal photo: %w", err)
			}
			stuck = append(stuck, photo)
		}
		if out.LastEvaluatedKey == nil {
			return stuck, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (s *DynamoStore) key(ownerID, sortKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: partitionKey(ownerID)},
		"SK": &types.AttributeValueMemberS{Value: sortKey},
	}
}
