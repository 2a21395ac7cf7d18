// Package state implements the durable video-record store on DynamoDB.
//
// The table is keyed (channelId, videoId) and carries a global secondary
// index, ChannelPublishedAtIndex, keyed by channelId with publishedAt as the
// sort key. Records expire through the table's TTL attribute (expiresAt);
// this code never deletes records as part of a regular run.
package state

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/mizumono/yt-upload-notifier/model"
)

const (
	// publishedAtIndex is the GSI used for the watermark query.
	publishedAtIndex = "ChannelPublishedAtIndex"

	// maxBatchWriteItems is DynamoDB's per-call BatchWriteItem limit.
	maxBatchWriteItems = 25
)

// dynamoAPI is the subset of the DynamoDB client the store uses.
type dynamoAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoStore implements VideoStore against a DynamoDB table.
type DynamoStore struct {
	db        dynamoAPI
	tableName string
	retention time.Duration

	// now is swappable in tests.
	now func() time.Time
}

// NewDynamoStore creates a store bound to the configured table, loading AWS
// credentials from the default chain.
func NewDynamoStore(ctx context.Context, cfg Config) (*DynamoStore, error) {
	if cfg.TableName == "" {
		return nil, fmt.Errorf("table name is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &DynamoStore{
		db:        dynamodb.NewFromConfig(awsCfg),
		tableName: cfg.TableName,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		now:       time.Now,
	}, nil
}

// LatestPublishedAt queries the channel's newest record through the
// publishedAt index.
func (s *DynamoStore) LatestPublishedAt(ctx context.Context, channelID string) (string, error) {
	out, err := s.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(publishedAtIndex),
		KeyConditionExpression: aws.String("channelId = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: channelID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("watermark query for channel %s: %w", channelID, err)
	}

	if len(out.Items) == 0 {
		return "", nil
	}

	var record model.VideoRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &record); err != nil {
		return "", fmt.Errorf("failed to unmarshal watermark record: %w", err)
	}

	return record.PublishedAt, nil
}

// RecordUploads writes one record per upload in batches of at most 25.
// A failed batch is logged and skipped; the uploads it carried will be
// re-discovered as new on the next run.
func (s *DynamoStore) RecordUploads(ctx context.Context, channelID, channelName string, uploads []model.Upload) (int, error) {
	if len(uploads) == 0 {
		return 0, nil
	}

	expiresAt := s.now().Add(s.retention).Unix()

	requests := make([]types.WriteRequest, 0, len(uploads))
	for _, upload := range uploads {
		item, err := attributevalue.MarshalMap(model.VideoRecord{
			ChannelID:   channelID,
			VideoID:     upload.VideoID,
			ChannelName: channelName,
			Title:       upload.Title,
			PublishedAt: upload.PublishedAt,
			ExpiresAt:   expiresAt,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to marshal record for video %s: %w", upload.VideoID, err)
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	written := 0
	for _, batch := range chunkWriteRequests(requests, maxBatchWriteItems) {
		_, err := s.db.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.tableName: batch,
			},
		})
		if err != nil {
			log.Error().Err(err).
				Str("channel_id", channelID).
				Int("batch_size", len(batch)).
				Msg("Batch write failed, skipping batch")
			continue
		}
		written += len(batch)
	}

	log.Info().
		Str("channel_id", channelID).
		Int("written", written).
		Int("total", len(uploads)).
		Msg("Recorded new uploads")

	return written, nil
}

// PurgeAll scans the table and deletes every record in batches. This is a
// maintenance operation; the scheduled run never calls it.
func (s *DynamoStore) PurgeAll(ctx context.Context) (int, error) {
	deleted := 0
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.db.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(s.tableName),
			ProjectionExpression: aws.String("channelId, videoId"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return deleted, fmt.Errorf("purge scan: %w", err)
		}

		requests := make([]types.WriteRequest, 0, len(out.Items))
		for _, item := range out.Items {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"channelId": item["channelId"],
						"videoId":   item["videoId"],
					},
				},
			})
		}

		for _, batch := range chunkWriteRequests(requests, maxBatchWriteItems) {
			_, err := s.db.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					s.tableName: batch,
				},
			})
			if err != nil {
				log.Error().Err(err).Int("batch_size", len(batch)).Msg("Batch delete failed, skipping batch")
				continue
			}
			deleted += len(batch)
		}

		startKey = out.LastEvaluatedKey
		if startKey == nil {
			break
		}
	}

	log.Info().Int("deleted", deleted).Str("table", s.tableName).Msg("Purged table")
	return deleted, nil
}

// ListAll scans every record and returns them sorted by publish time,
// newest first. Maintenance only.
func (s *DynamoStore) ListAll(ctx context.Context) ([]model.VideoRecord, error) {
	var records []model.VideoRecord
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.db.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}

		var page []model.VideoRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal records: %w", err)
		}
		records = append(records, page...)

		startKey = out.LastEvaluatedKey
		if startKey == nil {
			break
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].PublishedAt > records[j].PublishedAt
	})

	return records, nil
}

// DescribeSchema returns a human-readable description of the backing table.
// Maintenance only.
func (s *DynamoStore) DescribeSchema(ctx context.Context) (string, error) {
	out, err := s.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err != nil {
		return "", fmt.Errorf("describe table: %w", err)
	}

	table := out.Table
	desc := fmt.Sprintf("table=%s status=%s items=%d", aws.ToString(table.TableName), table.TableStatus, aws.ToInt64(table.ItemCount))
	for _, gsi := range table.GlobalSecondaryIndexes {
		desc += fmt.Sprintf("\ngsi=%s status=%s", aws.ToString(gsi.IndexName), gsi.IndexStatus)
	}

	return desc, nil
}

// chunkWriteRequests splits requests into slices of at most size entries.
func chunkWriteRequests(requests []types.WriteRequest, size int) [][]types.WriteRequest {
	var chunks [][]types.WriteRequest
	for start := 0; start < len(requests); start += size {
		end := start + size
		if end > len(requests) {
			end = len(requests)
		}
		chunks = append(chunks, requests[start:end])
	}
	return chunks
}
