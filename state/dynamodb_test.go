package state

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mizumono/yt-upload-notifier/model"
)

// fakeDynamo implements dynamoAPI with hooks and call recording.
type fakeDynamo struct {
	queryFunc    func(params *dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	batchFunc    func(params *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error)
	scanFunc     func(params *dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
	describeFunc func(params *dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error)

	batchCalls []*dynamodb.BatchWriteItemInput
}

func (f *fakeDynamo) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.queryFunc != nil {
		return f.queryFunc(params)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batchCalls = append(f.batchCalls, params)
	if f.batchFunc != nil {
		return f.batchFunc(params)
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.scanFunc != nil {
		return f.scanFunc(params)
	}
	return &dynamodb.ScanOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, params *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.describeFunc != nil {
		return f.describeFunc(params)
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func newTestStore(db dynamoAPI) *DynamoStore {
	return &DynamoStore{
		db:        db,
		tableName: "TestVideos",
		retention: 7 * 24 * time.Hour,
		now:       func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) },
	}
}

func makeUploads(n int) []model.Upload {
	uploads := make([]model.Upload, n)
	for i := range uploads {
		uploads[i] = model.Upload{
			VideoID:     string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Title:       "Video",
			PublishedAt: "2026-08-28T10:00:00Z",
		}
	}
	return uploads
}

func TestRecordUploads_BatchBoundaries(t *testing.T) {
	db := &fakeDynamo{}
	store := newTestStore(db)

	written, err := store.RecordUploads(context.Background(), "UC1", "Channel", makeUploads(51))
	require.NoError(t, err)
	assert.Equal(t, 51, written)

	require.Len(t, db.batchCalls, 3)
	assert.Len(t, db.batchCalls[0].RequestItems["TestVideos"], 25)
	assert.Len(t, db.batchCalls[1].RequestItems["TestVideos"], 25)
	assert.Len(t, db.batchCalls[2].RequestItems["TestVideos"], 1)
}

func TestRecordUploads_Empty(t *testing.T) {
	db := &fakeDynamo{}
	store := newTestStore(db)

	written, err := store.RecordUploads(context.Background(), "UC1", "Channel", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, written)
	assert.Empty(t, db.batchCalls)
}

func TestRecordUploads_SetsExpiry(t *testing.T) {
	db := &fakeDynamo{}
	store := newTestStore(db)

	_, err := store.RecordUploads(context.Background(), "UC1", "Channel", makeUploads(1))
	require.NoError(t, err)

	require.Len(t, db.batchCalls, 1)
	item := db.batchCalls[0].RequestItems["TestVideos"][0].PutRequest.Item

	wantExpiry := time.Date(2026, 9, 4, 12, 0, 0, 0, time.UTC).Unix()
	expires, ok := item["expiresAt"].(*types.AttributeValueMemberN)
	require.True(t, ok, "expiresAt should be a number attribute")
	got, err := strconv.ParseInt(expires.Value, 10, 64)
	require.NoError(t, err)
	assert.Equal(t, wantExpiry, got)

	channel, ok := item["channelId"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "UC1", channel.Value)
}

func TestRecordUploads_FailedBatchSkipped(t *testing.T) {
	db := &fakeDynamo{}
	db.batchFunc = func(params *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
		// Fail the first (full) batch only.
		if len(params.RequestItems["TestVideos"]) == 25 && len(db.batchCalls) == 1 {
			return nil, errors.New("throttled")
		}
		return &dynamodb.BatchWriteItemOutput{}, nil
	}
	store := newTestStore(db)

	written, err := store.RecordUploads(context.Background(), "UC1", "Channel", makeUploads(51))
	require.NoError(t, err)

	// 25 lost to the failed batch, the remaining two batches landed.
	assert.Equal(t, 26, written)
	assert.Len(t, db.batchCalls, 3)
}

func TestLatestPublishedAt_QueryShape(t *testing.T) {
	db := &fakeDynamo{
		queryFunc: func(params *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			assert.Equal(t, "TestVideos", aws.ToString(params.TableName))
			assert.Equal(t, publishedAtIndex, aws.ToString(params.IndexName))
			assert.Equal(t, "channelId = :cid", aws.ToString(params.KeyConditionExpression))
			assert.False(t, aws.ToBool(params.ScanIndexForward))
			assert.Equal(t, int32(1), aws.ToInt32(params.Limit))

			return &dynamodb.QueryOutput{
				Items: []map[string]types.AttributeValue{{
					"channelId":   &types.AttributeValueMemberS{Value: "UC1"},
					"videoId":     &types.AttributeValueMemberS{Value: "v9"},
					"publishedAt": &types.AttributeValueMemberS{Value: "2026-08-27T09:00:00Z"},
				}},
			}, nil
		},
	}
	store := newTestStore(db)

	got, err := store.LatestPublishedAt(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-27T09:00:00Z", got)
}

func TestLatestPublishedAt_NoRecord(t *testing.T) {
	store := newTestStore(&fakeDynamo{})

	got, err := store.LatestPublishedAt(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLatestPublishedAt_QueryError(t *testing.T) {
	db := &fakeDynamo{
		queryFunc: func(_ *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			return nil, errors.New("index unavailable")
		},
	}
	store := newTestStore(db)

	_, err := store.LatestPublishedAt(context.Background(), "UC1")
	assert.Error(t, err)
}

func TestPurgeAll_PaginatesAndDeletes(t *testing.T) {
	pageKey := map[string]types.AttributeValue{
		"channelId": &types.AttributeValueMemberS{Value: "UC1"},
		"videoId":   &types.AttributeValueMemberS{Value: "v25"},
	}
	scans := 0
	db := &fakeDynamo{}
	db.scanFunc = func(params *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
		scans++
		items := make([]map[string]types.AttributeValue, 30)
		for i := range items {
			items[i] = map[string]types.AttributeValue{
				"channelId": &types.AttributeValueMemberS{Value: "UC1"},
				"videoId":   &types.AttributeValueMemberS{Value: "v"},
			}
		}
		out := &dynamodb.ScanOutput{Items: items}
		if scans == 1 {
			out.LastEvaluatedKey = pageKey
		}
		return out, nil
	}
	store := newTestStore(db)

	deleted, err := store.PurgeAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 60, deleted)
	assert.Equal(t, 2, scans)
	// 30 deletes per scan page chunk into 25 + 5.
	assert.Len(t, db.batchCalls, 4)
}

func TestChunkWriteRequests(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		size     int
		wantLens []int
	}{
		{name: "empty", count: 0, size: 25, wantLens: nil},
		{name: "single partial", count: 10, size: 25, wantLens: []int{10}},
		{name: "exact multiple", count: 50, size: 25, wantLens: []int{25, 25}},
		{name: "remainder", count: 51, size: 25, wantLens: []int{25, 25, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := make([]types.WriteRequest, tt.count)
			chunks := chunkWriteRequests(requests, tt.size)

			var lens []int
			for _, chunk := range chunks {
				lens = append(lens, len(chunk))
			}
			assert.Equal(t, tt.wantLens, lens)
		})
	}
}
