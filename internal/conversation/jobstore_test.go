package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

type mockDynamo struct {
	putInput     *dynamodb.PutItemInput
	putErr       error
	updateInputs []*dynamodb.UpdateItemInput
	updateErr    error
	getOutput    *dynamodb.GetItemOutput
	getErr       error
}

func (m *mockDynamo) PutItem(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInput = input
	return &dynamodb.PutItemOutput{}, m.putErr
}

func (m *mockDynamo) UpdateItem(_ context.Context, input *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updateInputs = append(m.updateInputs, input)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getOutput == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return m.getOutput, nil
}

func TestJobStorePutPendingPersistsDefaults(t *testing.T) {
	mock := &mockDynamo{}
	store := NewJobStore(mock, "turn_jobs", logging.Default())

	require.NoError(t, store.PutPending(context.Background(), &JobRecord{JobID: "job-123", SessionID: "5511", Channel: "zapi"}))
	require.NotNil(t, mock.putInput)

	var stored JobRecord
	require.NoError(t, attributevalue.UnmarshalMap(mock.putInput.Item, &stored))
	assert.Equal(t, JobStatusPending, stored.Status)
	assert.Equal(t, "5511", stored.SessionID)
	assert.NotEmpty(t, stored.CreatedAt)
	assert.Greater(t, stored.ExpiresAt, time.Now().Unix())
	require.NotNil(t, mock.putInput.ConditionExpression)
	assert.Equal(t, "attribute_not_exists(jobId)", *mock.putInput.ConditionExpression)

	assert.Error(t, store.PutPending(context.Background(), nil))
}

func TestJobStoreMarkCompletedStoresReply(t *testing.T) {
	mock := &mockDynamo{}
	store := NewJobStore(mock, "turn_jobs", logging.Default())

	require.NoError(t, store.MarkCompleted(context.Background(), "job-123", "Qual é o seu nome completo?"))
	require.Len(t, mock.updateInputs, 1)

	update := mock.updateInputs[0]
	assert.Equal(t, "reply", update.ExpressionAttributeNames["#reply"])
	assert.Equal(t, "status", update.ExpressionAttributeNames["#status"])
	assert.Equal(t, string(JobStatusCompleted), update.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "Qual é o seu nome completo?", update.ExpressionAttributeValues[":reply"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "attribute_exists(jobId)", *update.ConditionExpression)
}

func TestJobStoreMarkFailedAndErrors(t *testing.T) {
	mock := &mockDynamo{}
	store := NewJobStore(mock, "turn_jobs", logging.Default())

	require.NoError(t, store.MarkFailed(context.Background(), "job-1", "boom"))
	assert.Equal(t, "boom", mock.updateInputs[0].ExpressionAttributeValues[":error"].(*types.AttributeValueMemberS).Value)

	assert.Error(t, store.MarkFailed(context.Background(), "", "boom"))

	failing := NewJobStore(&mockDynamo{updateErr: errors.New("dynamo failed")}, "turn_jobs", nil)
	err := failing.MarkCompleted(context.Background(), "job-1", "ok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dynamo failed")
}

func TestJobStoreGetJob(t *testing.T) {
	mock := &mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"jobId":  &types.AttributeValueMemberS{Value: "job-42"},
		"status": &types.AttributeValueMemberS{Value: string(JobStatusCompleted)},
		"reply":  &types.AttributeValueMemberS{Value: "Olá!"},
	}}}
	store := NewJobStore(mock, "turn_jobs", logging.Default())

	job, err := store.GetJob(context.Background(), "job-42")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, "Olá!", job.Reply)

	_, err = NewJobStore(&mockDynamo{}, "turn_jobs", nil).GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = store.GetJob(context.Background(), "")
	assert.Error(t, err)
}

func TestMemoryJobStoreLifecycle(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()

	require.NoError(t, store.PutPending(ctx, &JobRecord{JobID: "j1", SessionID: "s"}))
	assert.Error(t, store.PutPending(ctx, &JobRecord{JobID: "j1"}))

	require.NoError(t, store.MarkCompleted(ctx, "j1", "resposta"))
	job, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, "resposta", job.Reply)

	assert.ErrorIs(t, store.MarkFailed(ctx, "nope", "x"), ErrJobNotFound)
}

func TestMemoryJobStoreEvictsExpired(t *testing.T) {
	store := NewMemoryJobStore()
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.PutPending(ctx, &JobRecord{JobID: "old"}))
	now = now.Add(jobTTL + time.Minute)
	require.NoError(t, store.PutPending(ctx, &JobRecord{JobID: "new"}))

	_, err := store.GetJob(ctx, "old")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = store.GetJob(ctx, "new")
	assert.NoError(t, err)
}
