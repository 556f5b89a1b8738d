package call

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatlink-backend/internal/domain"
	apperrors "chatlink-backend/pkg/errors"
	"chatlink-backend/pkg/logger"
)

func init() {
	logger.InitDefault()
}

// Mocks
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockTx) CreateCall(ctx context.Context, call *domain.Call) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockTx) GetCallForUpdate(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, callID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockTx) UpdateCall(ctx context.Context, call *domain.Call) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockTx) CountActiveCallsForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockTx) CreateMessage(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Begin(ctx context.Context) (Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Tx), args.Error(1)
}

func (m *MockStore) GetCall(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, callID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockStore) GetUsersByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*domain.User, error) {
	args := m.Called(ctx, userIDs)
	return args.Get(0).(map[uuid.UUID]*domain.User), args.Error(1)
}

func (m *MockStore) ListUserCalls(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Call, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*domain.Call), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, event string, payload interface{}) {
	m.Called(ctx, topic, event, payload)
}

func approvedUser(id uuid.UUID) *domain.User {
	return &domain.User{
		UserID:         id,
		Username:       "user-" + id.String()[:8],
		FirstName:      "Test",
		LastName:       "User",
		ApprovalStatus: domain.ApprovalApproved,
	}
}

func usersMap(users ...*domain.User) map[uuid.UUID]*domain.User {
	m := make(map[uuid.UUID]*domain.User, len(users))
	for _, u := range users {
		m[u.UserID] = u
	}
	return m
}

func TestInitiateCall(t *testing.T) {
	ctx := context.Background()
	callerID := uuid.New()
	recipientID := uuid.New()

	mockTx := new(MockTx)
	mockStore := new(MockStore)
	mockPublisher := new(MockPublisher)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetUser", ctx, recipientID).Return(approvedUser(recipientID), nil)
	mockTx.On("CountActiveCallsForUser", ctx, callerID).Return(0, nil)
	mockTx.On("CountActiveCallsForUser", ctx, recipientID).Return(0, nil)
	mockTx.On("CreateCall", ctx, mock.AnythingOfType("*domain.Call")).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)
	mockTx.On("Rollback", ctx).Return(nil)
	mockStore.On("GetUsersByIDs", ctx, mock.Anything).
		Return(usersMap(approvedUser(callerID), approvedUser(recipientID)), nil)
	mockPublisher.On("Publish", ctx, "user:"+recipientID.String(), "call.incoming", mock.Anything).Return()

	service := NewService(mockStore, mockPublisher, nil, nil, nil)

	resp, err := service.InitiateCall(ctx, callerID, &InitiateCallInput{
		RecipientID: recipientID,
		CallType:    domain.CallTypeVideo,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusCalling, resp.Status)
	assert.Equal(t, domain.CallTypeVideo, resp.CallType)
	assert.Nil(t, resp.StartedAt)
	mockTx.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestInitiateCall_SelfCall(t *testing.T) {
	userID := uuid.New()
	service := NewService(new(MockStore), new(MockPublisher), nil, nil, nil)

	_, err := service.InitiateCall(context.Background(), userID, &InitiateCallInput{
		RecipientID: userID,
		CallType:    domain.CallTypeAudio,
	})

	assert.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
	assert.Equal(t, "Cannot call yourself", appErr.Message)
}

func TestInitiateCall_RecipientNotApproved(t *testing.T) {
	ctx := context.Background()
	callerID := uuid.New()
	recipientID := uuid.New()

	recipient := approvedUser(recipientID)
	recipient.ApprovalStatus = domain.ApprovalPending

	mockTx := new(MockTx)
	mockStore := new(MockStore)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetUser", ctx, recipientID).Return(recipient, nil)
	mockTx.On("Rollback", ctx).Return(nil)

	service := NewService(mockStore, new(MockPublisher), nil, nil, nil)

	_, err := service.InitiateCall(ctx, callerID, &InitiateCallInput{
		RecipientID: recipientID,
		CallType:    domain.CallTypeAudio,
	})

	assert.Error(t, err)
	assert.Equal(t, "Cannot call user who is not approved", apperrors.GetAppError(err).Message)
}

func TestInitiateCall_CallerBusy(t *testing.T) {
	ctx := context.Background()
	callerID := uuid.New()
	recipientID := uuid.New()

	mockTx := new(MockTx)
	mockStore := new(MockStore)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetUser", ctx, recipientID).Return(approvedUser(recipientID), nil)
	mockTx.On("CountActiveCallsForUser", ctx, callerID).Return(1, nil)
	mockTx.On("Rollback", ctx).Return(nil)

	service := NewService(mockStore, new(MockPublisher), nil, nil, nil)

	_, err := service.InitiateCall(ctx, callerID, &InitiateCallInput{
		RecipientID: recipientID,
		CallType:    domain.CallTypeAudio,
	})

	assert.Error(t, err)
	assert.Equal(t, "You already have an active call. End it before starting a new one.",
		apperrors.GetAppError(err).Message)
	mockTx.AssertNotCalled(t, "CreateCall", mock.Anything, mock.Anything)
}

func TestInitiateCall_RecipientBusy(t *testing.T) {
	ctx := context.Background()
	callerID := uuid.New()
	recipientID := uuid.New()

	mockTx := new(MockTx)
	mockStore := new(MockStore)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetUser", ctx, recipientID).Return(approvedUser(recipientID), nil)
	mockTx.On("CountActiveCallsForUser", ctx, callerID).Return(0, nil)
	mockTx.On("CountActiveCallsForUser", ctx, recipientID).Return(1, nil)
	mockTx.On("Rollback", ctx).Return(nil)

	service := NewService(mockStore, new(MockPublisher), nil, nil, nil)

	_, err := service.InitiateCall(ctx, callerID, &InitiateCallInput{
		RecipientID: recipientID,
		CallType:    domain.CallTypeVideo,
	})

	assert.Error(t, err)
	assert.Equal(t, "Recipient is already on another call", apperrors.GetAppError(err).Message)
}

func TestRespondToCall_Accept(t *testing.T) {
	ctx := context.Background()
	callerID := uuid.New()
	recipientID := uuid.New()
	callID := uuid.New()

	call := &domain.Call{
		CallID:      callID,
		CallerID:    callerID,
		RecipientID: recipientID,
		CallType:    domain.CallTypeAudio,
		Status:      domain.CallStatusCalling,
		CreatedAt:   time.Now().UTC(),
	}

	mockTx := new(MockTx)
	mockStore := new(MockStore)
	mockPublisher := new(MockPublisher)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetCallForUpdate", ctx, callID).Return(call, nil)
	mockTx.On("UpdateCall", ctx, call).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)
	mockTx.On("Rollback", ctx).Return(nil)
	mockStore.On("GetUsersByIDs", ctx, mock.Anything).
		Return(usersMap(approvedUser(callerID), approvedUser(recipientID)), nil)
	mockPublisher.On("Publish", ctx, "user:"+callerID.String(), "call.response", mock.Anything).Return()

	service := NewService(mockStore, mockPublisher, nil, nil, nil)

	resp, err := service.RespondToCall(ctx, callID, recipientID, ResponseAccept)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusConnected, resp.Status)
	assert.NotNil(t, resp.StartedAt)
	mockTx.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	mockPublisher.AssertExpectations(t)
}

func TestRespondToCall_Reject(t *testing.T) {
	ctx := context.Background()
	callerID := uuid.New()
	recipientID := uuid.New()
	callID := uuid.New()

	call := &domain.Call{
		CallID:      callID,
		CallerID:    callerID,
		RecipientID: recipientID,
		CallType:    domain.CallTypeVideo,
		Status:      domain.CallStatusCalling,
		CreatedAt:   time.Now().UTC(),
	}

	var createdMessage *domain.Message

	mockTx := new(MockTx)
	mockStore := new(MockStore)
	mockPublisher := new(MockPublisher)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetCallForUpdate", ctx, callID).Return(call, nil)
	mockTx.On("CreateMessage", ctx, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			createdMessage = args.Get(1).(*domain.Message)
		}).Return(nil)
	mockTx.On("UpdateCall", ctx, call).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)
	mockTx.On("Rollback", ctx).Return(nil)
	mockStore.On("GetUsersByIDs", ctx, mock.Anything).
		Return(usersMap(approvedUser(callerID), approvedUser(recipientID)), nil)
	mockPublisher.On("Publish", ctx, "user:"+callerID.String(), "call.response", mock.Anything).Return()
	mockPublisher.On("Publish", ctx, "user:"+callerID.String(), "message.new", mock.Anything).Return()
	mockPublisher.On("Publish", ctx, "user:"+recipientID.String(), "message.new", mock.Anything).Return()

	service := NewService(mockStore, mockPublisher, nil, nil, nil)

	resp, err := service.RespondToCall(ctx, callID, recipientID, ResponseReject)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusRejected, resp.Status)
	assert.NotNil(t, resp.EndedAt)

	assert.NotNil(t, createdMessage)
	assert.Equal(t, callerID, createdMessage.SenderID)
	assert.Equal(t, recipientID, createdMessage.RecipientID)
	assert.Equal(t, "video call", createdMessage.Content)
	assert.Equal(t, domain.MessageTypeCall, createdMessage.MessageType)
	assert.Equal(t, domain.MessageStatusSent, createdMessage.Status)
	assert.Equal(t, "rejected", createdMessage.Metadata["callStatus"])
	mockPublisher.AssertExpectations(t)
}

func TestRespondToCall_WrongRecipient(t *testing.T) {
	ctx := context.Background()
	callID := uuid.New()

	call := &domain.Call{
		CallID:      callID,
		CallerID:    uuid.New(),
		RecipientID: uuid.New(),
		Status:      domain.CallStatusCalling,
	}

	mockTx := new(MockTx)
	mockStore := new(MockStore)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetCallForUpdate", ctx, callID).Return(call, nil)
	mockTx.On("Rollback", ctx).Return(nil)

	service := NewService(mockStore, new(MockPublisher), nil, nil, nil)

	// Caller cannot respond to their own call, only the recipient can.
	_, err := service.RespondToCall(ctx, callID, call.CallerID, ResponseAccept)

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeCallNotFound, apperrors.GetAppError(err).Code)
}

func TestRespondToCall_AlreadyAnswered(t *testing.T) {
	ctx := context.Background()
	recipientID := uuid.New()
	callID := uuid.New()

	call := &domain.Call{
		CallID:      callID,
		CallerID:    uuid.New(),
		RecipientID: recipientID,
		Status:      domain.CallStatusConnected,
	}

	mockTx := new(MockTx)
	mockStore := new(MockStore)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetCallForUpdate", ctx, callID).Return(call, nil)
	mockTx.On("Rollback", ctx).Return(nil)

	service := NewService(mockStore, new(MockPublisher), nil, nil, nil)

	_, err := service.RespondToCall(ctx, callID, recipientID, ResponseReject)

	assert.Error(t, err)
	assert.Equal(t,
		"Cannot respond to call in status: connected. Call must be in 'calling' status.",
		apperrors.GetAppError(err).Message)
	mockTx.AssertNotCalled(t, "UpdateCall", mock.Anything, mock.Anything)
}

func TestEndCall_Connected(t *testing.T) {
	ctx := context.Background()
	callerID := uuid.New()
	recipientID := uuid.New()
	callID := uuid.New()

	// Fractional elapsed time must truncate, not round up.
	startedAt := time.Now().UTC().Add(-125700 * time.Millisecond)
	call := &domain.Call{
		CallID:      callID,
		CallerID:    callerID,
		RecipientID: recipientID,
		CallType:    domain.CallTypeAudio,
		Status:      domain.CallStatusConnected,
		StartedAt:   &startedAt,
	}

	var createdMessage *domain.Message

	mockTx := new(MockTx)
	mockStore := new(MockStore)
	mockPublisher := new(MockPublisher)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetCallForUpdate", ctx, callID).Return(call, nil)
	mockTx.On("UpdateCall", ctx, call).Return(nil)
	mockTx.On("CreateMessage", ctx, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			createdMessage = args.Get(1).(*domain.Message)
		}).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)
	mockTx.On("Rollback", ctx).Return(nil)
	mockStore.On("GetUsersByIDs", ctx, mock.Anything).
		Return(usersMap(approvedUser(callerID), approvedUser(recipientID)), nil)
	mockPublisher.On("Publish", ctx, "user:"+recipientID.String(), "call.ended", mock.Anything).Return()
	mockPublisher.On("Publish", ctx, "user:"+callerID.String(), "message.new", mock.Anything).Return()
	mockPublisher.On("Publish", ctx, "user:"+recipientID.String(), "message.new", mock.Anything).Return()

	service := NewService(mockStore, mockPublisher, nil, nil, nil)

	resp, err := service.EndCall(ctx, callID, callerID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusEnded, resp.Status)
	assert.Equal(t, 125, resp.DurationSeconds)

	assert.NotNil(t, createdMessage)
	assert.Equal(t, domain.MessageStatusDelivered, createdMessage.Status)
	assert.Equal(t, "completed", createdMessage.Metadata["callStatus"])
	assert.Equal(t, resp.DurationSeconds, createdMessage.Metadata["callDuration"])
	mockPublisher.AssertExpectations(t)
}

func TestEndCall_Ringing(t *testing.T) {
	ctx := context.Background()
	callerID := uuid.New()
	recipientID := uuid.New()
	callID := uuid.New()

	call := &domain.Call{
		CallID:      callID,
		CallerID:    callerID,
		RecipientID: recipientID,
		CallType:    domain.CallTypeVideo,
		Status:      domain.CallStatusCalling,
	}

	var createdMessage *domain.Message

	mockTx := new(MockTx)
	mockStore := new(MockStore)
	mockPublisher := new(MockPublisher)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetCallForUpdate", ctx, callID).Return(call, nil)
	mockTx.On("UpdateCall", ctx, call).Return(nil)
	mockTx.On("CreateMessage", ctx, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			createdMessage = args.Get(1).(*domain.Message)
		}).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)
	mockTx.On("Rollback", ctx).Return(nil)
	mockStore.On("GetUsersByIDs", ctx, mock.Anything).
		Return(usersMap(approvedUser(callerID), approvedUser(recipientID)), nil)
	mockPublisher.On("Publish", ctx, mock.Anything, mock.Anything, mock.Anything).Return()

	service := NewService(mockStore, mockPublisher, nil, nil, nil)

	// Caller hangs up before the recipient answers.
	resp, err := service.EndCall(ctx, callID, callerID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusMissed, resp.Status)
	assert.Equal(t, 0, resp.DurationSeconds)

	assert.NotNil(t, createdMessage)
	assert.Equal(t, domain.MessageStatusSent, createdMessage.Status)
	assert.Equal(t, "missed", createdMessage.Metadata["callStatus"])
}

func TestEndCall_ConnectedMissingStart(t *testing.T) {
	ctx := context.Background()
	callerID := uuid.New()
	recipientID := uuid.New()
	callID := uuid.New()

	// A connected row should always carry started_at, but a corrupt
	// one must still end cleanly with zero duration.
	call := &domain.Call{
		CallID:      callID,
		CallerID:    callerID,
		RecipientID: recipientID,
		CallType:    domain.CallTypeAudio,
		Status:      domain.CallStatusConnected,
		StartedAt:   nil,
	}

	mockTx := new(MockTx)
	mockStore := new(MockStore)
	mockPublisher := new(MockPublisher)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetCallForUpdate", ctx, callID).Return(call, nil)
	mockTx.On("UpdateCall", ctx, call).Return(nil)
	mockTx.On("CreateMessage", ctx, mock.AnythingOfType("*domain.Message")).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)
	mockTx.On("Rollback", ctx).Return(nil)
	mockStore.On("GetUsersByIDs", ctx, mock.Anything).
		Return(usersMap(approvedUser(callerID), approvedUser(recipientID)), nil)
	mockPublisher.On("Publish", ctx, mock.Anything, mock.Anything, mock.Anything).Return()

	service := NewService(mockStore, mockPublisher, nil, nil, nil)

	resp, err := service.EndCall(ctx, callID, callerID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusEnded, resp.Status)
	assert.Equal(t, 0, resp.DurationSeconds)
}

func TestEndCall_AlreadyTerminal(t *testing.T) {
	ctx := context.Background()
	callerID := uuid.New()
	recipientID := uuid.New()
	callID := uuid.New()

	endedAt := time.Now().UTC()
	call := &domain.Call{
		CallID:          callID,
		CallerID:        callerID,
		RecipientID:     recipientID,
		CallType:        domain.CallTypeAudio,
		Status:          domain.CallStatusEnded,
		EndedAt:         &endedAt,
		DurationSeconds: 42,
	}

	mockTx := new(MockTx)
	mockStore := new(MockStore)
	mockPublisher := new(MockPublisher)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetCallForUpdate", ctx, callID).Return(call, nil)
	mockTx.On("Commit", ctx).Return(nil)
	mockTx.On("Rollback", ctx).Return(nil)
	mockStore.On("GetUsersByIDs", ctx, mock.Anything).
		Return(usersMap(approvedUser(callerID), approvedUser(recipientID)), nil)

	service := NewService(mockStore, mockPublisher, nil, nil, nil)

	resp, err := service.EndCall(ctx, callID, recipientID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusEnded, resp.Status)
	assert.Equal(t, 42, resp.DurationSeconds)
	mockTx.AssertNotCalled(t, "UpdateCall", mock.Anything, mock.Anything)
	mockTx.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	mockPublisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEndCall_NotParticipant(t *testing.T) {
	ctx := context.Background()
	callID := uuid.New()

	call := &domain.Call{
		CallID:      callID,
		CallerID:    uuid.New(),
		RecipientID: uuid.New(),
		Status:      domain.CallStatusConnected,
	}

	mockTx := new(MockTx)
	mockStore := new(MockStore)

	mockStore.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("GetCallForUpdate", ctx, callID).Return(call, nil)
	mockTx.On("Rollback", ctx).Return(nil)

	service := NewService(mockStore, new(MockPublisher), nil, nil, nil)

	_, err := service.EndCall(ctx, callID, uuid.New())

	assert.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeForbidden, appErr.Code)
	assert.Equal(t, "You are not a participant in this call", appErr.Message)
}

func TestGetCall_NotParticipant(t *testing.T) {
	ctx := context.Background()
	callID := uuid.New()

	call := &domain.Call{
		CallID:      callID,
		CallerID:    uuid.New(),
		RecipientID: uuid.New(),
		Status:      domain.CallStatusEnded,
	}

	mockStore := new(MockStore)
	mockStore.On("GetCall", ctx, callID).Return(call, nil)

	service := NewService(mockStore, new(MockPublisher), nil, nil, nil)

	_, err := service.GetCall(ctx, callID, uuid.New())

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)
}
