package call

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatlink-backend/internal/domain"
	"chatlink-backend/internal/notifier"
	"chatlink-backend/internal/repository/postgres"
	apperrors "chatlink-backend/pkg/errors"
	"chatlink-backend/pkg/logger"
	"chatlink-backend/pkg/metrics"
	"chatlink-backend/pkg/push"
)

// Call responses a recipient can give to a ringing call.
const (
	ResponseAccept = "accept"
	ResponseReject = "reject"
)

// Tx is the unit of work the call state machine runs in. Every
// transition validates under the row lock, mutates, and commits before
// any notification goes out.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	CreateCall(ctx context.Context, call *domain.Call) error
	GetCallForUpdate(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	UpdateCall(ctx context.Context, call *domain.Call) error
	CountActiveCallsForUser(ctx context.Context, userID uuid.UUID) (int, error)
	CreateMessage(ctx context.Context, msg *domain.Message) error
}

// Store provides transactional and read-only access to call data.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	GetCall(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	GetUsersByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*domain.User, error)
	ListUserCalls(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Call, error)
}

// Presence reports whether a user currently has a live connection.
type Presence interface {
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

type storeAdapter struct {
	*postgres.Store
}

func (a storeAdapter) Begin(ctx context.Context) (Tx, error) {
	return a.Store.Begin(ctx)
}

// NewStore adapts the PostgreSQL store to the Store interface.
func NewStore(s *postgres.Store) Store {
	return storeAdapter{s}
}

// Service implements the call lifecycle: calling -> connected -> ended,
// calling -> rejected, calling -> missed. Terminal calls produce a call
// summary message in the participants' chat within the same
// transaction.
type Service struct {
	store     Store
	publisher notifier.Publisher
	push      *push.Dispatcher
	presence  Presence
	metrics   *metrics.Metrics
}

// NewService creates a new call service. push, presence and metrics may
// be nil.
func NewService(store Store, publisher notifier.Publisher, dispatcher *push.Dispatcher, presence Presence, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		push:      dispatcher,
		presence:  presence,
		metrics:   m,
	}
}

// InitiateCallInput contains call initiation data
type InitiateCallInput struct {
	RecipientID uuid.UUID `json:"recipient_id" binding:"required"`
	CallType    string    `json:"call_type" binding:"required,oneof=audio video"`
}

// InitiateCall starts a new call in calling status. Both participants
// must be free: a user can be on at most one non-terminal call at a
// time, counting both sides.
func (s *Service) InitiateCall(ctx context.Context, callerID uuid.UUID, input *InitiateCallInput) (*domain.CallResponse, error) {
	if input.CallType != domain.CallTypeAudio && input.CallType != domain.CallTypeVideo {
		return nil, apperrors.ValidationError("Call type must be audio or video")
	}
	if callerID == input.RecipientID {
		return nil, apperrors.ValidationError("Cannot call yourself")
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	recipient, err := tx.GetUser(ctx, input.RecipientID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if recipient == nil {
		return nil, apperrors.NotFoundError("Recipient")
	}
	if !recipient.IsApproved() {
		return nil, apperrors.ValidationError("Cannot call user who is not approved")
	}

	callerActive, err := tx.CountActiveCallsForUser(ctx, callerID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if callerActive > 0 {
		return nil, apperrors.ValidationError("You already have an active call. End it before starting a new one.")
	}

	recipientActive, err := tx.CountActiveCallsForUser(ctx, input.RecipientID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if recipientActive > 0 {
		return nil, apperrors.ValidationError("Recipient is already on another call")
	}

	call := &domain.Call{
		CallID:      uuid.New(),
		CallerID:    callerID,
		RecipientID: input.RecipientID,
		CallType:    input.CallType,
		Status:      domain.CallStatusCalling,
		CreatedAt:   time.Now().UTC(),
	}

	if err := tx.CreateCall(ctx, call); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordCallInitiated(call.CallType)
	}

	resp, err := s.toResponse(ctx, call)
	if err != nil {
		return nil, err
	}

	logger.Info("Call initiated",
		zap.String("call_id", call.CallID.String()),
		zap.String("caller_id", callerID.String()),
		zap.String("recipient_id", input.RecipientID.String()),
		zap.String("call_type", call.CallType))

	s.publisher.Publish(ctx, notifier.UserTopic(call.RecipientID), notifier.EventCallIncoming, map[string]interface{}{
		"call": resp,
	})

	// A recipient with a live socket gets the call.incoming event;
	// push only reaches devices without one.
	if s.push != nil && resp.Caller != nil && !s.recipientOnline(ctx, call.RecipientID) {
		s.push.SendToUser(ctx, call.RecipientID, &push.Notification{
			Title:    "Incoming " + call.CallType + " call",
			Body:     resp.Caller.FirstName + " " + resp.Caller.LastName + " is calling you",
			Priority: "high",
			Category: "call",
			Data: map[string]string{
				"call_id":   call.CallID.String(),
				"call_type": call.CallType,
			},
		})
	}

	return resp, nil
}

// RespondToCall accepts or rejects a ringing call. Only the recipient
// may respond, and only while the call is still in calling status; the
// row lock serializes a response racing the caller hanging up.
func (s *Service) RespondToCall(ctx context.Context, callID, recipientID uuid.UUID, response string) (*domain.CallResponse, error) {
	if response != ResponseAccept && response != ResponseReject {
		return nil, apperrors.ValidationError("Response must be accept or reject")
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	call, err := tx.GetCallForUpdate(ctx, callID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if call == nil || call.RecipientID != recipientID {
		return nil, apperrors.CallNotFoundError()
	}

	if call.Status != domain.CallStatusCalling {
		return nil, apperrors.ValidationError(
			"Cannot respond to call in status: " + call.Status + ". Call must be in 'calling' status.")
	}

	now := time.Now().UTC()
	var callMessage *domain.Message

	if response == ResponseAccept {
		call.Status = domain.CallStatusConnected
		call.StartedAt = &now
	} else {
		call.Status = domain.CallStatusRejected
		call.EndedAt = &now
		callMessage = buildCallMessage(call)
		if err := tx.CreateMessage(ctx, callMessage); err != nil {
			return nil, apperrors.DatabaseError(err)
		}
	}

	if err := tx.UpdateCall(ctx, call); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if s.metrics != nil && call.IsTerminal() {
		s.metrics.RecordCallEnded(call.Status, call.DurationSeconds)
	}

	resp, err := s.toResponse(ctx, call)
	if err != nil {
		return nil, err
	}

	logger.Info("Call response",
		zap.String("call_id", callID.String()),
		zap.String("recipient_id", recipientID.String()),
		zap.String("response", response),
		zap.String("new_status", call.Status))

	s.publisher.Publish(ctx, notifier.UserTopic(call.CallerID), notifier.EventCallResponse, map[string]interface{}{
		"call_id":  callID,
		"response": response,
		"call":     resp,
	})

	if callMessage != nil {
		s.publishCallMessage(ctx, call, callMessage, resp.Caller)
	}

	return resp, nil
}

// EndCall finishes a call from either side. A connected call becomes
// ended with its duration recorded; a still-ringing call becomes
// missed. Ending an already terminal call is a no-op returning the
// call as-is.
func (s *Service) EndCall(ctx context.Context, callID, userID uuid.UUID) (*domain.CallResponse, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	call, err := tx.GetCallForUpdate(ctx, callID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if call == nil {
		return nil, apperrors.CallNotFoundError()
	}
	if !call.IsParticipant(userID) {
		return nil, apperrors.ForbiddenError("You are not a participant in this call")
	}

	if call.IsTerminal() {
		// Idempotent: a second hang-up observes the existing outcome.
		if err := tx.Commit(ctx); err != nil {
			return nil, apperrors.DatabaseError(err)
		}
		return s.toResponse(ctx, call)
	}

	now := time.Now().UTC()
	if call.Status == domain.CallStatusConnected {
		call.Status = domain.CallStatusEnded
		call.EndedAt = &now
		if call.StartedAt != nil {
			call.DurationSeconds = int(now.Sub(*call.StartedAt).Seconds())
		}
	} else {
		call.Status = domain.CallStatusMissed
		call.EndedAt = &now
	}

	callMessage := buildCallMessage(call)
	if err := tx.UpdateCall(ctx, call); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if err := tx.CreateMessage(ctx, callMessage); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordCallEnded(call.Status, call.DurationSeconds)
	}

	resp, err := s.toResponse(ctx, call)
	if err != nil {
		return nil, err
	}

	logger.Info("Call ended",
		zap.String("call_id", callID.String()),
		zap.String("user_id", userID.String()),
		zap.String("status", call.Status),
		zap.Int("duration_seconds", call.DurationSeconds))

	s.publisher.Publish(ctx, notifier.UserTopic(call.OtherParticipant(userID)), notifier.EventCallEnded, map[string]interface{}{
		"call_id":  callID,
		"ended_by": userID,
		"call":     resp,
	})

	s.publishCallMessage(ctx, call, callMessage, resp.Caller)

	return resp, nil
}

// GetCall retrieves call details for one of its participants.
func (s *Service) GetCall(ctx context.Context, callID, userID uuid.UUID) (*domain.CallResponse, error) {
	call, err := s.store.GetCall(ctx, callID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if call == nil {
		return nil, apperrors.CallNotFoundError()
	}
	if !call.IsParticipant(userID) {
		return nil, apperrors.ForbiddenError("You are not a participant in this call")
	}

	return s.toResponse(ctx, call)
}

// ListCalls retrieves the user's call history, newest first.
func (s *Service) ListCalls(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.CallResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	calls, err := s.store.ListUserCalls(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	userIDs := make([]uuid.UUID, 0, len(calls)*2)
	for _, c := range calls {
		userIDs = append(userIDs, c.CallerID, c.RecipientID)
	}

	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	responses := make([]*domain.CallResponse, 0, len(calls))
	for _, c := range calls {
		responses = append(responses, buildResponse(c, users))
	}

	return responses, nil
}

// buildCallMessage produces the chat history entry for a terminal call.
// Missed and rejected calls stay at sent so they count unread for the
// recipient; completed calls are delivered since both parties were on
// the call.
func buildCallMessage(call *domain.Call) *domain.Message {
	callStatus := call.Status
	if call.Status == domain.CallStatusEnded {
		callStatus = "completed"
	}

	messageStatus := domain.MessageStatusSent
	if call.Status == domain.CallStatusEnded {
		messageStatus = domain.MessageStatusDelivered
	}

	return &domain.Message{
		MessageID:   uuid.New(),
		SenderID:    call.CallerID,
		RecipientID: call.RecipientID,
		Content:     call.CallType + " call",
		MessageType: domain.MessageTypeCall,
		Status:      messageStatus,
		Metadata: map[string]interface{}{
			"callId":       call.CallID.String(),
			"callType":     call.CallType,
			"callStatus":   callStatus,
			"callDuration": call.DurationSeconds,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// publishCallMessage pushes the call summary message to both
// participants so it appears in their chats immediately.
// recipientOnline treats presence lookup failures as offline so the
// push still goes out.
func (s *Service) recipientOnline(ctx context.Context, userID uuid.UUID) bool {
	if s.presence == nil {
		return false
	}
	online, err := s.presence.IsOnline(ctx, userID)
	if err != nil {
		logger.Warn("Failed to check recipient presence",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return false
	}
	return online
}

func (s *Service) publishCallMessage(ctx context.Context, call *domain.Call, msg *domain.Message, sender *domain.UserResponse) {
	payload := &domain.MessageResponse{
		MessageID:   msg.MessageID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Sender:      sender,
		Content:     msg.Content,
		MessageType: msg.MessageType,
		Status:      msg.Status,
		Metadata:    msg.Metadata,
		CreatedAt:   msg.CreatedAt,
	}

	s.publisher.Publish(ctx, notifier.UserTopic(call.CallerID), notifier.EventMessageNew, payload)
	s.publisher.Publish(ctx, notifier.UserTopic(call.RecipientID), notifier.EventMessageNew, payload)
}

func (s *Service) toResponse(ctx context.Context, call *domain.Call) (*domain.CallResponse, error) {
	users, err := s.store.GetUsersByIDs(ctx, []uuid.UUID{call.CallerID, call.RecipientID})
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return buildResponse(call, users), nil
}

func buildResponse(call *domain.Call, users map[uuid.UUID]*domain.User) *domain.CallResponse {
	resp := &domain.CallResponse{
		CallID:          call.CallID,
		CallType:        call.CallType,
		Status:          call.Status,
		StartedAt:       call.StartedAt,
		EndedAt:         call.EndedAt,
		DurationSeconds: call.DurationSeconds,
		CreatedAt:       call.CreatedAt,
	}
	if caller, ok := users[call.CallerID]; ok {
		resp.Caller = caller.ToResponse()
	}
	if recipient, ok := users[call.RecipientID]; ok {
		resp.Recipient = recipient.ToResponse()
	}
	return resp
}
