package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"restaurant-booking-be/internal/dto"
	"restaurant-booking-be/internal/entity"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/internal/repository/specification"
	"restaurant-booking-be/internal/repository/unitofwork"
	"restaurant-booking-be/pkg/booking/orchestrator"
	"restaurant-booking-be/pkg/booking/session"
	"restaurant-booking-be/pkg/store"

	"github.com/google/uuid"
)

var ErrChatSessionNotFound = errors.New("chat session not found")

const defaultSessionTitle = "New booking chat"

// TurnHandler is the part of the orchestrator the chat service drives.
type TurnHandler interface {
	HandleTurn(ctx context.Context, in orchestrator.Input) (*orchestrator.Reply, error)
	ResetEpisode(ctx context.Context, sessionID, userID string) error
	State(ctx context.Context, sessionID, userID string) (*store.ConversationState, error)
}

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	// GetAllSessions lists the user's sessions, newest first. A non-empty
	// intent keeps only sessions whose latest turn had that intent.
	GetAllSessions(ctx context.Context, userId uuid.UUID, intent string) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	GetState(ctx context.Context, userId, sessionId uuid.UUID) (*dto.SessionStateResponse, error)
	ResetEpisode(ctx context.Context, userId, sessionId uuid.UUID) error
	DeleteSession(ctx context.Context, userId, sessionId uuid.UUID) error
}

type chatService struct {
	uowFactory  unitofwork.RepositoryFactory
	turns       TurnHandler
	memory      session.Store
	userService IUserService
	logger      logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	turns TurnHandler,
	memory session.Store,
	userService IUserService,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:  uowFactory,
		turns:       turns,
		memory:      memory,
		userService: userService,
		logger:      log,
	}
}

func (s *chatService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultSessionTitle
	}
	chatSession := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		CreatedAt: time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, chatSession); err != nil {
		return nil, err
	}
	return &dto.CreateSessionResponse{Id: chatSession.Id, Title: chatSession.Title}, nil
}

func (s *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID, intent string) ([]*dto.GetAllSessionsResponse, error) {
	specs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if intent != "" {
		specs = append(specs, specification.ByLastIntent{Intent: intent})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetAllSessionsResponse, 0, len(sessions))
	for _, cs := range sessions {
		res = append(res, &dto.GetAllSessionsResponse{
			Id:                   cs.Id,
			Title:                cs.Title,
			LastIntent:           cs.LastIntent,
			LastBookingReference: cs.LastBookingReference,
			CreatedAt:            cs.CreatedAt,
			UpdatedAt:            cs.UpdatedAt,
		})
	}
	return res, nil
}

func (s *chatService) GetChatHistory(ctx context.Context, userId, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	if _, err := s.ownedSession(ctx, userId, sessionId); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetChatHistoryResponse, 0, len(messages))
	for _, m := range messages {
		res = append(res, &dto.GetChatHistoryResponse{
			Id:        m.Id,
			Role:      m.Role,
			Chat:      m.Chat,
			Intent:    m.Intent,
			Outcome:   m.Outcome,
			CreatedAt: m.CreatedAt,
		})
	}
	return res, nil
}

func (s *chatService) SendChat(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	chatSession, err := s.ownedSession(ctx, userId, req.ChatSessionId)
	if err != nil {
		return nil, err
	}

	// A missing profile only means nothing gets prefilled.
	profile, err := s.userService.ProfileDefaults(ctx, userId)
	if err != nil {
		s.logger.Warn("CHAT", "Profile defaults unavailable", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
		profile = nil
	}

	reply, err := s.turns.HandleTurn(ctx, orchestrator.Input{
		SessionID: req.ChatSessionId.String(),
		UserID:    userId.String(),
		Message:   req.Chat,
		Profile:   profile,
	})
	if err != nil {
		return nil, err
	}

	if chatSession.Title == defaultSessionTitle {
		s.retitle(ctx, chatSession, req.Chat)
	}

	return toSendChatResponse(req.ChatSessionId, reply), nil
}

func (s *chatService) GetState(ctx context.Context, userId, sessionId uuid.UUID) (*dto.SessionStateResponse, error) {
	if _, err := s.ownedSession(ctx, userId, sessionId); err != nil {
		return nil, err
	}

	st, err := s.turns.State(ctx, sessionId.String(), userId.String())
	if errors.Is(err, session.ErrNotFound) {
		st = store.NewConversationState(sessionId.String(), userId.String())
	} else if err != nil {
		return nil, err
	}

	res := &dto.SessionStateResponse{
		ChatSessionId:  sessionId,
		Intent:         string(st.Intent),
		Phase:          string(st.Phase),
		RequiredFields: st.RequiredFields,
		Form:           st.FormData,
		AwaitingRetry:  st.PendingRetry != nil,
		Episode:        st.Episode,
		Version:        st.Version,
	}
	if st.PendingQuestion != nil {
		res.Pending = st.PendingQuestion
	}
	return res, nil
}

func (s *chatService) ResetEpisode(ctx context.Context, userId, sessionId uuid.UUID) error {
	if _, err := s.ownedSession(ctx, userId, sessionId); err != nil {
		return err
	}
	return s.turns.ResetEpisode(ctx, sessionId.String(), userId.String())
}

func (s *chatService) DeleteSession(ctx context.Context, userId, sessionId uuid.UUID) error {
	if _, err := s.ownedSession(ctx, userId, sessionId); err != nil {
		return err
	}

	err := unitofwork.InTransaction(ctx, s.uowFactory, func(uow unitofwork.UnitOfWork) error {
		if err := uow.ChatMessageRepository().DeleteBySessionId(ctx, sessionId); err != nil {
			return err
		}
		return uow.ChatSessionRepository().Delete(ctx, sessionId)
	})
	if err != nil {
		return err
	}

	if err := s.memory.Delete(ctx, sessionId.String()); err != nil {
		s.logger.Warn("CHAT", "Failed to drop working memory", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
	return nil
}

func (s *chatService) ownedSession(ctx context.Context, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	cs, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if cs == nil {
		return nil, ErrChatSessionNotFound
	}
	return cs, nil
}

// retitle names a fresh session after its first message.
func (s *chatService) retitle(ctx context.Context, cs *entity.ChatSession, firstMessage string) {
	title := strings.TrimSpace(firstMessage)
	if r := []rune(title); len(r) > 60 {
		title = string(r[:60]) + "..."
	}
	if title == "" {
		return
	}
	cs.Title = title
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Update(ctx, cs); err != nil {
		s.logger.Warn("CHAT", "Failed to retitle session", map[string]interface{}{"session_id": cs.Id, "error": err.Error()})
	}
}

func toSendChatResponse(sessionId uuid.UUID, reply *orchestrator.Reply) *dto.SendChatResponse {
	res := &dto.SendChatResponse{
		ChatSessionId: sessionId,
		Reply:         reply.Text,
		Intent:        string(reply.Intent),
		Notice:        reply.Notice,
		EpisodeDone:   reply.EpisodeDone,
		Form:          reply.Form,
	}
	if reply.Question != nil {
		res.Question = reply.Question
	}
	if reply.Outcome != nil {
		res.Outcome = reply.Outcome
	}
	for _, p := range reply.Trace {
		res.Trace = append(res.Trace, string(p))
	}
	return res
}
