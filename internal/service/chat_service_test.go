package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"restaurant-booking-be/internal/dto"
	"restaurant-booking-be/internal/entity"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/internal/repository/contract"
	"restaurant-booking-be/internal/repository/specification"
	"restaurant-booking-be/internal/repository/unitofwork"
	"restaurant-booking-be/pkg/booking/orchestrator"
	"restaurant-booking-be/pkg/booking/session"
	"restaurant-booking-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeSessions understands the few specifications the chat service uses.
type fakeSessions struct {
	rows    map[uuid.UUID]*entity.ChatSession
	updated []string
}

func matches(cs *entity.ChatSession, specs []specification.Specification) bool {
	for _, s := range specs {
		switch v := s.(type) {
		case specification.ByID:
			if cs.Id != v.ID {
				return false
			}
		case specification.UserOwnedBy:
			if cs.UserId != v.UserID {
				return false
			}
		case specification.ByLastIntent:
			if cs.LastIntent != v.Intent {
				return false
			}
		}
	}
	return true
}

func (f *fakeSessions) Create(ctx context.Context, cs *entity.ChatSession) error {
	f.rows[cs.Id] = cs
	return nil
}

func (f *fakeSessions) Update(ctx context.Context, cs *entity.ChatSession) error {
	f.rows[cs.Id] = cs
	f.updated = append(f.updated, cs.Title)
	return nil
}

func (f *fakeSessions) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeSessions) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	for _, cs := range f.rows {
		if matches(cs, specs) {
			return cs, nil
		}
	}
	return nil, nil
}

func (f *fakeSessions) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	var out []*entity.ChatSession
	for _, cs := range f.rows {
		if matches(cs, specs) {
			out = append(out, cs)
		}
	}
	return out, nil
}

func (f *fakeSessions) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := f.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (f *fakeSessions) RecordTurn(ctx context.Context, id uuid.UUID, intent, ref string, at time.Time) error {
	if cs, ok := f.rows[id]; ok {
		cs.LastIntent = intent
		if ref != "" {
			cs.LastBookingReference = ref
		}
		cs.UpdatedAt = &at
	}
	return nil
}

type fakeMessages struct {
	deleted []uuid.UUID
}

func (f *fakeMessages) Create(ctx context.Context, m *entity.ChatMessage) error       { return nil }
func (f *fakeMessages) CreateBulk(ctx context.Context, m []*entity.ChatMessage) error { return nil }
func (f *fakeMessages) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	return nil, nil
}
func (f *fakeMessages) DeleteBySessionId(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeUoW struct {
	sessions *fakeSessions
	messages *fakeMessages
}

func (u *fakeUoW) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return u }
func (u *fakeUoW) Begin(ctx context.Context) error                         { return nil }
func (u *fakeUoW) Commit() error                                           { return nil }
func (u *fakeUoW) Rollback() error                                         { return nil }
func (u *fakeUoW) UserRepository() contract.UserRepository                 { return nil }
func (u *fakeUoW) ChatSessionRepository() contract.ChatSessionRepository   { return u.sessions }
func (u *fakeUoW) ChatMessageRepository() contract.ChatMessageRepository   { return u.messages }
func (u *fakeUoW) BookingRepository() contract.BookingRepository           { return nil }

type mockTurns struct {
	mock.Mock
}

func (m *mockTurns) HandleTurn(ctx context.Context, in orchestrator.Input) (*orchestrator.Reply, error) {
	args := m.Called(ctx, in)
	reply, _ := args.Get(0).(*orchestrator.Reply)
	return reply, args.Error(1)
}

func (m *mockTurns) ResetEpisode(ctx context.Context, sessionID, userID string) error {
	return m.Called(ctx, sessionID, userID).Error(0)
}

func (m *mockTurns) State(ctx context.Context, sessionID, userID string) (*store.ConversationState, error) {
	args := m.Called(ctx, sessionID, userID)
	st, _ := args.Get(0).(*store.ConversationState)
	return st, args.Error(1)
}

type stubProfiles struct {
	IUserService
	defaults map[string]string
	err      error
}

func (s stubProfiles) ProfileDefaults(ctx context.Context, userId uuid.UUID) (map[string]string, error) {
	return s.defaults, s.err
}

type stubMemory struct {
	deleted []string
}

func (m *stubMemory) Load(ctx context.Context, id string) (*store.ConversationState, error) {
	return nil, session.ErrNotFound
}
func (m *stubMemory) Save(ctx context.Context, st *store.ConversationState) error { return nil }
func (m *stubMemory) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type chatFixture struct {
	svc       IChatService
	uow       *fakeUoW
	turns     *mockTurns
	memory    *stubMemory
	owner     uuid.UUID
	sessionID uuid.UUID
}

func newChatFixture(t *testing.T, profiles stubProfiles) *chatFixture {
	t.Helper()
	f := &chatFixture{
		uow:    &fakeUoW{sessions: &fakeSessions{rows: map[uuid.UUID]*entity.ChatSession{}}, messages: &fakeMessages{}},
		turns:  new(mockTurns),
		memory: &stubMemory{},
		owner:  uuid.New(),
	}
	f.svc = NewChatService(f.uow, f.turns, f.memory, profiles, logger.NewNopLogger())

	created, err := f.svc.CreateSession(context.Background(), f.owner, &dto.CreateSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, defaultSessionTitle, created.Title)
	f.sessionID = created.Id
	return f
}

func TestChatService_SendChat(t *testing.T) {
	t.Run("passes profile defaults and retitles a fresh session", func(t *testing.T) {
		f := newChatFixture(t, stubProfiles{defaults: map[string]string{"email": "ada@example.com"}})

		f.turns.On("HandleTurn", mock.Anything, orchestrator.Input{
			SessionID: f.sessionID.String(),
			UserID:    f.owner.String(),
			Message:   "Book a table for 4",
			Profile:   map[string]string{"email": "ada@example.com"},
		}).Return(&orchestrator.Reply{
			Text:     "What is your first name?",
			Intent:   store.IntentCreateBooking,
			Question: &store.Question{Kind: store.QuestionMissingField, Field: "first_name"},
			Trace:    []store.Phase{store.PhaseAwaitingInput, store.PhaseRouting},
		}, nil)

		res, err := f.svc.SendChat(context.Background(), f.owner, &dto.SendChatRequest{ChatSessionId: f.sessionID, Chat: "Book a table for 4"})
		require.NoError(t, err)

		assert.Equal(t, "What is your first name?", res.Reply)
		assert.Equal(t, "create_booking", res.Intent)
		assert.NotNil(t, res.Question)
		assert.Len(t, res.Trace, 2)
		assert.Equal(t, []string{"Book a table for 4"}, f.uow.sessions.updated)
		f.turns.AssertExpectations(t)
	})

	t.Run("profile failure still runs the turn without defaults", func(t *testing.T) {
		f := newChatFixture(t, stubProfiles{err: ErrUserNotFound})
		f.turns.On("HandleTurn", mock.Anything, mock.MatchedBy(func(in orchestrator.Input) bool {
			return in.Profile == nil
		})).Return(&orchestrator.Reply{Text: "Hi"}, nil)

		_, err := f.svc.SendChat(context.Background(), f.owner, &dto.SendChatRequest{ChatSessionId: f.sessionID, Chat: "hello"})
		require.NoError(t, err)
	})

	t.Run("other users cannot reach the session", func(t *testing.T) {
		f := newChatFixture(t, stubProfiles{})

		_, err := f.svc.SendChat(context.Background(), uuid.New(), &dto.SendChatRequest{ChatSessionId: f.sessionID, Chat: "hello"})
		assert.ErrorIs(t, err, ErrChatSessionNotFound)
		f.turns.AssertNotCalled(t, "HandleTurn", mock.Anything, mock.Anything)
	})

	t.Run("orchestrator errors surface unchanged", func(t *testing.T) {
		f := newChatFixture(t, stubProfiles{})
		f.turns.On("HandleTurn", mock.Anything, mock.Anything).Return(nil, session.ErrLockTimeout)

		_, err := f.svc.SendChat(context.Background(), f.owner, &dto.SendChatRequest{ChatSessionId: f.sessionID, Chat: "hello"})
		assert.True(t, errors.Is(err, session.ErrLockTimeout))
	})
}

func TestChatService_State(t *testing.T) {
	t.Run("untouched session reports an idle state", func(t *testing.T) {
		f := newChatFixture(t, stubProfiles{})
		f.turns.On("State", mock.Anything, f.sessionID.String(), f.owner.String()).Return(nil, session.ErrNotFound)

		res, err := f.svc.GetState(context.Background(), f.owner, f.sessionID)
		require.NoError(t, err)
		assert.Equal(t, string(store.PhaseAwaitingInput), res.Phase)
		assert.Empty(t, res.Intent)
		assert.Zero(t, res.Version)
	})

	t.Run("active episode is exposed", func(t *testing.T) {
		f := newChatFixture(t, stubProfiles{})
		st := store.NewConversationState(f.sessionID.String(), f.owner.String())
		st.Intent = store.IntentCancelBooking
		st.RequiredFields = []string{"booking_reference", "cancellation_reason"}
		st.FormData["booking_reference"] = "ABC1234"
		st.PendingQuestion = &store.Question{Kind: store.QuestionMissingField, Field: "cancellation_reason"}
		st.Version = 3
		f.turns.On("State", mock.Anything, mock.Anything, mock.Anything).Return(st, nil)

		res, err := f.svc.GetState(context.Background(), f.owner, f.sessionID)
		require.NoError(t, err)
		assert.Equal(t, "cancel_booking", res.Intent)
		assert.Equal(t, "ABC1234", res.Form["booking_reference"])
		assert.NotNil(t, res.Pending)
		assert.EqualValues(t, 3, res.Version)
	})
}

func TestChatService_DeleteSession(t *testing.T) {
	f := newChatFixture(t, stubProfiles{})

	require.NoError(t, f.svc.DeleteSession(context.Background(), f.owner, f.sessionID))

	assert.Equal(t, []uuid.UUID{f.sessionID}, f.uow.messages.deleted)
	assert.Equal(t, []string{f.sessionID.String()}, f.memory.deleted)
	assert.ErrorIs(t, f.svc.ResetEpisode(context.Background(), f.owner, f.sessionID), ErrChatSessionNotFound)
}

func TestChatService_GetAllSessions(t *testing.T) {
	f := newChatFixture(t, stubProfiles{})
	ctx := context.Background()

	other, err := f.svc.CreateSession(ctx, f.owner, &dto.CreateSessionRequest{Title: "Cancel Friday"})
	require.NoError(t, err)
	at := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.uow.sessions.RecordTurn(ctx, other.Id, "cancel_booking", "ABC1234", at))
	require.NoError(t, f.uow.sessions.RecordTurn(ctx, other.Id, "cancel_booking", "", at))

	all, err := f.svc.GetAllSessions(ctx, f.owner, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cancels, err := f.svc.GetAllSessions(ctx, f.owner, "cancel_booking")
	require.NoError(t, err)
	require.Len(t, cancels, 1)
	assert.Equal(t, "Cancel Friday", cancels[0].Title)
	assert.Equal(t, "ABC1234", cancels[0].LastBookingReference)

	none, err := f.svc.GetAllSessions(ctx, uuid.New(), "")
	require.NoError(t, err)
	assert.Empty(t, none)
}
