package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/booking/interpret"
	"restaurant-booking-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

type stubInterpreter struct {
	res *interpret.Result
	err error
}

func (s stubInterpreter) Interpret(ctx context.Context, req interpret.Request) (*interpret.Result, error) {
	return s.res, s.err
}

func newRouter(i interpret.Interpreter) *Router {
	log := logger.NewNopLogger()
	return NewRouter(interpret.NewGuard(i, time.Second, log), log, nil)
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name string
		in   interpret.Interpreter
		want store.Intent
	}{
		{"known intent", stubInterpreter{res: &interpret.Result{Intent: store.IntentGetBooking}}, store.IntentGetBooking},
		{"out of set", stubInterpreter{res: &interpret.Result{Intent: store.Intent("order_food")}}, store.IntentUnknown},
		{"nothing understood", stubInterpreter{res: &interpret.Result{}}, store.IntentUnknown},
		{"interpreter down", stubInterpreter{err: errors.New("unreachable")}, store.IntentUnknown},
		{"keyword interpreter", interpret.NewKeywordInterpreter(), store.IntentCreateBooking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newRouter(tt.in).Route(context.Background(), "I'd like to book a table", nil)
			assert.Equal(t, tt.want, got.Intent)
			assert.NotNil(t, got.Interpretation)
		})
	}
}
