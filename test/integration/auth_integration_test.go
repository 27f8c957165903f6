package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"restaurant-booking-be/internal/bootstrap"
	"restaurant-booking-be/internal/config"
	"restaurant-booking-be/internal/server"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthAndChatFlow(t *testing.T) {
	db := openDB(t)
	t.Setenv("JWT_SECRET", "integration-secret")
	t.Setenv("AGENT_STORE_BACKEND", "memory")
	t.Setenv("LLM_PROVIDER", "keyword")
	t.Setenv("NATS_URL", "")

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container := bootstrap.NewContainer(ctx, db, cfg)
	defer container.Close()
	app := server.New(cfg, container).GetApp()

	email := fmt.Sprintf("flow-%s@example.com", uuid.NewString()[:8])
	defer db.Exec("DELETE FROM users WHERE email = ?", email)

	call := func(method, path, token, body string) (int, map[string]interface{}) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()

		var out map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	status, _ := call("POST", "/api/auth/v1/register", "",
		fmt.Sprintf(`{"full_name":"Flow Tester","email":%q,"password":"password123"}`, email))
	require.Equal(t, 201, status)

	status, _ = call("POST", "/api/auth/v1/register", "",
		fmt.Sprintf(`{"full_name":"Flow Tester","email":%q,"password":"password123"}`, email))
	assert.Equal(t, 409, status)

	status, _ = call("POST", "/api/auth/v1/login", "", fmt.Sprintf(`{"email":%q,"password":"wrong-pass"}`, email))
	assert.Equal(t, 401, status)

	status, body := call("POST", "/api/auth/v1/login", "", fmt.Sprintf(`{"email":%q,"password":"password123"}`, email))
	require.Equal(t, 200, status)
	token := body["data"].(map[string]interface{})["access_token"].(string)

	status, body = call("POST", "/api/chat/v1/sessions", token, `{}`)
	require.Equal(t, 201, status)
	sessionID := body["data"].(map[string]interface{})["id"].(string)
	defer db.Exec("DELETE FROM chat_messages WHERE chat_session_id = ?", sessionID)
	defer db.Exec("DELETE FROM chat_sessions WHERE id = ?", sessionID)

	status, body = call("POST", "/api/chat/v1/send", token,
		fmt.Sprintf(`{"chat_session_id":%q,"chat":"I want to book a table"}`, sessionID))
	require.Equal(t, 200, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "create_booking", data["intent"])
	assert.NotEmpty(t, data["reply"])

	status, _ = call("GET", "/api/chat/v1/sessions/"+sessionID+"/state", token, "")
	assert.Equal(t, 200, status)
}
