package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restaurant-booking-be/internal/config"
	"restaurant-booking-be/pkg/store"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOverrides(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
llm:
  provider: gemini
  model: gemini-1.5-flash
restaurant:
  base_url: http://mock:8547
  timeout: 3s
agent:
  max_search_days: 7
  llm_responses: true
`)))

	cfg := &config.Config{
		LLM:        config.LLMConfig{Provider: "keyword", Model: "llama3", APIKey: "keep"},
		Restaurant: config.RestaurantConfig{BaseURL: "http://localhost:8547", Name: "TheHungryUnicorn"},
		Agent:      config.AgentConfig{MaxSearchDays: 20},
	}
	applyOverrides(cfg, v)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-1.5-flash", cfg.LLM.Model)
	assert.Equal(t, "keep", cfg.LLM.APIKey)
	assert.Equal(t, "http://mock:8547", cfg.Restaurant.BaseURL)
	assert.Equal(t, "TheHungryUnicorn", cfg.Restaurant.Name)
	assert.Equal(t, 3*time.Second, cfg.Restaurant.Timeout)
	assert.Equal(t, 7, cfg.Agent.MaxSearchDays)
	assert.True(t, cfg.Agent.UseLLMResponses)
}

func TestRenderState(t *testing.T) {
	st := store.NewConversationState("s-42", "u-1")
	st.Intent = store.IntentCreateBooking
	st.RequiredFields = []string{"visit_date", "party_size"}
	st.OptionalFields = []string{"special_requests"}
	st.FormData["party_size"] = "4"
	st.PendingQuestion = &store.Question{Kind: store.QuestionMissingField, Field: "visit_date"}

	out := renderState(st)

	assert.Contains(t, out, "s-42")
	assert.Contains(t, out, string(store.IntentCreateBooking))
	assert.Contains(t, out, "party_size")
	assert.Contains(t, out, "4")
	assert.Contains(t, out, "special_requests")
	assert.Contains(t, out, "Waiting for:")
}

func TestRenderStateIdle(t *testing.T) {
	out := renderState(store.NewConversationState("s-1", "u-1"))
	assert.Contains(t, out, "(none)")
	assert.NotContains(t, out, "Form:")
}

func TestSimClient(t *testing.T) {
	var gotAuth, gotChat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/chat/v1/sessions":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"success":true,"code":201,"data":{"id":"sess-1","title":"New booking chat"}}`))
		case "/api/chat/v1/send":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			gotChat = body["chat"]
			_, _ = w.Write([]byte(`{"success":true,"code":200,"data":{"reply":"For how many people?","intent":"create_booking","episode_done":false}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"code":404,"message":"not found"}`))
		}
	}))
	defer srv.Close()

	c := &simClient{baseURL: srv.URL + "/api", token: "tok", http: srv.Client()}

	id, err := c.createSession()
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)
	assert.Equal(t, "Bearer tok", gotAuth)

	reply, err := c.send(id, "book a table")
	require.NoError(t, err)
	assert.Equal(t, "book a table", gotChat)
	assert.Equal(t, "For how many people?", reply.Reply)
	assert.Equal(t, "create_booking", reply.Intent)

	c.baseURL = srv.URL + "/missing"
	_, err = c.createSession()
	assert.ErrorContains(t, err, "not found")
}
