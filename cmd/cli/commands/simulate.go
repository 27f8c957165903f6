package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	simBaseURL  string
	simToken    string
	simMessages []string
)

// defaultScript walks a booking from first message to confirmation.
var defaultScript = []string{
	"I'd like to book a table for 4 people",
	"next friday at 7pm",
	"yes please book it",
}

// SimulateCmd replays a scripted conversation against a running server.
var SimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a scripted conversation against the REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simToken == "" {
			return fmt.Errorf("--token is required (see `user token`)")
		}
		script := simMessages
		if len(script) == 0 {
			script = defaultScript
		}

		c := &simClient{
			baseURL: strings.TrimRight(simBaseURL, "/"),
			token:   simToken,
			http:    &http.Client{Timeout: 60 * time.Second},
		}

		sessionID, err := c.createSession()
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		color.Cyan("Session %s", sessionID)

		for _, text := range script {
			fmt.Printf("\n%s %s\n", color.GreenString("USER:"), text)

			start := time.Now()
			reply, err := c.send(sessionID, text)
			elapsed := time.Since(start)
			if err != nil {
				color.Red("Error: %v", err)
				continue
			}
			fmt.Printf("%s %s\n", color.CyanString("BOT:"), reply.Reply)
			color.HiBlack("  intent=%s done=%t (%v)", reply.Intent, reply.EpisodeDone, elapsed)
		}
		return nil
	},
}

func init() {
	SimulateCmd.Flags().StringVar(&simBaseURL, "url", "http://localhost:3000/api", "API base url")
	SimulateCmd.Flags().StringVar(&simToken, "token", "", "bearer token")
	SimulateCmd.Flags().StringArrayVarP(&simMessages, "message", "m", nil, "message to send, repeatable (default: a booking script)")
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type simReply struct {
	Reply       string `json:"reply"`
	Intent      string `json:"intent"`
	EpisodeDone bool   `json:"episode_done"`
}

type simClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *simClient) createSession() (string, error) {
	var out struct {
		Id string `json:"id"`
	}
	if err := c.post("/chat/v1/sessions", map[string]string{}, &out); err != nil {
		return "", err
	}
	return out.Id, nil
}

func (c *simClient) send(sessionID, text string) (*simReply, error) {
	var out simReply
	body := map[string]string{"chat_session_id": sessionID, "chat": text}
	if err := c.post("/chat/v1/send", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *simClient) post(path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(payload))
	}
	if !env.Success || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, env.Message)
	}
	return json.Unmarshal(env.Data, out)
}
