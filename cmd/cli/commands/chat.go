package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"restaurant-booking-be/internal/bootstrap"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/booking/orchestrator"
	"restaurant-booking-be/pkg/booking/schema"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	chatSession   string
	chatUser      string
	chatFirstName string
	chatSurname   string
	chatEmail     string
	chatMobile    string
	chatTrace     bool
)

// ChatCmd runs the conversation core in-process against the configured
// restaurant API.
var ChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the booking assistant in this terminal",
	Long: `Starts an interactive session with the booking assistant.

Commands inside the session:
  /state   show the session's working memory
  /reset   abandon the current request and start over
  /quit    leave`,
	RunE: runChat,
}

func init() {
	ChatCmd.Flags().StringVar(&chatSession, "session", "", "session id to resume (default: new session)")
	ChatCmd.Flags().StringVar(&chatUser, "user", "cli", "user id owning the session")
	ChatCmd.Flags().StringVar(&chatFirstName, "first-name", "", "profile first name used as a booking default")
	ChatCmd.Flags().StringVar(&chatSurname, "surname", "", "profile surname used as a booking default")
	ChatCmd.Flags().StringVar(&chatEmail, "email", "", "profile email used as a booking default")
	ChatCmd.Flags().StringVar(&chatMobile, "mobile", "", "profile mobile used as a booking default")
	ChatCmd.Flags().BoolVar(&chatTrace, "trace", false, "print the phases each turn went through")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	apiLog := logger.NewIsolatedLogger(cfg.App.ApiLogFilePath)
	defer log.Sync()
	defer apiLog.Sync()

	rdb := bootstrap.ConnectRedis(ctx, cfg.App.RedisURL)
	if rdb != nil {
		defer rdb.Close()
	}

	agent, err := bootstrap.NewAgent(ctx, cfg, rdb, nil, log, apiLog)
	if err != nil {
		return err
	}
	defer agent.Close()

	sessionID := chatSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	profile := cliProfile()

	color.Cyan("Booking assistant for %s (session %s)", cfg.Restaurant.Name, sessionID)
	color.White("Type /state, /reset or /quit.\n\n")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(color.GreenString("you> "))
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/state":
			st, err := agent.Orchestrator.State(ctx, sessionID, chatUser)
			if err != nil {
				color.Red("state: %v", err)
				continue
			}
			fmt.Println(renderState(st))
			continue
		case "/reset":
			if err := agent.Orchestrator.ResetEpisode(ctx, sessionID, chatUser); err != nil {
				color.Red("reset: %v", err)
				continue
			}
			color.Yellow("Started over.")
			continue
		}

		reply, err := agent.Orchestrator.HandleTurn(ctx, orchestrator.Input{
			SessionID: sessionID,
			UserID:    chatUser,
			Message:   line,
			Profile:   profile,
		})
		if err != nil {
			color.Red("error: %v", err)
			continue
		}
		printReply(reply)

		// Defaults travel with the first turn only; the session keeps them.
		profile = nil
	}
}

func printReply(reply *orchestrator.Reply) {
	if reply.Notice != "" {
		color.Yellow("  (%s)", reply.Notice)
	}
	fmt.Printf("%s %s\n", color.CyanString("bot>"), reply.Text)
	if chatTrace {
		phases := make([]string, 0, len(reply.Trace))
		for _, p := range reply.Trace {
			phases = append(phases, string(p))
		}
		color.HiBlack("  trace: %s", strings.Join(phases, " -> "))
	}
	if reply.EpisodeDone {
		color.HiBlack("  request finished")
	}
}

func cliProfile() map[string]string {
	profile := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			profile[k] = v
		}
	}
	set(schema.FieldFirstName, chatFirstName)
	set(schema.FieldSurname, chatSurname)
	set(schema.FieldEmail, chatEmail)
	set(schema.FieldMobile, chatMobile)
	if len(profile) == 0 {
		return nil
	}
	return profile
}
