package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"book-duel-service/internal/client"
	"book-duel-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewWatchCmd follows a match's push channel and prints one line per change.
func NewWatchCmd() *cobra.Command {
	var addr, matchID, userID string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a match as one of its players",
		RunE: func(cmd *cobra.Command, args []string) error {
			if matchID == "" || userID == "" {
				return fmt.Errorf("--match and --user are required")
			}
			return watch(cmd, addr, matchID, userID)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "server host:port")
	cmd.Flags().StringVar(&matchID, "match", "", "match id")
	cmd.Flags().StringVar(&userID, "user", "", "participant user id")
	return cmd
}

type watchMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func watch(cmd *cobra.Command, addr, matchID, userID string) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	q := u.Query()
	q.Set("matchId", matchID)
	q.Set("userId", userID)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(cmd.Context(), u.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %s", u.Redacted(), resp.Status)
		}
		return fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	defer conn.Close()

	go func() {
		<-cmd.Context().Done()
		_ = conn.Close()
	}()

	var view client.View
	out := cmd.OutOrStdout()
	for {
		var msg watchMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || cmd.Context().Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		switch msg.Type {
		case "snapshot":
			var snap domain.Snapshot
			if err := json.Unmarshal(msg.Payload, &snap); err != nil {
				log.Warn().Err(err).Msg("malformed snapshot")
				continue
			}
			if view.Apply(snap, time.Now()) {
				fmt.Fprintln(out, view.Summary(time.Now()))
			}
			if snap.Status.Terminal() {
				return nil
			}
		default:
			fmt.Fprintf(out, "%s: %s\n", msg.Type, msg.Payload)
		}
	}
}
