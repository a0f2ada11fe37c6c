package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/grace0927/sccny-live/internal/viewer"
	"github.com/spf13/cobra"
)

var (
	viewerBaseURL string
	viewerSession string
	viewerLines   int
)

var viewerCmd = &cobra.Command{
	Use:   "viewer",
	Short: "Follow a live translation session in the terminal",
	RunE:  runViewer,
}

func init() {
	viewerCmd.Flags().StringVar(&viewerBaseURL, "url", "http://localhost:8090", "service base URL")
	viewerCmd.Flags().StringVar(&viewerSession, "session", "", "session id (empty: auto-discover the active session)")
	viewerCmd.Flags().IntVar(&viewerLines, "lines", 5, "visible window size")
}

func runViewer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var v *viewer.Viewer
	v = viewer.New(viewer.Options{
		BaseURL:   viewerBaseURL,
		SessionID: viewerSession,
		Lines:     viewerLines,
		OnUpdate:  func() { render(v) },
	})
	if err := v.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	if v.State() == viewer.StateEnded {
		fmt.Println("\nsession ended")
	}
	return nil
}

// render redraws the visible window; emphasis shown as indentation depth.
func render(v *viewer.Viewer) {
	fmt.Fprint(os.Stdout, "\033[2J\033[H")
	switch v.State() {
	case viewer.StateConnecting:
		if v.SessionID() == "" {
			fmt.Println("waiting for session...")
			return
		}
		fmt.Println("connecting...")
	case viewer.StateReconnecting:
		fmt.Println("[disconnected, retrying]")
	}
	window := v.Window()
	if len(window) == 0 && v.State() == viewer.StateOpen {
		fmt.Println("waiting for translation...")
		return
	}
	for _, line := range window {
		pad := int((1.0 - line.Emphasis) * 8)
		fmt.Printf("%s%s\n", strings.Repeat(" ", pad), line.Entry.Text)
	}
}
