package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"healthsense/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the question-answering pipeline over HTTP.

Endpoints:
  GET  /healthz                     liveness and index stats
  POST /api/ask                     stateless question
  POST /api/sessions                create a chat session
  POST /api/sessions/:id/messages   ask within a session

Example:
  healthsense serve --addr :8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openIndexStore(GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	pipeline, err := buildAnswerPipeline(cfg, st)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := httpapi.NewServer(pipeline, st, st, cfg.Server.MessageCap)

	fmt.Printf("Listening on %s\n", addr)
	return srv.Start(addr)
}
