// Command chat talks to the scheduling assistant from a terminal, using the
// configured LLM provider and APPHealth directory.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Erick-Marinho/Health-AI/cmd/mainconfig"
	"github.com/Erick-Marinho/Health-AI/internal/app/bootstrap"
	appconfig "github.com/Erick-Marinho/Health-AI/internal/config"
	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

const consoleChannel = "console"

type turnHandler interface {
	HandleTurn(ctx context.Context, in scheduling.Inbound) (scheduling.Outbound, error)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using environment variables")
	}
	cfg := appconfig.Load()
	// The console never consumes the queue and keeps its session local.
	cfg.UseMemoryQueue = true
	cfg.StateBackend = "memory"
	cfg.LockBackend = "local"

	logger := logging.New(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load aws config:", err)
		os.Exit(1)
	}
	rt, err := bootstrap.BuildRuntime(ctx, cfg, awsCfg, prometheus.NewRegistry(), logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "build runtime:", err)
		os.Exit(1)
	}
	defer rt.Close()

	session := "console"
	if len(os.Args) > 1 {
		session = os.Args[1]
	}
	if err := repl(ctx, rt.Engine, session, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func repl(ctx context.Context, engine turnHandler, session string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintf(out, "sessão %s. Digite sua mensagem (ou /sair).\n> ", session)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		switch {
		case text == "":
			fmt.Fprint(out, "> ")
			continue
		case text == "/sair" || text == "/quit":
			return nil
		}

		reply, err := engine.HandleTurn(ctx, scheduling.Inbound{
			SessionID: session,
			Text:      text,
			Channel:   consoleChannel,
		})
		if err != nil {
			fmt.Fprintf(out, "[erro] %v\n> ", err)
			continue
		}
		if reply.Text != "" {
			fmt.Fprintf(out, "%s\n", reply.Text)
		}
		fmt.Fprint(out, "> ")
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}
