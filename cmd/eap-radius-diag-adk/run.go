// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

//go:build adk

// eap-radius-diag-adk lets a Gemini agent built with the Google ADK run the
// EAP/RADIUS diagnostics. The diagnostics server runs in the same process
// and reaches the agent through an in-memory MCP transport.
//
// Build it with the adk tag:
//
//	go build -tags adk ./cmd/eap-radius-diag-adk
//
// Ask a question, or let --realm start the diagnose-realm workflow:
//
//	GOOGLE_API_KEY=... eap-radius-diag-adk --realm example.edu --user alice@example.edu
//	GOOGLE_API_KEY=... eap-radius-diag-adk "Is radsec.example.edu:2083 healthy?"
//
// The configuration and profile default to EAP_DIAG_CONFIG_FILE and
// EAP_DIAG_PROFILE, as for eap-radius-diag-mcp.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mcptransport "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/mcptoolset"
	"google.golang.org/genai"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/config"
	mcpserver "github.com/H0llyW00dzZ/eap-radius-diag/src/mcp-server"
	verpkg "github.com/H0llyW00dzZ/eap-radius-diag/src/version"
)

const (
	appName = "eap-radius-diag-adk"
	userID  = "operator"

	agentInstruction = `You help eduroam and RADIUS operators find out why users cannot authenticate.
Run the diagnostics tools instead of guessing, and quote the outcome codes and findings they return.
Report errors before warnings and name the server each finding came from.`
)

var version string // set by ldflags or defaults to imported version

func init() {
	if version == "" {
		version = verpkg.Version
	}
}

type options struct {
	model       string
	configFile  string
	profileFile string
	realm       string
	user        string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "agent error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	opts := options{
		configFile:  os.Getenv(config.EnvConfigFile),
		profileFile: os.Getenv(mcpserver.EnvProfile),
	}

	cmd := &cobra.Command{
		Use:           appName + " [question]",
		Short:         "Run the EAP/RADIUS diagnostics through a Gemini agent",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&opts.model, "model", "gemini-2.5-flash", "Gemini model")
	cmd.Flags().StringVar(&opts.configFile, "config", opts.configFile, "configuration file (JSON or YAML)")
	cmd.Flags().StringVar(&opts.profileFile, "profile", opts.profileFile, "institution profile")
	cmd.Flags().StringVar(&opts.realm, "realm", "", "realm to diagnose when no question is given")
	cmd.Flags().StringVar(&opts.user, "user", "", "test account for the login step")
	return cmd
}

func (o options) transport(ctx context.Context) (*mcpserver.InMemoryTransport, error) {
	return mcpserver.NewADKTransportBuilder().
		WithConfigFile(o.configFile).
		WithProfile(o.profileFile).
		WithVersion(version).
		BuildTransport(ctx)
}

func run(ctx context.Context, out io.Writer, opts options, question string) error {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return errors.New("GOOGLE_API_KEY environment variable must be set")
	}

	if question == "" {
		if opts.realm == "" {
			return errors.New("ask a question or pass --realm")
		}
		var err error
		if question, err = realmWorkflow(ctx, opts); err != nil {
			return err
		}
	}

	transport, err := opts.transport(ctx)
	if err != nil {
		return err
	}
	defer transport.Close()

	toolset, err := mcptoolset.New(mcptoolset.Config{Transport: transport})
	if err != nil {
		return fmt.Errorf("failed to create MCP tool set: %w", err)
	}

	model, err := gemini.NewModel(ctx, opts.model, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}

	a, err := llmagent.New(llmagent.Config{
		Name:        "eap_diag_agent",
		Model:       model,
		Description: "Agent diagnosing EAP authentication against RADIUS servers.",
		Instruction: agentInstruction,
		Toolsets:    []tool.Toolset{toolset},
	})
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	sessions := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          a,
		SessionService: sessions,
	})
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	created, err := sessions.Create(ctx, &session.CreateRequest{
		AppName: appName,
		UserID:  userID,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	msg := genai.NewContentFromText(question, "user")
	cfg := agent.RunConfig{StreamingMode: agent.StreamingModeSSE}
	for event, err := range r.Run(ctx, userID, created.Session.ID(), msg, cfg) {
		if err != nil {
			return fmt.Errorf("agent run: %w", err)
		}
		if event.LLMResponse.Partial && event.LLMResponse.Content != nil {
			for _, part := range event.LLMResponse.Content.Parts {
				fmt.Fprint(out, part.Text)
			}
		}
	}
	fmt.Fprintln(out)
	return nil
}

// realmWorkflow fetches the diagnose-realm prompt through the MCP SDK client
// and joins its messages into one request for the agent.
func realmWorkflow(ctx context.Context, opts options) (string, error) {
	transport, err := opts.transport(ctx)
	if err != nil {
		return "", err
	}

	client := mcptransport.NewClient(&mcptransport.Implementation{Name: appName, Version: version}, nil)
	cs, err := client.Connect(ctx, transport, nil)
	if err != nil {
		transport.Close()
		return "", fmt.Errorf("connect: %w", err)
	}
	defer cs.Close()

	result, err := cs.GetPrompt(ctx, &mcptransport.GetPromptParams{
		Name:      mcpserver.PromptDiagnoseRealm,
		Arguments: map[string]string{"realm": opts.realm, "username": opts.user},
	})
	if err != nil {
		return "", fmt.Errorf("prompt %s: %w", mcpserver.PromptDiagnoseRealm, err)
	}

	var b strings.Builder
	for _, m := range result.Messages {
		if text, ok := m.Content.(*mcptransport.TextContent); ok {
			b.WriteString(text.Text)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(b.String()), nil
}
