package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/quic-go/quic-go/http3"
	"github.com/spf13/cobra"

	"github.com/neo/debateengine/internal/broadcaster"
	"github.com/neo/debateengine/internal/catalog"
	"github.com/neo/debateengine/internal/gateway"
	"github.com/neo/debateengine/internal/manager"
	"github.com/neo/debateengine/internal/store"
	"github.com/neo/debateengine/internal/telemetry"
)

var (
	serveAddr     string
	serveTLSCert  string
	serveTLSKey   string
	serveEnvFile  string
	bedrockRegion string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the debate engine's HTTP/WebSocket server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveTLSCert, "tls-cert", "", "TLS certificate path (enables HTTPS and, with --tls-key, HTTP/3)")
	serveCmd.Flags().StringVar(&serveTLSKey, "tls-key", "", "TLS private key path")
	serveCmd.Flags().StringVar(&serveEnvFile, "env-file", ".env", "dotenv file with provider credentials")
	serveCmd.Flags().StringVar(&bedrockRegion, "bedrock-region", "us-east-1", "AWS region for the Bedrock backend")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(serveEnvFile); err != nil {
		telemetry.Error("no .env file loaded, continuing with process environment", telemetry.Fields{"path": serveEnvFile})
	}

	configPath, _ := cmd.Flags().GetString("config")
	cat, err := catalog.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	gw := buildGateway(cmd.Context())

	repo := store.New()
	bc := broadcaster.New()
	mgr := manager.New(repo, bc, gw)

	router := newRouter(&app{repo: repo, manager: mgr, broadcaster: bc, catalog: cat})

	if serveTLSCert != "" && serveTLSKey != "" {
		return runTLS(router, serveAddr, serveTLSCert, serveTLSKey)
	}
	telemetry.LogHTTPRequest("SERVER", serveAddr, 0, 0, telemetry.Fields{"mode": "http"})
	return http.ListenAndServe(serveAddr, router)
}

// buildGateway registers openai and anthropic only when their API key
// is present in the environment, always registers ollama, and registers
// bedrock whenever an AWS region is known (AWS_REGION or
// --bedrock-region) and the AWS config loads. A provider left
// unregistered is simply absent from the gateway; requests naming it
// fail with InvalidConfig at dispatch time rather than at startup.
func buildGateway(ctx context.Context) *gateway.Gateway {
	gw := gateway.New()

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		gw.Register("openai", gateway.NewOpenAIBackend(key))
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		gw.Register("anthropic", gateway.NewAnthropicBackend(key))
	}

	endpoint := os.Getenv("OLLAMA_HOST")
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	gw.Register("ollama", gateway.NewOllamaBackend(endpoint))

	if region := os.Getenv("AWS_REGION"); region != "" || bedrockRegion != "" {
		if region == "" {
			region = bedrockRegion
		}
		if backend, err := gateway.NewBedrockBackend(ctx, region); err != nil {
			telemetry.Error("bedrock backend unavailable", telemetry.Fields{"error": err.Error()})
		} else {
			gw.Register("bedrock", backend)
		}
	}

	return gw
}

// runTLS mirrors the corpus's dual-listener pattern: an HTTP/1.1+TLS
// server and, alongside it, an HTTP/3 server advertising itself via
// Alt-Svc, sharing the same gin handler.
func runTLS(handler http.Handler, addr, certFile, keyFile string) error {
	tlsConfig := &tls.Config{NextProtos: []string{"h3", "http/1.1"}}

	http3Srv := &http3.Server{
		Addr:      addr,
		Handler:   handler,
		TLSConfig: tlsConfig,
	}
	go func() {
		if err := http3Srv.ListenAndServeTLS(certFile, keyFile); err != nil {
			telemetry.Error("http3 listener exited", telemetry.Fields{"error": err.Error()})
		}
	}()

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		TLSConfig:    tlsConfig,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	telemetry.LogHTTPRequest("SERVER", addr, 0, 0, telemetry.Fields{"mode": "https+h3"})
	return srv.ListenAndServeTLS(certFile, keyFile)
}
