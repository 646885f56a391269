package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/hts-derivatives/internal/certs"
	"github.com/Veraticus/hts-derivatives/internal/config"
	"github.com/Veraticus/hts-derivatives/internal/proxy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func proxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Serve the Gemini key-holding proxy",
		Long: `Serve POST requests on any path, forwarding request bodies to the Gemini
generateContent endpoint with the server's GEMINI_API_KEY. Clients point
llm.gemini_base_url at this server and never hold the key.

With --tls the proxy serves HTTPS using a self-signed certificate for
localhost, created on first use under proxy.cert_dir.`,
		Args: cobra.NoArgs,
		RunE: runProxy,
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	cmd.Flags().StringSlice("tls-host", nil, "extra host name or IP for the certificate (repeatable)")
	_ = viper.BindPFlag("proxy.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("proxy.tls", cmd.Flags().Lookup("tls"))
	_ = viper.BindPFlag("proxy.tls_hosts", cmd.Flags().Lookup("tls-host"))

	return cmd
}

func runProxy(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	if settings.Proxy.APIKey == "" {
		slog.Warn("GEMINI_API_KEY is not set; every request will fail until it is")
	}

	cfg := settings.Proxy
	if settings.ProxyTLS {
		manager := certs.NewFileManager(settings.CertDir, settings.TLSHosts...)
		cert, err := manager.GetOrCreateCertificate()
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		cfg.Certificate = &cert
		slog.Info("Serving HTTPS", "certificate", manager.CertFile())
	}

	return proxy.New(cfg, slog.Default()).ListenAndServe(cmd.Context())
}
