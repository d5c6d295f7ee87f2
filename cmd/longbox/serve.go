package main

import (
	"crypto/tls"
	"log/slog"

	"github.com/Veraticus/longbox/internal/api"
	"github.com/Veraticus/longbox/internal/certs"
	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/metadata"
	"github.com/Veraticus/longbox/internal/scanner"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve fee quotes, eligibility decisions, query building, and cover
identification over HTTP. Identification is only available when
metadata.base_url is configured.

With --tls (or server.tls) the API is served over HTTPS using a self-signed
localhost certificate generated in server.cert_dir.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed localhost certificate")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = appCfg.Server.Addr
	}

	var tlsConfig *tls.Config
	if useTLS, _ := cmd.Flags().GetBool("tls"); useTLS || appCfg.Server.TLS {
		store := certs.NewStore(appCfg.Server.CertDir)
		cfg, err := store.TLSConfig()
		if err != nil {
			return err
		}
		common.LogInfo("Serving HTTPS", common.Fields{"certificate": store.CertFile()})
		tlsConfig = cfg
	}

	calc, err := newCalculator()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var identifier *scanner.Identifier
	if appCfg.Metadata.BaseURL != "" {
		client, err := metadata.NewClient(appCfg.Metadata, slog.Default())
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		identifier, err = scanner.NewIdentifier(client, store, appCfg.Scanner, slog.Default())
		if err != nil {
			return err
		}
	} else {
		slog.Warn("metadata.base_url not set; cover identification disabled")
	}

	server, err := api.NewServer(api.Deps{
		Store:      store,
		Calculator: calc,
		Identifier: identifier,
		Logger:     slog.Default(),
		TLS:        tlsConfig,
		Policy:     appCfg.Eligibility,
	})
	if err != nil {
		return err
	}

	return server.ListenAndServe(ctx, addr)
}
