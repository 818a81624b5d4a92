// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Command rpc-server hosts a remoting Server over a WebSocket transport,
// with its security, session, and logging surface driven by the config
// package rather than hard-coded defaults.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sage-x-project/remoting/auth"
	"github.com/sage-x-project/remoting/config"
	"github.com/sage-x-project/remoting/crypto/storage"
	"github.com/sage-x-project/remoting/health"
	"github.com/sage-x-project/remoting/internal/logger"
	"github.com/sage-x-project/remoting/internal/metrics"
	"github.com/sage-x-project/remoting/pkg/version"
	"github.com/sage-x-project/remoting/serializer"
	"github.com/sage-x-project/remoting/server"
	"github.com/sage-x-project/remoting/transport/websocket"
	"github.com/sage-x-project/remoting/wire"
)

var (
	configDir string
	envFile   string
	addr      string
	wsPath    string
	users     []string
)

var rootCmd = &cobra.Command{
	Use:     "rpc-server",
	Short:   "Host remoting services over a WebSocket listener",
	Version: version.String(),
	RunE:    runServer,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVar(&configDir, "config-dir", "config", "directory holding <environment>.yaml")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")
	rootCmd.Flags().StringVar(&addr, "addr", ":8443", "WebSocket listen address")
	rootCmd.Flags().StringVar(&wsPath, "path", "/rpc", "WebSocket upgrade path")
	rootCmd.Flags().StringArrayVar(&users, "user", nil, "username:password pair to register with the static credential provider (repeatable)")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load env file", logger.String("path", envFile), logger.Error(err))
	}

	cfg, err := config.Load(config.LoaderOptions{ConfigDir: configDir})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &config.MetricsConfig{}
	}
	if cfg.Health == nil {
		cfg.Health = &config.HealthConfig{}
	}

	srvCfg := cfg.ToServerConfig()
	srvCfg.Channel = websocket.NewServer(addr, wsPath)
	srvCfg.Serializer = serializer.NewJSONSerializer()

	var provider *auth.StaticCredentialProvider
	if len(users) > 0 {
		provider = auth.NewStaticCredentialProvider()
		for _, pair := range users {
			name, pass, ok := splitUser(pair)
			if !ok {
				return fmt.Errorf("--user %q must be in username:password form", pair)
			}
			if err := provider.AddUser(name, pass, wire.Identity{Name: name, Type: "user"}); err != nil {
				return fmt.Errorf("register user %q: %w", name, err)
			}
		}
		srvCfg.AuthenticationRequired = true
		srvCfg.AuthenticationProvider = provider
	}

	checker := health.NewHealthChecker(0)
	if cfg.KeyStore != nil && cfg.KeyStore.Directory != "" {
		checker.RegisterCheck("keystore", health.KeyStoreHealthCheck(func() error {
			_, err := storage.NewFileVault(cfg.KeyStore.Directory, os.Getenv(cfg.KeyStore.PassphraseEnv))
			return err
		}))
	}

	srv, err := server.NewServer(srvCfg, server.Events{})
	if err != nil {
		return fmt.Errorf("construct server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(metricsAddr(cfg.Metrics.Port)); err != nil {
				logger.Warn("metrics server stopped", logger.Error(err))
			}
		}()
	}
	if cfg.Health.Enabled {
		go serveHealth(ctx, checker, healthAddr(cfg.Health.Port), cfg.Health.Path)
	}

	logger.Info("rpc-server listening", logger.String("addr", addr), logger.String("path", wsPath))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case <-ctx.Done():
		return srv.Stop()
	case err := <-errCh:
		_ = srv.Stop()
		return err
	}
}

func splitUser(pair string) (name, pass string, ok bool) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == ':' {
			return pair[:i], pair[i+1:], true
		}
	}
	return "", "", false
}

func metricsAddr(port int) string {
	if port == 0 {
		port = 9090
	}
	return fmt.Sprintf(":%d", port)
}

func healthAddr(port int) string {
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf(":%d", port)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
