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

// Command rpc-client dials a remoting Server over WebSocket, completes
// the handshake (and optional authentication), and reports the
// resulting session so an operator can verify a deployment is reachable
// without writing a bespoke Go program against the client package.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sage-x-project/remoting/client"
	"github.com/sage-x-project/remoting/config"
	"github.com/sage-x-project/remoting/internal/logger"
	"github.com/sage-x-project/remoting/pkg/version"
	"github.com/sage-x-project/remoting/serializer"
	"github.com/sage-x-project/remoting/transport/websocket"
	"github.com/sage-x-project/remoting/wire"
)

var (
	configDir string
	envFile   string
	url       string
	username  string
	password  string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:     "rpc-client",
	Short:   "Dial a remoting server and report the resulting session",
	Version: version.String(),
	RunE:    runConnect,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVar(&configDir, "config-dir", "config", "directory holding <environment>.yaml")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")
	rootCmd.Flags().StringVar(&url, "url", "ws://localhost:8443/rpc", "WebSocket URL of the server")
	rootCmd.Flags().StringVar(&username, "username", "", "credential username, if the server requires authentication")
	rootCmd.Flags().StringVar(&password, "password", "", "credential password, if the server requires authentication")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "connect timeout")
}

func runConnect(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load env file", logger.String("path", envFile), logger.Error(err))
	}

	cfg, err := config.Load(config.LoaderOptions{ConfigDir: configDir})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	cliCfg := cfg.ToClientConfig()
	cliCfg.Channel = websocket.NewClient(url)
	cliCfg.Serializer = serializer.NewJSONSerializer()
	if username != "" {
		cliCfg.Credentials = []wire.Credential{
			{Name: "username", Value: username},
			{Name: "password", Value: password},
		}
	}

	cli, err := client.NewClient(cliCfg, client.Events{})
	if err != nil {
		return fmt.Errorf("construct client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := cli.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer cli.Disconnect()

	fmt.Printf("connected: session established, encrypted=%t\n", cliCfg.MessageEncryption)
	if id := cli.Identity(); id != nil {
		fmt.Printf("authenticated as: %s (%s)\n", id.Name, id.Type)
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
