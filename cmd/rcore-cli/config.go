// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/packetd/rcore/config"
)

var configCmdFlags struct {
	ConnectionString string
	File             string
	FileKey          string
	Name             string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Resolve a connection string or config file and print it as JSON",
	Example: "  rcore-cli config --conn '127.0.0.1:6379,MaxPoolSize=5'\n" +
		"  rcore-cli config --file rcore.yaml --file-key redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg *config.Configuration
			err error
		)
		switch {
		case configCmdFlags.File != "":
			cfg, err = config.LoadFile(configCmdFlags.Name, configCmdFlags.File, configCmdFlags.FileKey)
		default:
			cfg, err = config.ParseConnectionString(configCmdFlags.Name, configCmdFlags.ConnectionString)
		}
		if err != nil {
			return err
		}
		if err := cfg.Freeze(); err != nil {
			return err
		}

		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	},
}

func init() {
	configCmd.Flags().StringVar(&configCmdFlags.ConnectionString, "conn", "127.0.0.1:6379", "Connection string to resolve")
	configCmd.Flags().StringVar(&configCmdFlags.File, "file", "", "YAML config file to load instead of --conn")
	configCmd.Flags().StringVar(&configCmdFlags.FileKey, "file-key", "", "Sub-tree of the YAML file holding the configuration, defaults to the document root")
	configCmd.Flags().StringVar(&configCmdFlags.Name, "name", "default", "Name assigned to the resolved configuration")
	rootCmd.AddCommand(configCmd)
}
