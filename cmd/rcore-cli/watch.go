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
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/rcore/config"
	"github.com/packetd/rcore/internal/sigs"
	"github.com/packetd/rcore/logger"
	"github.com/packetd/rcore/pool"
)

var watchConfig struct {
	ConnectionString string
	PoolName         string
	Interval         time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Repeatedly PING a server through the pool until interrupted",
	Example: "  rcore-cli watch --conn 127.0.0.1:6379 --interval 1s",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ParseConnectionString(watchConfig.PoolName, watchConfig.ConnectionString)
		if err != nil {
			return err
		}

		ticker := time.NewTicker(watchConfig.Interval)
		defer ticker.Stop()

		terminate := sigs.Terminate()
		for {
			select {
			case <-terminate:
				return nil
			case <-ticker.C:
				pingOnce(cmd.Context(), cfg)
			}
		}
	},
}

func pingOnce(ctx context.Context, cfg *config.Configuration) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout+cfg.ReadTimeout)
	defer cancel()

	r, err := pool.Rent(ctx, cfg, cfg.ConnectTimeout)
	if err != nil {
		logger.Warnf("watch: rent failed: %v", err)
		return
	}
	defer r.Close()

	if _, err := r.Issue(ctx, []byte("PING")); err != nil {
		logger.Warnf("watch: ping failed: %v", err)
		return
	}
	fmt.Printf("%s: PING ok in %s\n", r.Connection().ID(), time.Since(start))
}

func init() {
	watchCmd.Flags().StringVar(&watchConfig.ConnectionString, "conn", "127.0.0.1:6379", "Connection string: comma-separated host:port endpoint plus Key=value options (MaxPoolSize)")
	watchCmd.Flags().StringVar(&watchConfig.PoolName, "name", "watch", "Name of the connection pool to rent from")
	watchCmd.Flags().DurationVar(&watchConfig.Interval, "interval", time.Second, "Delay between pings")
	rootCmd.AddCommand(watchCmd)
}
