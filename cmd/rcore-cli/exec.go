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
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/rcore/config"
	"github.com/packetd/rcore/pool"
	"github.com/packetd/rcore/resp"
)

var execConfig struct {
	ConnectionString string
	PoolName         string
	Username         string
	Password         string
	DB               int
	RentTimeout      time.Duration
	PreferRESP2      bool
}

var execCmd = &cobra.Command{
	Use:   "exec -- COMMAND [ARG...]",
	Short: "Rent a connection and issue a single command",
	Example: "  rcore-cli exec --conn 127.0.0.1:6379 -- PING\n" +
		"  rcore-cli exec --conn '127.0.0.1:6379,MaxPoolSize=5' --password secret -- SET foo bar",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ParseConnectionString(execConfig.PoolName, execConfig.ConnectionString)
		if err != nil {
			return err
		}
		cfg.Username = execConfig.Username
		cfg.Password = execConfig.Password
		cfg.DB = execConfig.DB
		if execConfig.PreferRESP2 {
			cfg.PreferRESP3 = false
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectTimeout+execConfig.RentTimeout)
		defer cancel()

		r, err := pool.Rent(ctx, cfg, execConfig.RentTimeout)
		if err != nil {
			return fmt.Errorf("rent: %w", err)
		}
		defer r.Close()

		cmdArgs := make([][]byte, len(args))
		for i, a := range args {
			cmdArgs[i] = []byte(a)
		}

		v, err := r.Issue(ctx, cmdArgs...)
		if err != nil {
			return fmt.Errorf("issue: %w", err)
		}

		printValue(os.Stdout, v, 0)
		return nil
	},
}

func init() {
	execCmd.Flags().StringVar(&execConfig.ConnectionString, "conn", "127.0.0.1:6379", "Connection string: comma-separated host:port endpoint plus Key=value options (MaxPoolSize)")
	execCmd.Flags().StringVar(&execConfig.PoolName, "name", "default", "Name of the connection pool to rent from")
	execCmd.Flags().StringVar(&execConfig.Username, "username", "", "AUTH username")
	execCmd.Flags().StringVar(&execConfig.Password, "password", "", "AUTH password")
	execCmd.Flags().IntVar(&execConfig.DB, "db", 0, "Database index to SELECT after connecting")
	execCmd.Flags().DurationVar(&execConfig.RentTimeout, "rent-timeout", 3*time.Second, "How long to wait for a free connection before giving up")
	execCmd.Flags().BoolVar(&execConfig.PreferRESP2, "resp2", false, "Force the RESP2 fallback handshake instead of HELLO 3")
	rootCmd.AddCommand(execCmd)
}

// printValue renders a Value the way redis-cli does: one line per scalar,
// indented children for arrays/maps.
func printValue(w *os.File, v resp.Value, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	switch v.Kind {
	case resp.KindNull:
		fmt.Fprintln(w, indent+"(nil)")
	case resp.KindBoolean:
		fmt.Fprintln(w, indent+"(boolean) "+strconv.FormatBool(v.Bool))
	case resp.KindInteger:
		fmt.Fprintln(w, indent+"(integer) "+strconv.FormatInt(v.Int, 10))
	case resp.KindError:
		fmt.Fprintln(w, indent+"(error) "+string(v.Str))
	case resp.KindArray, resp.KindSet, resp.KindPush:
		fmt.Fprintf(w, indent+"(%d elements)\n", len(v.Elems))
		for _, e := range v.Elems {
			printValue(w, e, depth+1)
		}
	case resp.KindMap:
		fmt.Fprintf(w, indent+"(%d pairs)\n", len(v.Pairs))
		for _, p := range v.Pairs {
			printValue(w, p.Key, depth+1)
			printValue(w, p.Value, depth+1)
		}
	default:
		fmt.Fprintln(w, indent+string(v.Str))
	}
}
