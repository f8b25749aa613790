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

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/dispatchd/common"
	"github.com/packetd/dispatchd/confengine"
	"github.com/packetd/dispatchd/daemon"
	"github.com/packetd/dispatchd/internal/sigs"
	"github.com/packetd/dispatchd/logger"
)

var runConfigPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the dispatchd daemon",
	Run: func(cmd *cobra.Command, args []string) {
		conf, err := confengine.LoadConfigPath(runConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		d, err := daemon.New(conf, common.GetBuildInfo())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create daemon: %v\n", err)
			os.Exit(1)
		}
		if err := d.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
			os.Exit(1)
		}

		var reloadTotal int
		for {
			select {
			case <-sigs.Terminate():
				d.Stop()
				return

			case <-sigs.Reload():
				reloadTotal++

				conf, err := confengine.LoadConfigPath(runConfigPath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "failed to load config (count=%d): %v\n", reloadTotal, err)
					continue
				}

				start := time.Now()
				if err := d.Reload(conf); err != nil {
					logger.Errorf("failed to reload config: %v", err)
					continue
				}
				logger.Infof("reload (count=%d) took %s", reloadTotal, time.Since(start))
			}
		}
	},
	Example: "# dispatchd run --config dispatchd.yaml",
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "dispatchd.yaml", "Configuration file path")
	rootCmd.AddCommand(runCmd)
}
