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

// Package cmd wires dispatchd's cobra subcommands (run/version) onto the
// daemon package.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dispatchd",
	Short: "dispatchd is an AMQP 1.0 message-routing daemon core",
}

// Execute runs the root command, dispatching to whichever subcommand the
// caller invoked.
func Execute() error {
	return rootCmd.Execute()
}
