/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/greenlab-adc/adc-stream-node/cmd/completion"
	"github.com/greenlab-adc/adc-stream-node/cmd/config"
	"github.com/greenlab-adc/adc-stream-node/cmd/relay"
	"github.com/greenlab-adc/adc-stream-node/cmd/stream"
	pkgconfig "github.com/greenlab-adc/adc-stream-node/pkg/config"
	"github.com/greenlab-adc/adc-stream-node/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

// NewRootCommand builds the adc-stream-node cobra tree: stream run/reset,
// config show/init, relay run, and shell completion.
func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string
	cfg := pkgconfig.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "adc-stream-node",
		Short: "Stream ADC samples over UDP",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(stream.NewCommand())
	cmd.AddCommand(config.NewCommand())
	cmd.AddCommand(relay.NewCommand())
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	return cmd
}
