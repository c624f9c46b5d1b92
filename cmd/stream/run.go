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

package stream

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/greenlab-adc/adc-stream-node/pkg/capture"
	"github.com/greenlab-adc/adc-stream-node/pkg/config"
	"github.com/greenlab-adc/adc-stream-node/pkg/log"
	"github.com/greenlab-adc/adc-stream-node/pkg/orchestrator"
)

const (
	DestAddressOptionName = "dest-address"
	DestPortOptionName    = "dest-port"
)

// NewRunCommand starts the sample pipeline, diagnostics API and control
// relay together and blocks until interrupted, standing in for the
// reference firmware's power-on-to-shutdown lifetime.
func NewRunCommand() *cobra.Command {
	var destAddress string
	var destPort int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ADC sample pipeline, diagnostics API and control relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if destAddress != "" {
				cfg.Dest.Address = destAddress
			}
			if destPort != 0 {
				cfg.Dest.Port = destPort
			}

			if cfg.Collector.BaseURL != "" {
				orchestrator.ProbeCollector(cfg.Collector.BaseURL)
			}

			sources := make([]capture.SampleSource, cfg.Pipeline.Channels)
			for i := range sources {
				sources[i] = capture.NewSineSource(1000, 2000, 0.05*float64(i+1))
			}

			node, err := orchestrator.New(cfg, sources, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := node.Init(); err != nil {
				return err
			}
			if err := node.Start(); err != nil {
				return err
			}
			log.Info("adc-stream-node: streaming to %s:%d", cfg.Dest.Address, cfg.Dest.Port)

			go func() {
				sig := make(chan os.Signal, 1)
				signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
				<-sig
				node.Stop()
			}()

			node.Run()
			return nil
		},
	}
	cmd.Flags().StringVar(&destAddress, DestAddressOptionName, "", fmt.Sprintf("Destination address to stream to. E.g. %s", config.DefaultDestAddress))
	cmd.Flags().IntVar(&destPort, DestPortOptionName, 0, fmt.Sprintf("Destination port to stream to. E.g. %d", config.DefaultDestPort))

	return cmd
}
