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

package relay

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/greenlab-adc/adc-stream-node/pkg/config"
	"github.com/greenlab-adc/adc-stream-node/pkg/fgrelay"
	"github.com/greenlab-adc/adc-stream-node/pkg/log"
)

const (
	PortOptionName = "port"
)

// NewRunCommand runs the control relay standalone, forwarding inbound
// UDP datagrams to stdout in place of a UART.
func NewRunCommand() *cobra.Command {
	var port int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the control relay standalone",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				cfg.Control.Port = port
			}
			addr, err := cfg.ControlAddr()
			if err != nil {
				return err
			}
			r, err := fgrelay.Listen(addr, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			log.Info("adc-stream-node: control relay listening on %s", addr)

			stop := make(chan struct{})
			go func() {
				sig := make(chan os.Signal, 1)
				signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
				<-sig
				close(stop)
			}()

			return r.Run(stop)
		},
	}
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Control port to listen on. E.g. %d", config.DefaultControlPort))

	return cmd
}
