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
	"net/http"

	"github.com/imroc/req"
	"github.com/spf13/cobra"

	"github.com/greenlab-adc/adc-stream-node/pkg/config"
	"github.com/greenlab-adc/adc-stream-node/pkg/log"
)

const (
	AddressOptionName = "address"
	PortOptionName    = "port"
)

// NewResetCommand calls a running node's diagnostics API to re-arm its
// UDP stream, without restarting the process.
func NewResetCommand() *cobra.Command {
	var address string
	var port int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset a running node's UDP stream via the diagnostics API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				cfg.Diag.Address = address
			}
			if port != 0 {
				cfg.Diag.Port = port
			}
			host := cfg.Diag.Address
			if host == "0.0.0.0" {
				host = "127.0.0.1"
			}

			url := fmt.Sprintf("http://%s:%d/api/reset", host, cfg.Diag.Port)
			r, err := req.Post(url)
			if err != nil {
				return err
			}
			if r.Response().StatusCode != http.StatusNoContent {
				return fmt.Errorf("reset request failed: %s", r.Response().Status)
			}
			log.Info("adc-stream-node: stream reset ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, "", fmt.Sprintf("Diagnostics API address to call. E.g. %s", config.DefaultDiagAddress))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Diagnostics API port to call. E.g. %d", config.DefaultDiagPort))

	return cmd
}
