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

package orchestrator

import (
	"errors"
	"fmt"

	"github.com/imroc/req"

	"github.com/greenlab-adc/adc-stream-node/pkg/log"
)

// ProbeCollector makes one best-effort GET against the configured
// downstream collector's health endpoint. It is never fatal: bring-up
// proceeds with or without a reachable collector, since the sender's
// lossy UDP contract already tolerates a silent receiver.
func ProbeCollector(baseURL string) error {
	if baseURL == "" {
		return nil
	}
	url := fmt.Sprintf("%s/healthz", baseURL)
	r, err := req.Get(url)
	if err != nil {
		log.Warning("orchestrator: collector preflight probe failed: %s", err)
		return err
	}
	if r.Response().StatusCode != 200 {
		err := errors.New(r.Response().Status)
		log.Warning("orchestrator: collector preflight probe returned: %s", err)
		return err
	}
	log.Info("orchestrator: collector preflight probe ok: %s", url)
	return nil
}
