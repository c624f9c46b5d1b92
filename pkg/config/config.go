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

package config

import (
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/greenlab-adc/adc-stream-node/pkg/pipeline"
)

// PipelineConfig is the compile-time-in-spirit shape of the sample
// pipeline: channel count, samples per frame, wire sample width, and
// queue depth.
type PipelineConfig struct {
	Channels        int `yaml:"channels"`
	SamplesPerFrame int `yaml:"samples_per_frame"`
	SampleBits      int `yaml:"sample_bits"`
	QueueDepth      int `yaml:"queue_depth"`
}

// DestConfig is the UDP destination the sender streams frames to.
type DestConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// ControlConfig configures the fgrelay control-relay listener.
type ControlConfig struct {
	Port int `yaml:"port"`
}

// DiagConfig configures the read-only diagnostics HTTP API.
type DiagConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// CheckpointConfig configures the optional bbolt-backed sender
// checkpoint. Empty Path disables it.
type CheckpointConfig struct {
	Path   string `yaml:"path,omitempty"`
	Period string `yaml:"period,omitempty"`
}

// CollectorConfig configures the optional preflight probe against a
// downstream collector. Empty BaseURL disables it.
type CollectorConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
}

// TimingConfig configures the simulated hardware clock driving capture
// and the foreground sender's tick period. The reference firmware's
// sample clock is a real peripheral and out of scope; these are the
// Go stand-in's knobs.
type TimingConfig struct {
	CapturePeriod string `yaml:"capture_period"`
	TickPeriod    string `yaml:"tick_period"`
}

type Config struct {
	LogLevel string `yaml:"log_level"`

	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Dest       DestConfig       `yaml:"dest"`
	Control    ControlConfig    `yaml:"control"`
	Diag       DiagConfig       `yaml:"diag"`
	Timing     TimingConfig     `yaml:"timing"`
	Checkpoint CheckpointConfig `yaml:"checkpoint,omitempty"`
	Collector  CollectorConfig  `yaml:"collector,omitempty"`

	filepath string
}

// CapturePeriod parses Timing.CapturePeriod, falling back to
// DefaultCapturePeriod if empty or malformed.
func (c *Config) CapturePeriod() time.Duration {
	return parsePeriodOrDefault(c.Timing.CapturePeriod, DefaultCapturePeriod)
}

// TickPeriod parses Timing.TickPeriod, falling back to
// DefaultTickPeriod if empty or malformed.
func (c *Config) TickPeriod() time.Duration {
	return parsePeriodOrDefault(c.Timing.TickPeriod, DefaultTickPeriod)
}

// CheckpointPeriod parses Checkpoint.Period, falling back to
// DefaultCheckpointPeriod if empty or malformed.
func (c *Config) CheckpointPeriod() time.Duration {
	return parsePeriodOrDefault(c.Checkpoint.Period, DefaultCheckpointPeriod)
}

func parsePeriodOrDefault(value, fallback string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

// ToPipelineConfig converts the persisted shape into pkg/pipeline.Config.
func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		Channels:        c.Pipeline.Channels,
		SamplesPerFrame: c.Pipeline.SamplesPerFrame,
		SampleBits:      c.Pipeline.SampleBits,
		QueueDepth:      c.Pipeline.QueueDepth,
	}
}

// DestAddr resolves the configured destination into a *net.UDPAddr.
func (c *Config) DestAddr() (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", c.Dest.Address, c.Dest.Port))
}

// ControlAddr resolves the control-relay listen address.
func (c *Config) ControlAddr() (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", c.Control.Port))
}

// DiagAddr returns the host:port the diagnostics API should bind.
func (c *Config) DiagAddr() string {
	return fmt.Sprintf("%s:%d", c.Diag.Address, c.Diag.Port)
}

// Persist writes the config as YAML to its filepath. It refuses to
// overwrite an existing file unless overwrite is true.
func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

// LoadConfig reads and unmarshals the YAML file at c.filepath into c.
func (c *Config) LoadConfig() error {
	data, err := ioutil.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Load is LoadConfig with a missing config file treated as "keep the
// defaults" rather than an error, for the common CLI bring-up path
// where no config has ever been written yet.
func (c *Config) Load() error {
	err := c.LoadConfig()
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// DefaultConfigPath returns "$HOME/.adc-stream-node/config".
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

// NewDefaultConfig builds a Config with every default from const.go.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Pipeline: PipelineConfig{
			Channels:        DefaultChannels,
			SamplesPerFrame: DefaultSamplesPerFrame,
			SampleBits:      DefaultSampleBits,
			QueueDepth:      DefaultQueueDepth,
		},
		Dest: DestConfig{
			Address: DefaultDestAddress,
			Port:    DefaultDestPort,
		},
		Control: ControlConfig{
			Port: DefaultControlPort,
		},
		Diag: DiagConfig{
			Address: DefaultDiagAddress,
			Port:    DefaultDiagPort,
		},
		Timing: TimingConfig{
			CapturePeriod: DefaultCapturePeriod,
			TickPeriod:    DefaultTickPeriod,
		},
		filepath: DefaultConfigPath(),
	}
}
