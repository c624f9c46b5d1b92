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
	"path/filepath"
	"testing"
)

func TestPersistRefusesOverwriteByDefault(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.filepath = filepath.Join(dir, "config")

	if err := cfg.Persist(false); err != nil {
		t.Fatalf("first Persist: %v", err)
	}
	err := cfg.Persist(false)
	if _, ok := err.(ErrConfigFileExists); !ok {
		t.Fatalf("second Persist error = %v (%T), want ErrConfigFileExists", err, err)
	}
	if err := cfg.Persist(true); err != nil {
		t.Fatalf("Persist with overwrite: %v", err)
	}
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.filepath = filepath.Join(dir, "config")
	cfg.Dest.Address = "10.0.0.5"
	cfg.Pipeline.SampleBits = 8

	if err := cfg.Persist(false); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	loaded := &Config{filepath: cfg.filepath}
	if err := loaded.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Dest.Address != "10.0.0.5" || loaded.Pipeline.SampleBits != 8 {
		t.Fatalf("loaded config = %+v, want Dest.Address=10.0.0.5 SampleBits=8", loaded)
	}
}

func TestToPipelineConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	pc := cfg.ToPipelineConfig()
	if pc.Channels != DefaultChannels || pc.SamplesPerFrame != DefaultSamplesPerFrame ||
		pc.SampleBits != DefaultSampleBits || pc.QueueDepth != DefaultQueueDepth {
		t.Fatalf("ToPipelineConfig() = %+v, did not carry over defaults", pc)
	}
	if err := pc.Validate(); err != nil {
		t.Fatalf("default pipeline config should validate: %v", err)
	}
}

func TestLoadTreatsMissingFileAsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.filepath = filepath.Join(t.TempDir(), "does-not-exist")
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load() on a missing file: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("LogLevel = %q, want default %q after Load() on a missing file", cfg.LogLevel, DefaultLogLevel)
	}
}

func TestDestAddr(t *testing.T) {
	cfg := NewDefaultConfig()
	addr, err := cfg.DestAddr()
	if err != nil {
		t.Fatalf("DestAddr: %v", err)
	}
	if addr.IP.String() != DefaultDestAddress || addr.Port != DefaultDestPort {
		t.Fatalf("DestAddr() = %v, want %s:%d", addr, DefaultDestAddress, DefaultDestPort)
	}
}
