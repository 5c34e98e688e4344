// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

//go:embed testdata
var testfsys embed.FS

func loadFromTestDir(filename string) (string, *Config, error) {
	filename = filepath.Join("testdata", filename)
	b, err := testfsys.ReadFile(filename)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file %v: %v", filename, err)
	}
	config, err := LoadFromBytes(filename, b)
	if err != nil {
		return filename, nil, fmt.Errorf("failed to load file %v: %w", filename, err)
	}
	return filename, config, err
}

func TestNewDefault(t *testing.T) {
	c := NewDefault()
	if c.FramePointer != "$g0" {
		t.Errorf("Default frame pointer should be $g0, got %q", c.FramePointer)
	}
	if !c.IsSink("$strcpy") || !c.IsSink("$memcpy") {
		t.Errorf("Default sinks should include $strcpy and $memcpy")
	}
	if c.FormatString["$snprintf"] != 2 {
		t.Errorf("Default format-string index of $snprintf should be 2")
	}
	if spec := c.BufferOverflow["$gets"]; spec.Buffer == nil || *spec.Buffer != 0 || spec.Size != nil {
		t.Errorf("Default $gets spec should have buffer 0 and no size, got %+v", spec)
	}
	if !c.IsIgnored("$fgets") {
		t.Errorf("$fgets should be ignored by default")
	}
	if c.ImportAsSources || c.ImportAsSinks || c.ExportedAsSinks || len(c.WhiteList) != 0 {
		t.Errorf("imports and exports should not be sources or sinks by default")
	}
	if diff := cmp.Diff([]string{"$memcpy"}, c.Memcpy); diff != "" {
		t.Errorf("Default memcpy functions (-want +got):\n%s", diff)
	}
	if err := Validate(c); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoadBadFormatFileReturnsError(t *testing.T) {
	_, config, err := loadFromTestDir("bad_format.yaml")
	if config != nil || err == nil {
		t.Errorf("Expected error and nil value when trying to load a badly formatted file.")
	}
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "does-not-exist.yaml"))
	if c != nil || err == nil {
		t.Errorf("Expected error and nil value when trying to load non existent file.")
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	fileName, config, err := loadFromTestDir("config.yaml")
	if err != nil {
		t.Fatalf("Could not load %s: %v", fileName, err)
	}
	if config.LogLevel != int(DebugLevel) {
		t.Errorf("log-level should be 4, got %d", config.LogLevel)
	}
	if diff := cmp.Diff([]string{"$strcpy"}, config.Sinks); diff != "" {
		t.Errorf("sinks should replace the default (-want +got):\n%s", diff)
	}
	def := NewDefault()
	if diff := cmp.Diff(def.Tainted, config.Tainted); diff != "" {
		t.Errorf("tainted should keep the default (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(def.FormatString, config.FormatString); diff != "" {
		t.Errorf("format-string should keep the default (-want +got):\n%s", diff)
	}
	if config.DetectorTimeout != DefaultDetectorTimeout {
		t.Errorf("detector-timeout should default to %v", DefaultDetectorTimeout)
	}
	if config.SubOpcode != DefaultSubOpcode || config.AddOpcode != DefaultAddOpcode {
		t.Errorf("frame opcodes should have their default values")
	}
}

//gocyclo:ignore
func TestLoadFullConfig(t *testing.T) {
	fileName, config, err := loadFromTestDir("full-config.yaml")
	if err != nil {
		t.Fatalf("Could not load %s: %v", fileName, err)
	}
	if config.LogLevel != int(TraceLevel) {
		t.Error("full config should have set trace")
	}
	if config.DetectorTimeout != 30*time.Second {
		t.Errorf("full config should set detector-timeout to 30s, got %v", config.DetectorTimeout)
	}
	if config.NumRoutines != 3 {
		t.Error("full config should set num-routines to 3")
	}
	if config.FramePointer != "$sp" || config.SubOpcode != "i64.sub" || config.AddOpcode != "i64.add" ||
		config.ConstType != "i64" {
		t.Error("full config should override the frame options")
	}
	if !config.DetectorEnabled("double-free") || config.DetectorEnabled("format-strings") {
		t.Error("full config should only enable the listed detectors")
	}
	if !config.IsDangerous("$system") || config.IsDangerous("$strcpy") {
		t.Error("full config should replace the dangerous functions")
	}
	if len(config.ControlFlow) != 2 || config.ControlFlow[1].Source != "$calloc" {
		t.Errorf("full config should specify two distinct control-flow pairs, got %v", config.ControlFlow)
	}
	if !config.IsMalloc("$calloc") {
		t.Error("full config should specify $calloc as an allocation function")
	}
	if len(config.FormatString) != 1 {
		t.Error("full config should replace the format-string table")
	}
	if spec := config.BufferOverflow["$read"]; spec.Size == nil || *spec.Size != 2 {
		t.Error("full config should set the size of $read to 2")
	}
	if !config.IsSource("$getenv") || !config.IsSink("$system") {
		t.Error("full config should set sources and sinks")
	}
	if len(config.Ignore) != 0 {
		t.Error("an empty ignore list should replace the default")
	}
	seeds := config.TaintedSeeds()
	if !seeds["$main"][0] || !seeds["$main"][1] || len(seeds) != 1 {
		t.Errorf("full config should taint parameters 0 and 1 of $main, got %v", seeds)
	}
	if !config.ImportAsSources || !config.ImportAsSinks || !config.ExportedAsSinks {
		t.Error("full config should enable the import and export options")
	}
	if !config.IsWhitelisted("$printf") || config.IsWhitelisted("$system") {
		t.Error("full config should white-list $printf only")
	}
	if diff := cmp.Diff([]string{"$memcpy", "$memmove"}, config.Memcpy); diff != "" {
		t.Errorf("memcpy (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"$scanf", "$__isoc99_scanf"}, config.Scanf); diff != "" {
		t.Errorf("scanf (-want +got):\n%s", diff)
	}
}

func TestLoadDeduplicatesControlFlow(t *testing.T) {
	b := []byte(`
control-flow:
  - {source: $malloc, dest: $free}
  - {source: $malloc, dest: $free}
  - {source: $malloc, dest: $release}
`)
	config, err := LoadFromBytes("inline.yaml", b)
	if err != nil {
		t.Fatal(err)
	}
	want := []ControlFlowSpec{{Source: "$malloc", Dest: "$free"}, {Source: "$malloc", Dest: "$release"}}
	if diff := cmp.Diff(want, config.ControlFlow); diff != "" {
		t.Errorf("control-flow (-want +got):\n%s", diff)
	}
}

func TestLoadJSON(t *testing.T) {
	fileName, config, err := loadFromTestDir("config2.json")
	if err != nil {
		t.Fatalf("Could not load %s: %v", fileName, err)
	}
	if config.LogLevel != int(WarnLevel) {
		t.Errorf("log-level should be 2")
	}
	if diff := cmp.Diff([]string{"$xmalloc"}, config.Malloc); diff != "" {
		t.Errorf("malloc (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]TaintedSpec{"$handler": {Params: []int{2}}}, config.Tainted); diff != "" {
		t.Errorf("tainted (-want +got):\n%s", diff)
	}
}

func TestLoadInvalidNamesKey(t *testing.T) {
	tests := []struct {
		file string
		key  string
	}{
		{"missing_buffer.yaml", "buffer-overflow[$read].buffer"},
		{"missing_dest.yaml", "control-flow[0].dest"},
		{"bad_funcname.yaml", "sinks[0]"},
		{"bad_level.yaml", "options.log-level"},
	}
	for _, test := range tests {
		t.Run(test.file, func(t *testing.T) {
			_, config, err := loadFromTestDir(test.file)
			if config != nil || err == nil {
				t.Fatalf("Expected error when loading %s", test.file)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), test.key) {
				t.Errorf("Error %q should name key %s", err, test.key)
			}
		})
	}
}

func TestLoadGlobalWithoutFileIsDefault(t *testing.T) {
	SetGlobalConfig("")
	c, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal failed: %v", err)
	}
	if diff := cmp.Diff(NewDefault().Sinks, c.Sinks); diff != "" {
		t.Errorf("LoadGlobal without file should return the default config (-want +got):\n%s", diff)
	}
}

func TestLogGroupLevels(t *testing.T) {
	c := NewDefault()
	c.LogLevel = int(WarnLevel)
	l := NewLogGroup(c)
	var buf bytes.Buffer
	l.SetAllOutput(&buf)
	l.SetAllFlags(0)
	l.Infof("hidden")
	l.Warnf("shown %d", 1)
	l.Errorf("error")
	if got := buf.String(); got != "[WARN] shown 1\n[ERROR] error\n" {
		t.Errorf("unexpected log output %q", got)
	}
}
