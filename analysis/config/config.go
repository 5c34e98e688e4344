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
	"fmt"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/darkmacheken/wasmati/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig. If no file has been set, it returns the
// default config.
func LoadGlobal() (*Config, error) {
	if configFile == "" {
		return NewDefault(), nil
	}
	return Load(configFile)
}

// Config contains the function names and options used by the detectors.
// To add elements to a config file, add fields to this struct.
// Every top-level key that is absent from a config file keeps its default value; a key that is present replaces the
// default entirely.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:"options"`

	sourceFile string

	// DangerousFunctions are the functions whose every call site is reported
	DangerousFunctions []string `yaml:"dangerous-functions" validate:"dive,funcname"`

	// ControlFlow lists the allocation/deallocation function pairs checked for double frees and uses after free
	ControlFlow []ControlFlowSpec `yaml:"control-flow" validate:"dive"`

	// Malloc lists the allocation functions checked for heap buffer overflows
	Malloc []string `yaml:"malloc" validate:"dive,funcname"`

	// FormatString maps printf-like functions to the position of their format argument
	FormatString map[string]int `yaml:"format-string" validate:"dive,keys,funcname,endkeys,gte=0"`

	// BufferOverflow maps reading functions to the positions of their buffer and size arguments
	BufferOverflow map[string]BufferOverflowSpec `yaml:"buffer-overflow" validate:"dive,keys,funcname,endkeys"`

	// Sources are the functions whose results are tainted
	Sources []string `yaml:"sources" validate:"dive,funcname"`

	// Sinks are the functions that must not receive tainted data
	Sinks []string `yaml:"sinks" validate:"dive,funcname"`

	// Tainted maps functions to the indices of their parameters that are tainted on entry
	Tainted map[string]TaintedSpec `yaml:"tainted" validate:"dive,keys,funcname,endkeys"`

	// Ignore lists functions that the detectors do not inspect and that the taint propagation does not enter
	Ignore []string `yaml:"ignore" validate:"dive,funcname"`

	// ImportAsSources adds the imported functions to the sources
	ImportAsSources bool `yaml:"import-as-sources"`

	// ImportAsSinks adds the imported functions to the sinks
	ImportAsSinks bool `yaml:"import-as-sinks"`

	// ExportedAsSinks makes the parameters of the exported functions tainted, unless they are white-listed
	ExportedAsSinks bool `yaml:"exported-as-sinks"`

	// WhiteList lists functions that are never sinks, and exported functions whose parameters are not tainted
	WhiteList []string `yaml:"white-list" validate:"dive,funcname"`

	// Memcpy lists the copy functions whose destination is checked for a static buffer
	Memcpy []string `yaml:"memcpy" validate:"dive,funcname"`

	// Scanf lists the scanf-like functions checked inside loops
	Scanf []string `yaml:"scanf" validate:"dive,funcname"`
}

// ControlFlowSpec is a pair of functions where the value returned by Source is released by Dest
type ControlFlowSpec struct {
	Source string `yaml:"source" validate:"required,funcname"`
	Dest   string `yaml:"dest" validate:"required,funcname"`
}

// BufferOverflowSpec gives the argument positions of the buffer and of the size of a reading function.
// Size is nil for functions that do not take a size (e.g. gets).
type BufferOverflowSpec struct {
	Buffer *int `yaml:"buffer" validate:"required,gte=0"`
	Size   *int `yaml:"size,omitempty" validate:"omitempty,gte=0"`
}

// TaintedSpec lists the tainted parameters of a function
type TaintedSpec struct {
	Params []int `yaml:"params" validate:"required,dive,gte=0"`
}

// Options are the general options of the tool, under the "options" key of a config file.
type Options struct {
	// ReportsDir is the directory where the CSV reports are written. Reports are written on the standard output if
	// it is empty.
	ReportsDir string `yaml:"reports-dir"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level" validate:"gte=0,lte=5"`

	// DetectorTimeout is the time budget of each detector. A detector that exceeds it reports its partial results.
	DetectorTimeout time.Duration `yaml:"detector-timeout" validate:"gte=0"`

	// NumRoutines is the maximum number of goroutines used by the detectors and by the taint propagation.
	// Defaults to the number of CPUs.
	NumRoutines int `yaml:"num-routines" validate:"gte=0"`

	// FramePointer is the global holding the stack pointer
	FramePointer string `yaml:"frame-pointer"`

	// SubOpcode is the opcode allocating a stack frame
	SubOpcode string `yaml:"sub-opcode"`

	// AddOpcode is the opcode used for buffer addresses in a stack frame
	AddOpcode string `yaml:"add-opcode"`

	// ConstType is the type of the frame constants
	ConstType string `yaml:"const-type"`

	// Detectors restricts the detectors that are run. All detectors run when it is empty.
	Detectors []string `yaml:"detectors"`

	// Suppress warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns the default config.
func NewDefault() *Config {
	return &Config{
		sourceFile:         "",
		DangerousFunctions: append([]string{}, defaultDangerousFunctions...),
		ControlFlow:        defaultControlFlow(),
		Malloc:             append([]string{}, defaultMalloc...),
		FormatString:       defaultFormatString(),
		BufferOverflow:     defaultBufferOverflow(),
		Sources:            []string{},
		Sinks:              append([]string{}, defaultSinks...),
		Tainted:            defaultTainted(),
		Ignore:             append([]string{}, defaultIgnore...),
		ImportAsSources:    false,
		ImportAsSinks:      false,
		ExportedAsSinks:    false,
		WhiteList:          []string{},
		Memcpy:             append([]string{}, defaultMemcpy...),
		Scanf:              append([]string{}, defaultScanf...),
		Options: Options{
			ReportsDir:      "",
			LogLevel:        int(InfoLevel),
			DetectorTimeout: DefaultDetectorTimeout,
			NumRoutines:     runtime.NumCPU(),
			FramePointer:    DefaultFramePointer,
			SubOpcode:       DefaultSubOpcode,
			AddOpcode:       DefaultAddOpcode,
			ConstType:       DefaultConstType,
			Detectors:       nil,
			SilenceWarn:     false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return LoadFromBytes(filename, b)
}

// LoadFromBytes reads a configuration from the content of a yaml or json file. The filename is only used to resolve
// relative paths.
func LoadFromBytes(filename string, b []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}
	present, err := topLevelKeys(&doc)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if len(present) > 0 {
		if err := doc.Decode(cfg); err != nil {
			return nil, fmt.Errorf("could not unmarshal config file: %w", err)
		}
	}
	cfg.sourceFile = filename
	setDefaults(cfg, present)
	cfg.ControlFlow = funcutil.Uniq(cfg.ControlFlow)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	if cfg.ReportsDir != "" {
		if err := setReportsDir(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// topLevelKeys returns the set of keys of the top-level mapping of the document
func topLevelKeys(doc *yaml.Node) (map[string]bool, error) {
	keys := map[string]bool{}
	if doc.Kind == 0 {
		// empty document
		return keys, nil
	}
	root := doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("could not unmarshal config file: top-level value is not a mapping")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keys[root.Content[i].Value] = true
	}
	return keys, nil
}

// setDefaults sets every absent key and every unset option to its default value
//
//gocyclo:ignore
func setDefaults(cfg *Config, present map[string]bool) {
	def := NewDefault()
	if !present["dangerous-functions"] {
		cfg.DangerousFunctions = def.DangerousFunctions
	}
	if !present["control-flow"] {
		cfg.ControlFlow = def.ControlFlow
	}
	if !present["malloc"] {
		cfg.Malloc = def.Malloc
	}
	if !present["format-string"] {
		cfg.FormatString = def.FormatString
	}
	if !present["buffer-overflow"] {
		cfg.BufferOverflow = def.BufferOverflow
	}
	if !present["sources"] {
		cfg.Sources = def.Sources
	}
	if !present["sinks"] {
		cfg.Sinks = def.Sinks
	}
	if !present["tainted"] {
		cfg.Tainted = def.Tainted
	}
	if !present["ignore"] {
		cfg.Ignore = def.Ignore
	}
	if !present["white-list"] {
		cfg.WhiteList = def.WhiteList
	}
	if !present["memcpy"] {
		cfg.Memcpy = def.Memcpy
	}
	if !present["scanf"] {
		cfg.Scanf = def.Scanf
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.DetectorTimeout == 0 {
		cfg.DetectorTimeout = def.DetectorTimeout
	}
	if cfg.NumRoutines == 0 {
		cfg.NumRoutines = def.NumRoutines
	}
	if cfg.FramePointer == "" {
		cfg.FramePointer = def.FramePointer
	}
	if cfg.SubOpcode == "" {
		cfg.SubOpcode = def.SubOpcode
	}
	if cfg.AddOpcode == "" {
		cfg.AddOpcode = def.AddOpcode
	}
	if cfg.ConstType == "" {
		cfg.ConstType = def.ConstType
	}
}

func setReportsDir(c *Config) error {
	if !path.IsAbs(c.ReportsDir) && c.sourceFile != "" {
		c.ReportsDir = c.RelPath(c.ReportsDir)
	}
	err := os.Mkdir(c.ReportsDir, 0750)
	if err != nil {
		if !os.IsExist(err) {
			return fmt.Errorf("could not create directory %s", c.ReportsDir)
		}
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// Below are functions used to query the configuration on specific facts

// IsDangerous returns true if calls to the function are always reported
func (c Config) IsDangerous(name string) bool {
	return funcutil.Contains(c.DangerousFunctions, name)
}

// IsSink returns true if name is a sink of the taint analyses
func (c Config) IsSink(name string) bool {
	return funcutil.Contains(c.Sinks, name)
}

// IsSource returns true if name is a source of the taint analyses
func (c Config) IsSource(name string) bool {
	return funcutil.Contains(c.Sources, name)
}

// IsIgnored returns true if the detectors must not inspect name
func (c Config) IsIgnored(name string) bool {
	return funcutil.Contains(c.Ignore, name)
}

// IsWhitelisted returns true if name is never a sink
func (c Config) IsWhitelisted(name string) bool {
	return funcutil.Contains(c.WhiteList, name)
}

// IsMalloc returns true if name is an allocation function
func (c Config) IsMalloc(name string) bool {
	return funcutil.Contains(c.Malloc, name)
}

// DetectorEnabled returns true when the detector with the given name should run
func (c Config) DetectorEnabled(name string) bool {
	return len(c.Detectors) == 0 || funcutil.Contains(c.Detectors, name)
}

// TaintedSeeds returns the tainted parameters of each function as sets, keyed by function name
func (c Config) TaintedSeeds() map[string]map[int]bool {
	seeds := make(map[string]map[int]bool, len(c.Tainted))
	for name, spec := range c.Tainted {
		s := map[int]bool{}
		for _, p := range spec.Params {
			s[p] = true
		}
		seeds[name] = s
	}
	return seeds
}
