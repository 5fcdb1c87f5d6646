// Package manifest handles suite TOML configuration for the check command.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Suite is a checklist of Assembunny programs with expected results.
type Suite struct {
	Run    []RunCase    `toml:"run"`
	Signal []SignalCase `toml:"signal"`

	// Dir is the directory containing the suite file (set at load time).
	Dir string `toml:"-"`
}

// RunCase runs a program to halt and compares the final registers.
type RunCase struct {
	Program   string         `toml:"program"`
	Registers map[string]int `toml:"registers"`
	Expect    map[string]int `toml:"expect"`
}

// SignalCase searches for the minimal clock-signal seed of a program.
type SignalCase struct {
	Program string `toml:"program"`
	Limit   int    `toml:"limit"`
	Expect  int    `toml:"expect"`
}

// Load parses a suite TOML file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var suite Suite
	if err := toml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	suite.Dir = filepath.Dir(path)

	return &suite, nil
}

// Path resolves a program path relative to the suite file's directory.
func (suite *Suite) Path(program string) string {
	if filepath.IsAbs(program) {
		return program
	}

	return filepath.Join(suite.Dir, program)
}
