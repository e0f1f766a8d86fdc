package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScriptSink persists the extracted code to one fixed-name file inside the
// workspace. Overwrite semantics are intentional: there is a single current
// artifact, and history lives in the run store instead.
type ScriptSink struct {
	Dir      string
	Filename string
}

// DefaultScriptName matches the original artifact name operators know.
const DefaultScriptName = "generated_script.py"

// Path returns the absolute path the sink writes to.
func (s *ScriptSink) Path() (string, error) {
	name := s.Filename
	if name == "" {
		name = DefaultScriptName
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("resolve script path: %w", err)
	}
	return abs, nil
}

// Write stores the code, replacing any previous artifact, and returns the
// written path. A trailing newline is ensured so the file is runnable as-is.
func (s *ScriptSink) Write(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("refusing to write empty script")
	}
	path, err := s.Path()
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(code, "\n") {
		code += "\n"
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	return path, nil
}
