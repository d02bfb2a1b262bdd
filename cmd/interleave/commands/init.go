package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/interleave/internal/config"
	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory to write interleave.yaml into"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	if i.Output != "" {
		return RunInit(filepath.Join(i.Output, config.DefaultFile), i.Force)
	}
	return RunInit(root.Config, i.Force)
}

func RunInit(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "could not create config directory").
			WithContext("path", configPath).
			Build()
	}
	if err := os.WriteFile(configPath, []byte(config.Example), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "could not write config file").
			WithContext("path", configPath).
			Build()
	}
	fmt.Printf("Wrote %s\n", configPath)
	return nil
}
