package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keczkasz/studywave/tts"
)

const configHeader = `# StudyWave configuration.
#
# tts.engine: espeak, piper or mock
# tts.language: auto, en or pl
# tts.personality: see "studywave voices"
# tts.rate: 0.5 to 2.0
# tts.fallback: engine used when the primary keeps failing, empty to disable
# tts.piper.model_dir: directory holding piper .onnx voice models
# tts.cache.max_size: disk space for preprocessed documents, e.g. 64MB
#
# Set debug to true, or STUDYWAVE_LOGFILE, to write a log file.
debug: false

`

// defaultConfig renders the default configuration file.
func defaultConfig() ([]byte, error) {
	body, err := tts.EncodeYAML(tts.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return append([]byte(configHeader), body...), nil
}

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the studywave config file",
	Long:    paragraph(fmt.Sprintf("\n%s the studywave config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("studywave config\nstudywave config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("StudyWave", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		b, err := defaultConfig()
		if err != nil {
			return fmt.Errorf("unable to render config file: %w", err)
		}
		if err := os.WriteFile(configFile, b, 0o600); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
