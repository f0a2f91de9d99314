// Package main provides the entry point for the StudyWave CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keczkasz/studywave/internal/source"
	"github.com/keczkasz/studywave/tts"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	cfg        tts.Config

	rootCmd = &cobra.Command{
		Use:   "studywave",
		Short: "Read study material aloud",
		Long: paragraph(
			fmt.Sprintf("\nRead notes, articles and books %s, in English or Polish.", keyword("out loud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
	}
)

// validateOptions reads the speech configuration once flags, the config
// file and the environment are all known.
func validateOptions(cmd *cobra.Command) error {
	if configFile != "" && configFile != viper.ConfigFileUsed() && cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	c, err := tts.LoadConfigFromViper()
	if err != nil {
		return err
	}
	cfg = c
	log.Debug("configuration loaded", "engine", cfg.Engine, "language", cfg.Language, "personality", cfg.Personality)
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// loadDocument resolves the document argument shared by the commands: the
// clipboard, an explicit path or "-", or a piped stdin.
func loadDocument(args []string, fromClipboard bool) (source.Document, error) {
	switch {
	case fromClipboard:
		return source.FromClipboard()
	case len(args) > 0:
		return source.Load(args[0])
	}

	if yes, err := stdinIsPipe(); err != nil {
		return source.Document{}, err
	} else if yes {
		return source.FromReader(os.Stdin, "")
	}
	return source.Document{}, errors.New("missing source: pass a file, - for stdin, or --clipboard")
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", configFile, fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringP("engine", "e", "", "speech engine (espeak, piper or mock)")
	rootCmd.PersistentFlags().StringP("language", "l", "", "document language (auto, en or pl)")

	// Config bindings
	_ = viper.BindPFlag("tts.engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("tts.language", rootCmd.PersistentFlags().Lookup("language"))

	viper.SetDefault("debug", false)
	tts.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(speakCmd, detectCmd, segmentsCmd, voicesCmd, historyCmd, cacheCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "studywave")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "studywave")}, dirs...)
	}

	if c := os.Getenv("STUDYWAVE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("studywave")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("studywave")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		configFile = used
		return
	}

	configFile = filepath.Join(dirs[0], "studywave.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}

// writeLine prints to w with CRLF endings, which raw terminals need.
func writeLine(w io.Writer, raw bool, format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if raw {
		s = strings.ReplaceAll(s, "\n", "\r\n")
	}
	_, _ = fmt.Fprint(w, s)
}
