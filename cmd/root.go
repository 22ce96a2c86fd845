package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/streamvibe/streamvibe/internal/store"
	"github.com/streamvibe/streamvibe/internal/view"
)

var rootCmdPersistentFlags struct {
	LogFile    string
	ConfigFile string
	LogLevel   string
	Env        string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogFile, "log-file", "", "File to write logs to")
	rootCmd.PersistentFlags().StringVarP(&rootCmdPersistentFlags.ConfigFile, "config", "c", "", "Path to config file (default: search for config.yml in current dir, ~/.streamvibe, /etc/streamvibe)")
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogLevel, "log-level", "", "Log level (debug, info, warn, error) - overrides config file setting")
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.Env, "env", "", "Environment mode (development, production) - overrides config file setting")
}

var rootCmd = &cobra.Command{
	Use:   "streamvibe",
	Short: "StreamVibe is a media sharing client for images and videos",
	Long:  `StreamVibe lets you browse, search, upload, rate and comment on images and videos shared by creators.`,
	Example: `streamvibe login --email ada@example.com --password secret
  streamvibe gallery --page 2
  streamvibe search sunset
  streamvibe -c /path/to/config.yml --log-level debug show 64f1c0ffee`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if rootCmdPersistentFlags.LogLevel != "" {
			setLogLevel(rootCmdPersistentFlags.LogLevel)
		}
		logToFile()
	},
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Warnf("unknown log level %s, defaulting to info", level)
		log.SetLevel(log.InfoLevel)
	}
}

func logToFile() {
	if rootCmdPersistentFlags.LogFile == "" {
		return
	}
	file, err := os.OpenFile(rootCmdPersistentFlags.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		log.Errorf("failed to open log file: %v", err)
		return
	}

	// Create a multi-writer that writes to both console and file
	multiWriter := io.MultiWriter(os.Stderr, file)
	log.SetOutput(multiWriter)
	log.Debug("logging to both console and file", "file", rootCmdPersistentFlags.LogFile)
}

// Root returns the root command.
func Root() *cobra.Command {
	return rootCmd
}

// ErrorHandler renders command errors as a banner.
// Local validation failures are followed by a hint about the offending flag.
func ErrorHandler(w io.Writer, _ fang.Styles, err error) {
	fmt.Fprintln(w, view.ErrorBanner(err))

	var ve *store.ValidationError
	if errors.As(err, &ve) {
		if hint, ok := validationHints[ve.Field]; ok {
			fmt.Fprintln(w, view.Subtle(hint))
		}
	}
}

var validationHints = map[string]string{
	"email":    "check the --email flag",
	"password": "check the --password flag",
	"name":     "check the --name flag",
	"role":     "use --role creator or --role consumer",
	"title":    "check the --title flag",
	"type":     "use --type image or --type video",
	"media":    "pass the file to upload as the first argument",
	"text":     "check the --comment flag",
	"value":    "use --rate with a value from 0.5 to 5",
}
