package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pagelift/pagelift/pkg/claude"
	"github.com/pagelift/pagelift/pkg/extract"
	"github.com/pagelift/pagelift/pkg/extract/azure"
	"github.com/pagelift/pagelift/pkg/extract/tesseract"
	"github.com/pagelift/pagelift/pkg/extract/vision"
	"github.com/pagelift/pagelift/pkg/gemini"
	"github.com/pagelift/pagelift/pkg/ollama"
	"github.com/pagelift/pagelift/pkg/openai"
	"github.com/pagelift/pagelift/pkg/transcribe"
)

var RootCmd = &cobra.Command{
	Use:   "pagelift",
	Short: "Make scanned and handwritten PDFs searchable",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		ll, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}

		switch strings.ToUpper(ll) {
		case "DEBUG":
			level = slog.LevelDebug
		case "WARN":
			level = slog.LevelWarn
		case "ERROR":
			level = slog.LevelError
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		handler := slog.New(slog.NewTextHandler(os.Stdout, opts))
		slog.SetDefault(handler)

		return nil
	},
}

func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// newExtractorRegistry registers every geometry backend the build knows.
func newExtractorRegistry() *extract.Registry {
	registry := extract.NewRegistry()
	registry.Register(tesseract.New())
	registry.Register(vision.New())
	registry.Register(azure.New())
	return registry
}

// newTranscriberRegistry registers every vision-model backend the build knows.
func newTranscriberRegistry() *transcribe.Registry {
	registry := transcribe.NewRegistry()
	registry.Register(openai.New())
	registry.Register(claude.New())
	registry.Register(gemini.New())
	registry.Register(ollama.New())
	return registry
}

func init() {
	ll := os.Getenv("LOG_LEVEL")
	if ll == "" {
		ll = "INFO"
	}
	RootCmd.PersistentFlags().String("log-level", ll, "The logging level for the command")
}
