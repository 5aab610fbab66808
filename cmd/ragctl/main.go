// Command ragctl runs retrieval and document maintenance from the shell.
package main

import (
	"os"

	"edurag/internal/config"
	"edurag/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
)

func main() {
	_ = godotenv.Load(".env")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Operate the edurag document pipeline",
	Long: `ragctl queries and maintains edurag knowledge bases.

Examples:
  # Retrieve context for a question from Postgres
  ragctl retrieve aula-1 "¿Cómo funciona la fotosíntesis?"

  # Retrieve from files ingested in memory, no services required
  ragctl retrieve aula-1 "fotosíntesis" --memory --file tema3.pdf --file apuntes.docx

  # Re-run processing for a document
  ragctl reprocess 3f2a9c1e-...`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("EDURAG_CONFIG"), "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
}

func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if !verbose {
		return cfg, zap.NewNop(), nil
	}
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
