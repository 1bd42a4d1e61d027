package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dvloznov/statement-converter/internal/config"
	"github.com/dvloznov/statement-converter/internal/export"
	"github.com/dvloznov/statement-converter/internal/gcs"
	"github.com/dvloznov/statement-converter/internal/logger"
	"github.com/dvloznov/statement-converter/internal/pdftext"
	"github.com/dvloznov/statement-converter/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	envFile   string
	logLevel  string
	logFormat string
	timeout   time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "statement-converter",
		Short:         "Convert bank statement PDFs into spreadsheets",
		Long:          `Extracts the text of a bank statement PDF, asks Gemini for its transactions and writes them to an .xlsx file.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file to load")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: console or json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")

	rootCmd.AddCommand(newConvertCmd(), newExtractCmd())
	return rootCmd
}

func newConvertCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "convert <file.pdf|gs://bucket/file.pdf>",
		Short: "Convert a statement PDF into an .xlsx spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args[0], out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", ".", "Output directory, gs://bucket/prefix, or - for stdout")
	return cmd
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file.pdf|gs://bucket/file.pdf>",
		Short: "Print the text extracted from a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, log, _, err := setup(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			stores := &lazyStore{}
			defer stores.Close()

			_, data, err := readInput(ctx, args[0], stores.get)
			if err != nil {
				return err
			}

			text, err := pdftext.NewExtractor().ExtractText(ctx, data)
			if err != nil {
				log.Error().Err(err).Str("input", args[0]).Msg("Extraction failed")
				return err
			}

			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func runConvert(cmd *cobra.Command, input, out string) error {
	ctx, cancel, log, cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	if err := cfg.Validate(); err != nil {
		return err
	}

	stores := &lazyStore{}
	defer stores.Close()

	name, data, err := readInput(ctx, input, stores.get)
	if err != nil {
		return err
	}

	client, err := pipeline.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return err
	}

	parser := pipeline.NewGeminiParser(client.Models, cfg.GeminiModel, nil)
	ctrl := pipeline.NewController(pipeline.NewConversionPipeline(pdftext.NewExtractor(), parser), nil)
	ctrl.SetTransitionHook(func(from, to pipeline.Status) {
		log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("Status changed")
	})

	if err := ctrl.SelectFile(name, data); err != nil {
		return err
	}
	if err := ctrl.Process(ctx); err != nil {
		st := ctrl.State()
		return errors.New(st.ErrorMessage)
	}

	sink, describe, err := resolveSink(out, cmd.OutOrStdout(), stores.get)
	if err != nil {
		return err
	}

	txs := ctrl.State().Transactions
	filename, err := export.NewExporter(sink).Export(ctx, txs)
	if err != nil {
		return err
	}

	if out != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d transactions written to %s\n", len(txs), describe(filename))
	}
	return nil
}

// setup loads configuration, builds the logger and the command context.
func setup(cmd *cobra.Command) (context.Context, context.CancelFunc, zerolog.Logger, *config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, zerolog.Nop(), nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	log := logger.NewFromConfig(cmd.ErrOrStderr(), level, logFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	cancel := func() {
		cancelTimeout()
		stop()
	}

	return logger.WithContext(ctx, log), cancel, log, cfg, nil
}

// lazyStore opens a Cloud Storage client on first use.
type lazyStore struct {
	client *gcs.Client
}

func (l *lazyStore) get(ctx context.Context) (gcs.ObjectStore, error) {
	if l.client == nil {
		c, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		l.client = c
	}
	return l.client, nil
}

func (l *lazyStore) Close() {
	if l.client != nil {
		_ = l.client.Close()
	}
}

type storeFunc func(ctx context.Context) (gcs.ObjectStore, error)

// readInput loads the PDF from a local path or a gs:// URI.
func readInput(ctx context.Context, src string, store storeFunc) (string, []byte, error) {
	if gcs.IsURI(src) {
		s, err := store(ctx)
		if err != nil {
			return "", nil, err
		}
		data, err := s.Fetch(ctx, src)
		if err != nil {
			return "", nil, err
		}
		return gcs.FilenameFromURI(src), data, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return "", nil, fmt.Errorf("read %q: %w", src, err)
	}
	return filepath.Base(src), data, nil
}

// resolveSink picks where the spreadsheet goes. describe turns a filename
// into a location for the summary line.
func resolveSink(out string, stdout io.Writer, store storeFunc) (export.FileSink, func(string) string, error) {
	switch {
	case out == "-":
		return export.WriterSink{W: stdout}, func(name string) string { return name }, nil

	case gcs.IsURI(out):
		s, err := store(context.Background())
		if err != nil {
			return nil, nil, err
		}
		sink, err := gcs.NewSink(s, out)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.URI, nil

	default:
		return export.DirSink{Dir: out}, func(name string) string { return filepath.Join(out, name) }, nil
	}
}
