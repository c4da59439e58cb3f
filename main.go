// trad — keeps per-locale translation bundles in sync with a canonical
// source-language phrase catalog, translating changes through the Azure
// Translator API while preserving human-corrected entries.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/malinali-app/trad/internal/adapters/bundle/catalog"
	"github.com/malinali-app/trad/internal/adapters/bundle/flatjson"
	dbsqlite "github.com/malinali-app/trad/internal/adapters/db/sqlite"
	"github.com/malinali-app/trad/internal/adapters/translator/azure"
	"github.com/malinali-app/trad/internal/config"
	"github.com/malinali-app/trad/internal/domain"
	"github.com/malinali-app/trad/internal/usecase/export"
	"github.com/malinali-app/trad/internal/usecase/override"
	syncusecase "github.com/malinali-app/trad/internal/usecase/sync"
	translatorusecase "github.com/malinali-app/trad/internal/usecase/translator"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
)

var (
	tagInfo  = color.New(color.FgBlue).Sprint("[INFO]")
	tagOK    = color.New(color.FgGreen).Sprint("[OK]")
	tagWarn  = color.New(color.FgYellow).Sprint("[WARN]")
	tagError = color.New(color.FgRed).Sprint("[ERROR]")
)

func logInfo(format string, args ...any)    { fmt.Fprintf(os.Stderr, tagInfo+" "+format+"\n", args...) }
func logSuccess(format string, args ...any) { fmt.Fprintf(os.Stderr, tagOK+" "+format+"\n", args...) }
func logWarning(format string, args ...any) { fmt.Fprintf(os.Stderr, tagWarn+" "+format+"\n", args...) }
func logError(format string, args ...any)   { fmt.Fprintf(os.Stderr, tagError+" "+format+"\n", args...) }

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trad",
		Short: "Incremental translation sync against Azure Translator",
		Long: `trad keeps per-locale bundle files in sync with a canonical source
phrase catalog. Only new or changed phrases are sent to the translation
service; entries marked manual are never overwritten.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "trad.yaml", "Path to config file")
	root.AddCommand(
		newSyncCmd(),
		newManualCmd(),
		newExportCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// openStore initializes the database and both repositories.
func openStore(cfg config.Config) (*sql.DB, *dbsqlite.PhraseRepo, *dbsqlite.TranslationRepo, error) {
	db, err := dbsqlite.Init(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return db, dbsqlite.NewPhraseRepo(db), dbsqlite.NewTranslationRepo(db), nil
}

func loadCatalog(path string) ([]domain.Entry, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog: %w", err)
	}
	return catalog.New().Parse(data)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newSyncCmd() *cobra.Command {
	var (
		force   bool
		source  string
		locales []string
		outDir  string
		apiKey  string
		region  string
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Diff the catalog against the store and translate what changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if source == "" {
				source = cfg.Catalog
			}
			if len(locales) == 0 {
				locales = cfg.Locales
			}
			if outDir == "" {
				outDir = cfg.OutDir
			}
			if len(locales) == 0 {
				return errors.New("no target locales configured")
			}
			key := cfg.ResolveAPIKey(apiKey)
			if key == "" {
				return fmt.Errorf("no API key: set --api-key, %s, or azure.api_key", config.EnvAPIKey)
			}
			if region == "" {
				region = cfg.Azure.Region
			}

			entries, metadata, err := loadCatalog(source)
			if err != nil {
				return err
			}
			db, phrases, translations, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			oracle := azure.New(key, region, cfg.Azure.Endpoint)
			svc := syncusecase.New(syncusecase.Deps{
				Phrases:      phrases,
				Translations: translations,
				Batch:        translatorusecase.New(oracle),
				Export:       export.New(outDir, flatjson.New()),
			})

			ctx, cancel := signalContext()
			defer cancel()
			report, err := svc.Run(ctx, syncusecase.Params{
				Entries:      entries,
				Metadata:     metadata,
				SourceLocale: cfg.SourceLocale,
				Locales:      locales,
				Force:        force,
				Batch: translatorusecase.Options{
					BatchSize:  cfg.Batch.Size,
					MaxRetries: cfg.Batch.MaxRetries,
					RetryBase:  time.Duration(cfg.Batch.RetryBase),
					BatchPause: time.Duration(cfg.Batch.Pause),
				},
				OnLog: logInfo,
			})
			printReport(report)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Retranslate every phrase, not just changes")
	cmd.Flags().StringVar(&source, "source", "", "Source catalog file (default from config)")
	cmd.Flags().StringSliceVar(&locales, "locales", nil, "Target locales (default from config)")
	cmd.Flags().StringVar(&outDir, "out", "", "Bundle output directory (default from config)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Azure Translator API key")
	cmd.Flags().StringVar(&region, "region", "", "Azure Translator region")
	return cmd
}

func printReport(r domain.SyncReport) {
	if r.NoChanges {
		logSuccess("no changes — store is up to date")
		return
	}
	logInfo("%d phrase(s) diffed", r.Diffed)
	for _, lr := range r.Locales {
		switch {
		case lr.Err != nil:
			logError("%s: aborted: %v", lr.Locale, lr.Err)
		case len(lr.FailedKeys) > 0:
			logWarning("%s: %d translated, %d manual kept, %d failed: %s",
				lr.Locale, lr.Translated, lr.SkippedManual, len(lr.FailedKeys), strings.Join(lr.FailedKeys, ", "))
		default:
			logSuccess("%s: %d translated, %d manual kept", lr.Locale, lr.Translated, lr.SkippedManual)
		}
	}
	logInfo("done in %s", r.Elapsed.Round(time.Millisecond))
}

func newManualCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manual <locale> <key>...",
		Short: "Mark translations as manual so sync never overwrites them",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, _, translations, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			ctx, cancel := signalContext()
			defer cancel()
			locale := args[0]
			failed := 0
			for _, res := range override.New(translations).MarkManual(ctx, locale, args[1:]...) {
				if res.Err != nil {
					failed++
					logError("%s/%s: %v", locale, res.Key, res.Err)
					continue
				}
				logSuccess("%s/%s marked manual", locale, res.Key)
			}
			if failed > 0 {
				return fmt.Errorf("%d key(s) could not be marked", failed)
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var locales []string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Re-emit locale bundles from the store without translating",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if len(locales) == 0 {
				locales = cfg.Locales
			}
			db, _, translations, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			// Metadata keys ride along from the catalog when present.
			var metadata map[string]string
			if _, md, err := loadCatalog(cfg.Catalog); err == nil {
				metadata = md
			}
			svc := export.New(cfg.OutDir, flatjson.New())
			ctx, cancel := signalContext()
			defer cancel()
			for _, locale := range locales {
				n, err := svc.ExportLocale(ctx, translations, locale, metadata)
				if err != nil {
					return err
				}
				logSuccess("%s: %d entries -> %s", locale, n, svc.BundlePath(locale))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&locales, "locales", nil, "Locales to export (default from config)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store counts per locale",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, phrases, translations, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			ctx, cancel := signalContext()
			defer cancel()
			total, err := phrases.Count(ctx)
			if err != nil {
				return err
			}
			counts, err := translations.CountByLocale(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("source phrases: %d\n", total)
			for _, locale := range cfg.Locales {
				fmt.Printf("  %-8s %d/%d\n", locale, counts[locale], total)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("trad %s (%s)\n", version, commit)
		},
	}
}
