package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"compgen/internal/config"
	"compgen/internal/crawler"
	"compgen/internal/git"
	"compgen/internal/index"
	"compgen/internal/logging"
	"compgen/internal/pipeline"
	"compgen/internal/pkgmeta"
	"compgen/internal/registry"
	"compgen/internal/source"
	"compgen/internal/storage"
	"compgen/internal/syntax"
)

var (
	rootCmd = &cobra.Command{
		Use:   "compgen",
		Short: "Generate component registries from TypeScript declaration files",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd)
			return logging.Initialize(cfg.Log.JSON, cfg.Log.Level)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
		SilenceUsage: true,
	}

	cfg        *config.Config
	configPath string
	dbPath     string
	outDir     string
	ignore     []string
	lenient    bool
	keepGoing  bool
	since      string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "compgen.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&ignore, "ignore", nil, "Class or interface names to leave out (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&lenient, "lenient", false, "Downgrade unsupported type shapes to wildcards")

	generateCmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database recording generated registries")
	generateCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory receiving the registry documents")
	generateCmd.Flags().BoolVar(&keepGoing, "continue-on-error", false, "Skip failing components instead of aborting")
	generateCmd.Flags().StringVar(&since, "since", "", "Only regenerate packages with declaration files changed since this git revision")
	indexCmd.Flags().StringVarP(&outDir, "out", "o", "", "Write the index summary to this file instead of stdout")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(exportsCmd)
	rootCmd.AddCommand(indexCmd)
}

// applyFlags lets explicitly set flags win over the configuration file.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("ignore") {
		cfg.IgnoreClasses = append(cfg.IgnoreClasses, ignore...)
	}
	if flags.Changed("lenient") {
		cfg.Lenient = lenient
	}
	if flags.Changed("db") {
		cfg.DB = dbPath
	}
	if flags.Changed("out") && cmd.Name() == generateCmd.Name() {
		cfg.Output = outDir
	}
	if flags.Changed("continue-on-error") {
		cfg.ContinueOnError = keepGoing
	}
}

func options(batch []string) pipeline.Options {
	return pipeline.Options{
		Ignore:          cfg.IgnoreSet(),
		Lenient:         cfg.Lenient,
		ContinueOnError: cfg.ContinueOnError,
		Concurrency:     cfg.Concurrency,
		Batch:           batch,
	}
}

func loadPackage(ctx context.Context, provider source.Provider, args []string) (*pkgmeta.Package, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	return pkgmeta.LoadPackage(ctx, provider, dir)
}

var generateCmd = &cobra.Command{
	Use:   "generate [dirs...]",
	Short: "Generate a component registry for every package found under the given directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dirs := args
		if len(dirs) == 0 {
			dirs = cfg.Packages
		}
		if len(dirs) == 0 {
			dirs = []string{"."}
		}

		provider := source.NewFS()
		cr := crawler.NewCrawler(provider)
		var packages []*pkgmeta.Package
		for _, dir := range dirs {
			found, err := cr.FindPackages(ctx, dir)
			if err != nil {
				return err
			}
			packages = append(packages, found...)
		}
		if len(packages) == 0 {
			fmt.Println("✅ No packages found.")
			return nil
		}

		batch := make([]string, 0, len(packages))
		for _, pkg := range packages {
			batch = append(batch, pkg.Name)
		}

		var store storage.Store
		if cfg.DB != "" {
			s, err := storage.NewSQLiteStore(cfg.DB)
			if err != nil {
				return errors.Wrap(err, "failed to initialize database")
			}
			defer s.Close()
			store = s
		}

		if since != "" {
			changes, err := git.ChangedDeclarations(ctx, ".", since)
			if err != nil {
				return err
			}
			fmt.Printf("📝 Detected %d changed declaration files.\n", len(changes))
			if packages, err = filterChanged(ctx, store, packages, changes); err != nil {
				return err
			}
			if len(packages) == 0 {
				fmt.Println("✅ No packages affected.")
				return nil
			}
		}

		cache, err := syntax.NewCache(provider, cfg.CacheSize)
		if err != nil {
			return err
		}

		gen := pipeline.NewGenerator(cache, options(batch))
		start := time.Now()
		for _, pkg := range packages {
			result, err := gen.Run(ctx, pkg)
			if err != nil {
				return errors.Wrapf(err, "failed to generate %s", pkg.Name)
			}

			path, err := registry.Write(cfg.Output, result.Registry)
			if err != nil {
				return err
			}
			fmt.Printf("📦 %s: %d components -> %s\n", pkg.Name, len(result.Classes), path)
			for name, skipErr := range result.Skipped {
				fmt.Printf("  ⚠️  skipped %s: %v\n", name, skipErr)
			}
			for _, w := range result.Warnings {
				fmt.Printf("  ⚠️  %s\n", w)
			}

			if store == nil {
				continue
			}
			if err := store.SaveRegistry(ctx, result.Registry); err != nil {
				return err
			}
			reportUnpublished(ctx, store, result.External)
		}
		fmt.Printf("✨ Generated %d packages in %v.\n", len(packages), time.Since(start))
		return nil
	},
}

// reportUnpublished lists external packages for which no registry was generated yet.
func reportUnpublished(ctx context.Context, store storage.Store, external []string) {
	if len(external) == 0 {
		return
	}
	published, err := store.PublishedPackages(ctx, external)
	if err != nil {
		logging.Logger.Warnw("failed to look up external packages", "error", err)
		return
	}
	known := make(map[string]struct{}, len(published))
	for _, name := range published {
		known[name] = struct{}{}
	}
	for _, name := range external {
		if _, ok := known[name]; !ok {
			fmt.Printf("  🔗 external package %s has no registry yet\n", name)
		}
	}
}

var exportsCmd = &cobra.Command{
	Use:   "exports [dir]",
	Short: "Print the export surface of a package",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		provider := source.NewFS()
		pkg, err := loadPackage(ctx, provider, args)
		if err != nil {
			return err
		}
		cache, err := syntax.NewCache(provider, cfg.CacheSize)
		if err != nil {
			return err
		}
		rc := pipeline.NewContext(cache, options(nil))
		exports, err := rc.Loader.ExportSurface(ctx, pkg.Name, pkg.Types)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(exports))
		for name := range exports {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s\t%s\n", name, exports[name])
		}
		return nil
	},
}

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Print the class and interface chains exported by a package",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		provider := source.NewFS()
		pkg, err := loadPackage(ctx, provider, args)
		if err != nil {
			return err
		}
		cache, err := syntax.NewCache(provider, cfg.CacheSize)
		if err != nil {
			return err
		}
		rc := pipeline.NewContext(cache, options(nil))
		exports, err := rc.Loader.ExportSurface(ctx, pkg.Name, pkg.Types)
		if err != nil {
			return err
		}
		idx, err := rc.Indexer.BuildIndex(ctx, exports)
		if err != nil {
			return err
		}

		if outDir != "" {
			if err := index.SaveIndex(idx, outDir); err != nil {
				return err
			}
			fmt.Printf("💾 Saved %d entries to %s\n", len(idx), outDir)
			return nil
		}
		for _, s := range index.Summarize(idx) {
			line := fmt.Sprintf("%s\t%s\t%s", s.Name, s.Kind, s.File)
			if s.SuperClass != "" {
				line += "\textends " + s.SuperClass
			}
			fmt.Println(line)
		}
		return nil
	},
}
