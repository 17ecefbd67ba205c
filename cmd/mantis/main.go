package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mantis/internal/app"
	"mantis/internal/config"
	"mantis/internal/encryption"
	"mantis/internal/mantis"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy to process exit codes so scripts can
// tell bad input from a flaky remote.
func exitCode(err error) int {
	switch {
	case errors.Is(err, mantis.ErrInput):
		return 2
	case errors.Is(err, mantis.ErrState):
		return 3
	case errors.Is(err, mantis.ErrResource):
		return 4
	case errors.Is(err, mantis.ErrTransient):
		return 5
	default:
		return 1
	}
}

// newApp reads the config and creates an App. The caller must defer
// a.Close(). operation and parameters identify the command for run
// history.
func newApp(operation, parameters string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, operation, parameters, version)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// finish records err against the run before the deferred Close writes it
// out.
func finish(a *app.App, err error) error {
	if err != nil {
		a.Fail(err)
	}
	return err
}

// confirm asks the user to type y on an interactive terminal. Non-TTY
// invocations (cron, pipes) must pass --force instead.
func confirm(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, mantis.Tag(mantis.ErrInput,
			fmt.Errorf("not a terminal: re-run with --force to skip confirmation"))
	}
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

var rootCmd = &cobra.Command{
	Use:           "mantis",
	Short:         "Media file lifecycle tool",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive [PATH]",
	Short: "Bundle media files into size-bounded zip archives",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		library, _ := cmd.Flags().GetString("library")
		keyword, _ := cmd.Flags().GetString("keyword")
		upload, _ := cmd.Flags().GetBool("upload")

		a, err := newApp("Archive", strings.Join(args, " "))
		if err != nil {
			return err
		}
		defer a.Close()

		source := a.Dirs().MediaInbox
		if len(args) > 0 {
			if source, err = filepath.Abs(args[0]); err != nil {
				return finish(a, fmt.Errorf("resolving path: %w", err))
			}
		}

		result, err := a.Archive(cmd.Context(), source, library, keyword, upload)
		if err != nil {
			return finish(a, err)
		}

		if len(result.Artifacts) == 0 {
			fmt.Println("No media files found.")
			return nil
		}
		fmt.Printf("Packed %d bundle(s) under word %q:\n", len(result.Artifacts), result.Word)
		for _, artifact := range result.Artifacts {
			fmt.Printf("  %s\n", artifact)
		}
		if upload {
			fmt.Printf("Uploaded %d bundle(s)\n", len(result.UploadedKeys))
		}
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import [PATH]",
	Short: "Import media into the library tree",
	Long: `Import media into the date-partitioned library tree.

With PATH, imports that local directory. Without PATH, downloads and
imports every pending bundle from the configured S3 bucket.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args, false)
	},
}

// unimport command
var unimportCmd = &cobra.Command{
	Use:   "unimport [PATH]",
	Short: "Remove previously imported copies from the library tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args, true)
	},
}

func runImport(cmd *cobra.Command, args []string, unimport bool) error {
	library, _ := cmd.Flags().GetString("library")
	filterArg, _ := cmd.Flags().GetString("filter")
	list, _ := cmd.Flags().GetBool("list")
	force, _ := cmd.Flags().GetBool("force")

	operation := "Import"
	if unimport {
		operation = "Unimport"
	}
	a, err := newApp(operation, strings.Join(args, " "))
	if err != nil {
		return err
	}
	defer a.Close()

	// Local directory mode.
	if len(args) > 0 {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return finish(a, fmt.Errorf("resolving path: %w", err))
		}
		result, err := a.Import(dir, library, unimport)
		if err != nil {
			return finish(a, err)
		}
		printRunResults(result)
		return nil
	}

	// Bucket mode.
	var filters []string
	for _, f := range strings.Split(filterArg, ",") {
		if f = strings.TrimSpace(f); f != "" {
			filters = append(filters, f)
		}
	}

	if list {
		keys, err := a.ListPendingImports(cmd.Context(), filters)
		if err != nil {
			return finish(a, err)
		}
		if len(keys) == 0 {
			fmt.Println("No pending bundles.")
			return nil
		}
		for _, key := range keys {
			fmt.Println(key)
		}
		return nil
	}

	if unimport && !force {
		ok, err := confirm("Remove previously imported media from the library?")
		if err != nil {
			return finish(a, err)
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	summary, err := a.ProcessS3Imports(cmd.Context(), filters, library, unimport)
	if err != nil {
		return finish(a, err)
	}
	fmt.Printf("Processed %d bundle(s): %d succeeded, %d failed\n",
		len(summary.Pending), len(summary.Succeeded), len(summary.Failed))
	for _, res := range summary.Failed {
		fmt.Printf("  FAILED %s: %v\n", res.Key, res.Err)
	}
	if len(summary.Failed) > 0 {
		return finish(a, mantis.Tag(mantis.ErrState,
			fmt.Errorf("%d bundle(s) failed", len(summary.Failed))))
	}
	return nil
}

func printRunResults(result *mantis.ImportResult) {
	r := result.Results
	fmt.Printf("Library: %s\n", result.Library)
	fmt.Printf("Imported:         %d (%d pictures, %d movies, %d audio)\n",
		r.TotalImportCount, r.PictureImportCount, r.MovieImportCount, r.AudioImportCount)
	fmt.Printf("Already imported: %d\n", r.AlreadyImportedCount)
	fmt.Printf("Not imported:     %d\n", r.NotImportedCount)
	if r.UnimportedCount > 0 {
		fmt.Printf("Unimported:       %d\n", r.UnimportedCount)
	}
	fmt.Printf("Manifest: %s\n", result.ManifestPath)
}

// rearchive command
var rearchiveCmd = &cobra.Command{
	Use:   "rearchive",
	Short: "Re-bundle archives queued in the re-archive ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		library, _ := cmd.Flags().GetString("library")

		a, err := newApp("ReArchive", "")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.ReArchive(cmd.Context(), library)
		if err != nil {
			return finish(a, err)
		}
		fmt.Printf("Re-archived %d of %d bundle(s)\n", len(summary.Succeeded), len(summary.Pending))
		for _, res := range summary.Failed {
			fmt.Printf("  FAILED %s: %v\n", res.Key, res.Err)
		}
		if len(summary.Failed) > 0 {
			return finish(a, mantis.Tag(mantis.ErrState,
				fmt.Errorf("%d bundle(s) failed", len(summary.Failed))))
		}
		return nil
	},
}

// mega command
var megaCmd = &cobra.Command{
	Use:   "mega",
	Short: "Reconcile imported media with the MEGA remote",
}

var megaSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload completed imports missing from the remote",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MegaSync", "")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.MegaSync(cmd.Context())
		if err != nil {
			return finish(a, err)
		}
		fmt.Printf("Uploaded %d, already present %d, skipped %d, failed %d\n",
			len(report.Uploaded), len(report.AlreadyPresent), len(report.Foreign), len(report.Failed))
		for _, p := range report.Failed {
			fmt.Printf("  FAILED %s\n", p)
		}
		if len(report.Failed) > 0 {
			return finish(a, mantis.Tag(mantis.ErrTransient,
				fmt.Errorf("%d upload(s) failed", len(report.Failed))))
		}
		return nil
	},
}

var megaKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Terminate the MEGAcmd session server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MegaKill", "")
		if err != nil {
			return err
		}
		defer a.Close()
		return finish(a, a.MegaKill(cmd.Context()))
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}

		cfg := config.NewConfig(hostID, home)
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID:    %s\n", hostID)
		fmt.Printf("Media Root: %s\n", home)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:     %s\n", cfg.HostID)
		fmt.Printf("Media Root:  %s\n", cfg.MediaRoot)
		fmt.Printf("Media Inbox: %s\n", cfg.MediaInbox)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("S3 Bucket:   %s\n", cfg.S3.Bucket)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		fmt.Printf("Mega Root:   %s\n", cfg.Mega.Root)
		return nil
	},
}

var configKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an age key pair for bundle encryption",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if cfg.Encryption.RecipientPath == "" || cfg.Encryption.IdentityPath == "" {
			return mantis.Tag(mantis.ErrInput,
				fmt.Errorf("encryption recipient_path and identity_path must be configured"))
		}

		enc := encryption.NewAgeEncryptor(cfg.Encryption.RecipientPath, cfg.Encryption.IdentityPath)
		if err := enc.Setup(); err != nil {
			return fmt.Errorf("generating key pair: %w", err)
		}
		fmt.Printf("Recipient written to %s\n", cfg.Encryption.RecipientPath)
		fmt.Printf("Identity written to %s (keep this private)\n", cfg.Encryption.IdentityPath)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History", "")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return finish(a, err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		for _, run := range runs {
			duration := ""
			if run.FinishedAt != nil {
				duration = run.FinishedAt.Sub(run.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %-12s  %s  %-9s  %s\n",
				run.ID[:8],
				run.Operation,
				run.StartedAt.Format("2006-01-02 15:04:05"),
				run.Status,
				duration,
			)
		}
		return nil
	},
}

// version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mantis version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	archiveCmd.Flags().String("library", "", "Library the bundles belong to")
	archiveCmd.Flags().String("keyword", "", "Pin the bundle identity word instead of picking one")
	archiveCmd.Flags().Bool("upload", false, "Upload packed bundles to S3")
	rootCmd.AddCommand(archiveCmd)

	for _, c := range []*cobra.Command{importCmd, unimportCmd} {
		c.Flags().String("library", "", "Override the library recorded in the bundle")
		c.Flags().String("filter", "", "Comma-separated substrings to match bundle keys")
		c.Flags().Bool("list", false, "List pending bundles without processing")
		c.Flags().Bool("force", false, "Skip the confirmation prompt")
		rootCmd.AddCommand(c)
	}

	rearchiveCmd.Flags().String("library", "", "Library for the re-bundled archives")
	rootCmd.AddCommand(rearchiveCmd)

	megaCmd.AddCommand(megaSyncCmd)
	megaCmd.AddCommand(megaKillCmd)
	rootCmd.AddCommand(megaCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeygenCmd)
	rootCmd.AddCommand(configCmd)

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(historyCmd)

	rootCmd.AddCommand(versionCmd)
}
