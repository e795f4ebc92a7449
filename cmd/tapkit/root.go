package main

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/arthur-debert/tapkit/internal/version"
	"github.com/arthur-debert/tapkit/pkg/cobrax/topics"
	"github.com/arthur-debert/tapkit/pkg/config"
	"github.com/arthur-debert/tapkit/pkg/datastore"
	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/fetch"
	"github.com/arthur-debert/tapkit/pkg/filesystem"
	"github.com/arthur-debert/tapkit/pkg/installer"
	"github.com/arthur-debert/tapkit/pkg/logging"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/arthur-debert/tapkit/pkg/recipe"
	"github.com/arthur-debert/tapkit/pkg/style"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed help
var helpFiles embed.FS

// skipSetup marks commands that run without config, logging or state
const skipSetup = "tapkit/skip-setup"

// app is the state shared by all commands of one invocation
type app struct {
	verbosity  int
	configFile string
	formatFlag string
	format     style.Format

	paths  paths.Paths
	config *config.Config
	fs     filesystem.FS
	store  *datastore.Store

	// downloader is used for recipes and artifacts; nil means a
	// fetch.Client with the configured timeout
	downloader fetch.Downloader
}

// flagKeys maps command-line flags to the config keys they override
var flagKeys = map[string]string{
	"prefix":         "install.prefix",
	"timeout":        "install.timeout",
	"keep-workspace": "install.keep_workspace",
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "tapkit",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format, err := style.ParseFormat(a.formatFlag)
			if err != nil {
				return err
			}
			a.format = style.Apply(format, os.Stdout)
			if cmd.Annotations[skipSetup] != "" {
				return nil
			}
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf(MsgErrNoCommand)
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().StringVar(&a.formatFlag, "format", "auto", MsgFlagFormat)

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "COMMANDS:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISC:"})

	rootCmd.AddCommand(newInstallCmd(a))
	rootCmd.AddCommand(newUninstallCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newInfoCmd(a))
	rootCmd.AddCommand(newTestCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	helpFS, err := fs.Sub(helpFiles, "help")
	if err == nil {
		_, err = topics.Initialize(rootCmd, helpFS, topics.Options{
			Extensions: []string{".txt", ".md"},
			Renderer:   style.NewMarkdownRenderer(),
		})
	}
	if err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
	}

	return rootCmd
}

// setup resolves paths and config, then configures logging
func (a *app) setup(cmd *cobra.Command) error {
	p, err := paths.New()
	if err != nil {
		return fmt.Errorf(MsgErrInitPaths, err)
	}

	opts := config.Options{ConfigFile: p.ConfigFilePath()}
	if a.configFile != "" {
		opts.ConfigFile = paths.ExpandHome(a.configFile)
		opts.Explicit = true
	}
	opts.Overrides = flagOverrides(cmd)

	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = p.LogFilePath()
	}
	logging.SetupLogger(a.verbosity, paths.ExpandHome(logFile))
	log.Debug().Str("command", cmd.Name()).Msg("Command started")

	a.paths = p
	a.config = cfg
	if a.fs == nil {
		a.fs = filesystem.NewOS()
	}
	a.store = datastore.New(a.fs, p)
	return nil
}

// flagOverrides collects the config overrides of flags set on cmd
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	overrides := map[string]interface{}{}
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}
	if f := cmd.Flags().Lookup("no-verify"); f != nil && f.Changed && f.Value.String() == "true" {
		overrides["verify.enabled"] = false
	}
	return overrides
}

func (a *app) fetcher() fetch.Downloader {
	if a.downloader != nil {
		return a.downloader
	}
	return fetch.NewClient(a.config.Install.Timeout)
}

func (a *app) loader() *recipe.Loader {
	return recipe.NewLoader(a.fs, a.fetcher())
}

// prefix resolves the configured install prefix
func (a *app) prefix() (paths.Prefix, error) {
	return paths.NewPrefix(a.config.Install.Prefix)
}

// installer builds an Installer from the resolved config
func (a *app) installer(onStage func(installer.Stage)) (*installer.Installer, error) {
	prefix, err := a.prefix()
	if err != nil {
		return nil, err
	}
	return installer.New(installer.Options{
		Prefix:        prefix,
		Store:         a.store,
		Downloader:    a.fetcher(),
		Timeout:       a.config.Install.Timeout,
		Verify:        a.config.Verify.Enabled,
		VerifyTimeout: a.config.Verify.Timeout,
		KeepWorkspace: a.config.Install.KeepWorkspace,
		FS:            a.fs,
		OnStage:       onStage,
	})
}

// errorDetailKeys are the details shown under an error, in order
var errorDetailKeys = []string{
	errors.DetailRecipe,
	errors.DetailVersion,
	errors.DetailStage,
	errors.DetailAction,
	errors.DetailPath,
	errors.DetailKind,
	"platform",
	"available",
	"expect",
	"expected",
	"actual",
	"command",
	"output",
}

// printError writes err and its details
func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "%s %s\n", style.ErrorIndicator, err.Error())

	details := errors.GetErrorDetails(err)
	if len(details) == 0 {
		return
	}
	keys := append([]string(nil), errorDetailKeys...)
	var extra []string
	for key := range details {
		if !contains(keys, key) {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	if block := style.Details(details, keys); block != "" {
		_, _ = fmt.Fprintln(w, style.Indent(block, 1))
	}
	if stage, ok := details[errors.DetailStage]; ok && stage != installer.StageVerifyingBehavior.String() {
		_, _ = fmt.Fprintln(w, style.Render(MsgPrefixUnchanged))
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode output")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printf(w io.Writer, template string, vars map[string]string) {
	_, _ = fmt.Fprintln(w, style.RenderTemplate(template, vars))
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
