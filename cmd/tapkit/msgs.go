package main

// Command descriptions
const (
	MsgRootShort = "Install command-line tools from declarative recipes"
	MsgRootLong  = `tapkit installs command-line tools from small TOML or YAML recipes into a
user prefix (~/.local by default). Every install is checksummed, applied
as a single transaction and recorded, so it can be upgraded, checked and
uninstalled later.

Run 'tapkit help recipes' for the recipe format.`

	MsgInstallShort    = "Install a package from a recipe file or URL"
	MsgUninstallShort  = "Remove an installed package"
	MsgListShort       = "List installed packages"
	MsgInfoShort       = "Show what a recipe would install on this machine"
	MsgTestShort       = "Re-run a recipe's check against the installed package"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"
)

// Flag descriptions
const (
	MsgFlagVerbose       = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig        = "Config file (default is $XDG_CONFIG_HOME/tapkit/config.toml)"
	MsgFlagFormat        = "Output format: auto, term, text or json (json applies to list and info)"
	MsgFlagPrefix        = "Install prefix (default ~/.local)"
	MsgFlagTimeout       = "Download timeout, e.g. 30s or 5m"
	MsgFlagNoVerify      = "Skip the post-install check"
	MsgFlagKeepWorkspace = "Keep the download workspace for inspection"
)

// Output templates, rendered with style.RenderTemplate
const (
	MsgInstalled       = "[success]✓[/success] {{transition}} [package]{{name}}[/package] [version]{{version}}[/version] into [path]{{prefix}}[/path]"
	MsgPrevious        = "  [muted]previous version {{previous}}[/muted]"
	MsgVerified        = "[success]✓[/success] check passed"
	MsgUnverified      = "[warning]![/warning] installed but unverified: {{reason}}"
	MsgVerifySkipped   = "[warning]![/warning] installed but unverified: check skipped"
	MsgMissingDep      = "[warning]![/warning] dependency [package]{{name}}[/package] not found on PATH"
	MsgUninstalled     = "[success]✓[/success] removed [package]{{name}}[/package] [version]{{version}}[/version] from [path]{{prefix}}[/path]"
	MsgLeftInPlace     = "  [warning]![/warning] left in place: [path]{{path}}[/path]"
	MsgNoPackages      = "No packages installed."
	MsgCheckPassed     = "[success]✓[/success] [package]{{name}}[/package]: [code]{{command}}[/code] passed"
	MsgPrefixUnchanged = "[muted]The prefix was left unchanged.[/muted]"
)

// Error messages
const (
	MsgErrInitPaths    = "failed to initialize paths: %w"
	MsgErrPrefixDiffer = "%s is installed in %s, not %s"
	MsgErrNoCommand    = "no command specified"
)
