package testutil

import (
	"fmt"
	"strings"
)

// MaiassScript is a stand-in for the maiass entry point: --help prints a
// banner containing MAIASS.
func MaiassScript(version string) string {
	return fmt.Sprintf(`#!/bin/sh
case "$1" in
  --help|-h) echo "MAIASS - Modular AI-Assisted Semantic Savant %[1]s"; exit 0 ;;
  --version) echo "%[1]s"; exit 0 ;;
esac
echo "maiass: run with --help"
`, version)
}

// MaiassEntries is the layout of a GitHub tag tarball of maiass
func MaiassEntries(version string) []ArchiveEntry {
	top := "maiass-" + version + "/"
	return []ArchiveEntry{
		{Name: top},
		{Name: top + "maiass.sh", Body: MaiassScript(version), Mode: 0755},
		{Name: top + "committhis.sh", Body: "#!/bin/sh\necho committhis\n", Mode: 0755},
		{Name: top + "lib/"},
		{Name: top + "lib/common.sh", Body: "# shared helpers\n"},
		{Name: top + "README.md", Body: "# maiass\n"},
	}
}

// MaiassRecipe renders a TOML recipe for the maiass fixture. Each alias
// becomes a symlink to bin/maiass.
func MaiassRecipe(url, sha, version string, aliases ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `name     = "maiass"
desc     = "Modular AI-Assisted Semantic Savant for Git workflows"
homepage = "https://github.com/vsmash/maiass"
version  = %q
license  = "GPL-3.0-only"
caveats  = "Set MAIASS_OPENAI_TOKEN to enable AI commit messages."

url    = %q
sha256 = %q

[[install]]
type = "copy_file"
src  = "maiass.sh"
dest = "bin/maiass"

[[install]]
type = "copy_dir"
src  = "lib"
dest = "share/maiass/lib"

[[install]]
type = "chmod"
path = "bin/maiass"
mode = "0755"
`, version, url, sha)

	for _, alias := range aliases {
		fmt.Fprintf(&b, `
[[install]]
type   = "symlink"
target = "bin/maiass"
alias  = "bin/%s"
`, alias)
	}

	b.WriteString(`
[test]
command = "maiass"
args    = ["--help"]
expect  = "MAIASS"
`)
	return b.String()
}
