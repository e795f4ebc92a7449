// pkg/recipe/recipe_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: filesystem, httptest
// PURPOSE: Test recipe decoding, validation, platform resolution and loading

package recipe_test

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/tapkit/pkg/actions"
	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/fetch"
	"github.com/arthur-debert/tapkit/pkg/filesystem"
	"github.com/arthur-debert/tapkit/pkg/recipe"
	"github.com/arthur-debert/tapkit/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sum = strings.Repeat("ab", 32)

const yamlRecipe = `
name: maiass
desc: Modular AI-Assisted Semantic Savant
version: v4.6.3
depends_on: [bash]
conflicts_with: [committhis]
sources:
  darwin/arm64:
    url: https://example.com/maiass-darwin-arm64.tar.gz
    sha256: ABABABABABABABABABABABABABABABABABABABABABABABABABABABABABABABAB
  linux:
    url: https://example.com/maiass-linux.tar.gz
    sha256: cdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcd
install:
  - type: copy_file
    src: maiass.sh
    dest: bin/maiass
  - type: chmod
    path: bin/maiass
    mode: 0755
  - type: script
    dest: bin/maiass-env
    template: |
      #!/bin/sh
      exec {{bin}}/maiass "$@"
test:
  command: maiass
  args: [--version]
`

func TestParse_TOML(t *testing.T) {
	data := testutil.MaiassRecipe("https://example.com/4.6.3.tar.gz", sum, "4.6.3", "myass", "miass")

	r, err := recipe.Parse([]byte(data), recipe.FormatTOML, "maiass.toml")
	require.NoError(t, err)

	assert.Equal(t, "maiass", r.Name)
	assert.Equal(t, "4.6.3", r.VersionString())
	assert.Equal(t, "GPL-3.0-only", r.License)
	assert.Equal(t, "maiass.toml", r.Origin)
	assert.Equal(t, []string{recipe.AnyPlatform}, r.SourceKeys())
	assert.Equal(t, sum, r.Sources[recipe.AnyPlatform].SHA256)

	kinds := make([]actions.Kind, len(r.Install))
	for i, a := range r.Install {
		kinds[i] = a.Kind
	}
	assert.Equal(t, []actions.Kind{
		actions.CopyFile, actions.CopyDirectory, actions.SetPermissions,
		actions.CreateSymlink, actions.CreateSymlink,
	}, kinds)
	assert.Equal(t, fs.FileMode(0755), r.Install[2].Mode)
	assert.Equal(t, "bin/myass", r.Install[3].Alias)
	assert.Equal(t, "bin/maiass", r.Install[4].Target)

	require.NotNil(t, r.Test)
	assert.Equal(t, "maiass", r.Test.Command)
	assert.Equal(t, []string{"--help"}, r.Test.Args)
	assert.Equal(t, "MAIASS", r.Test.Expect)
}

func TestParse_YAML(t *testing.T) {
	r, err := recipe.Parse([]byte(yamlRecipe), recipe.FormatYAML, "maiass.yaml")
	require.NoError(t, err)

	assert.Equal(t, "v4.6.3", r.VersionString())
	assert.Equal(t, "4.6.3", r.Version.String())
	assert.Equal(t, []string{"bash"}, r.DependsOn)
	assert.Equal(t, []string{"committhis"}, r.ConflictsWith)
	assert.Equal(t, []string{"darwin/arm64", "linux"}, r.SourceKeys())
	assert.Equal(t, sum, r.Sources["darwin/arm64"].SHA256, "digests are lowercased")
	assert.Equal(t, fs.FileMode(0755), r.Install[1].Mode)
	assert.Contains(t, r.Install[2].Template, "{{bin}}/maiass")
	assert.Empty(t, r.Test.Expect)
}

func TestParse_Malformed(t *testing.T) {
	valid := func(mutate func(string) string) string {
		return mutate(testutil.MaiassRecipe("https://example.com/m.tar.gz", sum, "4.6.3"))
	}
	replace := func(old, new string) func(string) string {
		return func(s string) string { return strings.Replace(s, old, new, 1) }
	}
	appendAction := func(block string) func(string) string {
		return func(s string) string {
			i := strings.Index(s, "[test]")
			return s[:i] + block + "\n" + s[i:]
		}
	}

	tests := []struct {
		name string
		data string
	}{
		{"missing name", valid(replace(`name     = "maiass"`, ""))},
		{"invalid name", valid(replace(`name     = "maiass"`, `name = "../maiass"`))},
		{"missing url", valid(replace(`url    = "https://example.com/m.tar.gz"`, ""))},
		{"missing checksum", valid(replace(`sha256 = "`+sum+`"`, ""))},
		{"short checksum", valid(replace(sum, "abc123"))},
		{"non-hex checksum", valid(replace(sum, strings.Repeat("zz", 32)))},
		{"missing version", valid(replace(`version  = "4.6.3"`, ""))},
		{"bad version", valid(replace(`version  = "4.6.3"`, `version = "four"`))},
		{"unknown top-level key", valid(replace(`license  =`, `licence  =`))},
		{"unknown action type", valid(replace(`type = "copy_file"`, `type = "hardlink"`))},
		{"unknown action field", valid(appendAction("[[install]]\ntype = \"chmod\"\npath = \"bin/maiass\"\nmode = \"0755\"\nowner = \"root\""))},
		{"dest outside managed dirs", valid(replace(`dest = "bin/maiass"`, `dest = "etc/maiass"`))},
		{"absolute dest", valid(replace(`dest = "bin/maiass"`, `dest = "/usr/bin/maiass"`))},
		{"escaping dest", valid(replace(`dest = "bin/maiass"`, `dest = "bin/../../maiass"`))},
		{"escaping src", valid(replace(`src  = "maiass.sh"`, `src  = "../maiass.sh"`))},
		{"bad mode", valid(replace(`mode = "0755"`, `mode = "0999"`))},
		{"mode too large", valid(replace(`mode = "0755"`, `mode = 4095`))},
		{"missing mode", valid(replace(`mode = "0755"`, ""))},
		{"symlink without alias", valid(appendAction("[[install]]\ntype = \"symlink\"\ntarget = \"bin/maiass\""))},
		{"script without template", valid(appendAction("[[install]]\ntype = \"script\"\ndest = \"bin/x\""))},
		{"test without command", valid(replace(`command = "maiass"`, ""))},
		{"any declared twice", valid(replace("[[install]]", "[sources.any]\nurl = \"https://x/y.tgz\"\nsha256 = \""+sum+"\"\n\n[[install]]"))},
		{"bad platform key", valid(replace("[[install]]", "[sources.\"linux/amd64/v2\"]\nurl = \"https://x/y.tgz\"\nsha256 = \""+sum+"\"\n\n[[install]]"))},
		{"not toml", "name = [unterminated"},
		{"no install actions", `name = "x"
version = "1.0.0"
url = "https://example.com/x.tgz"
sha256 = "` + sum + `"
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := recipe.Parse([]byte(tt.data), recipe.FormatTOML, "bad.toml")
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrMalformedRecipe), "got %v", err)
		})
	}
}

func TestParse_ModeForms(t *testing.T) {
	tests := []struct {
		mode string
		want fs.FileMode
	}{
		{`"0755"`, 0755},
		{`"755"`, 0755},
		{`"0o750"`, 0750},
		{`0o644`, 0644},
		{`493`, 0755},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			data := strings.Replace(
				testutil.MaiassRecipe("https://example.com/m.tar.gz", sum, "4.6.3"),
				`mode = "0755"`, "mode = "+tt.mode, 1)
			r, err := recipe.Parse([]byte(data), recipe.FormatTOML, "m.toml")
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Install[2].Mode)
		})
	}
}

func TestRecipe_Resolve(t *testing.T) {
	r, err := recipe.Parse([]byte(yamlRecipe), recipe.FormatYAML, "maiass.yaml")
	require.NoError(t, err)

	withAny, err := recipe.Parse([]byte(testutil.MaiassRecipe("https://example.com/any.tgz", sum, "1.0.0")), recipe.FormatTOML, "m.toml")
	require.NoError(t, err)

	tests := []struct {
		name     string
		recipe   *recipe.Recipe
		platform recipe.Platform
		wantKey  string
		wantURL  string
		wantErr  bool
	}{
		{"exact os/arch", r, recipe.Platform{OS: "darwin", Arch: "arm64"}, "darwin/arm64", "https://example.com/maiass-darwin-arm64.tar.gz", false},
		{"os only", r, recipe.Platform{OS: "linux", Arch: "riscv64"}, "linux", "https://example.com/maiass-linux.tar.gz", false},
		{"no match", r, recipe.Platform{OS: "darwin", Arch: "amd64"}, "", "", true},
		{"any", withAny, recipe.Platform{OS: "freebsd", Arch: "amd64"}, recipe.AnyPlatform, "https://example.com/any.tgz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.recipe.Resolve(tt.platform)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, errors.ErrUnsupportedPlatform))
				assert.Equal(t, "maiass", errors.GetDetailString(err, errors.DetailRecipe))
				assert.Equal(t, "darwin/amd64", errors.GetDetailString(err, "platform"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, got.Key)
			assert.Equal(t, tt.wantURL, got.Source.URL)
		})
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name    string
		want    recipe.Format
		wantErr bool
	}{
		{"maiass.toml", recipe.FormatTOML, false},
		{"Formula/maiass.YAML", recipe.FormatYAML, false},
		{"maiass.yml", recipe.FormatYAML, false},
		{"maiass.rb", "", true},
		{"maiass", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := recipe.FormatOf(tt.name)
			if tt.wantErr {
				assert.True(t, errors.IsErrorCode(err, errors.ErrMalformedRecipe))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	tomlPath := testutil.WriteFile(t, filepath.Join(dir, "maiass.toml"),
		[]byte(testutil.MaiassRecipe("https://example.com/m.tgz", sum, "4.6.3")), 0644)
	yamlPath := testutil.WriteFile(t, filepath.Join(dir, "maiass.yml"), []byte(yamlRecipe), 0644)

	srv := testutil.NewArtifactServer(t)
	remote := srv.Add("maiass.toml", []byte(testutil.MaiassRecipe("https://example.com/m.tgz", sum, "4.7.0")))

	loader := recipe.NewLoader(filesystem.NewOS(), fetch.NewClient(time.Minute))
	ctx := context.Background()

	tests := []struct {
		name        string
		ref         string
		wantVersion string
		wantCode    errors.ErrorCode
	}{
		{"local toml", tomlPath, "4.6.3", ""},
		{"local yaml", yamlPath, "v4.6.3", ""},
		{"file url", "file://" + tomlPath, "4.6.3", ""},
		{"remote", remote, "4.7.0", ""},
		{"missing local", filepath.Join(dir, "nope.toml"), "", errors.ErrNotFound},
		{"missing remote", srv.URL + "/nope.toml", "", errors.ErrDownload},
		{"unknown extension", filepath.Join(dir, "maiass.json"), "", errors.ErrMalformedRecipe},
		{"empty ref", "", "", errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := loader.Load(ctx, tt.ref)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "maiass", r.Name)
			assert.Equal(t, tt.wantVersion, r.VersionString())
			assert.Equal(t, tt.ref, r.Origin)
		})
	}
}

func TestIsURL(t *testing.T) {
	assert.True(t, recipe.IsURL("https://example.com/maiass.toml"))
	assert.True(t, recipe.IsURL("http://example.com/maiass.toml"))
	assert.False(t, recipe.IsURL("file:///tmp/maiass.toml"))
	assert.False(t, recipe.IsURL("./maiass.toml"))
}
