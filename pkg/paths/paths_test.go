// pkg/paths/paths_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: environment
// PURPOSE: Test prefix and state layout resolution

package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		envSetup map[string]string
		validate func(t *testing.T, p Paths)
	}{
		{
			name: "custom directories",
			envSetup: map[string]string{
				EnvStateDir:  "/custom/state",
				EnvCacheDir:  "/custom/cache",
				EnvConfigDir: "/custom/config",
			},
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/custom/state", p.StateDir())
				assert.Equal(t, "/custom/cache", p.CacheDir())
				assert.Equal(t, "/custom/config", p.ConfigDir())
			},
		},
		{
			name: "derived locations",
			envSetup: map[string]string{
				EnvStateDir: "/s",
				EnvCacheDir: "/c",
			},
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/s/packages/maiass.json", p.RecordPath("maiass"))
				assert.Equal(t, "/s/locks/maiass.lock", p.LockPath("maiass"))
				assert.Equal(t, "/s/tapkit.log", p.LogFilePath())
				assert.Equal(t, "/c/downloads", p.DownloadsDir())
			},
		},
		{
			name: "defaults are absolute",
			validate: func(t *testing.T, p Paths) {
				assert.True(t, filepath.IsAbs(p.StateDir()))
				assert.True(t, filepath.IsAbs(p.CacheDir()))
				assert.Equal(t, AppDirName, filepath.Base(p.ConfigDir()))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvStateDir, "")
			t.Setenv(EnvCacheDir, "")
			t.Setenv(EnvConfigDir, "")
			for k, v := range tt.envSetup {
				t.Setenv(k, v)
			}

			p, err := New()
			require.NoError(t, err)
			tt.validate(t, p)
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "opt"), ExpandHome("~/opt"))
	assert.Equal(t, "~other/opt", ExpandHome("~other/opt"))
	assert.Equal(t, "/abs", ExpandHome("/abs"))
	assert.Equal(t, "", ExpandHome(""))
}

func TestValidateRelPath(t *testing.T) {
	tests := []struct {
		rel     string
		wantErr bool
	}{
		{"bin/maiass", false},
		{"share/maiass/package.json", false},
		{"lib/maiass/", false},
		{"bin/../bin/maiass", false},
		{"", true},
		{"/bin/maiass", true},
		{"bin", true},
		{"etc/passwd", true},
		{"bin/../../etc/passwd", true},
		{"../bin/maiass", true},
		{"maiass", true},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			err := ValidateRelPath(tt.rel)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPrefix(t *testing.T) {
	root := t.TempDir()
	p, err := NewPrefix(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "bin"), p.Bin())
	assert.Equal(t, filepath.Join(root, "share", "maiass"), p.PackageShare("maiass"))

	abs, err := p.Resolve("bin/maiass")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "bin", "maiass"), abs)

	rel, err := p.Rel(abs)
	require.NoError(t, err)
	assert.Equal(t, "bin/maiass", rel)

	_, err = p.Rel(filepath.Dir(root))
	assert.Error(t, err)

	assert.True(t, p.Contains(abs))
	assert.False(t, p.Contains(filepath.Join(root, "etc", "x")))
	assert.False(t, p.Contains("/tmp/elsewhere"))

	_, err = p.Resolve("etc/x")
	assert.Error(t, err)
}

func TestValidatePackageName(t *testing.T) {
	assert.NoError(t, ValidatePackageName("maiass"))
	assert.NoError(t, ValidatePackageName("git-helper_2"))
	assert.Error(t, ValidatePackageName(""))
	assert.Error(t, ValidatePackageName("a/b"))
	assert.Error(t, ValidatePackageName(".hidden"))
	assert.Error(t, ValidatePackageName("has space"))
}

func TestValidateRelDir(t *testing.T) {
	assert.NoError(t, ValidateRelDir("lib"))
	assert.NoError(t, ValidateRelDir("share/"))
	assert.NoError(t, ValidateRelDir("share/maiass"))
	assert.Error(t, ValidateRelDir("etc"))
	assert.Error(t, ValidateRelDir("../lib"))

	p := Prefix{Root: "/opt/px"}
	abs, err := p.ResolveDir("lib")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/opt/px", "lib"), abs)
}
