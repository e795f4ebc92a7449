// pkg/actions/template_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test generated script rendering and token validation

package actions_test

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/tapkit/pkg/actions"
	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderScript(t *testing.T) {
	prefix := paths.Prefix{Root: "/opt/px"}
	vars := actions.TemplateVars{Prefix: prefix, Name: "maiass", Version: "4.6.3"}

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		{"no tokens", "#!/bin/sh\n", "#!/bin/sh\n", false},
		{"all tokens", "{{prefix}} {{bin}} {{lib}} {{share}} {{name}} {{version}}",
			"/opt/px " + filepath.Join("/opt/px", "bin") + " " + filepath.Join("/opt/px", "lib") + " " +
				filepath.Join("/opt/px", "share", "maiass") + " maiass 4.6.3", false},
		{"whitespace inside tag", "{{ bin }}/maiass", filepath.Join("/opt/px", "bin") + "/maiass", false},
		{"unknown token", "{{libexec}}/maiass", "", true},
		{"unterminated tag", "{{bin", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := actions.RenderScript(tt.template, vars)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
