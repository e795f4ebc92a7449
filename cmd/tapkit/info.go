package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/tapkit/pkg/datastore"
	"github.com/arthur-debert/tapkit/pkg/fetch"
	"github.com/arthur-debert/tapkit/pkg/recipe"
	"github.com/arthur-debert/tapkit/pkg/style"
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "info <recipe>",
		Short:   MsgInfoShort,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.loader().Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			installed, err := a.store.Lookup(r.Name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.format == style.FormatJSON {
				return printJSON(out, newRecipeView(r, recipe.HostPlatform(), installed))
			}
			printRecipe(out, r, recipe.HostPlatform())
			if installed != nil {
				field(out, "installed", style.Package(installed.Name, installed.Version)+" in "+style.PathStyle.Render(installed.Prefix))
			} else {
				field(out, "installed", style.MutedStyle.Render("no"))
			}
			return nil
		},
	}
}

// recipeView is the JSON form of `info`
type recipeView struct {
	Name          string            `json:"name"`
	Version       string            `json:"version"`
	Desc          string            `json:"desc,omitempty"`
	Homepage      string            `json:"homepage,omitempty"`
	License       string            `json:"license,omitempty"`
	DependsOn     []string          `json:"depends_on,omitempty"`
	ConflictsWith []string          `json:"conflicts_with,omitempty"`
	Platform      string            `json:"platform"`
	Source        *sourceView       `json:"source,omitempty"`
	Platforms     []string          `json:"platforms"`
	Actions       []string          `json:"actions"`
	Test          *recipe.Test      `json:"test,omitempty"`
	Caveats       string            `json:"caveats,omitempty"`
	Installed     *datastore.Record `json:"installed,omitempty"`
}

type sourceView struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

func newRecipeView(r *recipe.Recipe, platform recipe.Platform, installed *datastore.Record) recipeView {
	view := recipeView{
		Name:          r.Name,
		Version:       r.VersionString(),
		Desc:          r.Desc,
		Homepage:      r.Homepage,
		License:       r.License,
		DependsOn:     r.DependsOn,
		ConflictsWith: r.ConflictsWith,
		Platform:      platform.String(),
		Platforms:     r.SourceKeys(),
		Test:          r.Test,
		Caveats:       r.Caveats,
		Installed:     installed,
	}
	if resolved, err := r.Resolve(platform); err == nil {
		view.Source = &sourceView{Key: resolved.Key, URL: resolved.Source.URL, SHA256: resolved.Source.SHA256}
	}
	for _, action := range r.Install {
		view.Actions = append(view.Actions, action.Describe())
	}
	return view
}

func field(out io.Writer, key, value string) {
	if value == "" {
		return
	}
	_, _ = fmt.Fprintf(out, "%s %s\n", style.MutedStyle.Render(fmt.Sprintf("%-10s", key+":")), value)
}

// printRecipe shows a recipe's metadata, the source it resolves to on
// platform and its install actions
func printRecipe(out io.Writer, r *recipe.Recipe, platform recipe.Platform) {
	_, _ = fmt.Fprintln(out, style.Package(r.Name, r.VersionString()))
	field(out, "desc", r.Desc)
	field(out, "homepage", r.Homepage)
	field(out, "license", r.License)
	field(out, "depends", strings.Join(r.DependsOn, ", "))
	field(out, "conflicts", strings.Join(r.ConflictsWith, ", "))

	resolved, err := r.Resolve(platform)
	if err != nil {
		field(out, "source", style.WarningStyle.Render("none for "+platform.String())+
			" (available: "+strings.Join(r.SourceKeys(), ", ")+")")
	} else {
		field(out, "source", resolved.Source.URL+" "+style.MutedStyle.Render("["+resolved.Key+"]"))
		field(out, "sha256", resolved.Source.SHA256)
		kind := "single file"
		if name := fetch.ArtifactName(resolved.Source.URL); fetch.IsArchive(name) {
			kind = "archive"
		}
		field(out, "artifact", kind)
	}

	_, _ = fmt.Fprintln(out, style.SubtitleStyle.Render("actions:"))
	for i, action := range r.Install {
		_, _ = fmt.Fprintln(out, style.Indent(fmt.Sprintf("%d. %s", i+1, action.Describe()), 1))
	}
	if r.Test != nil {
		check := strings.TrimSpace(r.Test.Command + " " + strings.Join(r.Test.Args, " "))
		if r.Test.Expect != "" {
			check += fmt.Sprintf(" (expects %q)", r.Test.Expect)
		}
		field(out, "check", check)
	}
	if caveats := style.Caveats(r.Caveats); caveats != "" {
		_, _ = fmt.Fprintln(out, style.BoxStyle.Render(caveats))
	}
}
