package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/dotsetgreg/notemind/pkg/config"
	"github.com/dotsetgreg/notemind/pkg/providers"
	"github.com/spf13/cobra"
	cobraDoc "github.com/spf13/cobra/doc"
)

func newDocsCommand(rootFactory func() *cobra.Command) *cobra.Command {
	docsRoot := &cobra.Command{
		Use:    "docs",
		Short:  "Internal docs maintenance commands",
		Hidden: true,
	}

	var (
		outputDir string
		checkOnly bool
	)

	gen := &cobra.Command{
		Use:   "generate",
		Short: "Generate reference docs from command/config/provider source",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(outputDir) == "" {
				return fmt.Errorf("--output must not be empty")
			}
			return generateDocumentation(rootFactory, outputDir, checkOnly)
		},
	}
	gen.Flags().StringVar(&outputDir, "output", "docs", "Docs directory root")
	gen.Flags().BoolVar(&checkOnly, "check", false, "Fail if generated docs are out of date")

	docsRoot.AddCommand(gen)
	return docsRoot
}

// generatedDocs maps paths relative to the docs root to rendered content.
type generatedDocs map[string][]byte

// managedDirs are regenerated wholesale; files in them that the generator
// does not produce are stale.
var managedDirs = []string{
	filepath.Join("reference", "cli"),
	filepath.Join("reference", "man"),
}

func generateDocumentation(rootFactory func() *cobra.Command, outputDir string, checkOnly bool) error {
	docs, err := renderReferences(rootFactory)
	if err != nil {
		return err
	}
	if checkOnly {
		return docs.check(outputDir)
	}
	return docs.write(outputDir)
}

func renderReferences(rootFactory func() *cobra.Command) (generatedDocs, error) {
	cliRoot := rootFactory()
	cliRoot.DisableAutoGenTag = true

	docs := generatedDocs{}
	header := cobraDoc.GenManHeader{Title: "NOTEMIND", Section: "1", Source: "notemind"}
	if err := renderCommandDocs(cliRoot, header, docs); err != nil {
		return nil, err
	}

	configRef, err := buildConfigReferenceMarkdown()
	if err != nil {
		return nil, err
	}
	docs[filepath.Join("reference", "config.md")] = []byte(configRef)

	providerRef, err := buildProvidersReferenceMarkdown()
	if err != nil {
		return nil, err
	}
	docs[filepath.Join("reference", "providers.md")] = []byte(providerRef)
	return docs, nil
}

// renderCommandDocs renders a markdown page and a man page for cmd and every
// visible subcommand.
func renderCommandDocs(cmd *cobra.Command, header cobraDoc.GenManHeader, docs generatedDocs) error {
	for _, child := range cmd.Commands() {
		if !child.IsAvailableCommand() || child.IsAdditionalHelpTopicCommand() {
			continue
		}
		child.DisableAutoGenTag = true
		if err := renderCommandDocs(child, header, docs); err != nil {
			return err
		}
	}

	base := strings.ReplaceAll(cmd.CommandPath(), " ", "_")
	var md bytes.Buffer
	md.WriteString("# " + strings.ReplaceAll(base, "_", " ") + "\n\n")
	if err := cobraDoc.GenMarkdownCustom(cmd, &md, func(name string) string { return name }); err != nil {
		return fmt.Errorf("generate markdown for %s: %w", cmd.CommandPath(), err)
	}
	docs[filepath.Join("reference", "cli", base+".md")] = md.Bytes()

	var man bytes.Buffer
	if err := cobraDoc.GenMan(cmd, &header, &man); err != nil {
		return fmt.Errorf("generate man page for %s: %w", cmd.CommandPath(), err)
	}
	manName := strings.ReplaceAll(cmd.CommandPath(), " ", "-") + "." + header.Section
	docs[filepath.Join("reference", "man", manName)] = man.Bytes()
	return nil
}

func (d generatedDocs) write(root string) error {
	for _, dir := range managedDirs {
		if err := os.RemoveAll(filepath.Join(root, dir)); err != nil {
			return fmt.Errorf("clear %s: %w", dir, err)
		}
	}
	for _, rel := range d.paths() {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", rel, err)
		}
		if err := os.WriteFile(path, d[rel], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	return nil
}

func (d generatedDocs) check(root string) error {
	for _, rel := range d.paths() {
		have, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return fmt.Errorf("docs out of date: %s missing", rel)
		}
		if !bytes.Equal(d[rel], have) {
			return fmt.Errorf("docs out of date: %s differs; run `notemind docs generate`", rel)
		}
	}
	for _, dir := range managedDirs {
		entries, err := os.ReadDir(filepath.Join(root, dir))
		if err != nil {
			return fmt.Errorf("docs out of date: %s missing", dir)
		}
		for _, entry := range entries {
			rel := filepath.Join(dir, entry.Name())
			if _, ok := d[rel]; !ok {
				return fmt.Errorf("docs out of date: %s is no longer generated", rel)
			}
		}
	}
	return nil
}

func (d generatedDocs) paths() []string {
	out := make([]string, 0, len(d))
	for rel := range d {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

type configFieldRow struct {
	Path    string
	Type    string
	Env     string
	Default string
}

func buildConfigReferenceMarkdown() (string, error) {
	defaults, err := flattenConfigDefaults()
	if err != nil {
		return "", err
	}

	rows := []configFieldRow{}
	collectConfigRows(reflect.TypeOf(config.Config{}), "", defaults, &rows)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })

	var b strings.Builder
	b.WriteString("# Config Reference\n\n")
	b.WriteString("Generated from `pkg/config/config.go` and `config.DefaultConfig()`.\n\n")
	writeFieldTable(&b, rows)
	return b.String(), nil
}

func writeFieldTable(b *strings.Builder, rows []configFieldRow) {
	b.WriteString("| Key | Type | Env Var | Default |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, row := range rows {
		b.WriteString("| `" + escapePipes(row.Path) + "` | `" + escapePipes(row.Type) + "` | `" + escapePipes(valueOr(row.Env, "-")) + "` | `" + escapePipes(valueOr(row.Default, "-")) + "` |\n")
	}
}

func collectConfigRows(t reflect.Type, prefix string, defaults map[string]string, rows *[]configFieldRow) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		jsonTag := strings.TrimSpace(strings.Split(f.Tag.Get("json"), ",")[0])
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		path := jsonTag
		if prefix != "" {
			path = prefix + "." + jsonTag
		}

		if f.Type.Kind() == reflect.Struct {
			collectConfigRows(f.Type, path, defaults, rows)
			continue
		}

		*rows = append(*rows, configFieldRow{
			Path:    path,
			Type:    friendlyType(f.Type),
			Env:     strings.TrimSpace(f.Tag.Get("env")),
			Default: defaults[path],
		})
	}
}

func flattenConfigDefaults() (map[string]string, error) {
	data, err := json.Marshal(config.DefaultConfig())
	if err != nil {
		return nil, err
	}
	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	out := map[string]string{}
	flattenMapValues("", root, out)
	return out, nil
}

func flattenMapValues(prefix string, v interface{}, out map[string]string) {
	switch typed := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenMapValues(next, typed[k], out)
		}
	default:
		encoded, _ := json.Marshal(typed)
		out[prefix] = string(encoded)
	}
}

func friendlyType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Slice:
		return "array<" + friendlyType(t.Elem()) + ">"
	case reflect.Map:
		return "map<" + friendlyType(t.Key()) + "," + friendlyType(t.Elem()) + ">"
	case reflect.Struct:
		return "object"
	case reflect.Pointer:
		return "*" + friendlyType(t.Elem())
	default:
		return t.String()
	}
}

type providerReferenceSpec struct {
	Name      string
	ConfigKey string
	Summary   string
	AuthModel string
}

func buildProvidersReferenceMarkdown() (string, error) {
	defaults, err := flattenConfigDefaults()
	if err != nil {
		return "", err
	}

	cfgType := reflect.TypeOf(config.ProvidersConfig{})
	providerStructs := map[string]reflect.Type{}
	for i := 0; i < cfgType.NumField(); i++ {
		f := cfgType.Field(i)
		key := strings.TrimSpace(strings.Split(f.Tag.Get("json"), ",")[0])
		if key == "" || key == "-" {
			continue
		}
		providerStructs[key] = f.Type
	}

	specs := []providerReferenceSpec{
		{
			Name:      providers.ProviderOpenRouter,
			ConfigKey: "providers.openrouter",
			Summary:   "OpenRouter chat completions provider (default).",
			AuthModel: "Requires `api_key`.",
		},
		{
			Name:      providers.ProviderOpenAI,
			ConfigKey: "providers.openai",
			Summary:   "OpenAI Platform chat completions provider with json_schema structured output.",
			AuthModel: "Requires exactly one credential source: `api_key` OR `oauth_token_file`.",
		},
		{
			Name:      providers.ProviderAnthropic,
			ConfigKey: "providers.anthropic",
			Summary:   "Anthropic Messages API provider.",
			AuthModel: "Requires `api_key`.",
		},
	}

	supported := providers.SupportedProviders()
	sort.Strings(supported)

	var b strings.Builder
	b.WriteString("# Provider Reference\n\n")
	b.WriteString("Generated from provider factories and config structs.\n\n")
	b.WriteString("Select a provider with `agent.provider`.\n\n")
	b.WriteString("## Supported Providers\n\n")
	for _, name := range supported {
		b.WriteString("- `" + name + "`\n")
	}
	b.WriteString("\n")

	for _, spec := range specs {
		key := strings.TrimPrefix(spec.ConfigKey, "providers.")
		b.WriteString("## `" + spec.Name + "`\n\n")
		b.WriteString(spec.Summary + "\n\n")
		b.WriteString("- Config path: `" + spec.ConfigKey + "`\n")
		b.WriteString("- Auth: " + spec.AuthModel + "\n")
		if base := strings.Trim(defaults[spec.ConfigKey+".api_base"], `"`); base != "" {
			b.WriteString("- Default API base: `" + base + "`\n")
		}
		b.WriteString("\n")

		rows := []configFieldRow{}
		if t, ok := providerStructs[key]; ok {
			collectConfigRows(t, spec.ConfigKey, defaults, &rows)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })
		writeFieldTable(&b, rows)
		b.WriteString("\n")
	}

	return b.String(), nil
}

func escapePipes(v string) string {
	return strings.ReplaceAll(v, "|", "\\|")
}
