package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-ormform/pkg/openapi"
)

var describeFormat string

var describeCmd = &cobra.Command{
	Use:   "describe [model]",
	Short: "List catalog models or describe the form derived from one",
	Long: `Describe prints the field descriptions of the form derived from a model.

Without a model argument it lists the models of the catalog.

Formats:
  json     form model as JSON (default)
  yaml     form model as YAML
  openapi  OpenAPI 3 document with the form schema as a component`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDescribe,
}

func init() {
	describeCmd.Flags().StringVarP(&describeFormat, "format", "f", "json", "output format: json, yaml or openapi")
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listModels(out, a)
	}

	mdl, err := a.model(args[0])
	if err != nil {
		return err
	}
	form, err := describe(a, mdl)
	if err != nil {
		return err
	}

	switch describeFormat {
	case "json":
		return writeJSON(out, form)
	case "yaml":
		return writeYAML(out, form)
	case "openapi":
		doc, err := openapi.NewExporter(openapi.WithDocumentVersion(version)).Document(cmd.Context(), form)
		if err != nil {
			return err
		}
		return writeJSON(out, doc)
	default:
		return fmt.Errorf("unknown format %q", describeFormat)
	}
}

func listModels(out io.Writer, a *app) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tTABLE\tPROPERTIES\tROWS")
	for _, m := range a.catalog.Models() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", m.Name(), m.Table(), len(m.Properties()), len(m.Rows()))
	}
	return w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML emits v with its JSON field names.
func writeYAML(out io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
