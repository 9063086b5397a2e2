package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-ormform/pkg/orchestrator"
	"github.com/goliatone/go-ormform/pkg/render"
)

var (
	renderID       string
	renderRenderer string
	renderAction   string
	renderOutput   string
)

var renderCmd = &cobra.Command{
	Use:   "render <model>",
	Short: "Render the form of a model as HTML",
	Long: `Render prints the form derived from a model.

With --id the form is bound to the row with that primary key, otherwise to a
new empty row.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	flags := renderCmd.Flags()
	flags.StringVar(&renderID, "id", "", "primary key of the row to edit")
	flags.StringVar(&renderRenderer, "renderer", "", "renderer name (default vanilla)")
	flags.StringVar(&renderAction, "action", "", "form action URL")
	flags.StringVarP(&renderOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	mdl, err := a.model(args[0])
	if err != nil {
		return err
	}
	obj, err := a.object(cmd.Context(), mdl, renderID)
	if err != nil {
		return err
	}

	output, err := a.forms.Generate(cmd.Context(), orchestrator.Request{
		Model:         mdl,
		Object:        obj,
		Renderer:      renderRenderer,
		RenderOptions: render.RenderOptions{
			Action: renderAction,
			Hidden: identity(renderID),
		},
	})
	if err != nil {
		return err
	}

	if renderOutput != "" {
		if err := os.WriteFile(renderOutput, output, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		a.logger.Info().Str("model", mdl.Name()).Str("path", renderOutput).Msg("form written")
		return nil
	}
	_, err = cmd.OutOrStdout().Write(output)
	return err
}

// identity keeps the row key in a detached form whose action may not carry it.
func identity(id string) []render.HiddenField {
	if id == "" {
		return nil
	}
	return render.Identity("_id", id)
}
