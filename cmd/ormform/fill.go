package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/orchestrator"
	"github.com/goliatone/go-ormform/pkg/render"
	"github.com/goliatone/go-ormform/pkg/renderers/tui"
)

var (
	errInvalidSubmission = errors.New("submission is invalid")
	errNoTerminal        = errors.New("fill needs an interactive terminal on stdin")
)

var (
	fillID       string
	fillFormat   string
	fillValidate bool
	fillAttempts int
)

// promptDriver builds the terminal prompt driver; tests replace it.
var promptDriver = func(out io.Writer) (tui.PromptDriver, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errNoTerminal
	}
	return tui.NewSurveyDriver(out), nil
}

var fillCmd = &cobra.Command{
	Use:   "fill <model>",
	Short: "Fill the form of a model interactively and print the formdata",
	Long: `Fill prompts for every field of the form derived from a model and prints
the formdata a browser would submit, sub-form list tokens included.

With --validate the formdata is processed and validated against the form.
Invalid input is prompted for again, showing the field errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runFill,
}

func init() {
	flags := fillCmd.Flags()
	flags.StringVar(&fillID, "id", "", "primary key of the row to edit")
	flags.StringVarP(&fillFormat, "format", "f", string(tui.OutputFormatFormURLEncoded), "output format: form, json or pretty")
	flags.BoolVar(&fillValidate, "validate", false, "validate the formdata before printing it")
	flags.IntVar(&fillAttempts, "attempts", 3, "prompt rounds allowed with --validate")
	rootCmd.AddCommand(fillCmd)
}

func runFill(cmd *cobra.Command, args []string) error {
	format, err := tui.ParseOutputFormat(fillFormat)
	if err != nil {
		return err
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	mdl, err := a.model(args[0])
	if err != nil {
		return err
	}
	obj, err := a.object(ctx, mdl, fillID)
	if err != nil {
		return err
	}

	driver, err := promptDriver(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	renderer, err := tui.New(
		tui.WithPromptDriver(driver),
		tui.WithOutputFormat(format),
	)
	if err != nil {
		return err
	}

	req := orchestrator.Request{Model: mdl, Object: obj}
	form, err := a.forms.Form(ctx, req)
	if err != nil {
		return err
	}

	attempts := 1
	if fillValidate && fillAttempts > 1 {
		attempts = fillAttempts
	}
	for attempt := 1; ; attempt++ {
		values, err := renderer.Fill(ctx, form, render.RenderOptions{})
		if err != nil {
			return err
		}
		if !fillValidate {
			return writeFormdata(cmd.OutOrStdout(), renderer, values)
		}

		req.Formdata = values
		sub, err := a.forms.Submit(ctx, req)
		if err != nil {
			return err
		}
		if sub.Valid {
			return writeFormdata(cmd.OutOrStdout(), renderer, values)
		}
		printErrors(cmd.ErrOrStderr(), sub.Form)
		if attempt >= attempts {
			return errInvalidSubmission
		}
		form = sub.Form
	}
}

func writeFormdata(out io.Writer, renderer *tui.Renderer, values url.Values) error {
	payload, err := renderer.Encode(values)
	if err != nil {
		return err
	}
	if _, err := out.Write(payload); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}

func printErrors(out io.Writer, form *forms.Form) {
	errs := form.Errors()
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, message := range errs[name] {
			fmt.Fprintf(out, "%s: %s\n", name, message)
		}
	}
}
