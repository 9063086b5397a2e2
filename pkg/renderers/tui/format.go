package tui

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var (
	// ErrAborted is returned when the user interrupts a prompt.
	ErrAborted = errors.New("tui: aborted")
	// ErrSelection is returned when a driver answers with an index outside
	// the offered choices.
	ErrSelection = errors.New("tui: selection out of range")
	// ErrUnknownFormat is returned by ParseOutputFormat.
	ErrUnknownFormat = errors.New("tui: unknown output format")
)

// OutputFormat is the encoding of the formdata produced by Render.
type OutputFormat string

const (
	// OutputFormatFormURLEncoded is the body a browser would post.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatJSON maps every input name to its list of values.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatPrettyText prints one "name = value" line per input.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// ParseOutputFormat accepts the names of the formats above.
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch format := OutputFormat(strings.ToLower(strings.TrimSpace(name))); format {
	case OutputFormatFormURLEncoded, OutputFormatJSON, OutputFormatPrettyText:
		return format, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ContentType is the media type of encoded output.
func (f OutputFormat) ContentType() string {
	switch f {
	case OutputFormatJSON:
		return "application/json"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/x-www-form-urlencoded"
	}
}

func (f OutputFormat) encode(values url.Values) ([]byte, error) {
	switch f {
	case OutputFormatJSON:
		return json.MarshalIndent(values, "", "  ")
	case OutputFormatPrettyText:
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		var b strings.Builder
		for _, name := range names {
			fmt.Fprintf(&b, "%s = %s\n", name, strings.Join(values[name], ", "))
		}
		return []byte(b.String()), nil
	default:
		return []byte(values.Encode()), nil
	}
}

// Theme holds the prefixes of informational lines.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// SubmitTransformer rewrites collected formdata before it is encoded.
type SubmitTransformer func(url.Values) (url.Values, error)

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver replaces the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

func WithSubmitTransformer(fn SubmitTransformer) Option {
	return func(r *Renderer) { r.submitTransformer = fn }
}

// WithTheme sets the prefixes of help and error lines.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) { r.theme = theme }
}
