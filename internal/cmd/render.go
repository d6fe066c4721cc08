package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vvatanabe/shipcode/internal/render"
)

var errNothingToRender = errors.New("nothing to render: text is blank")

func (f CommandFactory) CreateRenderCommand(flgs *Flags) *cobra.Command {
	c := &cobra.Command{
		Use:   "render <text>",
		Short: "Render text as a Code 128 barcode (SVG) or a QR code (PNG)",
		Long:  `Render text as a Code 128 barcode (SVG) or a QR code (PNG) in the saved theme colour.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := render.ParseKind(flgs.Kind)
			if err != nil {
				return err
			}
			s, err := f.newSession(cmd, flgs)
			if err != nil {
				return err
			}
			ink, err := inkColor(flgs.Color, s.prefs.ThemeColor())
			if err != nil {
				return err
			}
			artifact, err := render.Render(strings.Join(args, " "), kind, ink, render.GeneratorStyle)
			if err != nil {
				return err
			}
			if artifact == nil {
				return errNothingToRender
			}
			return f.writeArtifact(flgs.Output, artifact)
		},
	}
	setRenderFlags(c, flgs)
	return c
}

// inkColor picks the explicit colour, then the saved theme colour, then
// the default theme colour.
func inkColor(explicit, saved string) (render.RGBColor, error) {
	if explicit != "" {
		return render.ParseHexColor(explicit)
	}
	if c, err := render.ParseHexColor(saved); err == nil {
		return c, nil
	}
	return render.DefaultThemeColor, nil
}

func (f CommandFactory) writeArtifact(path string, a *render.Artifact) error {
	if path == "" || path == "-" {
		_, err := f.stdout().Write(a.Data)
		return err
	}
	return os.WriteFile(path, a.Data, 0o644)
}
