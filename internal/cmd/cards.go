package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vvatanabe/shipcode/internal/generator"
	"github.com/vvatanabe/shipcode/internal/render"
)

func (s *session) newGenerator() *generator.Generator {
	return generator.New(s.prefs,
		generator.WithDelay(s.cfg.Debounce.Generator),
		generator.WithClock(s.clock),
		generator.WithLogger(s.logger))
}

func (f CommandFactory) CreateCardsCommand(flgs *Flags) *cobra.Command {
	c := &cobra.Command{
		Use:   "cards",
		Short: "Work with the six saved generator cards",
		Long:  `Work with the six saved generator cards. Card texts, kinds and the theme colour are kept in the preferences.`,
	}
	withGenerator := func(run func(cmd *cobra.Command, args []string, g *generator.Generator) error) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := f.newSession(cmd, flgs)
			if err != nil {
				return err
			}
			g := s.newGenerator()
			defer g.Close()
			return run(cmd, args, g)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the cards",
		Args:  cobra.NoArgs,
		RunE: withGenerator(func(cmd *cobra.Command, args []string, g *generator.Generator) error {
			printCards(f.stdout(), g.Cards())
			return nil
		}),
	}
	set := &cobra.Command{
		Use:   "set <id> <text>",
		Short: "Change the text of a card",
		Args:  cobra.MinimumNArgs(2),
		RunE: withGenerator(func(cmd *cobra.Command, args []string, g *generator.Generator) error {
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			if err := g.SetText(id, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			if flgs.Flush {
				if err := g.Flush(id); err != nil {
					return err
				}
			}
			card, err := g.Card(id)
			if err != nil {
				return err
			}
			printCards(f.stdout(), []generator.Card{card})
			return nil
		}),
	}
	set.Flags().BoolVar(&flgs.Flush, flagMap.Flush.Name, flagMap.Flush.Value, flagMap.Flush.Usage)
	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Switch a card between barcode and QR code",
		Args:  cobra.ExactArgs(1),
		RunE: withGenerator(func(cmd *cobra.Command, args []string, g *generator.Generator) error {
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			card, err := g.Toggle(id)
			if err != nil {
				return err
			}
			printCards(f.stdout(), []generator.Card{card})
			return nil
		}),
	}
	color := &cobra.Command{
		Use:   "color [#RRGGBB]",
		Short: "Show or change the theme colour",
		Args:  cobra.MaximumNArgs(1),
		RunE: withGenerator(func(cmd *cobra.Command, args []string, g *generator.Generator) error {
			theme := g.ThemeColor()
			if len(args) > 0 {
				var err error
				if theme, err = g.SetThemeColor(args[0]); err != nil {
					return err
				}
			}
			printMessageWithData(f.stdout(), "", render.NewPalette(theme))
			return nil
		}),
	}
	renderCard := &cobra.Command{
		Use:   "render <id>",
		Short: "Write the rendered code of a card",
		Args:  cobra.ExactArgs(1),
		RunE: withGenerator(func(cmd *cobra.Command, args []string, g *generator.Generator) error {
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			card, err := g.Card(id)
			if err != nil {
				return err
			}
			if card.Artifact == nil {
				return errNothingToRender
			}
			if card.Failed {
				return fmt.Errorf("card %d: %s", id, render.InvalidInputMessage)
			}
			return f.writeArtifact(flgs.Output, card.Artifact)
		}),
	}
	renderCard.Flags().StringVarP(&flgs.Output, flagMap.Output.Name, "o", flagMap.Output.Value, flagMap.Output.Usage)

	c.AddCommand(list, set, toggle, color, renderCard)
	return c
}

func parseCardID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid card id %q", s)
	}
	return id, nil
}
