package cmd

import (
	"github.com/spf13/cobra"
	"github.com/vvatanabe/shipcode"
)

func (f CommandFactory) CreateConfigCommand(flgs *Flags) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Show or change the saved shipment API configuration",
		Long: `Show or change the saved shipment API configuration. A saved configuration
overrides the configuration file until it is reset.`,
	}
	c.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the shipment API configuration in effect",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := f.newSession(cmd, flgs)
				if err != nil {
					return err
				}
				printAPIConfig(f.stdout(), s.api.Current())
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <base-url> [token]",
			Short: "Save a shipment API base URL and bearer token",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := f.newSession(cmd, flgs)
				if err != nil {
					return err
				}
				e := s.newEditor()
				defer e.Close()
				cfg := shipcode.APIConfig{BaseURL: args[0]}
				if len(args) > 1 {
					cfg.BearerToken = args[1]
				}
				if _, err := e.SaveAPIConfig(cfg); err != nil {
					return err
				}
				f.printNotice(e)
				printAPIConfig(f.stdout(), s.api.Current())
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Forget the saved configuration and return to the defaults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := f.newSession(cmd, flgs)
				if err != nil {
					return err
				}
				e := s.newEditor()
				defer e.Close()
				if _, err := e.ResetAPIConfig(); err != nil {
					return err
				}
				f.printNotice(e)
				printAPIConfig(f.stdout(), s.api.Current())
				return nil
			},
		},
	)
	return c
}
