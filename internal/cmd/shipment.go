package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vvatanabe/shipcode"
	"github.com/vvatanabe/shipcode/internal/editor"
)

var errConnectionFailed = errors.New("connection failed")

func (f CommandFactory) CreateSearchCommand(flgs *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <number>",
		Short: "Look up a shipment by delivery number or shipment number",
		Long:  `Look up a shipment by delivery number first and by shipment number when no delivery matches.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := f.newSession(cmd, flgs)
			if err != nil {
				return err
			}
			e := s.newEditor()
			defer e.Close()
			term := e.SearchTerm()
			if len(args) > 0 {
				term = args[0]
			}
			shipment, err := e.Search(commandContext(cmd), term)
			if err != nil {
				f.printNotice(e)
				return err
			}
			printMessageWithData(f.stdout(), "", shipment)
			return nil
		},
	}
}

func (f CommandFactory) CreateCreateCommand(flgs *Flags) *cobra.Command {
	c := &cobra.Command{
		Use:   "create",
		Short: "Create a shipment delivery from a JSON request",
		Long: `Create a shipment delivery from a JSON request such as
{"shipmentNumber":"SHP-1","deliveryNumber":"DL-1","deliveryType":0,
 "containerItems":[{"materialNumber":"M-1","serialNumber":"S-1"}]}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req shipcode.ShipmentDeliveryRequest
			if err := f.readJSON(flgs.File, &req); err != nil {
				return err
			}
			s, err := f.newSession(cmd, flgs)
			if err != nil {
				return err
			}
			e := s.newEditor()
			defer e.Close()
			e.SwitchMode(editor.ModeCreate)
			e.EditForm(func(form *editor.Form) {
				form.ShipmentNumber = req.ShipmentNumber
				form.DeliveryNumber = req.DeliveryNumber
				form.DeliveryType = req.DeliveryType
				if len(req.ContainerItems) > 0 {
					form.ContainerItems = req.ContainerItems
				}
				if len(req.BulkItems) > 0 {
					form.BulkItems = req.BulkItems
				}
			})
			err = e.Create(commandContext(cmd))
			var validationErr shipcode.ValidationError
			if errors.As(err, &validationErr) {
				printValidationErrors(f.stdout(), validationErr.Messages)
				return err
			}
			f.printNotice(e)
			if err != nil {
				return err
			}
			if shipment := e.Shipment(); shipment != nil {
				printMessageWithData(f.stdout(), "", shipment)
			}
			return nil
		},
	}
	c.Flags().StringVarP(&flgs.File, flagMap.File.Name, "f", flagMap.File.Value, flagMap.File.Usage)
	return c
}

func (f CommandFactory) CreateUpdateCommand(flgs *Flags) *cobra.Command {
	c := &cobra.Command{
		Use:   "update <shipment-number>",
		Short: "Replace a shipment and its deliveries with a JSON request",
		Long:  `Replace a shipment and its deliveries with a JSON request. Deliveries missing from the request are removed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload shipcode.UpdateShipmentRequest
			if err := f.readJSON(flgs.File, &payload); err != nil {
				return err
			}
			s, err := f.newSession(cmd, flgs)
			if err != nil {
				return err
			}
			e := s.newEditor()
			defer e.Close()
			ctx := commandContext(cmd)
			if _, err := e.Search(ctx, args[0]); err != nil {
				f.printNotice(e)
				return err
			}
			e.DismissNotice()
			shipment, err := e.Update(ctx, payload)
			f.printNotice(e)
			if err != nil {
				return err
			}
			printMessageWithData(f.stdout(), "", shipment)
			return nil
		},
	}
	c.Flags().StringVarP(&flgs.File, flagMap.File.Name, "f", flagMap.File.Value, flagMap.File.Usage)
	return c
}

func (f CommandFactory) CreatePingCommand(flgs *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test the connection to the shipment API",
		Long:  `Test the connection to the shipment API.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := f.newSession(cmd, flgs)
			if err != nil {
				return err
			}
			e := s.newEditor()
			defer e.Close()
			ok := e.TestConnection(commandContext(cmd))
			f.printNotice(e)
			if !ok {
				return errConnectionFailed
			}
			return nil
		},
	}
}

func (f CommandFactory) printNotice(e *editor.Editor) {
	if n, ok := e.Notice(); ok {
		printNotice(f.stdout(), n)
		e.DismissNotice()
	}
}

func (f CommandFactory) readJSON(path string, v any) error {
	var r io.Reader
	if path == "" || path == "-" {
		r = f.stdin()
	} else {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		r = file
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON request: %w", err)
	}
	return nil
}
