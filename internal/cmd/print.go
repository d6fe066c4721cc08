package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/vvatanabe/shipcode"
	"github.com/vvatanabe/shipcode/internal/editor"
	"github.com/vvatanabe/shipcode/internal/export"
	"github.com/vvatanabe/shipcode/internal/generator"
)

func printMessageWithData(w io.Writer, message string, data any) {
	dump, err := marshalIndent(data)
	if err != nil {
		printError(w, err)
		return
	}
	fmt.Fprintf(w, "%s%s\n", message, dump)
}

func marshalIndent(v any) ([]byte, error) {
	dump, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return dump, nil
}

func printError(w io.Writer, err any) {
	fmt.Fprintf(w, "ERROR: %v\n", err)
}

func printNotice(w io.Writer, n editor.Notice) {
	switch n.Kind {
	case editor.NoticeSuccess:
		fmt.Fprintf(w, "OK: %s: %s\n", n.Title, n.Message)
	default:
		fmt.Fprintf(w, "%s: %s\n", n.Title, n.Message)
	}
}

func printValidationErrors(w io.Writer, messages []string) {
	fmt.Fprintln(w, "Please fix the following:")
	for _, m := range messages {
		fmt.Fprintf(w, "* %s\n", m)
	}
}

func printAPIConfig(w io.Writer, cfg shipcode.APIConfig) {
	fmt.Fprintf(w, "BaseURL: %s\n", cfg.BaseURL)
	fmt.Fprintf(w, "Token: %s\n", maskToken(cfg.BearerToken))
}

func printSlots(w io.Writer, slots []editor.Slot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tTOGGLE\tKIND\tTEXT")
	for _, s := range slots {
		kind := s.Kind.String()
		if s.Failed {
			kind += " (invalid)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Path, s.ToggleID, kind, s.Text)
	}
	tw.Flush()
}

func printCards(w io.Writer, cards []generator.Card) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tTEXT")
	for _, c := range cards {
		kind := c.Kind.String()
		if c.Failed {
			kind += " (invalid)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, kind, c.Text)
	}
	tw.Flush()
}

func printForm(w io.Writer, f editor.Form, validationErrors []string) {
	fmt.Fprintf(w, "Shipment number: %s\n", f.ShipmentNumber)
	fmt.Fprintf(w, "Delivery number: %s\n", f.DeliveryNumber)
	fmt.Fprintf(w, "Delivery type: %s\n", f.DeliveryType)
	if f.DeliveryType == shipcode.DeliveryTypeBulk {
		for i, it := range f.BulkItems {
			fmt.Fprintf(w, "  [%d] material=%s seal=%s\n", i, it.MaterialNumber, it.EvdSealNumber)
		}
	} else {
		for i, it := range f.ContainerItems {
			fmt.Fprintf(w, "  [%d] material=%s serial=%s\n", i, it.MaterialNumber, it.SerialNumber)
		}
	}
	if len(validationErrors) > 0 {
		printValidationErrors(w, validationErrors)
	}
}

func printUploads(w io.Writer, uploads []export.Upload) {
	if len(uploads) == 0 {
		fmt.Fprintln(w, "Nothing was exported.")
		return
	}
	fmt.Fprintf(w, "Exported %d file(s):\n", len(uploads))
	for _, u := range uploads {
		fmt.Fprintf(w, "* %s\n", u.Location)
	}
}
