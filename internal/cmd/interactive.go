package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/vvatanabe/shipcode"
	"github.com/vvatanabe/shipcode/internal/editor"
	"github.com/vvatanabe/shipcode/internal/export"
)

var errUnrecognizedCommand = errors.New("unrecognized command")

type Interactive struct {
	Editor      *editor.Editor
	Config      editor.ConfigStore
	Out         io.Writer
	Sink        func(ctx context.Context, dir string) (export.Sink, error)
	Concurrency int
	Logger      *slog.Logger
}

// Run executes one command. Any command other than yes or no declines a
// pending not-found prompt first.
func (c *Interactive) Run(ctx context.Context, command string, params []string) error {
	switch command {
	case "yes", "y", "no", "n":
	default:
		c.Editor.DeclineNotFound()
	}
	switch command {
	case "h", "?", "help":
		return c.help(ctx, params)
	case "search", "s":
		return c.search(ctx, params)
	case "show":
		return c.show(ctx, params)
	case "codes":
		return c.codes(ctx, params)
	case "toggle", "t":
		return c.toggle(ctx, params)
	case "theme":
		return c.theme(ctx, params)
	case "yes", "y":
		return c.yes(ctx, params)
	case "no", "n":
		return c.no(ctx, params)
	case "mode":
		return c.mode(ctx, params)
	case "form":
		return c.form(ctx, params)
	case "set":
		return c.set(ctx, params)
	case "item":
		return c.item(ctx, params)
	case "create":
		return c.create(ctx, params)
	case "update":
		return c.update(ctx, params)
	case "config":
		return c.config(ctx, params)
	case "ping":
		return c.ping(ctx, params)
	case "export":
		return c.export(ctx, params)
	default:
		return errUnrecognizedCommand
	}
}

func (c *Interactive) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c *Interactive) prompt() string {
	if c.Editor.Mode() == editor.ModeCreate {
		return "[create]"
	}
	if s := c.Editor.Shipment(); s != nil {
		return fmt.Sprintf("[%s]", s.ShipmentNumber)
	}
	return "[view]"
}

// flushNotice prints and dismisses the pending notice. A not-found notice
// stays pending so that the next command can answer it.
func (c *Interactive) flushNotice() {
	n, ok := c.Editor.Notice()
	if !ok {
		return
	}
	printNotice(c.out(), n)
	if n.Kind == editor.NoticeNotFound {
		fmt.Fprintln(c.out(), `... enter "yes" to add it or "no" to dismiss`)
		return
	}
	c.Editor.DismissNotice()
}

func (c *Interactive) help(_ context.Context, _ []string) error {
	fmt.Fprintln(c.out(), `... this is Interactive HELP!
  > search | s <number>                           [Search a delivery number, then a shipment number]
  > show                                          [Print the loaded shipment as JSON]
  > codes                                         [List the rendered fields of the loaded shipment]
  > toggle | t <toggle-id>                        [Switch a field between barcode and QR code]
  > theme <#RRGGBB>                               [Change the ink colour of every code]
  > yes | y                                       [Add the number that was not found as a new delivery]
  > no | n                                        [Dismiss the not-found prompt]
  > mode <view|create>                            [Switch between viewing and creating]
    > form                                        [Print the create form]
    > set shipment|delivery|type <value>          [Set a field of the create form]
    > item add                                    [Add an item row for the current delivery type]
    > item rm <index>                             [Remove an item row]
    > item <index> material|serial|seal <value>   [Set a field of an item row]
    > create                                      [Validate and submit the create form]
  > update [file.json]                            [Replace the loaded shipment; without a file the loaded data is sent again]
  > config [show|set <base-url> [token]|reset]    [Show or change the shipment API configuration]
  > ping                                          [Test the connection to the shipment API]
  > export [dir]                                  [Write every code of the loaded shipment to a directory]
  > quit | q`)
	return nil
}

func (c *Interactive) search(ctx context.Context, params []string) error {
	term := strings.Join(params, " ")
	if term == "" {
		term = c.Editor.SearchTerm()
	}
	s, err := c.Editor.Search(ctx, term)
	if err != nil {
		if shipcode.IsNotFound(err) || errors.Is(err, editor.ErrEmptySearch) {
			return nil
		}
		return err
	}
	printMessageWithData(c.out(), fmt.Sprintf("Shipment [%s] with %d deliveries:\n", s.ShipmentNumber, len(s.Deliveries)), s)
	return nil
}

func (c *Interactive) show(_ context.Context, _ []string) error {
	s := c.Editor.Shipment()
	if s == nil {
		return editor.ErrNoShipment
	}
	printMessageWithData(c.out(), "", s)
	return nil
}

func (c *Interactive) codes(_ context.Context, _ []string) error {
	slots := c.Editor.Slots()
	if len(slots) == 0 {
		return editor.ErrNoShipment
	}
	printSlots(c.out(), slots)
	return nil
}

func (c *Interactive) toggle(_ context.Context, params []string) error {
	if len(params) == 0 {
		return errors.New("toggle needs a toggle id; see `codes`")
	}
	kind, err := c.Editor.Toggle(params[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out(), "%s is now shown as %s\n", params[0], kind)
	return nil
}

func (c *Interactive) theme(_ context.Context, params []string) error {
	if len(params) == 0 {
		fmt.Fprintln(c.out(), c.Editor.ThemeColor().Hex())
		return nil
	}
	color, err := c.Editor.SetThemeColor(params[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out(), "Theme colour set to %s\n", color.Hex())
	return nil
}

func (c *Interactive) yes(_ context.Context, _ []string) error {
	if !c.Editor.ConfirmNotFound() {
		return errors.New("nothing to confirm")
	}
	fmt.Fprintf(c.out(), "Create mode: delivery number set to %s\n", c.Editor.Form().DeliveryNumber)
	return nil
}

func (c *Interactive) no(_ context.Context, _ []string) error {
	if !c.Editor.DeclineNotFound() {
		return errors.New("nothing to decline")
	}
	return nil
}

func (c *Interactive) mode(_ context.Context, params []string) error {
	if len(params) == 0 {
		fmt.Fprintln(c.out(), c.Editor.Mode())
		return nil
	}
	switch params[0] {
	case "view":
		c.Editor.SwitchMode(editor.ModeView)
	case "create":
		c.Editor.SwitchMode(editor.ModeCreate)
	default:
		return fmt.Errorf("unknown mode %q: want view or create", params[0])
	}
	return nil
}

func (c *Interactive) requireCreateMode(command string) error {
	if c.Editor.Mode() != editor.ModeCreate {
		return fmt.Errorf("%s command can be only used in create mode. Call first `mode create`", command)
	}
	return nil
}

func (c *Interactive) form(_ context.Context, _ []string) error {
	if err := c.requireCreateMode("`form`"); err != nil {
		return err
	}
	printForm(c.out(), c.Editor.Form(), c.Editor.ValidationErrors())
	return nil
}

func (c *Interactive) set(_ context.Context, params []string) error {
	if err := c.requireCreateMode("`set`"); err != nil {
		return err
	}
	if len(params) < 2 {
		return errors.New("usage: set shipment|delivery|type <value>")
	}
	value := strings.Join(params[1:], " ")
	switch params[0] {
	case "shipment":
		c.Editor.EditForm(func(f *editor.Form) { f.ShipmentNumber = value })
	case "delivery":
		c.Editor.EditForm(func(f *editor.Form) { f.DeliveryNumber = value })
	case "type":
		t, err := shipcode.ParseDeliveryType(value)
		if err != nil {
			return err
		}
		c.Editor.EditForm(func(f *editor.Form) { f.DeliveryType = t })
	default:
		return fmt.Errorf("unknown form field %q", params[0])
	}
	return nil
}

func (c *Interactive) item(_ context.Context, params []string) error {
	if err := c.requireCreateMode("`item`"); err != nil {
		return err
	}
	if len(params) == 0 {
		return errors.New("usage: item add | item rm <index> | item <index> material|serial|seal <value>")
	}
	bulk := c.Editor.Form().DeliveryType == shipcode.DeliveryTypeBulk
	switch params[0] {
	case "add":
		c.Editor.EditForm(func(f *editor.Form) {
			if bulk {
				f.AddBulkItem()
			} else {
				f.AddContainerItem()
			}
		})
		return nil
	case "rm", "remove":
		if len(params) < 2 {
			return errors.New("usage: item rm <index>")
		}
		i, err := strconv.Atoi(params[1])
		if err != nil {
			return fmt.Errorf("invalid item index %q", params[1])
		}
		var removed bool
		c.Editor.EditForm(func(f *editor.Form) {
			if bulk {
				removed = f.RemoveBulkItem(i)
			} else {
				removed = f.RemoveContainerItem(i)
			}
		})
		if !removed {
			return fmt.Errorf("item %d cannot be removed", i)
		}
		return nil
	}
	if len(params) < 3 {
		return errors.New("usage: item <index> material|serial|seal <value>")
	}
	i, err := strconv.Atoi(params[0])
	if err != nil {
		return fmt.Errorf("invalid item index %q", params[0])
	}
	field, value := params[1], strings.Join(params[2:], " ")
	var setErr error
	c.Editor.EditForm(func(f *editor.Form) {
		setErr = setItemField(f, bulk, i, field, value)
	})
	return setErr
}

func setItemField(f *editor.Form, bulk bool, i int, field, value string) error {
	if bulk {
		if i < 0 || i >= len(f.BulkItems) {
			return fmt.Errorf("no bulk item %d", i)
		}
		switch field {
		case "material":
			f.BulkItems[i].MaterialNumber = value
		case "seal":
			f.BulkItems[i].EvdSealNumber = value
		default:
			return fmt.Errorf("bulk items have material and seal, not %q", field)
		}
		return nil
	}
	if i < 0 || i >= len(f.ContainerItems) {
		return fmt.Errorf("no container item %d", i)
	}
	switch field {
	case "material":
		f.ContainerItems[i].MaterialNumber = value
	case "serial":
		f.ContainerItems[i].SerialNumber = value
	default:
		return fmt.Errorf("container items have material and serial, not %q", field)
	}
	return nil
}

func (c *Interactive) create(ctx context.Context, _ []string) error {
	if err := c.requireCreateMode("`create`"); err != nil {
		return err
	}
	err := c.Editor.Create(ctx)
	var validationErr shipcode.ValidationError
	if errors.As(err, &validationErr) {
		printValidationErrors(c.out(), validationErr.Messages)
		return nil
	}
	return err
}

func (c *Interactive) update(ctx context.Context, params []string) error {
	current := c.Editor.Shipment()
	if current == nil {
		return editor.ErrNoShipment
	}
	payload := current.ToUpdateRequest()
	if len(params) > 0 {
		data, err := os.ReadFile(params[0])
		if err != nil {
			return err
		}
		payload = shipcode.UpdateShipmentRequest{}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid update payload: %w", err)
		}
	}
	s, err := c.Editor.Update(ctx, payload)
	if err != nil {
		if errors.Is(err, editor.ErrStaleResponse) {
			return nil
		}
		return err
	}
	printMessageWithData(c.out(), "Updated shipment:\n", s)
	return nil
}

func (c *Interactive) config(_ context.Context, params []string) error {
	action := "show"
	if len(params) > 0 {
		action = params[0]
	}
	switch action {
	case "show":
	case "set":
		if len(params) < 2 {
			return errors.New("usage: config set <base-url> [token]")
		}
		cfg := shipcode.APIConfig{BaseURL: params[1]}
		if len(params) > 2 {
			cfg.BearerToken = params[2]
		}
		if _, err := c.Editor.SaveAPIConfig(cfg); err != nil {
			return err
		}
	case "reset":
		if _, err := c.Editor.ResetAPIConfig(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown config action %q: want show, set or reset", action)
	}
	if c.Config != nil {
		printAPIConfig(c.out(), c.Config.Current())
	}
	return nil
}

func (c *Interactive) ping(ctx context.Context, _ []string) error {
	c.Editor.TestConnection(ctx)
	return nil
}

func (c *Interactive) export(ctx context.Context, params []string) error {
	slots := c.Editor.Slots()
	if len(slots) == 0 {
		return editor.ErrNoShipment
	}
	dir := ""
	if len(params) > 0 {
		dir = params[0]
	}
	if c.Sink == nil {
		return errors.New("export is not available")
	}
	sink, err := c.Sink(ctx, dir)
	if err != nil {
		return err
	}
	ex := export.New(sink, export.WithConcurrency(c.Concurrency), export.WithLogger(c.logger()))
	uploads, err := ex.Export(ctx, slotJobs(slots))
	printUploads(c.out(), uploads)
	return err
}

func (c *Interactive) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func slotJobs(slots []editor.Slot) []export.Job {
	jobs := make([]export.Job, 0, len(slots))
	for _, s := range slots {
		if s.Artifact == nil {
			continue
		}
		jobs = append(jobs, export.Job{Name: export.FileName(s.Path, s.Artifact), Artifact: s.Artifact})
	}
	return jobs
}
