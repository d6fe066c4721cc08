package cmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvatanabe/shipcode"
	"github.com/vvatanabe/shipcode/internal/cmd"
	"github.com/vvatanabe/shipcode/internal/editor"
	"github.com/vvatanabe/shipcode/internal/export"
	"github.com/vvatanabe/shipcode/internal/mock"
	"github.com/vvatanabe/shipcode/internal/prefs"
)

func newInteractive(t *testing.T, client shipcode.Client) (*cmd.Interactive, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	p := prefs.New(prefs.NewMemoryStore(), nil)
	api := shipcode.NewConfigManager(shipcode.DefaultAPIConfig(), p)
	e := editor.New(client, p, editor.WithConfig(api))
	t.Cleanup(e.Close)
	return &cmd.Interactive{
		Editor: e,
		Config: api,
		Out:    &out,
		Sink: func(ctx context.Context, dir string) (export.Sink, error) {
			return export.DirSink{Dir: dir}, nil
		},
	}, &out
}

func TestRunInteractiveWithoutShipment(t *testing.T) {
	tests := []struct {
		name    string
		command string
		params  []string
		wantErr bool
	}{
		{name: "run help", command: "help"},
		{name: "run search with blank term", command: "search"},
		{name: "run theme", command: "theme"},
		{name: "run mode", command: "mode"},
		{name: "run config", command: "config"},
		{name: "run show should return error when no shipment is loaded", command: "show", wantErr: true},
		{name: "run codes should return error when no shipment is loaded", command: "codes", wantErr: true},
		{name: "run update should return error when no shipment is loaded", command: "update", wantErr: true},
		{name: "run export should return error when no shipment is loaded", command: "export", wantErr: true},
		{name: "run toggle without id", command: "toggle", wantErr: true},
		{name: "run toggle with unknown id", command: "toggle", params: []string{"nope"}, wantErr: true},
		{name: "run yes without prompt", command: "yes", wantErr: true},
		{name: "run no without prompt", command: "no", wantErr: true},
		{name: "run form in view mode", command: "form", wantErr: true},
		{name: "run set in view mode", command: "set", params: []string{"shipment", "S"}, wantErr: true},
		{name: "run item in view mode", command: "item", params: []string{"add"}, wantErr: true},
		{name: "run create in view mode", command: "create", wantErr: true},
		{name: "run mode with unknown mode", command: "mode", params: []string{"edit"}, wantErr: true},
		{name: "run theme with invalid colour", command: "theme", params: []string{"blue"}, wantErr: true},
		{name: "run config with unknown action", command: "config", params: []string{"drop"}, wantErr: true},
		{name: "run config set without url", command: "config", params: []string{"set"}, wantErr: true},
		{name: "run unrecognized command", command: "foo", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newInteractive(t, mock.SuccessfulMockClient)
			err := c.Run(context.Background(), tt.command, tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRunInteractiveCreateForm(t *testing.T) {
	c, out := newInteractive(t, mock.SuccessfulMockClient)
	ctx := context.Background()
	run := func(command string, params ...string) error {
		return c.Run(ctx, command, params)
	}

	require.NoError(t, run("mode", "create"))
	require.NoError(t, run("set", "type", "bulk"))
	require.NoError(t, run("item", "add"))
	require.NoError(t, run("item", "1", "seal", "EVD-2"))
	require.NoError(t, run("item", "rm", "0"))
	assert.Error(t, run("item", "rm", "0"), "the last row stays")
	assert.Error(t, run("item", "0", "serial", "X"), "bulk items have no serial")
	assert.Error(t, run("item", "5", "seal", "X"))
	assert.Error(t, run("set", "type", "liquid"))
	assert.Error(t, run("set", "colour", "red"))

	form := c.Editor.Form()
	assert.Equal(t, shipcode.DeliveryTypeBulk, form.DeliveryType)
	assert.Equal(t, []shipcode.BulkItem{{EvdSealNumber: "EVD-2"}}, form.BulkItems)
	assert.Len(t, form.ContainerItems, 1, "container rows are kept while editing")

	require.NoError(t, run("create"))
	assert.Contains(t, out.String(), "* Shipment number is required")
	assert.Contains(t, out.String(), "* Bulk item 1: Material number is required")
}

func TestRunInteractiveUpdate(t *testing.T) {
	client := shipmentAPI()
	c, out := newInteractive(t, client)
	ctx := context.Background()
	require.NoError(t, c.Run(ctx, "search", []string{"DL-1"}))

	require.NoError(t, c.Run(ctx, "update", nil))
	assert.Contains(t, out.String(), "Updated shipment:")

	file := filepath.Join(t.TempDir(), "update.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"deliveries":[{"deliveryNumber":"DL-1","deliveryType":0}]}`), 0o600))
	require.NoError(t, c.Run(ctx, "update", []string{file}))
	assert.Len(t, c.Editor.Shipment().Deliveries, 1)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	assert.Error(t, c.Run(ctx, "update", []string{bad}))
	assert.Error(t, c.Run(ctx, "update", []string{filepath.Join(t.TempDir(), "missing.json")}))
}

func TestRunInteractiveSearchError(t *testing.T) {
	client := &mock.Client{
		SearchShipmentFunc: func(ctx context.Context, params *shipcode.SearchShipmentInput) (*shipcode.SearchShipmentOutput, error) {
			return nil, shipcode.APIError{Status: 500, Message: "boom"}
		},
	}
	c, _ := newInteractive(t, client)
	err := c.Run(context.Background(), "search", []string{"DL-1"})
	assert.Error(t, err)
	n, ok := c.Editor.Notice()
	require.True(t, ok)
	assert.Equal(t, editor.Notice{Kind: editor.NoticeError, Title: "Search Error", Message: "boom"}, n)
}

func TestRunInteractiveExport(t *testing.T) {
	c, out := newInteractive(t, shipmentAPI())
	ctx := context.Background()
	require.NoError(t, c.Run(ctx, "search", []string{"DL-2"}))
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, c.Run(ctx, "export", []string{dir}))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	// shipment, two deliveries, two container items and one bulk item with two fields each.
	assert.Len(t, entries, 1+2+2*2+1*2)
	assert.Contains(t, out.String(), "Exported 9 file(s)")
}
