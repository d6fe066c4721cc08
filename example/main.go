package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vvatanabe/shipcode"
	"github.com/vvatanabe/shipcode/internal/export"
	"github.com/vvatanabe/shipcode/internal/render"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: example <delivery-or-shipment-number>")
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ------------------------------
	// Create the shipment API client
	// ------------------------------
	api := shipcode.NewConfigManager(shipcode.APIConfig{
		BaseURL:     os.Getenv("SHIPCODE_API_BASEURL"),
		BearerToken: os.Getenv("SHIPCODE_API_TOKEN"),
	}, nil)
	client := shipcode.NewClient(api, shipcode.WithTimeout(10*time.Second))

	// ------------------------------
	// Look the number up
	// ------------------------------
	out, err := client.SearchShipment(ctx, &shipcode.SearchShipmentInput{Term: os.Args[1]})
	if err != nil {
		fmt.Println("failed to search:", err)
		os.Exit(1)
	}
	fmt.Printf("found shipment %s by %s\n", out.Shipment.ShipmentNumber, out.MatchedBy)

	// ------------------------------
	// Render every delivery number as a QR code and export them
	// ------------------------------
	var jobs []export.Job
	for _, d := range out.Shipment.Deliveries {
		a, err := render.Render(d.DeliveryNumber, render.KindQR, render.DefaultThemeColor, render.RecordStyle)
		if err != nil || a == nil {
			fmt.Printf("skipping %q: %v\n", d.DeliveryNumber, err)
			continue
		}
		jobs = append(jobs, export.Job{Name: export.FileName(d.DeliveryNumber, a), Artifact: a})
	}

	exporter := export.New(export.DirSink{Dir: "codes"})
	uploads, err := exporter.Export(ctx, jobs)
	for _, u := range uploads {
		fmt.Println("wrote", u.Location)
	}
	if err != nil {
		fmt.Println(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := exporter.Shutdown(shutdownCtx); err != nil {
		fmt.Println("failed to shut the exporter down:", err)
	}
}
