package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/vvatanabe/shipcode/internal/preview"
)

const shutdownTimeout = 5 * time.Second

func (f CommandFactory) CreateServeCommand(flgs *Flags) *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generator cards and rendered codes over HTTP",
		Long:  `Serve the generator cards and rendered codes over HTTP until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := f.newSession(cmd, flgs)
			if err != nil {
				return err
			}
			g := s.newGenerator()
			defer g.Close()

			addr := flgs.Addr
			if addr == "" {
				addr = s.cfg.Preview.Addr
			}
			srv := preview.New(g,
				preview.WithAddr(addr),
				preview.WithAllowOrigins(s.cfg.Preview.AllowOrigins...),
				preview.WithLogger(s.logger))
			return serve(commandContext(cmd), srv)
		},
	}
	c.Flags().StringVar(&flgs.Addr, flagMap.Addr.Name, flagMap.Addr.Value, flagMap.Addr.Usage)
	return c
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *preview.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
