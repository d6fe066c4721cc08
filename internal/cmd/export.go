package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/vvatanabe/shipcode/internal/export"
	"github.com/vvatanabe/shipcode/internal/generator"
)

func (f CommandFactory) CreateExportCommand(flgs *Flags) *cobra.Command {
	c := &cobra.Command{
		Use:   "export [number]",
		Short: "Write rendered codes to a directory or an S3 bucket",
		Long: `Write rendered codes to a directory or an S3 bucket.

With a number, every field of the matching shipment is exported. Without
one, the six generator cards are exported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := f.newSession(cmd, flgs)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			var jobs []export.Job
			if len(args) > 0 {
				e := s.newEditor()
				defer e.Close()
				if _, err := e.Search(ctx, args[0]); err != nil {
					f.printNotice(e)
					return err
				}
				jobs = slotJobs(e.Slots())
			} else {
				g := s.newGenerator()
				defer g.Close()
				jobs = cardJobs(g.Cards())
			}

			create := f.CreateSink
			if create == nil {
				create = createSink
			}
			sink, err := create(ctx, s.cfg, flgs)
			if err != nil {
				return err
			}
			ex := export.New(sink,
				export.WithConcurrency(s.cfg.Export.Concurrency),
				export.WithLogger(s.logger))
			uploads, err := ex.Export(ctx, jobs)
			printUploads(f.stdout(), uploads)
			return err
		},
	}
	c.Flags().StringVar(&flgs.Dir, flagMap.Dir.Name, "", flagMap.Dir.Usage)
	c.Flags().StringVar(&flgs.Bucket, flagMap.Bucket.Name, flagMap.Bucket.Value, flagMap.Bucket.Usage)
	return c
}

func cardJobs(cards []generator.Card) []export.Job {
	jobs := make([]export.Job, 0, len(cards))
	for _, c := range cards {
		if c.Artifact == nil || c.Failed {
			continue
		}
		jobs = append(jobs, export.Job{
			Name:     export.FileName("card-"+strconv.Itoa(c.ID), c.Artifact),
			Artifact: c.Artifact,
		})
	}
	return jobs
}
