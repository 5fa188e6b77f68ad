package cli

import (
	"context"
	"fmt"

	"github.com/aiarchives/aiarchives/pkg/usecase/conversation"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Offset for pagination",
			Value:       0,
			Sources:     cli.EnvVars("AIARCHIVES_LIST_OFFSET"),
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of conversations to list (1-100)",
			Value:       conversation.DefaultListLimit,
			Sources:     cli.EnvVars("AIARCHIVES_LIST_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List archived conversations, newest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.setupLogger(); err != nil {
				return err
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			uc, err := cfg.newMetadataUseCase(repo)
			if err != nil {
				return err
			}

			records, err := uc.List(ctx, conversation.ListOptions{
				Offset: int(offset),
				Limit:  int(limit),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to list conversations")
			}

			for _, r := range records {
				fmt.Printf("%s  %-10s  %5d views  %s\n",
					r.ID, r.Model, r.Views, r.CreatedAt.Local().Format("2006-01-02 15:04"))
				if cfg.baseURL != "" {
					fmt.Printf("    %s\n", uc.Permalink(r.ID))
				}
			}
			return nil
		},
	}
}
