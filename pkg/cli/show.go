package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func showCommand() *cli.Command {
	var (
		cfg         config
		id          model.ConversationID
		showContent bool
		showURL     bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Conversation ID to show",
			Sources:     cli.EnvVars("AIARCHIVES_CONVERSATION_ID"),
			Destination: (*string)(&id),
			Required:    true,
		},
		&cli.BoolFlag{
			Name:        "content",
			Aliases:     []string{"c"},
			Usage:       "Print the stored HTML instead of the metadata",
			Destination: &showContent,
		},
		&cli.BoolFlag{
			Name:        "url",
			Aliases:     []string{"u"},
			Usage:       "Print a signed URL to the stored HTML",
			Destination: &showURL,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show a conversation without counting a view",
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

			if !showContent && !showURL {
				uc, err := cfg.newMetadataUseCase(repo)
				if err != nil {
					return err
				}
				record, err := uc.Get(ctx, id)
				if err != nil {
					return goerr.Wrap(err, "failed to show conversation")
				}
				return printRecord(record)
			}

			uc, store, err := cfg.newUseCase(ctx, repo)
			if err != nil {
				return err
			}
			defer store.Close()

			if showURL {
				url, err := uc.SignedURL(ctx, id)
				if err != nil {
					return goerr.Wrap(err, "failed to get signed url")
				}
				fmt.Println(url)
				return nil
			}

			detail, err := uc.Show(ctx, id)
			if err != nil {
				return goerr.Wrap(err, "failed to show conversation")
			}
			fmt.Print(detail.Content)
			return nil
		},
	}
}

func printRecord(record *model.ConversationRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal conversation")
	}
	fmt.Println(string(data))
	return nil
}
