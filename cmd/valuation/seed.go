package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"valora/internal/seed"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load portfolios, instruments and an opening holdings snapshot from YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := seed.LoadFile(file)
			if err != nil {
				return err
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := seed.NewLoader(e.db.DB()).Apply(commandContext(cmd), doc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"seeded %s: %d portfolios, %d platforms, %d instruments, %d holdings, %d prices, %d rates\n",
				doc.Date, res.Portfolios, res.Platforms, res.Instruments, res.Holdings, res.Prices, res.Rates)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
