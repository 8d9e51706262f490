package main

import (
	"github.com/spf13/cobra"
)

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Print sitemap.xml to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, svcs, err := openServices()
		if err != nil {
			return err
		}
		defer db.Close()
		defer svcs.Close()

		body, err := svcs.Sitemap.Sitemap(cmd.Context())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(body)
		return err
	},
}
