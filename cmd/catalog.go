package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fjod/go_cart/certshop/internal/config"
	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/repository"
	"github.com/urfave/cli/v2"
)

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "print the product catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "product", Usage: "show a single product by id"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if id := c.String("product"); id != "" && cfg.UsesRepository() {
				repo, err := repository.NewRepository(cfg.Catalog.DBPath)
				if err != nil {
					return err
				}
				defer repo.Close()
				if err := repo.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
					return err
				}
				p, err := repo.GetProduct(c.Context, id)
				if err != nil {
					return err
				}
				return printProducts([]domain.Product{*p})
			}

			catalog, err := loadCatalog(c.Context, cfg)
			if err != nil {
				return err
			}
			if id := c.String("product"); id != "" {
				p, ok := catalog.Lookup(id)
				if !ok {
					return fmt.Errorf("%w: %s", repository.ErrProductNotFound, id)
				}
				return printProducts([]domain.Product{p})
			}
			return printProducts(catalog.Products())
		},
	}
}

func printProducts(products []domain.Product) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tUNIT")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), p.Unit)
	}
	return tw.Flush()
}
