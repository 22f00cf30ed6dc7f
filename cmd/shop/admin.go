package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ashendes/pickle-storefront/internal/models"
	"github.com/ashendes/pickle-storefront/internal/remote"
)

var adminPassword string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage the catalog",
	Long: `Catalog management needs either the shared admin password
(--admin-password or ADMIN_PASSWORD) or a signed-in account on the
storefront's admin list.`,
}

var adminProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the catalog as the storefront stores it",
	Args:  argsBetween(0, 0),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		products, err := s.remote.AdminProducts(cmd.Context(), s.adminCredential())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range products {
			stock := "in stock"
			if !p.InStock {
				stock = "out of stock"
			}
			fmt.Fprintf(out, "%-10s %-20s %d size(s), %s\n", p.ID, p.Name, len(p.Sizes), stock)
		}
		return nil
	}),
}

var adminSaveCmd = &cobra.Command{
	Use:   "save <product-file>",
	Short: "Create or replace a product from a YAML or JSON file",
	Args:  argsBetween(1, 1),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		p, err := readProduct(args[0])
		if err != nil {
			return err
		}
		resp, err := s.remote.SaveProduct(cmd.Context(), s.adminCredential(), p)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Message, resp.Product.ID)
		return nil
	}),
}

var adminDeleteCmd = &cobra.Command{
	Use:   "delete <product-id>",
	Short: "Remove a product from the catalog",
	Args:  argsBetween(1, 1),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		if err := s.remote.DeleteProduct(cmd.Context(), s.adminCredential(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
		return nil
	}),
}

func init() {
	adminCmd.PersistentFlags().StringVar(&adminPassword, "admin-password", os.Getenv("ADMIN_PASSWORD"), "shared admin password")
	adminCmd.AddCommand(adminProductsCmd, adminSaveCmd, adminDeleteCmd)
	rootCmd.AddCommand(adminCmd)
}

func (s *shop) adminCredential() remote.AdminCredential {
	return remote.AdminCredential{
		Password: adminPassword,
		Token:    s.tracker.Credential().Token,
	}
}

// readProduct loads a product document. YAML is decoded generically and
// re-encoded so the JSON field names apply to both formats.
func readProduct(path string) (*models.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, userErrorf("Could not read %s.", path)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, userErrorf("%s is not valid YAML or JSON: %v", path, err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode product: %w", err)
	}

	var p models.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, userErrorf("%s does not describe a product: %v", path, err)
	}
	if p.ID == "" || p.Name == "" {
		return nil, userErrorf("A product needs an id and a name.")
	}
	return &p, nil
}
