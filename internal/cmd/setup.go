package cmd

import (
	"fmt"

	"github.com/matthieukhl/spatula/internal/database"
	"github.com/spf13/cobra"
)

var (
	dropFirst   bool
	skipData    bool
	fixturePath string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Set up the database schema and sample data",
	Long: `Creates the customers, shipping_locations, spatulas, orders and
order_lines tables and populates them with sample data.

Seeding replaces every existing row, so running it twice leaves the same
data behind.`,
	RunE: setupDatabase,
}

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().BoolVar(&dropFirst, "drop-first", false, "Drop existing tables before creating")
	setupCmd.Flags().BoolVar(&skipData, "schema-only", false, "Create schema only, skip sample data")
	setupCmd.Flags().StringVar(&fixturePath, "fixture", "", "YAML fixture to seed instead of the built-in one")
}

func setupDatabase(cmd *cobra.Command, args []string) error {
	fmt.Println("🔧 Setting up database...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.NewConnection(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if dropFirst {
		fmt.Println("🗑️  Dropping existing tables...")
		if err := db.DropSchema(); err != nil {
			return err
		}
	}

	fmt.Println("📋 Creating schema...")
	if err := db.Migrate(); err != nil {
		return err
	}

	if skipData {
		fmt.Println("✅ Schema ready")
		return nil
	}

	fixture, err := loadFixture(fixturePath)
	if err != nil {
		return err
	}

	fmt.Println("📊 Populating with sample data...")
	sum, err := db.Seed(cmd.Context(), fixture)
	if err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}
	fmt.Printf("   👥 %d customers\n", sum.Customers)
	fmt.Printf("   📦 %d shipping locations\n", sum.ShippingLocations)
	fmt.Printf("   🍳 %d spatulas\n", sum.Spatulas)
	fmt.Printf("   🛒 %d orders with %d lines\n", sum.Orders, sum.OrderLines)

	fmt.Println("✅ Database setup complete!")
	return nil
}

func loadFixture(path string) (*database.Fixture, error) {
	if path == "" {
		return database.DefaultFixture()
	}
	return database.LoadFixture(path)
}
