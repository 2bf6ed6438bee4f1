package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/matthieukhl/spatula/internal/database"
	"github.com/matthieukhl/spatula/internal/models"
	"github.com/matthieukhl/spatula/internal/store"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/cobra"
)

var customerFilter uint

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders with their customer and total",
	Long: `Print every order as a table with its customer, number of lines
and total price. Use --customer to show one customer's orders only.`,
	RunE: listOrders,
}

func init() {
	rootCmd.AddCommand(ordersCmd)

	ordersCmd.Flags().UintVar(&customerFilter, "customer", 0, "Only show orders of this customer id")
}

func listOrders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.NewConnection(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return writeOrders(cmd.Context(), cmd.OutOrStdout(), store.NewOrderStore(db), customerFilter)
}

func writeOrders(ctx context.Context, w io.Writer, orders *store.OrderStore, customerID uint) error {
	var list []models.Order
	var err error
	if customerID != 0 {
		list, err = orders.ListForCustomer(ctx, customerID)
	} else {
		list, err = orders.List(ctx)
	}
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(w, "📭 No orders found")
		return nil
	}

	details, err := iter.MapErr(list, func(o *models.Order) (*store.Detail, error) {
		return orders.Detail(ctx, o.ID)
	})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Order", "Number", "Customer", "Lines", "Total")

	grand := decimal.Zero
	for _, d := range details {
		customer := "(missing)"
		if d.Customer != nil {
			customer = d.Customer.Name
		}
		total := d.Total()
		grand = grand.Add(total)
		if err := table.Append([]string{
			strconv.FormatUint(uint64(d.Order.ID), 10),
			d.Order.OrderNumber,
			customer,
			strconv.Itoa(len(d.Lines)),
			total.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	table.Footer("", "", "", "Total", grand.StringFixed(2))
	return table.Render()
}
