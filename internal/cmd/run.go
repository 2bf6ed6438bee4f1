package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/spatula/internal/database"
	"github.com/matthieukhl/spatula/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the spatula shop server",
	Long: `Start the spatula shop server which provides:
- HTML pages to list, show, create and edit every record
- The same routes as JSON when requested with Accept: application/json
- A health check at /api/health`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runServer(cmd *cobra.Command, args []string) (err error) {
	fmt.Println("🚀 Spatula shop starting...")

	fmt.Println("📝 Loading configuration...")
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.Server.Mode)

	fmt.Printf("🔌 Connecting to %s database...\n", cfg.DB.Driver)
	db, err := database.NewConnection(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	if err := db.Migrate(); err != nil {
		return err
	}
	fmt.Println("✅ Database ready")

	srv := server.NewServer(db)

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("🌐 Listening on %s\n", cfg.Server.Addr)
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Println("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return multierr.Combine(srv.Shutdown(shutdownCtx), <-errCh)
}
