package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/riverbank-network/riverbank/internal/api"
	"github.com/riverbank-network/riverbank/internal/bank"
	"github.com/riverbank-network/riverbank/internal/daemon"
	"github.com/riverbank-network/riverbank/internal/infra/rolefile"
	"github.com/riverbank-network/riverbank/internal/infra/sqlite"
	"github.com/riverbank-network/riverbank/internal/ledger"
	"github.com/riverbank-network/riverbank/internal/roles"
	"github.com/riverbank-network/riverbank/internal/session"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bank service",
	Long:  `Start the bank: open the ledger database, load roles and serve the HTTP ingress until interrupted.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0o755); err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewLedger(db)
	audit := sqlite.NewAuditLog(db)
	auth := roles.New(cfg.Bank.OwnerID, rolefile.New(cfg.Storage.RolesPath))
	history := ledger.NewHistory()
	proc := bank.NewProcessor(auth, store, history, audit)
	sessions := session.NewManager(store, history, auth, logPresenter{}, cfg.ExpiryWindow())

	server := api.NewServer(proc, sessions, store, auth, audit)
	server.EnableMetrics()

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[serve] listening on %s", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("[serve] %s received, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// logPresenter is the daemon-side view transport. The chat transport renders
// views from session state it fetches over HTTP; the daemon just records
// render and removal activity.
type logPresenter struct{}

func (logPresenter) Show(_ context.Context, messageID string, v session.View) {
	log.Printf("[session] show %s view on message %s", v.Kind, messageID)
}

func (logPresenter) Remove(_ context.Context, messageID string) {
	log.Printf("[session] remove message %s", messageID)
}
