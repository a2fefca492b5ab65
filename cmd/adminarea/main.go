package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"adminarea"
	"adminarea/internal/config"
	"adminarea/internal/db"
	"adminarea/internal/models"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "adminarea",
		Short:         "Admin area for gorm databases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin area",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			gdb, err := db.Open(cfg)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			r := chi.NewRouter()
			r.Use(middleware.RequestID)
			r.Use(middleware.RealIP)
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)
			r.Use(middleware.Timeout(30 * time.Second))

			app := adminarea.NewApp(r)
			area, err := adminarea.Configure(app, gdb, nil,
				adminarea.WithSessionSecret(cfg.SessionSecret),
				adminarea.WithSessionMaxAge(cfg.SessionMaxAge),
				adminarea.WithSecureCookies(cfg.SecureCookies),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := area.Wait(ctx); err != nil {
				return fmt.Errorf("sync admins table: %w", err)
			}

			app.Mount(cfg.MountPath, area)
			app.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, cfg.MountPath+"/", http.StatusFound)
			})

			srv := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           app,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s (admin area at %s)", cfg.Addr(), cfg.MountPath)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			log.Println("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the admins table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			gdb, err := db.Open(cfg)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			if err := models.SyncAdmins(cmd.Context(), gdb); err != nil {
				return err
			}
			fmt.Println("admins table is up to date")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Add an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			login, _ := cmd.Flags().GetString("login")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if login == "" || password == "" {
				return errors.New("both --login and --password (or ADMIN_PASSWORD) are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			gdb, err := db.Open(cfg)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			if err := models.SyncAdmins(cmd.Context(), gdb); err != nil {
				return err
			}
			a, err := models.CreateAdmin(cmd.Context(), gdb, login, password)
			if err != nil {
				return err
			}
			fmt.Printf("created admin %q (id %d)\n", a.Login, a.ID)
			return nil
		},
	}

	cmd.Flags().String("login", "", "Admin login")
	cmd.Flags().String("password", "", "Admin password")

	return cmd
}
