package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jcooky/go-din"
	"github.com/spf13/cobra"

	"github.com/chatrelay/chatrelay/config"
	"github.com/chatrelay/chatrelay/internal/mylog"
	"github.com/chatrelay/chatrelay/server"
)

func newCmd() *cobra.Command {
	params := &struct {
		Port int
	}{}

	cmd := &cobra.Command{
		Use:   "chatrelay",
		Short: "Chat orchestration and provider-routing server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := din.NewContainer(cmd.Context(), din.EnvProd)
			defer c.Close()

			onSig := make(chan os.Signal, 3)
			defer close(onSig)
			signal.Notify(onSig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGABRT)

			cfg := din.MustGetT[*config.ServerConfig](c)
			if params.Port != 0 {
				cfg.Port = params.Port
			}
			logger := din.MustGet[*mylog.Logger](c, mylog.Key)

			handler, err := server.NewHandler(c)
			if err != nil {
				return err
			}

			srv := http.Server{
				Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
				Handler: handler,
			}

			go func() {
				<-onSig
				if err := srv.Shutdown(context.WithoutCancel(c)); err != nil {
					logger.Error("failed to shutdown server", "err", err)
				}
			}()

			logger.Info("Starting server", "host", cfg.Host, "port", cfg.Port)
			defer logger.Info("server stopped")

			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&params.Port, "port", "p", 0, "Override the listen port")

	return cmd
}
