package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/morris-shopline/shopline-tw-lab/internal/config"
	"github.com/morris-shopline/shopline-tw-lab/internal/logging"
	"github.com/morris-shopline/shopline-tw-lab/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := logging.LoadLevel(); err != nil {
		logrus.WithError(err).Warn("falling back to info log level")
	}

	conf, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	if conf.Session.UsesDevelopmentSecret() {
		logrus.Warn("session.secret is not set, cookies are signed with a development secret")
	}
	if conf.Webhook.Secret == "" {
		logrus.Warn("webhook.secret is not set, webhook signatures cannot be verified")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(conf)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.WithFields(logrus.Fields{
			"addr":   srv.Addr,
			"appURL": conf.Server.AppURL,
		}).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}
