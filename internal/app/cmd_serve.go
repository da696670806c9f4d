// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/cristalhq/acmd"

	"codeberg.org/readeck/metaextract/configs"
	"codeberg.org/readeck/metaextract/internal/cache"
	"codeberg.org/readeck/metaextract/internal/httpclient"
	"codeberg.org/readeck/metaextract/internal/server"
)

func init() {
	commands = append(commands, acmd.Command{
		Name:        "serve",
		Description: "Start the extraction HTTP server",
		ExecFunc:    runServe,
	})
}

func runServe(ctx context.Context, args []string) error {
	var host string
	var port int

	var flags appFlags
	fs := flags.Flags()
	fs.StringVar(&host, "host", "", "server host")
	fs.IntVar(&port, "port", 0, "server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := appPreRun(&flags); err != nil {
		return err
	}
	if host != "" {
		configs.Config.Server.Host = host
	}
	if port > 0 {
		configs.Config.Server.Port = port
	}

	client, err := httpclient.New(httpclient.ConfigOptions()...)
	if err != nil {
		return err
	}
	c, err := cache.FromConfig()
	if err != nil {
		return err
	}

	s := server.New(client, c)
	s.Init()

	srv := &http.Server{
		Addr:              configs.Config.Server.ListenAddr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("stopping server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", slog.Any("err", err))
		}
	}()

	printBanner(os.Stderr)
	slog.Info("starting server",
		slog.String("addr", srv.Addr),
		slog.String("cache", configs.Config.Cache.Backend),
		slog.Bool("metrics", configs.Config.Metrics.Enabled),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("server error", err)
	}
	return nil
}

// printBanner writes the server's address, in color on a terminal.
func printBanner(w io.Writer) {
	addr := "http://" + configs.Config.Server.ListenAddr() +
		strings.TrimSuffix(path.Join("/", configs.Config.Server.Prefix), "/")

	if !isTerminal(w) {
		fmt.Fprintf(w, "metaextract %s on %s\n", configs.Version(), addr) //nolint:errcheck
		return
	}

	fmt.Fprintf(w, "%smetaextract%s %s%s%s on %s%s%s\n", //nolint:errcheck
		bold, colorReset,
		colorYellow, configs.Version(), colorReset,
		colorGreen, addr, colorReset,
	)
}
