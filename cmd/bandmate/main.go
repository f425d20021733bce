package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/bandmate/bandmate"
	"github.com/bandmate/bandmate/server"
)

func main() {
	cfg := LoadConfig()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("bandmate"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	if !cfg.Production {
		fmt.Println("============")
		fmt.Println(print.MaybePrettyJSON(cfg))
		fmt.Println("============")
	}

	ctx := context.Background()

	bunDB, err := openDatabase(ctx, cfg.DSN)
	if err != nil {
		log.Fatal(err)
	}

	repo := bandmate.NewRepositoryManager(bunDB)
	repo.MustValidate()

	userProvider := bandmate.NewUserProvider(repo.Users()).
		WithLogger(lgr.GetLogger("auth:prv"))

	authenticator := bandmate.NewAuthenticator(userProvider, cfg).
		WithLogger(lgr.GetLogger("auth"))

	srv := server.New(server.Config{
		Production:   cfg.Production,
		StaticDir:    cfg.StaticDir,
		ContextKey:   cfg.ContextKey,
		AuthScheme:   cfg.AuthScheme,
		AllowOrigins: cfg.ClientOrigin,
		Repo:         repo,
		Auth:         authenticator,
		Logger:       lgr.GetLogger("server"),
	})

	supervisor := server.NewSupervisor(lgr.GetLogger("supervisor"), func(timeout time.Duration) error {
		return srv.App().ShutdownWithTimeout(timeout)
	})
	supervisor.Watch()

	dispatcherCtx, cancelDispatcher := context.WithCancel(ctx)
	defer cancelDispatcher()

	dispatcher := server.NewDispatcher(repo, lgr.GetLogger("dispatcher"), supervisor)
	go dispatcher.Run(dispatcherCtx)

	go func() {
		if err := srv.Serve(cfg.HTTPAddr); err != nil {
			supervisor.NotifyFault(err)
		}
	}()

	sig := WaitExitSignal()
	lgr.GetLogger("main").Info("signal received, shutting down", "signal", sig.String())

	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lgr.GetLogger("main").Error("shutdown error", "error", err)
	}
}

func openDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	db, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	bunDB := bun.NewDB(db, sqlitedialect.New())

	if err := createSchema(ctx, bunDB); err != nil {
		return nil, err
	}

	return bunDB, nil
}

// createSchema bootstraps the sqlite schema. Idempotent, runs on every
// start.
func createSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*bandmate.User)(nil),
		(*bandmate.Band)(nil),
		(*bandmate.Venue)(nil),
		(*bandmate.Rehearsal)(nil),
		(*bandmate.Song)(nil),
		(*bandmate.Setlist)(nil),
		(*bandmate.SetlistSong)(nil),
		(*bandmate.Notification)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
