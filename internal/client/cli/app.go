package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmitrijs2005/phototimeline/internal/client/client"
	"github.com/dmitrijs2005/phototimeline/internal/client/config"
	"github.com/dmitrijs2005/phototimeline/internal/client/gate"
	"github.com/dmitrijs2005/phototimeline/internal/client/imaging"
	"github.com/dmitrijs2005/phototimeline/internal/client/localstore"
	"github.com/dmitrijs2005/phototimeline/internal/client/photofs"
	"github.com/dmitrijs2005/phototimeline/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/phototimeline/internal/client/services"
	"github.com/dmitrijs2005/phototimeline/internal/client/session"
	"github.com/dmitrijs2005/phototimeline/internal/client/storage"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/cryptox"
	"github.com/dmitrijs2005/phototimeline/internal/filex"
	"github.com/dmitrijs2005/phototimeline/internal/logging"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
)

// App is the wiring behind every command. It is opened lazily, before the
// first command that needs it runs.
type App struct {
	cfg *config.Config
	in  *bufio.Reader
	out io.Writer

	logger    logging.Logger
	db        *sql.DB
	session   *session.JWTSession
	store     remote.Store
	gate      *gate.OfflineGate
	files     *photofs.Store
	journal   *services.JournalService
	passwords *services.PasswordService

	closers []io.Closer
}

func NewApp(cfg *config.Config, in io.Reader, out io.Writer) *App {
	return &App{cfg: cfg, in: bufio.NewReader(in), out: out, logger: logging.NopLogger{}}
}

func (a *App) opened() bool { return a.journal != nil }

// Open creates the data directory, migrates the database and connects the
// remote store. Opening an opened App does nothing.
func (a *App) Open(ctx context.Context) (err error) {
	if a.opened() {
		return nil
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if _, err := filex.EnsureDir(a.cfg.DataDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	logFile := logging.NewFileWriter(a.cfg.LogPath())
	a.closers = append(a.closers, logFile)
	a.logger = logging.NewSlogLogger(slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelInfo})))

	db, err := storage.InitDatabase(ctx, a.cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db)

	a.session = session.New(metadata.NewSQLiteRepository(db))

	switch a.cfg.RemoteMode {
	case config.RemoteMemory:
		a.store = remote.NewMemoryStore()
	default:
		c, err := client.NewGRPCClient(a.cfg.ServerEndpointAddr, a.session, a.cfg.RequestTimeout,
			client.WithMaxMessageSize(a.cfg.MaxMessageSize))
		if err != nil {
			return err
		}
		a.store = c
		a.closers = append(a.closers, c)
	}

	codec, err := cryptox.New(a.cfg.Codec, cryptox.Options{AgeWorkFactor: a.cfg.AgeWorkFactor})
	if err != nil {
		return err
	}
	imager := imaging.Default{}
	if a.files, err = photofs.New(a.cfg.PhotoDir(), imager); err != nil {
		return err
	}

	a.gate = gate.New(a.session, a.store, a.cfg.RequestTimeout, a.logger)
	a.passwords = services.NewPasswordService(db)
	a.journal = services.NewJournalService(
		localstore.New(db),
		services.NewRemoteJournal(a.store, codec, imager, a.logger),
		a.gate, a.files, a.logger,
	)
	return nil
}

// Close releases everything Open acquired, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	a.journal = nil
	return errors.Join(errs...)
}

// password prompts for the photo password and checks it against the
// stored verifier.
func (a *App) password(ctx context.Context) ([]byte, error) {
	pw, err := GetPassword(a.out, "Photo password")
	if err != nil {
		return nil, err
	}
	if err := a.passwords.Verify(ctx, pw); err != nil {
		common.WipeByteArray(pw)
		if errors.Is(err, common.ErrEmptyPassword) {
			return nil, fmt.Errorf("%w: run 'password set' first", err)
		}
		return nil, err
	}
	return pw, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
