package bandmate

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Bands() *Bands
	Venues() *Venues
	Rehearsals() *Rehearsals
	Songs() *Songs
	Setlists() *Setlists
	Notifications() *Notifications
}

type mngr struct {
	db            *bun.DB
	users         Users
	bands         *Bands
	venues        *Venues
	rehearsals    *Rehearsals
	songs         *Songs
	setlists      *Setlists
	notifications *Notifications
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:            db,
		users:         NewUsersRepository(db),
		bands:         NewBandsRepository(db),
		venues:        NewVenuesRepository(db),
		rehearsals:    NewRehearsalsRepository(db),
		songs:         NewSongsRepository(db),
		setlists:      NewSetlistsRepository(db),
		notifications: NewNotificationsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.bands == nil {
		return errors.New("repository bands should be initialized")
	}

	if m.venues == nil {
		return errors.New("repository venues should be initialized")
	}

	if m.rehearsals == nil {
		return errors.New("repository rehearsals should be initialized")
	}

	if m.songs == nil {
		return errors.New("repository songs should be initialized")
	}

	if m.setlists == nil {
		return errors.New("repository setlists should be initialized")
	}

	if m.notifications == nil {
		return errors.New("repository notifications should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users                  { return m.users }
func (m mngr) Bands() *Bands                 { return m.bands }
func (m mngr) Venues() *Venues               { return m.venues }
func (m mngr) Rehearsals() *Rehearsals       { return m.rehearsals }
func (m mngr) Songs() *Songs                 { return m.songs }
func (m mngr) Setlists() *Setlists           { return m.setlists }
func (m mngr) Notifications() *Notifications { return m.notifications }
