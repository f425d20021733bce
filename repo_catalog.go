package bandmate

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Bands is the persistence surface for band records.
type Bands struct {
	db *bun.DB
}

func NewBandsRepository(db *bun.DB) *Bands {
	return &Bands{db: db}
}

func (r *Bands) List(ctx context.Context) ([]*Band, error) {
	var records []*Band
	err := r.db.NewSelect().
		Model(&records).
		Order("bnd.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Bands) GetByID(ctx context.Context, id uuid.UUID) (*Band, error) {
	record := &Band{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, catalogNotFound(err, "band", id)
	}
	return record, nil
}

func (r *Bands) Create(ctx context.Context, record *Band) (*Band, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(record).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Bands) Update(ctx context.Context, record *Band) (*Band, error) {
	now := time.Now()
	record.UpdatedAt = &now
	res, err := r.db.NewUpdate().
		Model(record).
		OmitZero().
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res, "band", record.ID); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

func (r *Bands) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Band)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, "band", id)
}

// Venues is the persistence surface for venue records.
type Venues struct {
	db *bun.DB
}

func NewVenuesRepository(db *bun.DB) *Venues {
	return &Venues{db: db}
}

func (r *Venues) List(ctx context.Context) ([]*Venue, error) {
	var records []*Venue
	err := r.db.NewSelect().
		Model(&records).
		Order("vnu.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Venues) GetByID(ctx context.Context, id uuid.UUID) (*Venue, error) {
	record := &Venue{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, catalogNotFound(err, "venue", id)
	}
	return record, nil
}

func (r *Venues) Create(ctx context.Context, record *Venue) (*Venue, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(record).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Venues) Update(ctx context.Context, record *Venue) (*Venue, error) {
	now := time.Now()
	record.UpdatedAt = &now
	res, err := r.db.NewUpdate().
		Model(record).
		OmitZero().
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res, "venue", record.ID); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

func (r *Venues) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Venue)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, "venue", id)
}

// Rehearsals is the persistence surface for rehearsal records.
type Rehearsals struct {
	db *bun.DB
}

func NewRehearsalsRepository(db *bun.DB) *Rehearsals {
	return &Rehearsals{db: db}
}

func (r *Rehearsals) List(ctx context.Context, bandID uuid.UUID) ([]*Rehearsal, error) {
	var records []*Rehearsal
	q := r.db.NewSelect().
		Model(&records).
		Relation("Band").
		Relation("Venue").
		Order("rhs.starts_at ASC")
	if bandID != uuid.Nil {
		q = q.Where("rhs.band_id = ?", bandID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

// ListUpcoming returns rehearsals starting within the given window,
// used by the notification dispatcher to seed reminders.
func (r *Rehearsals) ListUpcoming(ctx context.Context, within time.Duration) ([]*Rehearsal, error) {
	now := time.Now()
	var records []*Rehearsal
	err := r.db.NewSelect().
		Model(&records).
		Relation("Band").
		Where("rhs.starts_at > ?", now).
		Where("rhs.starts_at <= ?", now.Add(within)).
		Order("rhs.starts_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Rehearsals) GetByID(ctx context.Context, id uuid.UUID) (*Rehearsal, error) {
	record := &Rehearsal{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Band").
		Relation("Venue").
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, catalogNotFound(err, "rehearsal", id)
	}
	return record, nil
}

func (r *Rehearsals) Create(ctx context.Context, record *Rehearsal) (*Rehearsal, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(record).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

func (r *Rehearsals) Update(ctx context.Context, record *Rehearsal) (*Rehearsal, error) {
	now := time.Now()
	record.UpdatedAt = &now
	res, err := r.db.NewUpdate().
		Model(record).
		OmitZero().
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res, "rehearsal", record.ID); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

func (r *Rehearsals) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Rehearsal)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, "rehearsal", id)
}

// Songs is the persistence surface for repertoire records.
type Songs struct {
	db *bun.DB
}

func NewSongsRepository(db *bun.DB) *Songs {
	return &Songs{db: db}
}

func (r *Songs) List(ctx context.Context, bandID uuid.UUID) ([]*Song, error) {
	var records []*Song
	q := r.db.NewSelect().
		Model(&records).
		Order("sng.title ASC")
	if bandID != uuid.Nil {
		q = q.Where("sng.band_id = ?", bandID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Songs) GetByID(ctx context.Context, id uuid.UUID) (*Song, error) {
	record := &Song{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, catalogNotFound(err, "song", id)
	}
	return record, nil
}

func (r *Songs) Create(ctx context.Context, record *Song) (*Song, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(record).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Songs) Update(ctx context.Context, record *Song) (*Song, error) {
	now := time.Now()
	record.UpdatedAt = &now
	res, err := r.db.NewUpdate().
		Model(record).
		OmitZero().
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res, "song", record.ID); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

func (r *Songs) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Song)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, "song", id)
}

// Setlists is the persistence surface for setlists and their entries.
type Setlists struct {
	db *bun.DB
}

func NewSetlistsRepository(db *bun.DB) *Setlists {
	return &Setlists{db: db}
}

func (r *Setlists) List(ctx context.Context, bandID uuid.UUID) ([]*Setlist, error) {
	var records []*Setlist
	q := r.db.NewSelect().
		Model(&records).
		Order("stl.created_at DESC")
	if bandID != uuid.Nil {
		q = q.Where("stl.band_id = ?", bandID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Setlists) GetByID(ctx context.Context, id uuid.UUID) (*Setlist, error) {
	record := &Setlist{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Songs", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sls.position ASC")
		}).
		Relation("Songs.Song").
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, catalogNotFound(err, "setlist", id)
	}
	return record, nil
}

func (r *Setlists) Create(ctx context.Context, record *Setlist) (*Setlist, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	songs := record.Songs
	record.Songs = nil

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return err
		}
		return insertSetlistSongs(ctx, tx, record.ID, songs)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

func (r *Setlists) Update(ctx context.Context, record *Setlist) (*Setlist, error) {
	now := time.Now()
	record.UpdatedAt = &now
	songs := record.Songs
	record.Songs = nil

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(record).
			OmitZero().
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected(res, "setlist", record.ID); err != nil {
			return err
		}
		if songs == nil {
			return nil
		}
		// a non nil song slice replaces the whole ordering
		if _, err := tx.NewDelete().
			Model((*SetlistSong)(nil)).
			Where("setlist_id = ?", record.ID).
			Exec(ctx); err != nil {
			return err
		}
		return insertSetlistSongs(ctx, tx, record.ID, songs)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

func (r *Setlists) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*SetlistSong)(nil)).
			Where("setlist_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*Setlist)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireAffected(res, "setlist", id)
	})
}

func insertSetlistSongs(ctx context.Context, tx bun.Tx, setlistID uuid.UUID, songs []*SetlistSong) error {
	if len(songs) == 0 {
		return nil
	}
	for i, entry := range songs {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.SetlistID = setlistID
		entry.Position = i + 1
		entry.Song = nil
	}
	_, err := tx.NewInsert().Model(&songs).Exec(ctx)
	return err
}

// Notifications is the persistence surface for notification records.
type Notifications struct {
	db *bun.DB
}

func NewNotificationsRepository(db *bun.DB) *Notifications {
	return &Notifications{db: db}
}

func (r *Notifications) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Notification, error) {
	var records []*Notification
	err := r.db.NewSelect().
		Model(&records).
		Where("ntf.user_id = ?", userID).
		Where("ntf.delivered_at IS NOT NULL").
		Order("ntf.delivered_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Notifications) Create(ctx context.Context, record *Notification) (*Notification, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(record).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListDue returns undelivered notifications whose deliver_at has passed.
func (r *Notifications) ListDue(ctx context.Context, limit int) ([]*Notification, error) {
	var records []*Notification
	err := r.db.NewSelect().
		Model(&records).
		Where("ntf.delivered_at IS NULL").
		Where("ntf.deliver_at IS NOT NULL").
		Where("ntf.deliver_at <= ?", time.Now()).
		Order("ntf.deliver_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Notifications) MarkDelivered(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.NewUpdate().
		Model((*Notification)(nil)).
		Set("delivered_at = ?", time.Now()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return err
}

func (r *Notifications) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*Notification)(nil)).
		Set("read_at = ?", time.Now()).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, "notification", id)
}

func catalogNotFound(err error, resource string, id uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return repository.NewRecordNotFound().WithMetadata(map[string]any{
			"resource": resource,
			"id":       id.String(),
		})
	}
	return err
}

func requireAffected(res sql.Result, resource string, id uuid.UUID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.NewRecordNotFound().WithMetadata(map[string]any{
			"resource": resource,
			"id":       id.String(),
		})
	}
	return nil
}
