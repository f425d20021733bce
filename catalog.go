package bandmate

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Band is a group of musicians that rehearses and performs together.
type Band struct {
	bun.BaseModel `bun:"table:bands,alias:bnd"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	Genre         string     `bun:"genre" json:"genre,omitempty"`
	ImageURL      string     `bun:"image_url" json:"imageUrl,omitempty"`
	CreatedByID   uuid.UUID  `bun:"created_by_id,notnull,type:uuid" json:"createdById,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Venue is a rehearsal or performance location.
type Venue struct {
	bun.BaseModel `bun:"table:venues,alias:vnu"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Address       string     `bun:"address" json:"address,omitempty"`
	City          string     `bun:"city" json:"city,omitempty"`
	ContactPhone  string     `bun:"contact_phone" json:"contactPhone,omitempty"`
	Capacity      int        `bun:"capacity" json:"capacity,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Rehearsal is a scheduled practice session for a band.
type Rehearsal struct {
	bun.BaseModel `bun:"table:rehearsals,alias:rhs"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	BandID        uuid.UUID  `bun:"band_id,notnull,type:uuid" json:"bandId,omitempty"`
	Band          *Band      `bun:"rel:belongs-to,join:band_id=id" json:"band,omitempty"`
	VenueID       *uuid.UUID `bun:"venue_id,type:uuid" json:"venueId,omitempty"`
	Venue         *Venue     `bun:"rel:belongs-to,join:venue_id=id" json:"venue,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	Notes         string     `bun:"notes" json:"notes,omitempty"`
	StartsAt      time.Time  `bun:"starts_at,notnull" json:"startsAt,omitempty"`
	EndsAt        time.Time  `bun:"ends_at,notnull" json:"endsAt,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Song is a piece in a band's repertoire.
type Song struct {
	bun.BaseModel `bun:"table:songs,alias:sng"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	BandID        uuid.UUID  `bun:"band_id,notnull,type:uuid" json:"bandId,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	Artist        string     `bun:"artist" json:"artist,omitempty"`
	DurationSec   int        `bun:"duration_sec" json:"durationSec,omitempty"`
	SongKey       string     `bun:"song_key" json:"key,omitempty"`
	Notes         string     `bun:"notes" json:"notes,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Setlist is an ordered selection of songs, optionally pinned to a rehearsal.
type Setlist struct {
	bun.BaseModel `bun:"table:setlists,alias:stl"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	BandID        uuid.UUID      `bun:"band_id,notnull,type:uuid" json:"bandId,omitempty"`
	RehearsalID   *uuid.UUID     `bun:"rehearsal_id,type:uuid" json:"rehearsalId,omitempty"`
	Name          string         `bun:"name,notnull" json:"name,omitempty"`
	Notes         string         `bun:"notes" json:"notes,omitempty"`
	Songs         []*SetlistSong `bun:"rel:has-many,join:id=setlist_id" json:"songs,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt     *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// SetlistSong is one positioned entry of a setlist.
type SetlistSong struct {
	bun.BaseModel `bun:"table:setlist_songs,alias:sls"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SetlistID     uuid.UUID  `bun:"setlist_id,notnull,type:uuid" json:"setlistId,omitempty"`
	SongID        uuid.UUID  `bun:"song_id,notnull,type:uuid" json:"songId,omitempty"`
	Song          *Song      `bun:"rel:belongs-to,join:song_id=id" json:"song,omitempty"`
	Position      int        `bun:"position,notnull" json:"position"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"-"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"-"`
}

// Notification delivery states. A notification with a DeliverAt in the
// past and no DeliveredAt is due for the dispatcher.
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:ntf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"userId,omitempty"`
	Kind          string     `bun:"kind,notnull" json:"kind,omitempty"`
	Message       string     `bun:"message,notnull" json:"message,omitempty"`
	DeliverAt     *time.Time `bun:"deliver_at" json:"deliverAt,omitempty"`
	DeliveredAt   *time.Time `bun:"delivered_at" json:"deliveredAt,omitempty"`
	ReadAt        *time.Time `bun:"read_at" json:"readAt,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

const (
	// NotificationRehearsalReminder announces an upcoming rehearsal.
	NotificationRehearsalReminder = "rehearsal_reminder"
	// NotificationBandUpdate announces a change to band data.
	NotificationBandUpdate = "band_update"
)
