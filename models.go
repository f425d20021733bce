package bandmate

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model. JSON tags follow the wire contract the SPA
// consumes (camelCase); bun tags follow the relational schema.
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email           string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName       string     `bun:"first_name,notnull" json:"firstName,omitempty"`
	LastName        string     `bun:"last_name,notnull" json:"lastName,omitempty"`
	Instrument      string     `bun:"instrument" json:"instrument,omitempty"`
	ProfileImageURL string     `bun:"profile_image_url" json:"profileImageUrl,omitempty"`
	PasswordHash    string     `bun:"password_hash" json:"-"`
	LoginAttempts   int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt  *time.Time `bun:"login_attempt_at" json:"-"`
	LoggedInAt      *time.Time `bun:"loggedin_at" json:"-"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"-"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"-"`
	DeletedAt       *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
