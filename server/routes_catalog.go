package server

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/bandmate/bandmate"
	"github.com/bandmate/bandmate/middleware/bearer"
)

// CatalogController serves the band management resources. Every route
// sits behind the bearer guard.
type CatalogController struct {
	repo   bandmate.RepositoryManager
	logger bandmate.Logger
}

func NewCatalogController(repo bandmate.RepositoryManager, logger bandmate.Logger) *CatalogController {
	return &CatalogController{
		repo:   repo,
		logger: logger,
	}
}

func (a *CatalogController) RegisterRoutes(api fiber.Router, protected fiber.Handler, contextKey string) {
	users := api.Group("/users", protected)
	users.Get("/", a.UserList)
	users.Get("/:id", a.UserShow)

	bands := api.Group("/bands", protected)
	bands.Get("/", a.BandList)
	bands.Post("/", a.BandCreate(contextKey))
	bands.Get("/:id", a.BandShow)
	bands.Put("/:id", a.BandUpdate)
	bands.Delete("/:id", a.BandDelete)

	venues := api.Group("/venues", protected)
	venues.Get("/", a.VenueList)
	venues.Post("/", a.VenueCreate)
	venues.Get("/:id", a.VenueShow)
	venues.Put("/:id", a.VenueUpdate)
	venues.Delete("/:id", a.VenueDelete)

	rehearsals := api.Group("/rehearsals", protected)
	rehearsals.Get("/", a.RehearsalList)
	rehearsals.Post("/", a.RehearsalCreate)
	rehearsals.Get("/:id", a.RehearsalShow)
	rehearsals.Put("/:id", a.RehearsalUpdate)
	rehearsals.Delete("/:id", a.RehearsalDelete)

	songs := api.Group("/songs", protected)
	songs.Get("/", a.SongList)
	songs.Post("/", a.SongCreate)
	songs.Get("/:id", a.SongShow)
	songs.Put("/:id", a.SongUpdate)
	songs.Delete("/:id", a.SongDelete)

	setlists := api.Group("/setlists", protected)
	setlists.Get("/", a.SetlistList)
	setlists.Post("/", a.SetlistCreate)
	setlists.Get("/:id", a.SetlistShow)
	setlists.Put("/:id", a.SetlistUpdate)
	setlists.Delete("/:id", a.SetlistDelete)

	notifications := api.Group("/notifications", protected)
	notifications.Get("/", a.NotificationList(contextKey))
	notifications.Post("/:id/read", a.NotificationMarkRead(contextKey))
}

func paramID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid id").
			WithCode(goerrors.CodeBadRequest)
	}
	return id, nil
}

func parseBody[T any](c *fiber.Ctx) (*T, error) {
	payload := new(T)
	if err := c.BodyParser(payload); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "Error parsing body").
			WithCode(goerrors.CodeBadRequest)
	}
	return payload, nil
}

func invalid(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
		WithCode(goerrors.CodeBadRequest)
}

func claimsUserID(c *fiber.Ctx, contextKey string) (uuid.UUID, error) {
	claims, ok := c.Locals(contextKey).(bearer.AuthClaims)
	if !ok {
		return uuid.Nil, unauthorized(bearer.ErrTokenMissingOrMalformed)
	}
	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, unauthorized(err)
	}
	return id, nil
}

// optionalBandFilter reads the band_id query parameter used to scope
// list endpoints.
func optionalBandFilter(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Query("band_id")
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid band_id").
			WithCode(goerrors.CodeBadRequest)
	}
	return id, nil
}

// UserList is the member directory behind the guard. Password material
// never serializes; the model strips it.
func (a *CatalogController) UserList(c *fiber.Ctx) error {
	records, err := a.repo.Users().ListAll(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *CatalogController) UserShow(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	record, err := a.repo.Users().GetByUserID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

// BandPayload is the create and update body for bands.
type BandPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	ImageURL    string `json:"imageUrl"`
}

// Validate will validate the payload
func (r BandPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Genre, validation.Length(0, 100)),
	)
}

func (a *CatalogController) BandList(c *fiber.Ctx) error {
	records, err := a.repo.Bands().List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *CatalogController) BandCreate(contextKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload, err := parseBody[BandPayload](c)
		if err != nil {
			return err
		}
		if err := payload.Validate(); err != nil {
			return invalid(err)
		}

		userID, err := claimsUserID(c, contextKey)
		if err != nil {
			return err
		}

		record, err := a.repo.Bands().Create(c.Context(), &bandmate.Band{
			Name:        payload.Name,
			Description: payload.Description,
			Genre:       payload.Genre,
			ImageURL:    payload.ImageURL,
			CreatedByID: userID,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(record)
	}
}

func (a *CatalogController) BandShow(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	record, err := a.repo.Bands().GetByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *CatalogController) BandUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	payload, err := parseBody[BandPayload](c)
	if err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return invalid(err)
	}

	record, err := a.repo.Bands().Update(c.Context(), &bandmate.Band{
		ID:          id,
		Name:        payload.Name,
		Description: payload.Description,
		Genre:       payload.Genre,
		ImageURL:    payload.ImageURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *CatalogController) BandDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.repo.Bands().Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// VenuePayload is the create and update body for venues.
type VenuePayload struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	City         string `json:"city"`
	ContactPhone string `json:"contactPhone"`
	Capacity     int    `json:"capacity"`
}

// Validate will validate the payload
func (r VenuePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Capacity, validation.Min(0)),
		validation.Field(&r.ContactPhone, validation.By(validatePhone)),
	)
}

// validatePhone accepts E.164 or regionless international numbers.
func validatePhone(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	parsed, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return err
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation)
	}
	return nil
}

func (a *CatalogController) VenueList(c *fiber.Ctx) error {
	records, err := a.repo.Venues().List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *CatalogController) VenueCreate(c *fiber.Ctx) error {
	payload, err := parseBody[VenuePayload](c)
	if err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return invalid(err)
	}

	record, err := a.repo.Venues().Create(c.Context(), &bandmate.Venue{
		Name:         payload.Name,
		Address:      payload.Address,
		City:         payload.City,
		ContactPhone: normalizePhone(payload.ContactPhone),
		Capacity:     payload.Capacity,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

func normalizePhone(s string) string {
	if s == "" {
		return s
	}
	parsed, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return s
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

func (a *CatalogController) VenueShow(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	record, err := a.repo.Venues().GetByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *CatalogController) VenueUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	payload, err := parseBody[VenuePayload](c)
	if err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return invalid(err)
	}

	record, err := a.repo.Venues().Update(c.Context(), &bandmate.Venue{
		ID:           id,
		Name:         payload.Name,
		Address:      payload.Address,
		City:         payload.City,
		ContactPhone: normalizePhone(payload.ContactPhone),
		Capacity:     payload.Capacity,
	})
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *CatalogController) VenueDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.repo.Venues().Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RehearsalPayload is the create and update body for rehearsals.
type RehearsalPayload struct {
	BandID   uuid.UUID  `json:"bandId"`
	VenueID  *uuid.UUID `json:"venueId"`
	Title    string     `json:"title"`
	Notes    string     `json:"notes"`
	StartsAt time.Time  `json:"startsAt"`
	EndsAt   time.Time  `json:"endsAt"`
}

// Validate will validate the payload
func (r RehearsalPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BandID, validation.Required, validation.By(validateUUID)),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.StartsAt, validation.Required),
		validation.Field(&r.EndsAt, validation.Required, validation.By(validateAfter(r.StartsAt))),
	)
}

func validateUUID(value any) error {
	id, _ := value.(uuid.UUID)
	if id == uuid.Nil {
		return goerrors.New("must be a valid uuid", goerrors.CategoryValidation)
	}
	return nil
}

func validateAfter(start time.Time) validation.RuleFunc {
	return func(value any) error {
		end, _ := value.(time.Time)
		if !end.After(start) {
			return goerrors.New("must be after start time", goerrors.CategoryValidation)
		}
		return nil
	}
}

func (a *CatalogController) RehearsalList(c *fiber.Ctx) error {
	bandID, err := optionalBandFilter(c)
	if err != nil {
		return err
	}
	records, err := a.repo.Rehearsals().List(c.Context(), bandID)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *CatalogController) RehearsalCreate(c *fiber.Ctx) error {
	payload, err := parseBody[RehearsalPayload](c)
	if err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return invalid(err)
	}

	record, err := a.repo.Rehearsals().Create(c.Context(), &bandmate.Rehearsal{
		BandID:   payload.BandID,
		VenueID:  payload.VenueID,
		Title:    payload.Title,
		Notes:    payload.Notes,
		StartsAt: payload.StartsAt,
		EndsAt:   payload.EndsAt,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

func (a *CatalogController) RehearsalShow(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	record, err := a.repo.Rehearsals().GetByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *CatalogController) RehearsalUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	payload, err := parseBody[RehearsalPayload](c)
	if err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return invalid(err)
	}

	record, err := a.repo.Rehearsals().Update(c.Context(), &bandmate.Rehearsal{
		ID:       id,
		BandID:   payload.BandID,
		VenueID:  payload.VenueID,
		Title:    payload.Title,
		Notes:    payload.Notes,
		StartsAt: payload.StartsAt,
		EndsAt:   payload.EndsAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *CatalogController) RehearsalDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.repo.Rehearsals().Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SongPayload is the create and update body for repertoire songs.
type SongPayload struct {
	BandID      uuid.UUID `json:"bandId"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	DurationSec int       `json:"durationSec"`
	Key         string    `json:"key"`
	Notes       string    `json:"notes"`
}

// Validate will validate the payload
func (r SongPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BandID, validation.Required, validation.By(validateUUID)),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.DurationSec, validation.Min(0)),
	)
}

func (a *CatalogController) SongList(c *fiber.Ctx) error {
	bandID, err := optionalBandFilter(c)
	if err != nil {
		return err
	}
	records, err := a.repo.Songs().List(c.Context(), bandID)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *CatalogController) SongCreate(c *fiber.Ctx) error {
	payload, err := parseBody[SongPayload](c)
	if err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return invalid(err)
	}

	record, err := a.repo.Songs().Create(c.Context(), &bandmate.Song{
		BandID:      payload.BandID,
		Title:       payload.Title,
		Artist:      payload.Artist,
		DurationSec: payload.DurationSec,
		SongKey:     payload.Key,
		Notes:       payload.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

func (a *CatalogController) SongShow(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	record, err := a.repo.Songs().GetByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *CatalogController) SongUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	payload, err := parseBody[SongPayload](c)
	if err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return invalid(err)
	}

	record, err := a.repo.Songs().Update(c.Context(), &bandmate.Song{
		ID:          id,
		BandID:      payload.BandID,
		Title:       payload.Title,
		Artist:      payload.Artist,
		DurationSec: payload.DurationSec,
		SongKey:     payload.Key,
		Notes:       payload.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *CatalogController) SongDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.repo.Songs().Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetlistEntryPayload is one ordered song reference in a setlist body.
type SetlistEntryPayload struct {
	SongID uuid.UUID `json:"songId"`
}

// SetlistPayload is the create and update body for setlists. Songs are
// positional, the slice order is the setlist order.
type SetlistPayload struct {
	BandID      uuid.UUID             `json:"bandId"`
	RehearsalID *uuid.UUID            `json:"rehearsalId"`
	Name        string                `json:"name"`
	Notes       string                `json:"notes"`
	Songs       []SetlistEntryPayload `json:"songs"`
}

// Validate will validate the payload
func (r SetlistPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BandID, validation.Required, validation.By(validateUUID)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

func (r SetlistPayload) entries() []*bandmate.SetlistSong {
	if r.Songs == nil {
		return nil
	}
	entries := make([]*bandmate.SetlistSong, len(r.Songs))
	for i, s := range r.Songs {
		entries[i] = &bandmate.SetlistSong{SongID: s.SongID}
	}
	return entries
}

func (a *CatalogController) SetlistList(c *fiber.Ctx) error {
	bandID, err := optionalBandFilter(c)
	if err != nil {
		return err
	}
	records, err := a.repo.Setlists().List(c.Context(), bandID)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *CatalogController) SetlistCreate(c *fiber.Ctx) error {
	payload, err := parseBody[SetlistPayload](c)
	if err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return invalid(err)
	}

	record, err := a.repo.Setlists().Create(c.Context(), &bandmate.Setlist{
		BandID:      payload.BandID,
		RehearsalID: payload.RehearsalID,
		Name:        payload.Name,
		Notes:       payload.Notes,
		Songs:       payload.entries(),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

func (a *CatalogController) SetlistShow(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	record, err := a.repo.Setlists().GetByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *CatalogController) SetlistUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	payload, err := parseBody[SetlistPayload](c)
	if err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return invalid(err)
	}

	record, err := a.repo.Setlists().Update(c.Context(), &bandmate.Setlist{
		ID:          id,
		BandID:      payload.BandID,
		RehearsalID: payload.RehearsalID,
		Name:        payload.Name,
		Notes:       payload.Notes,
		Songs:       payload.entries(),
	})
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *CatalogController) SetlistDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.repo.Setlists().Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *CatalogController) NotificationList(contextKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := claimsUserID(c, contextKey)
		if err != nil {
			return err
		}
		records, err := a.repo.Notifications().ListForUser(c.Context(), userID)
		if err != nil {
			return err
		}
		return c.JSON(records)
	}
}

func (a *CatalogController) NotificationMarkRead(contextKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := claimsUserID(c, contextKey)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if err := a.repo.Notifications().MarkRead(c.Context(), id, userID); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
