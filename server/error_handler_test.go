package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandmate/bandmate"
	"github.com/bandmate/bandmate/server"
)

func newErrorApp(production bool, err error) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: server.NewErrorHandler(bandmate.DefaultLogger(), production),
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return err
	})
	return app
}

func TestErrorHandlerRichError(t *testing.T) {
	err := goerrors.New("too many requests", goerrors.CategoryOperation).
		WithCode(fiber.StatusTooManyRequests)

	app := newErrorApp(false, err)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	res, aerr := app.Test(req, -1)
	require.NoError(t, aerr)

	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)

	body := decodeBody[errorBody](t, res)
	assert.Equal(t, "too many requests", body.Message)
	assert.NotEmpty(t, body.Stack)
	assert.NotEqual(t, "🥞", body.Stack)
}

func TestErrorHandlerNotFoundMasksMessage(t *testing.T) {
	err := goerrors.New("band not found in index", goerrors.CategoryNotFound)

	app := newErrorApp(false, err)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	res, aerr := app.Test(req, -1)
	require.NoError(t, aerr)

	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	body := decodeBody[errorBody](t, res)
	assert.Equal(t, "Not found", body.Message)
}

func TestErrorHandlerFiberError(t *testing.T) {
	app := newErrorApp(false, fiber.ErrTeapot)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	res, aerr := app.Test(req, -1)
	require.NoError(t, aerr)

	assert.Equal(t, fiber.StatusTeapot, res.StatusCode)
}

func TestErrorHandlerProductionRedactsStack(t *testing.T) {
	err := goerrors.New("secret internals exploded", goerrors.CategoryInternal).
		WithCode(goerrors.CodeInternal)

	app := newErrorApp(true, err)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	res, aerr := app.Test(req, -1)
	require.NoError(t, aerr)

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

	body := decodeBody[errorBody](t, res)
	assert.Equal(t, "🥞", body.Stack)
}

func TestErrorHandlerPlainError(t *testing.T) {
	app := newErrorApp(false, assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	res, aerr := app.Test(req, -1)
	require.NoError(t, aerr)

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

	// a plain error keeps its own message, same as the rich path
	body := decodeBody[errorBody](t, res)
	assert.Equal(t, assert.AnError.Error(), body.Message)
	assert.Equal(t, assert.AnError.Error(), body.Stack)
}
