package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-lookup/internal/app"
	"github.com/i474232898/weather-lookup/internal/saved"
)

var validate = validator.New()

// RegisterRoutes wires the view adapter handlers into the Fiber app.
func RegisterRoutes(router *fiber.App, ctrl *app.Controller) {
	v1 := router.Group("/api/v1")

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(ctrl.State())
	})

	v1.Post("/search", func(c *fiber.Ctx) error {
		var req searchRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		return c.JSON(ctrl.Search(c.UserContext(), req.Query))
	})

	v1.Post("/locate", func(c *fiber.Ctx) error {
		return c.JSON(ctrl.UseCurrentLocation(c.UserContext()))
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		return c.JSON(ctrl.Refresh(c.UserContext()))
	})

	v1.Get("/locations", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"locations": ctrl.SavedLocations(),
		})
	})

	v1.Post("/locations", func(c *fiber.Ctx) error {
		loc, err := ctrl.SaveCurrent(c.UserContext())
		switch {
		case errors.Is(err, saved.ErrAlreadySaved):
			return fiber.NewError(fiber.StatusConflict, "location is already saved")
		case errors.Is(err, app.ErrNothingToSave):
			return fiber.NewError(fiber.StatusConflict, "no weather data loaded to save")
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save location")
		}
		return c.Status(fiber.StatusCreated).JSON(loc)
	})

	v1.Delete("/locations/:id", func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		removed, err := ctrl.RemoveSaved(c.UserContext(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to remove location")
		}
		return c.JSON(fiber.Map{
			"removed": removed,
		})
	})

	v1.Post("/locations/:id/select", func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		st := ctrl.SelectSaved(c.UserContext(), id)
		if st.Status == app.StatusError && st.Message == app.MsgSavedLocationAbsent {
			return fiber.NewError(fiber.StatusNotFound, st.Message)
		}
		return c.JSON(st)
	})

	v1.Get("/credential", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"configured": ctrl.HasCredential(),
		})
	})

	v1.Put("/credential", func(c *fiber.Ctx) error {
		var req credentialRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		if err := ctrl.SetCredential(c.UserContext(), req.Key); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to store api key")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// searchRequest is the body of POST /search. An empty query is passed
// through so the controller reports it.
type searchRequest struct {
	Query string `json:"query" validate:"max=200"`
}

// credentialRequest is the body of PUT /credential.
type credentialRequest struct {
	Key string `json:"key" validate:"required,max=256"`
}

type idParam struct {
	ID string `validate:"required,max=64"`
}

func bindJSON(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func parseID(c *fiber.Ctx) (string, error) {
	p := idParam{ID: c.Params("id")}
	if err := validate.Struct(p); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return p.ID, nil
}
