package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/energy-price-forecast/internal/common"
	"github.com/i474232898/energy-price-forecast/internal/geocode"
	"github.com/i474232898/energy-price-forecast/internal/price"
	"github.com/i474232898/energy-price-forecast/internal/transport"
	"github.com/i474232898/energy-price-forecast/internal/weather"
)

var validate = validator.New()

// Deps are the services behind the API.
type Deps struct {
	Weather   *weather.Service
	Geocoder  geocode.Resolver
	Prices    *price.Table
	Locations []weather.Location
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c, deps.Locations); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := deps.Weather.Historical(c.UserContext(), weather.HistoricalRequest{
			Location:  req.Location.Tag,
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
			Start:     req.Start,
			End:       req.End,
		})
		if err != nil {
			return toFiberError(err, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"location": req.Location,
			"start":    req.Start.Format(common.DateLayout),
			"end":      req.End.Format(common.DateLayout),
			"records":  records,
		})
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c, deps.Locations)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		req := weather.ForecastRequest{Location: loc.Tag, Latitude: loc.Latitude, Longitude: loc.Longitude}
		var records []weather.WeatherRecord
		if c.QueryBool("daily", false) {
			records, err = deps.Weather.DailyForecast(c.UserContext(), req)
		} else {
			records, err = deps.Weather.Forecast(c.UserContext(), req)
		}
		if err != nil {
			return toFiberError(err, "failed to fetch weather forecast")
		}

		return c.JSON(fiber.Map{
			"location": loc,
			"records":  records,
		})
	})

	v1.Get("/coordinates", func(c *fiber.Ctx) error {
		place := c.Query("place")
		if place == "" {
			return fiber.NewError(fiber.StatusBadRequest, "place query parameter is required")
		}
		coords, err := deps.Geocoder.Resolve(c.UserContext(), place)
		if err != nil {
			return toFiberError(err, "failed to resolve coordinates")
		}
		return c.JSON(fiber.Map{
			"place":       place,
			"coordinates": coords,
		})
	})

	v1.Get("/prices", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"currency": deps.Prices.Currency(),
			"prices":   deps.Prices.All(),
		})
	})

	v1.Get("/prices/:date", func(c *fiber.Ctx) error {
		date, err := common.ParseDate(c.Params("date"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date; use YYYY-MM-DD")
		}
		p, err := deps.Prices.Lookup(date)
		if err != nil {
			return toFiberError(err, "failed to look up price")
		}
		return c.JSON(fiber.Map{
			"date":     date.Format(common.DateLayout),
			"price":    p,
			"currency": deps.Prices.Currency(),
		})
	})
}

// toFiberError maps domain errors to HTTP statuses.
func toFiberError(err error, fallback string) error {
	switch {
	case errors.Is(err, weather.ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, geocode.ErrLocationNotFound), errors.Is(err, price.ErrPriceUnavailable):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, transport.ErrNetwork):
		return fiber.NewError(fiber.StatusBadGateway, fallback)
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}

// locationQuery identifies a location either by a configured tag or by
// explicit coordinates.
type locationQuery struct {
	Tag       string  `json:"tag" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

func parseLocationQuery(c *fiber.Ctx, known []weather.Location) (locationQuery, error) {
	var q locationQuery
	q.Tag = c.Query("location")

	lat, lon := c.Query("latitude"), c.Query("longitude")
	switch {
	case lat != "" && lon != "":
		var err error
		if q.Latitude, err = strconv.ParseFloat(lat, 64); err != nil {
			return q, errors.New("invalid latitude")
		}
		if q.Longitude, err = strconv.ParseFloat(lon, 64); err != nil {
			return q, errors.New("invalid longitude")
		}
	case lat == "" && lon == "":
		found := false
		for _, l := range known {
			if l.Key() == q.Tag {
				q.Latitude, q.Longitude = l.Latitude, l.Longitude
				found = true
				break
			}
		}
		if !found {
			return q, errors.New("unknown location; pass latitude and longitude")
		}
	default:
		return q, errors.New("latitude and longitude must be given together")
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location locationQuery
	Start    time.Time `validate:"required"`
	End      time.Time `validate:"required,gtefield=Start"`
}

func (h *historyQuery) bind(c *fiber.Ctx, known []weather.Location) error {
	loc, err := parseLocationQuery(c, known)
	if err != nil {
		return err
	}
	h.Location = loc

	startStr := c.Query("start")
	endStr := c.Query("end")
	if startStr == "" || endStr == "" {
		return errors.New("start and end query parameters are required")
	}

	if h.Start, err = parseTime(startStr); err != nil {
		return err
	}
	if h.End, err = parseTime(endStr); err != nil {
		return err
	}
	return nil
}

// parseTime accepts YYYY-MM-DD, RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if d, err := common.ParseDate(s); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use YYYY-MM-DD, RFC3339 or unix seconds")
}
