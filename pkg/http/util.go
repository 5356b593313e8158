package http

import (
	"time"

	"github.com/labstack/echo/v4"

	xutil "BondPanel/pkg/util"
)

// QueryDate reads a YYYY-MM-DD query parameter. An absent parameter yields
// def; a malformed one is a bad request.
func QueryDate(c echo.Context, name string, def time.Time) (time.Time, error) {
	s := c.QueryParam(name)
	if s == "" {
		return def, nil
	}
	t, ok := xutil.ParseDate(s)
	if !ok {
		return time.Time{}, BadRequestErrorf("%s must be a date formatted as %s", name, xutil.DateLayout).
			WithParam("field", name)
	}
	return t, nil
}

// QueryDateRange reads the from/to query pair, defaulting open ends to
// the zero time and to the given upper bound.
func QueryDateRange(c echo.Context, upper time.Time) (DateRange, error) {
	from, err := QueryDate(c, "from", time.Time{})
	if err != nil {
		return DateRange{}, err
	}
	to, err := QueryDate(c, "to", upper)
	if err != nil {
		return DateRange{}, err
	}
	if !from.IsZero() && to.Before(from) {
		return DateRange{}, BadRequestError("to must not be before from")
	}
	return DateRange{From: from, To: to}, nil
}
