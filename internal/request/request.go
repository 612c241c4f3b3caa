// Package request decodes JSON request bodies for the wallet endpoints.
package request

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// DecodeJSON decodes the request body into v. Numbers are kept as
// json.Number so amounts reach money.Parse without float rounding. An empty
// body decodes as an empty object.
func DecodeJSON(c *fiber.Ctx, v any) error {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid JSON syntax")
	}
	if dec.More() {
		return fiber.NewError(http.StatusBadRequest, "Invalid JSON syntax")
	}
	return nil
}
