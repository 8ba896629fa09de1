package response

import "github.com/gofiber/fiber/v2"

// Response represents a standard API response. Reason carries a stable
// machine-readable failure code for the mobile client; Message is for humans.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Fail sends an error response with a machine-readable reason code
func Fail(c *fiber.Ctx, statusCode int, reason, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Reason:  reason,
		Error:   message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, reason, message string) error {
	return Fail(c, fiber.StatusBadRequest, reason, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, reason, message string) error {
	return Fail(c, fiber.StatusNotFound, reason, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *fiber.Ctx, reason, message string) error {
	return Fail(c, fiber.StatusConflict, reason, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, reason, message string) error {
	return Fail(c, fiber.StatusInternalServerError, reason, message)
}
