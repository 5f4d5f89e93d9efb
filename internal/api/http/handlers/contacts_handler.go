package handlers

import (
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/contact-inbox/internal/api/dto"
	"github.com/spec-kit/contact-inbox/internal/auth"
	"github.com/spec-kit/contact-inbox/internal/domain"
	"github.com/spec-kit/contact-inbox/internal/repository"
	"github.com/spec-kit/contact-inbox/internal/service"
	apperrors "github.com/spec-kit/contact-inbox/pkg/util"
)

// ContactsHandler manages contact form submission and operator triage.
type ContactsHandler struct {
	service *service.ContactService
}

// NewContactsHandler constructs handler.
func NewContactsHandler(contactService *service.ContactService) *ContactsHandler {
	return &ContactsHandler{service: contactService}
}

// Submit POST /contacts (public).
func (h *ContactsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitContactRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("name and message required", nil)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return apperrors.NewValidationError("invalid email address", nil)
	}

	contact, err := h.service.Submit(c.UserContext(), service.ContactCreateInput{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": contactResponse(contact)})
}

// List GET /contacts (operator).
func (h *ContactsHandler) List(c *fiber.Ctx) error {
	filter := parseContactQuery(c)
	contacts, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ContactResponse, 0, len(contacts))
	for i := range contacts {
		items = append(items, contactResponse(&contacts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /contacts/:id (operator).
func (h *ContactsHandler) Get(c *fiber.Ctx) error {
	contact, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": contactResponse(contact)})
}

// Reply POST /contacts/:id/reply (operator).
func (h *ContactsHandler) Reply(c *fiber.Ctx) error {
	operator, ok := auth.OperatorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperrors.NewValidationError("body required", nil)
	}

	contact, err := h.service.Reply(c.UserContext(), operator.ID, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": contactResponse(contact)})
}

// Archive POST /contacts/:id/archive (operator).
func (h *ContactsHandler) Archive(c *fiber.Ctx) error {
	contact, err := h.service.Archive(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": contactResponse(contact)})
}

func parseContactQuery(c *fiber.Ctx) repository.ContactFilter {
	filter := repository.ContactFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.ContactStatus(strings.TrimSpace(part))
			if status.Valid() {
				filter.Statuses = append(filter.Statuses, status)
			}
		}
	}
	if email := c.Query("email"); email != "" {
		filter.Email = &email
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func contactResponse(contact *domain.Contact) dto.ContactResponse {
	return dto.ContactResponse{
		ID:            contact.ID,
		Name:          contact.Name,
		Email:         contact.Email,
		Message:       contact.Message,
		Status:        contact.Status,
		AdminReply:    contact.AdminReply,
		RepliedAt:     contact.RepliedAt,
		RepliedBy:     contact.RepliedBy,
		UserReply:     contact.UserReply,
		UserRepliedAt: contact.UserRepliedAt,
		CreatedAt:     contact.CreatedAt,
		UpdatedAt:     contact.UpdatedAt,
	}
}
