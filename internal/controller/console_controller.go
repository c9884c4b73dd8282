package controller

import (
	"errors"

	"kb-console/internal/dto"
	"kb-console/internal/pkg/serverutils"
	"kb-console/internal/service"
	"kb-console/internal/view"
	"kb-console/pkg/chat"

	"github.com/gofiber/fiber/v2"
)

const headerSessionId = "X-Session-Id"

type IConsoleController interface {
	RegisterRoutes(r fiber.Router)
	Index(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	Query(ctx *fiber.Ctx) error
	StartSession(ctx *fiber.Ctx) error
	Transcript(ctx *fiber.Ctx) error
}

type consoleController struct {
	service service.IConsoleService
}

func NewConsoleController(service service.IConsoleService) IConsoleController {
	return &consoleController{service: service}
}

func (c *consoleController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.Index)
	r.Post("/upload", c.Upload)
	r.Post("/query", c.Query)
	r.Post("/session", c.StartSession)
	r.Get("/transcript", c.Transcript)
}

func (c *consoleController) Index(ctx *fiber.Ctx) error {
	console := c.service.Console(serverutils.ConsoleId(ctx))

	html, err := view.ConsolePage(console.ID, console.Chat.Snapshot())
	if err != nil {
		return err
	}
	return sendHTML(ctx, string(html))
}

func (c *consoleController) Upload(ctx *fiber.Ctx) error {
	console := c.service.Console(serverutils.ConsoleId(ctx))

	var req dto.UploadRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	input := chat.UploadInput{Tag: req.Tag}
	if fh, err := ctx.FormFile("file"); err == nil {
		file, err := fh.Open()
		if err != nil {
			return err
		}
		defer file.Close()
		input.FileName = fh.Filename
		input.Content = file
	}

	_, err := c.service.Upload(ctx.UserContext(), console, input)
	var verr *chat.ValidationError
	if err != nil && !errors.As(err, &verr) {
		return err
	}

	if !serverutils.WantsFragment(ctx) {
		return ctx.Redirect("/", fiber.StatusSeeOther)
	}
	html, err := view.UploadPanel(console.Chat.Snapshot().Upload)
	if err != nil {
		return err
	}
	return sendHTML(ctx, string(html))
}

func (c *consoleController) Query(ctx *fiber.Ctx) error {
	console := c.service.Console(serverutils.ConsoleId(ctx))

	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result, err := c.service.Query(ctx.UserContext(), console, chat.QueryInput{
		Question:    req.Question,
		Tag:         req.Tag,
		StyleNeeded: req.StyleNeeded,
	})
	if err != nil {
		return err
	}

	if !serverutils.WantsFragment(ctx) {
		return ctx.Redirect("/", fiber.StatusSeeOther)
	}
	html, err := view.Messages(result.Appended)
	if err != nil {
		return err
	}
	return sendHTML(ctx, string(html))
}

func (c *consoleController) StartSession(ctx *fiber.Ctx) error {
	console := c.service.Console(serverutils.ConsoleId(ctx))

	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	id := c.service.StartNewSession(ctx.UserContext(), console, req.SessionId)

	if !serverutils.WantsFragment(ctx) {
		return ctx.Redirect("/", fiber.StatusSeeOther)
	}
	ctx.Set(headerSessionId, id)
	return c.renderTranscript(ctx, console.Chat)
}

func (c *consoleController) Transcript(ctx *fiber.Ctx) error {
	console := c.service.Console(serverutils.ConsoleId(ctx))
	ctx.Set(headerSessionId, console.Chat.SessionId())
	return c.renderTranscript(ctx, console.Chat)
}

func (c *consoleController) renderTranscript(ctx *fiber.Ctx, controller *chat.Controller) error {
	html, err := view.Messages(controller.Snapshot().Messages)
	if err != nil {
		return err
	}
	return sendHTML(ctx, string(html))
}

func sendHTML(ctx *fiber.Ctx, html string) error {
	ctx.Type("html", "utf-8")
	return ctx.SendString(html)
}
