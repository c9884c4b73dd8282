package controller

import (
	"errors"
	"net/url"
	"strconv"
	"time"

	"kb-console/internal/dto"
	"kb-console/internal/pkg/serverutils"
	"kb-console/internal/service"
	"kb-console/internal/view"
	"kb-console/pkg/registry"
	"kb-console/pkg/store"

	"github.com/gofiber/fiber/v2"
)

// headerReloadAfter tells the files script when the delayed reload that
// follows a delete will have landed, in milliseconds.
const headerReloadAfter = "X-Reload-After"

type IFileController interface {
	RegisterRoutes(r fiber.Router)
	Page(ctx *fiber.Ctx) error
	Panel(ctx *fiber.Ctx) error
	Filter(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Reload(ctx *fiber.Ctx) error
	DeleteByTag(ctx *fiber.Ctx) error
}

type fileController struct {
	service     service.IConsoleService
	reloadDelay time.Duration
}

func NewFileController(service service.IConsoleService, reloadDelay time.Duration) IFileController {
	return &fileController{service: service, reloadDelay: reloadDelay}
}

func (c *fileController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/files")
	h.Get("", c.Page)
	h.Get("/panel", c.Panel)
	h.Get("/filter", c.Filter)
	h.Post("/search", c.Search)
	h.Post("/reload", c.Reload)
	h.Post("/delete/:tag", c.DeleteByTag)
}

// Page renders the file manager. The first visit of a console loads the list.
func (c *fileController) Page(ctx *fiber.Ctx) error {
	console := c.service.Console(serverutils.ConsoleId(ctx))

	if !console.Files.Loaded() {
		// a failed load is shown inline by the page
		_ = c.service.LoadFiles(ctx.UserContext(), console, "")
	}

	html, err := view.FilesPage(console.Files.Snapshot(), console.Files.TakeNotice())
	if err != nil {
		return err
	}
	return sendHTML(ctx, string(html))
}

func (c *fileController) Panel(ctx *fiber.Ctx) error {
	return c.renderPanel(ctx, c.service.Console(serverutils.ConsoleId(ctx)))
}

// Filter narrows the cached list locally. It never calls the backend.
func (c *fileController) Filter(ctx *fiber.Ctx) error {
	console := c.service.Console(serverutils.ConsoleId(ctx))

	var req dto.FilterFilesRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	c.service.FilterFiles(console, req.Query)
	return c.renderPanel(ctx, console)
}

// Search asks the backend for the files of one tag.
func (c *fileController) Search(ctx *fiber.Ctx) error {
	console := c.service.Console(serverutils.ConsoleId(ctx))

	var req dto.SearchFilesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	_ = c.service.LoadFiles(ctx.UserContext(), console, req.Tag)
	return c.respond(ctx, console)
}

func (c *fileController) Reload(ctx *fiber.Ctx) error {
	console := c.service.Console(serverutils.ConsoleId(ctx))

	_ = c.service.LoadFiles(ctx.UserContext(), console, "")
	return c.respond(ctx, console)
}

func (c *fileController) DeleteByTag(ctx *fiber.Ctx) error {
	console := c.service.Console(serverutils.ConsoleId(ctx))

	tag, err := url.PathUnescape(ctx.Params("tag"))
	if err != nil || tag == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid tag")
	}

	// read directly: a bare POST without a body must still reach the
	// confirmation check
	confirmed, _ := strconv.ParseBool(ctx.FormValue("confirm"))
	req := dto.DeleteFilesRequest{Confirm: confirmed}

	_, err = c.service.DeleteFiles(ctx.UserContext(), console, tag, req.Confirm)
	if errors.Is(err, registry.ErrConfirmationRequired) {
		return err
	}
	if err == nil {
		ctx.Set(headerReloadAfter, strconv.FormatInt(c.reloadDelay.Milliseconds(), 10))
	}
	// a failed delete leaves its notice on the panel
	return c.respond(ctx, console)
}

func (c *fileController) respond(ctx *fiber.Ctx, console *store.Console) error {
	if !serverutils.WantsFragment(ctx) {
		return ctx.Redirect("/files", fiber.StatusSeeOther)
	}
	return c.renderPanel(ctx, console)
}

func (c *fileController) renderPanel(ctx *fiber.Ctx, console *store.Console) error {
	html, err := view.FilesPanel(console.Files.Snapshot(), console.Files.TakeNotice())
	if err != nil {
		return err
	}
	return sendHTML(ctx, string(html))
}
