package controller

import (
	"spapperi-configurator/internal/dto"
	"spapperi-configurator/internal/pkg/serverutils"
	"spapperi-configurator/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type IRelayController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	GetExport(ctx *fiber.Ctx) error
}

type relayController struct {
	relayService service.IRelayService
}

func NewRelayController(relayService service.IRelayService) IRelayController {
	return &relayController{
		relayService: relayService,
	}
}

func (c *relayController) RegisterRoutes(r fiber.Router) {
	r.Post("chat", c.SendMessage)
	r.Post("message", c.SendMessage)

	h := r.Group("/conversation")
	h.Get(":id/history", c.GetHistory)
	h.Get(":id/export", c.GetExport)
}

func (c *relayController) SendMessage(ctx *fiber.Ctx) error {
	// fasthttp reuses the body buffer once the handler returns
	body := append([]byte(nil), ctx.Body()...)

	res, err := c.relayService.SendMessage(ctx.UserContext(), body)
	if err != nil {
		return err
	}
	return forward(ctx, res)
}

func (c *relayController) GetHistory(ctx *fiber.Ctx) error {
	params, err := conversationParams(ctx)
	if err != nil {
		return err
	}

	res, err := c.relayService.FetchHistory(ctx.UserContext(), params.ConversationId)
	if err != nil {
		return err
	}
	return forward(ctx, res)
}

func (c *relayController) GetExport(ctx *fiber.Ctx) error {
	params, err := conversationParams(ctx)
	if err != nil {
		return err
	}

	res, err := c.relayService.FetchExport(ctx.UserContext(), params.ConversationId)
	if err != nil {
		return err
	}
	return forward(ctx, res)
}

func conversationParams(ctx *fiber.Ctx) (*dto.ConversationParams, error) {
	// the id outlives the handler in funnel events; Params aliases the request buffer
	params := &dto.ConversationParams{ConversationId: utils.CopyString(ctx.Params("id"))}
	if err := serverutils.ValidateRequest(params); err != nil {
		return nil, err
	}
	return params, nil
}

func forward(ctx *fiber.Ctx, res *dto.RelayResult) error {
	if res.ContentType != "" {
		ctx.Set(fiber.HeaderContentType, res.ContentType)
	}
	return ctx.Status(res.Status).Send(res.Body)
}
