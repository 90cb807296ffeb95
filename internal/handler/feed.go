package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/service"
	"github.com/boxtvstar/tube-radar-sub000/internal/viral"
)

type FeedHandler struct {
	svc *service.MonitorService
}

func NewFeedHandler(svc *service.MonitorService) *FeedHandler {
	return &FeedHandler{svc: svc}
}

// Feed handles GET /api/feed?group=ID&perChannel=N&maxAgeDays=N&shortsOnly=bool&longOnly=bool&minScore=F&minTier=viral&locale=ko
func (h *FeedHandler) Feed(c fiber.Ctx) error {
	opts, errMsg := feedOptions(c)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	resp, err := h.svc.Feed(c.Context(), middleware.CurrentUser(c), model.GroupID(c.Query("group")), opts)
	if err != nil {
		return respondError(c, err, "Failed to build feed")
	}
	return c.JSON(resp)
}

// Outliers handles GET /api/feed/outliers
// Same parameters as Feed; only viral and explosive videos are returned.
func (h *FeedHandler) Outliers(c fiber.Ctx) error {
	opts, errMsg := feedOptions(c)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	resp, err := h.svc.Outliers(c.Context(), middleware.CurrentUser(c), model.GroupID(c.Query("group")), opts)
	if err != nil {
		return respondError(c, err, "Failed to build outlier feed")
	}
	return c.JSON(resp)
}

func feedOptions(c fiber.Ctx) (service.FeedOptions, string) {
	var opts service.FeedOptions
	var errMsg string

	if opts.PerChannel, errMsg = middleware.QueryInt(c, "perChannel", 0); errMsg != "" {
		return opts, errMsg
	}
	if opts.MaxAgeDays, errMsg = middleware.QueryInt(c, "maxAgeDays", 0); errMsg != "" {
		return opts, errMsg
	}
	if opts.ShortsOnly, errMsg = middleware.QueryBool(c, "shortsOnly"); errMsg != "" {
		return opts, errMsg
	}
	if opts.LongOnly, errMsg = middleware.QueryBool(c, "longOnly"); errMsg != "" {
		return opts, errMsg
	}
	if v := c.Query("minScore"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, "minScore must be a number"
		}
		opts.MinScore = f
	}
	switch tier := viral.Tier(c.Query("minTier")); tier {
	case "", viral.TierNormal, viral.TierRising, viral.TierViral, viral.TierExplosive:
		opts.MinTier = tier
	default:
		return opts, "minTier must be normal, rising, viral or explosive"
	}
	opts.Locale = c.Query("locale")
	return opts, ""
}
